// Package archive_test tests batch archive assembly.
package archive_test

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-batch-service/internal/archive"
	"github.com/book-expert/tts-batch-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBatchID = "20240305_140709"

// ghostStore lists one extra name that no longer exists on disk.
type ghostStore struct {
	*store.FileStore
	ghost string
}

func (g ghostStore) ListByPrefix(prefix string) ([]string, error) {
	names, err := g.FileStore.ListByPrefix(prefix)
	if err != nil {
		return nil, err
	}

	return append(names, g.ghost), nil
}

func setup(t *testing.T) (*store.FileStore, *logger.Logger) {
	t.Helper()

	fileStore, err := store.New(filepath.Join(t.TempDir(), "audio_output"))
	require.NoError(t, err)

	testLogger, err := logger.New(t.TempDir(), "archive-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = testLogger.Close() })

	return fileStore, testLogger
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	contents := make(map[string]string, len(reader.File))

	for _, file := range reader.File {
		rc, openErr := file.Open()
		require.NoError(t, openErr)

		body, readErr := io.ReadAll(rc)
		require.NoError(t, readErr)
		require.NoError(t, rc.Close())

		contents[file.Name] = string(body)
	}

	return contents
}

func TestBuild_ContainsExactlyTheBatch(t *testing.T) {
	t.Parallel()

	fileStore, testLogger := setup(t)

	for _, name := range []string{
		"speech_20240305_140709_001.mp3",
		"speech_20240305_140709_002.mp3",
		"speech_20240305_140709_003.mp3",
		"speech_20240305_140710_001.mp3",
	} {
		require.NoError(t, fileStore.Write(name, []byte("data:"+name)))
	}

	data, err := archive.NewBuilder(fileStore, testLogger).Build(testBatchID)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"speech_20240305_140709_001.mp3": "data:speech_20240305_140709_001.mp3",
		"speech_20240305_140709_002.mp3": "data:speech_20240305_140709_002.mp3",
		"speech_20240305_140709_003.mp3": "data:speech_20240305_140709_003.mp3",
	}, readArchive(t, data))
}

func TestBuild_SkipsVanishedFiles(t *testing.T) {
	t.Parallel()

	fileStore, testLogger := setup(t)
	require.NoError(t, fileStore.Write("speech_20240305_140709_001.mp3", []byte("one")))

	source := ghostStore{FileStore: fileStore, ghost: "speech_20240305_140709_002.mp3"}

	data, err := archive.NewBuilder(source, testLogger).Build(testBatchID)
	require.NoError(t, err)

	contents := readArchive(t, data)
	assert.Len(t, contents, 1)
	assert.Contains(t, contents, "speech_20240305_140709_001.mp3")
}

func TestBuild_SkipsNonAudioFiles(t *testing.T) {
	t.Parallel()

	fileStore, testLogger := setup(t)

	require.NoError(t, fileStore.Write("speech_20240305_140709_001.mp3", []byte("one")))
	require.NoError(t, fileStore.Write("speech_20240305_140709_notes.txt", []byte("notes")))

	data, err := archive.NewBuilder(fileStore, testLogger).Build(testBatchID)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"speech_20240305_140709_001.mp3": "one"}, readArchive(t, data))

	require.NoError(t, fileStore.Write("speech_20240305_140710_notes.txt", []byte("notes")))

	_, err = archive.NewBuilder(fileStore, testLogger).Build("20240305_140710")
	require.ErrorIs(t, err, archive.ErrNotFound)
}

func TestBuild_EmptyBatch(t *testing.T) {
	t.Parallel()

	fileStore, testLogger := setup(t)

	_, err := archive.NewBuilder(fileStore, testLogger).Build(testBatchID)
	require.ErrorIs(t, err, archive.ErrNotFound)

	onlyGhost := ghostStore{FileStore: fileStore, ghost: "speech_20240305_140709_001.mp3"}

	_, err = archive.NewBuilder(onlyGhost, testLogger).Build(testBatchID)
	require.ErrorIs(t, err, archive.ErrNotFound)
}

func TestName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "audio_files_20240305_140709.zip", archive.Name(testBatchID))
}
