// Package store_test tests the flat-file audio store.
package store_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/tts-batch-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.FileStore {
	t.Helper()

	fileStore, err := store.New(filepath.Join(t.TempDir(), "audio_output"))
	require.NoError(t, err)

	return fileStore
}

func TestNew_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "out")

	_, err := store.New(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNew_EmptyDir(t *testing.T) {
	t.Parallel()

	_, err := store.New("")
	require.ErrorIs(t, err, store.ErrDirEmpty)
}

func TestFileStore_WriteRead(t *testing.T) {
	t.Parallel()

	fileStore := newStore(t)

	require.NoError(t, fileStore.Write("speech_20240101_120000_001.mp3", []byte("first")))
	require.NoError(t, fileStore.Write("speech_20240101_120000_001.mp3", []byte("second")))

	data, err := fileStore.Read("speech_20240101_120000_001.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	reader, err := fileStore.Open("speech_20240101_120000_001.mp3")
	require.NoError(t, err)

	defer reader.Close()

	streamed, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), streamed)
}

func TestFileStore_ReadMissing(t *testing.T) {
	t.Parallel()

	fileStore := newStore(t)

	_, err := fileStore.Read("absent.mp3")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = fileStore.Open("absent.mp3")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	t.Parallel()

	fileStore := newStore(t)

	for _, name := range []string{"", ".", "..", "../secret", "a/b.mp3", `a\b.mp3`} {
		_, err := fileStore.Read(name)
		require.ErrorIs(t, err, store.ErrInvalidName, name)

		require.ErrorIs(t, fileStore.Write(name, []byte("x")), store.ErrInvalidName, name)
	}
}

func TestFileStore_ListByPrefix(t *testing.T) {
	t.Parallel()

	fileStore := newStore(t)

	for _, name := range []string{
		"speech_20240101_120000_002.mp3",
		"speech_20240101_120000_001.mp3",
		"speech_20240101_120001_001.mp3",
		"other.mp3",
	} {
		require.NoError(t, fileStore.Write(name, []byte(name)))
	}

	require.NoError(t, os.Mkdir(filepath.Join(fileStore.Dir(), "speech_20240101_120000_dir"), 0o750))

	names, err := fileStore.ListByPrefix("speech_20240101_120000")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"speech_20240101_120000_001.mp3",
		"speech_20240101_120000_002.mp3",
	}, names)

	names, err = fileStore.ListByPrefix("speech_19990101")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestIsAudioFile(t *testing.T) {
	t.Parallel()

	assert.True(t, store.IsAudioFile("speech_1.mp3"))
	assert.True(t, store.IsAudioFile("speech_1.WAV"))
	assert.False(t, store.IsAudioFile("notes.txt"))
	assert.False(t, store.IsAudioFile("noext"))
}
