// Package archive bundles the audio files of one batch into a zip.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-batch-service/internal/batch"
	"github.com/book-expert/tts-batch-service/internal/core"
	"github.com/book-expert/tts-batch-service/internal/store"
)

const archiveNameFormat = "audio_files_%s.zip"

// ErrNotFound is returned when a batch has no files to archive.
var ErrNotFound = errors.New("no audio files found for batch")

// Builder assembles in-memory zip archives from an audio store.
type Builder struct {
	store core.AudioStore
	log   *logger.Logger
}

// NewBuilder creates a Builder reading from audioStore.
func NewBuilder(audioStore core.AudioStore, log *logger.Logger) *Builder {
	return &Builder{store: audioStore, log: log}
}

// Name returns the download name of a batch archive.
func Name(batchID string) string {
	return fmt.Sprintf(archiveNameFormat, batchID)
}

// Build zips every file of batchID under its bare name. Files that disappear
// between listing and reading are skipped.
func (b *Builder) Build(batchID string) ([]byte, error) {
	names, err := b.store.ListByPrefix(batch.Prefix(batchID))
	if err != nil {
		return nil, fmt.Errorf("failed to list batch %s: %w", batchID, err)
	}

	var buf bytes.Buffer

	writer := zip.NewWriter(&buf)
	added := 0

	for _, name := range names {
		ok, addErr := b.add(writer, name)
		if addErr != nil {
			_ = writer.Close()

			return nil, addErr
		}

		if ok {
			added++
		}
	}

	closeErr := writer.Close()
	if closeErr != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", closeErr)
	}

	if added == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, batchID)
	}

	b.log.Info("Archived batch %s: %d files, %d bytes", batchID, added, buf.Len())

	return buf.Bytes(), nil
}

func (b *Builder) add(writer *zip.Writer, name string) (bool, error) {
	if !store.IsAudioFile(name) {
		return false, nil
	}

	src, err := b.store.Open(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			b.log.Warn("Skipping %s: removed before it could be archived", name)

			return false, nil
		}

		return false, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer src.Close()

	dst, err := writer.Create(name)
	if err != nil {
		return false, fmt.Errorf("failed to add %s to archive: %w", name, err)
	}

	_, err = io.Copy(dst, src)
	if err != nil {
		return false, fmt.Errorf("failed to copy %s into archive: %w", name, err)
	}

	return true, nil
}
