// Package core defines the interfaces shared by the batch service components.
package core

import (
	"context"
	"io"
)

// Synthesizer turns one piece of text into encoded audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioStore is a flat, name-addressed store of audio files.
type AudioStore interface {
	Write(name string, data []byte) error
	Read(name string) ([]byte, error)
	Open(name string) (io.ReadCloser, error)
	ListByPrefix(prefix string) ([]string, error)
}

// AudioCreated describes one audio file written as part of a batch.
type AudioCreated struct {
	BatchID    string
	FileName   string
	LineNumber int
	TotalLines int
}

// Notifier announces audio files as they are written. Implementations must
// not block batch processing on delivery failures.
type Notifier interface {
	AudioCreated(ctx context.Context, evt AudioCreated)
}
