// Package batch turns multi-line text into one audio file per line.
//
// A batch is identified by the local time it started at, to the second. Each
// non-blank line becomes speech_<batch>_<line>.mp3. Lines are synthesized in
// order and the first failure ends the batch; files already written stay on
// disk.
package batch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-batch-service/internal/core"
)

// Naming constants.
const (
	IDLayout       = "20060102_150405"
	filePrefix     = "speech_"
	fileExtension  = ".mp3"
	fileNameFormat = filePrefix + "%s_%03d" + fileExtension
)

// Log formats.
const (
	logFmtBatchStarted  = "Batch %s started with %d lines"
	logFmtLineWritten   = "Batch %s line %d/%d written to %s (%d bytes)"
	logFmtLineFailed    = "Batch %s aborted at line %d: %v"
	logFmtBatchFinished = "Batch %s finished: %d files in %s"
)

var (
	// ErrEmptyInput is returned when the text holds no non-blank line.
	ErrEmptyInput = errors.New("text content cannot be empty")

	batchIDPattern = regexp.MustCompile(`^\d{8}_\d{6}$`)
)

// LineError reports the line at which a batch stopped.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d speech generation failed: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Line is one synthesized line of a batch.
type Line struct {
	Number   int    `json:"line_number"`
	Text     string `json:"text"`
	FileName string `json:"file_path"`
}

// Result describes a fully processed batch.
type Result struct {
	BatchID    string `json:"batch_id"`
	TotalLines int    `json:"total_lines"`
	Files      []Line `json:"files"`
}

// Processor runs batches against a synthesizer and a store.
type Processor struct {
	synth    core.Synthesizer
	store    core.AudioStore
	notifier core.Notifier
	log      *logger.Logger
	now      func() time.Time
}

// Option customizes a Processor.
type Option func(*Processor)

// WithClock replaces the time source used for batch ids.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// WithNotifier announces every written file through notifier.
func WithNotifier(notifier core.Notifier) Option {
	return func(p *Processor) {
		p.notifier = notifier
	}
}

// NewProcessor creates a Processor.
func NewProcessor(
	synth core.Synthesizer,
	store core.AudioStore,
	log *logger.Logger,
	opts ...Option,
) *Processor {
	processor := &Processor{
		synth:    synth,
		store:    store,
		notifier: nil,
		log:      log,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(processor)
	}

	return processor
}

// Process synthesizes every non-blank line of rawText.
func (p *Processor) Process(ctx context.Context, rawText string) (*Result, error) {
	lines := SplitLines(rawText)
	if len(lines) == 0 {
		return nil, ErrEmptyInput
	}

	start := p.now()
	batchID := start.Format(IDLayout)
	total := len(lines)

	p.log.Info(logFmtBatchStarted, batchID, total)

	files := make([]Line, 0, total)

	for index, text := range lines {
		number := index + 1
		name := FileName(batchID, number)

		size, err := p.processLine(ctx, text, name)
		if err != nil {
			p.log.Error(logFmtLineFailed, batchID, number, err)

			return nil, &LineError{Line: number, Err: err}
		}

		p.log.Info(logFmtLineWritten, batchID, number, total, name, size)

		if p.notifier != nil {
			p.notifier.AudioCreated(ctx, core.AudioCreated{
				BatchID:    batchID,
				FileName:   name,
				LineNumber: number,
				TotalLines: total,
			})
		}

		files = append(files, Line{Number: number, Text: text, FileName: name})
	}

	p.log.Info(logFmtBatchFinished, batchID, len(files), p.now().Sub(start).Round(time.Millisecond))

	return &Result{BatchID: batchID, TotalLines: total, Files: files}, nil
}

func (p *Processor) processLine(ctx context.Context, text, name string) (int, error) {
	audioData, err := p.synth.Synthesize(ctx, text)
	if err != nil {
		return 0, err
	}

	err = p.store.Write(name, audioData)
	if err != nil {
		return 0, fmt.Errorf("failed to store audio: %w", err)
	}

	return len(audioData), nil
}

// SplitLines splits text on newlines and returns the trimmed, non-empty lines
// in their original order.
func SplitLines(text string) []string {
	var lines []string

	for _, segment := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(segment)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	return lines
}

// FileName returns the file name for a 1-based line number. Numbers below
// 1000 are zero-padded to three digits; larger numbers keep all their digits.
func FileName(batchID string, line int) string {
	return fmt.Sprintf(fileNameFormat, batchID, line)
}

// Prefix returns the name prefix shared by every file of a batch.
func Prefix(batchID string) string {
	return filePrefix + batchID
}

// ValidID reports whether id has the YYYYMMDD_HHMMSS shape.
func ValidID(id string) bool {
	return batchIDPattern.MatchString(id)
}
