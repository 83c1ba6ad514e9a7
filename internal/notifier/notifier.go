// Package notifier announces newly written audio files on a NATS subject.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/tts-batch-service/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	clientName     = "tts-batch-service"
	connectTimeout = 5 * time.Second
)

var (
	// ErrURLEmpty indicates that no NATS URL was configured.
	ErrURLEmpty = errors.New("nats url cannot be empty")
	// ErrSubjectEmpty indicates that no subject was configured.
	ErrSubjectEmpty = errors.New("nats subject cannot be empty")
)

// NatsNotifier publishes an events.AudioChunkCreatedEvent per audio file.
type NatsNotifier struct {
	natsConnection *nats.Conn
	subject        string
	log            *logger.Logger
}

// Connect dials the NATS server at url.
func Connect(url, subject string, log *logger.Logger) (*NatsNotifier, error) {
	if url == "" {
		return nil, ErrURLEmpty
	}

	natsConnection, err := nats.Connect(url, nats.Name(clientName), nats.Timeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	notifier, err := New(natsConnection, subject, log)
	if err != nil {
		natsConnection.Close()

		return nil, err
	}

	return notifier, nil
}

// New wraps an existing connection.
func New(natsConnection *nats.Conn, subject string, log *logger.Logger) (*NatsNotifier, error) {
	if subject == "" {
		return nil, ErrSubjectEmpty
	}

	return &NatsNotifier{
		natsConnection: natsConnection,
		subject:        subject,
		log:            log,
	}, nil
}

// AudioCreated publishes evt. Failures are logged and otherwise ignored.
func (n *NatsNotifier) AudioCreated(_ context.Context, evt core.AudioCreated) {
	payload, err := json.Marshal(toEvent(evt))
	if err != nil {
		n.log.Error("Failed to marshal audio event for %s: %v", evt.FileName, err)

		return
	}

	err = n.natsConnection.Publish(n.subject, payload)
	if err != nil {
		n.log.Warn("Failed to publish audio event for %s on %s: %v", evt.FileName, n.subject, err)
	}
}

// Close flushes pending messages and closes the connection.
func (n *NatsNotifier) Close() error {
	drainErr := n.natsConnection.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain NATS connection: %w", drainErr)
	}

	return nil
}

func toEvent(evt core.AudioCreated) *events.AudioChunkCreatedEvent {
	return &events.AudioChunkCreatedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: evt.BatchID,
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		AudioKey:   evt.FileName,
		PageNumber: evt.LineNumber,
		TotalPages: evt.TotalLines,
	}
}

// Nop discards every announcement.
type Nop struct{}

// AudioCreated does nothing.
func (Nop) AudioCreated(context.Context, core.AudioCreated) {}
