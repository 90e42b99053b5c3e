// Package notify announces finished builds to other services.
package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

// BuildCompleted is the message published after a build finishes.
type BuildCompleted struct {
	BuildID     string            `json:"build_id"`
	Outcome     string            `json:"outcome"`
	OutputDir   string            `json:"output_dir"`
	Revision    string            `json:"revision,omitempty"`
	Posts       int               `json:"posts"`
	Pages       int               `json:"pages"`
	DurationMS  int64             `json:"duration_ms"`
	Artifacts   map[string]string `json:"artifacts,omitempty"`
	Error       string            `json:"error,omitempty"`
	CompletedAt time.Time         `json:"completed_at"`
}

// Notifier publishes build notifications.
type Notifier interface {
	BuildCompleted(ctx context.Context, msg BuildCompleted) error
	Close() error
}

// Noop discards notifications.
type Noop struct{}

func (Noop) BuildCompleted(context.Context, BuildCompleted) error { return nil }
func (Noop) Close() error                                         { return nil }

// publisher is the part of *nats.Conn the notifier needs.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSNotifier publishes JSON messages on a NATS subject.
type NATSNotifier struct {
	conn    publisher
	subject string
	retry   retry.Policy
	logger  *slog.Logger
}

// DialNATS connects to the NATS server at url.
func DialNATS(url, subject string, logger *slog.Logger) (*NATSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("sitebuilder"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNotify, "failed to connect to NATS").
			WithContext("url", url).
			WithRetry(errors.RetryBackoff).
			Build()
	}
	logger.Info("NATS notifier connected", slog.String("url", url), slog.String("subject", subject))
	return &NATSNotifier{
		conn:    conn,
		subject: subject,
		retry:   retry.NewPolicy(retry.ModeExponential, 250*time.Millisecond, 2*time.Second, 2),
		logger:  logger,
	}, nil
}

// BuildCompleted publishes msg and waits for the server to acknowledge the
// flush, retrying failed attempts with backoff.
func (n *NATSNotifier) BuildCompleted(ctx context.Context, msg BuildCompleted) error {
	if msg.CompletedAt.IsZero() {
		msg.CompletedAt = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal build notification: %w", err)
	}

	attempts := 0
	err = n.retry.Do(ctx, retryable, func() error {
		attempts++
		return n.publish(ctx, data)
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryNotify, "failed to publish build notification").
			WithContext("subject", n.subject).
			WithContext("attempts", attempts).
			Build()
	}
	n.logger.Debug("Published build notification", slog.String("subject", n.subject), slog.String("build_id", msg.BuildID))
	return nil
}

func (n *NATSNotifier) publish(ctx context.Context, data []byte) error {
	if err := n.conn.Publish(n.subject, data); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return n.conn.FlushWithContext(ctx)
}

func retryable(err error) bool {
	return !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, nats.ErrConnectionClosed)
}

// Close closes the NATS connection.
func (n *NATSNotifier) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
