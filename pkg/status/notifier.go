package status

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/converse/pkg/models"
)

const (
	DefaultBuffer      = 16
	DefaultSendTimeout = 5 * time.Second

	pollInterval = 5 * time.Millisecond
)

var (
	ErrNotifierClosed = errors.New("notifier closed")
	ErrSendTimeout    = errors.New("timed out delivering status update")
)

// Notifier is a bounded channel of status updates read by the transport.
// Progress updates hold at most buffer slots and wait at most the send
// timeout for one, after which they are dropped. One extra slot is kept for
// the final update, so SendFinal never blocks and never drops.
type Notifier struct {
	updates chan models.StatusUpdate
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

func NewNotifier(buffer int, timeout time.Duration, logger *slog.Logger) *Notifier {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}

	return &Notifier{
		updates: make(chan models.StatusUpdate, buffer+1),
		timeout: timeout,
		logger:  logger.With("module", "status_notifier"),
	}
}

// Updates is closed after the final update was sent.
func (n *Notifier) Updates() <-chan models.StatusUpdate {
	return n.updates
}

// Send queues a progress update, leaving the final slot free.
func (n *Notifier) Send(ctx context.Context, update models.StatusUpdate) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNotifierClosed
	}

	timer := time.NewTimer(n.timeout)
	defer timer.Stop()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for len(n.updates) >= cap(n.updates)-1 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return ErrSendTimeout
		case <-ticker.C:
		}
	}

	n.updates <- update

	return nil
}

// SendFinal queues the final update into the reserved slot and closes the
// channel. Senders are serialized, so the slot is always free here.
func (n *Notifier) SendFinal(update models.StatusUpdate) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNotifierClosed
	}

	n.updates <- update
	n.closed = true
	close(n.updates)

	return nil
}

func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}

	n.closed = true
	close(n.updates)
}
