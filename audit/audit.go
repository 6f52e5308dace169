// Package audit provides an asynchronous audit trail for bridge links and
// handoffs. Events never carry raw session tokens or OTP codes.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the bridge.
const (
	ActionLinkIssued      = "link_issued"
	ActionHandoff         = "handoff"
	ActionWebhookRejected = "webhook_rejected"
)

// Results recorded by the bridge.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDenied  = "denied"
)

// Event represents one audited bridge operation.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Region    string    `json:"region,omitempty"`
	Result    string    `json:"result"`
	Details   string    `json:"details,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Handler processes audit events. Implementations should not block.
type Handler func(event Event)

// Logger emits audit events to configured handlers.
type Logger struct {
	handlers []Handler
	queue    chan Event
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// Option configures Logger behavior.
type Option func(*Logger)

// WithWriterHandler adds a handler that writes one JSON event per line to w.
func WithWriterHandler(w io.Writer) Option {
	return func(l *Logger) {
		var mu sync.Mutex
		l.AddHandler(func(e Event) {
			data, _ := json.Marshal(e)
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(w, "%s\n", data)
		})
	}
}

// WithSlogHandler adds a handler that emits events through logger at info level.
func WithSlogHandler(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.AddHandler(func(e Event) {
			logger.Info("audit",
				"audit_id", e.ID,
				"action", e.Action,
				"result", e.Result,
				"request_id", e.RequestID,
				"user_id", e.UserID,
				"region", e.Region,
				"details", e.Details,
				"error", e.Error,
			)
		})
	}
}

// WithHandler adds a custom event handler.
func WithHandler(h Handler) Option {
	return func(l *Logger) {
		l.AddHandler(h)
	}
}

// New creates a new audit logger with buffered async emission.
// bufferSize: event queue buffer size (default: 1000).
func New(bufferSize int, opts ...Option) *Logger {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	logger := &Logger{
		handlers: make([]Handler, 0),
		queue:    make(chan Event, bufferSize),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(logger)
	}

	logger.wg.Add(1)
	go logger.process()

	return logger
}

// AddHandler adds a handler to receive audit events. Call it before the
// first Log.
func (l *Logger) AddHandler(h Handler) {
	l.handlers = append(l.handlers, h)
}

// Log emits an audit event asynchronously. A nil Logger drops the event.
func (l *Logger) Log(event Event) {
	if l == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// closed loggers drop events; checked first so a buffered queue never
	// wins the race against done
	select {
	case <-l.done:
		return
	default:
	}

	select {
	case l.queue <- event:
	case <-l.done:
	}
}

func (l *Logger) process() {
	defer l.wg.Done()

	for {
		select {
		case event := <-l.queue:
			l.emit(event)
		case <-l.done:
			for {
				select {
				case event := <-l.queue:
					l.emit(event)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) emit(event Event) {
	for _, h := range l.handlers {
		h(event)
	}
}

// Close flushes pending events and stops the logger. It is safe to call
// more than once.
func (l *Logger) Close() error {
	l.once.Do(func() { close(l.done) })
	l.wg.Wait()
	return nil
}
