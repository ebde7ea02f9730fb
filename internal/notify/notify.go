// Package notify carries the transient success and failure notices the UI
// shows after each user action.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hongminglow/farmconnect/internal/apperr"
)

// Level is the severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is one user-visible notification.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier receives notices.
type Notifier interface {
	Success(message string)
	Error(message string, err error)
}

// Feed buffers the most recent notices until the UI drains them.
type Feed struct {
	mu      sync.Mutex
	notices []Notice
	limit   int
	logger  *slog.Logger
	now     func() time.Time
}

// NewFeed keeps at most limit notices, dropping the oldest.
func NewFeed(limit int, logger *slog.Logger) *Feed {
	if limit <= 0 {
		limit = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{limit: limit, logger: logger, now: time.Now}
}

// Success records a success notice.
func (f *Feed) Success(message string) {
	f.push(Notice{Level: LevelSuccess, Message: message})
}

// Error records a failure notice. The error's own message is shown when it
// has one, otherwise message.
func (f *Feed) Error(message string, err error) {
	n := Notice{Level: LevelError, Message: message}
	if err != nil {
		detail, code := apperr.Describe(err)
		if code != "unknown_error" && detail != "" {
			n.Message = message + ": " + detail
		}
		n.Code = code
	}
	f.push(n)
}

// Drain returns the buffered notices oldest first and empties the feed.
func (f *Feed) Drain() []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.notices
	f.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

func (f *Feed) push(n Notice) {
	n.At = f.now().UTC()
	f.logger.Debug("notice", "level", n.Level, "message", n.Message, "code", n.Code)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	if over := len(f.notices) - f.limit; over > 0 {
		f.notices = append([]Notice(nil), f.notices[over:]...)
	}
}
