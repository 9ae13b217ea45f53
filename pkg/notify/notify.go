package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity tags for notifications
const (
	SeveritySuccess = "success"
	SeverityError   = "error"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// DismissAfter is how long a notification stays active before it is
// auto-dismissed.
const DismissAfter = 5 * time.Second

// Notification is a fire-and-forget transient message surfaced to the user.
type Notification struct {
	ID        string    `json:"id"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder is the interface for notification sinks.
type Recorder interface {
	// Record records a notification
	Record(n Notification)
}

// NowFunc returns the current time. Swappable for tests.
type NowFunc func() time.Time

// MemoryRecorder keeps notifications in memory and exposes the set that
// has not yet aged past DismissAfter.
type MemoryRecorder struct {
	mu            sync.Mutex
	now           NowFunc
	notifications []Notification
}

// NewMemoryRecorder creates a recorder using wall-clock time.
func NewMemoryRecorder() *MemoryRecorder {
	return NewMemoryRecorderWithNow(time.Now)
}

// NewMemoryRecorderWithNow creates a recorder with an injected time source.
func NewMemoryRecorderWithNow(now NowFunc) *MemoryRecorder {
	if now == nil {
		now = time.Now
	}
	return &MemoryRecorder{now: now}
}

// Record records a notification, stamping ID and timestamp if unset.
func (r *MemoryRecorder) Record(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = r.now()
	}
	r.notifications = append(r.notifications, n)
}

// Active returns the notifications that have not auto-dismissed yet,
// dropping expired entries as a side effect.
func (r *MemoryRecorder) Active() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-DismissAfter)
	kept := r.notifications[:0]
	for _, n := range r.notifications {
		if n.Timestamp.After(cutoff) {
			kept = append(kept, n)
		}
	}
	r.notifications = kept

	out := make([]Notification, len(kept))
	copy(out, kept)
	return out
}

// All returns every recorded notification regardless of age.
func (r *MemoryRecorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// NoopRecorder discards all notifications.
type NoopRecorder struct{}

// Record does nothing
func (NoopRecorder) Record(n Notification) {}

// Global recorder
var globalRecorder Recorder = NoopRecorder{}
var globalRecorderMu sync.Mutex

// SetGlobalRecorder sets the global recorder
func SetGlobalRecorder(r Recorder) {
	globalRecorderMu.Lock()
	defer globalRecorderMu.Unlock()

	if r == nil {
		r = NoopRecorder{}
	}
	globalRecorder = r
}

// GetGlobalRecorder gets the global recorder
func GetGlobalRecorder() Recorder {
	globalRecorderMu.Lock()
	defer globalRecorderMu.Unlock()

	return globalRecorder
}

// Success records a success notification on the global recorder
func Success(message string) {
	GetGlobalRecorder().Record(Notification{Severity: SeveritySuccess, Message: message})
}

// Info records an info notification on the global recorder
func Info(message string) {
	GetGlobalRecorder().Record(Notification{Severity: SeverityInfo, Message: message})
}

// Infof records a formatted info notification on the global recorder
func Infof(format string, args ...interface{}) {
	Info(fmt.Sprintf(format, args...))
}

// Warning records a warning notification on the global recorder
func Warning(message string) {
	GetGlobalRecorder().Record(Notification{Severity: SeverityWarning, Message: message})
}

// Errorf records an error notification on the global recorder
func Errorf(format string, args ...interface{}) {
	GetGlobalRecorder().Record(Notification{Severity: SeverityError, Message: fmt.Sprintf(format, args...)})
}
