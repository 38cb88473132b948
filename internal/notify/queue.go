// Package notify implements the ordered, time-bounded queue of toast notifications.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vilaca/branch-dashboard/internal/domain"
)

// DefaultTTL is how long a notification stays visible unless dismissed.
const DefaultTTL = 4000 * time.Millisecond

// Event types delivered to a Listener.
const (
	EventAdded   = "notification.added"
	EventRemoved = "notification.removed"
)

// Event describes one transition of the queue.
type Event struct {
	Type         string              `json:"type"`
	Notification domain.Notification `json:"notification"`
}

// Listener observes queue transitions. It is called outside the queue lock,
// once per addition and once per removal.
type Listener func(Event)

type entry struct {
	n     domain.Notification
	timer *time.Timer
}

// Queue holds notifications in insertion order. Each entry is removed after the
// TTL elapses or when dismissed, whichever comes first.
// Queue is safe for concurrent use; expiry timers run on their own goroutines.
type Queue struct {
	mu       sync.Mutex
	ttl      time.Duration
	entries  []*entry
	listener Listener
	now      func() time.Time
	newID    func() string
	closed   bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithListener registers l for added/removed events.
func WithListener(l Listener) Option {
	return func(q *Queue) { q.listener = l }
}

// NewQueue creates a queue whose entries expire after ttl (DefaultTTL when ttl <= 0).
func NewQueue(ttl time.Duration, opts ...Option) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	q := &Queue{
		ttl:   ttl,
		now:   time.Now,
		newID: newTimeOrderedID,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// newTimeOrderedID returns a UUIDv7, whose leading bits are the creation time in milliseconds.
func newTimeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// TTL returns the display window of each notification.
func (q *Queue) TTL() time.Duration {
	return q.ttl
}

// Enqueue appends a notification and schedules its removal. An empty or unknown
// type is recorded as info. It returns the notification id.
func (q *Queue) Enqueue(message string, typ domain.NotificationType) string {
	if !typ.Valid() {
		typ = domain.NotificationInfo
	}

	created := q.now()
	n := domain.Notification{
		ID:        q.newID(),
		Message:   message,
		Type:      typ,
		CreatedAt: created,
		ExpiresAt: created.Add(q.ttl),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return n.ID
	}
	e := &entry{n: n}
	q.entries = append(q.entries, e)
	id := n.ID
	e.timer = time.AfterFunc(q.ttl, func() { q.remove(id) })
	q.mu.Unlock()

	q.emit(Event{Type: EventAdded, Notification: n})
	return n.ID
}

// Info enqueues an info notification.
func (q *Queue) Info(message string) string {
	return q.Enqueue(message, domain.NotificationInfo)
}

// Dismiss removes the notification immediately and cancels its pending expiry.
// Unknown or already expired ids are ignored.
func (q *Queue) Dismiss(id string) bool {
	return q.remove(id)
}

// List returns the current notifications in display order.
func (q *Queue) List() []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.Notification, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.n
	}
	return out
}

// Len returns the number of visible notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close stops every pending timer and drops all entries without emitting events.
// Enqueue after Close is a no-op.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		e.timer.Stop()
	}
	q.entries = nil
	q.closed = true
}

func (q *Queue) remove(id string) bool {
	q.mu.Lock()
	idx := -1
	for i, e := range q.entries {
		if e.n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return false
	}

	e := q.entries[idx]
	e.timer.Stop()
	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	q.mu.Unlock()

	q.emit(Event{Type: EventRemoved, Notification: e.n})
	return true
}

func (q *Queue) emit(ev Event) {
	if q.listener != nil {
		q.listener(ev)
	}
}
