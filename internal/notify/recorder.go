package notify

import (
	"context"
	"errors"
	"sync"
)

// Recorder captures notifications in memory. Used by tests and local runs.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
	failNext      bool
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		return errors.New("simulated delivery failure")
	}
	r.notifications = append(r.notifications, n)
	return nil
}

// Sent returns a copy of everything delivered so far.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification{}, r.notifications...)
}

// FailDeliveries makes every subsequent Notify call fail. Tests use it to
// verify that delivery failures never fail the update.
func (r *Recorder) FailDeliveries(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = fail
}
