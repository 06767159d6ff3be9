package reminder

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryDispatcher keeps scheduled notifications in process. Immediate
// notifications are recorded as delivered instead of scheduled.
type MemoryDispatcher struct {
	mu         sync.Mutex
	permission Permission
	scheduled  []Scheduled
	delivered  []Scheduled
	failAfter  int
	failErr    error
}

func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{permission: PermissionGranted, failAfter: -1}
}

func (d *MemoryDispatcher) SetPermission(p Permission) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.permission = p
}

// FailAfter lets the next n Schedule calls succeed and fails every later one with err.
func (d *MemoryDispatcher) FailAfter(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAfter = n
	d.failErr = err
}

func (d *MemoryDispatcher) RequestPermission(_ context.Context) (Permission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission, nil
}

func (d *MemoryDispatcher) Schedule(_ context.Context, content Content, trigger Trigger) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.permission != PermissionGranted {
		return "", ErrPermissionDenied
	}
	if d.failAfter == 0 {
		return "", d.failErr
	}
	if d.failAfter > 0 {
		d.failAfter--
	}

	s := Scheduled{Handle: Handle(uuid.NewString()), Content: content, Trigger: trigger}
	if trigger.Kind == TriggerImmediate {
		d.delivered = append(d.delivered, s)
	} else {
		d.scheduled = append(d.scheduled, s)
	}
	return s.Handle, nil
}

func (d *MemoryDispatcher) Cancel(_ context.Context, h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, s := range d.scheduled {
		if s.Handle == h {
			d.scheduled = append(d.scheduled[:i], d.scheduled[i+1:]...)
			break
		}
	}
	return nil
}

func (d *MemoryDispatcher) CancelAll(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scheduled = nil
	return nil
}

func (d *MemoryDispatcher) ListScheduled(_ context.Context) ([]Scheduled, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Scheduled, len(d.scheduled))
	copy(out, d.scheduled)
	return out, nil
}

func (d *MemoryDispatcher) Delivered() []Scheduled {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Scheduled, len(d.delivered))
	copy(out, d.delivered)
	return out
}
