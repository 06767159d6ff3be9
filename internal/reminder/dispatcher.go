package reminder

import "context"

// Dispatcher delivers notifications to the user's device. It owns the
// scheduled-notification state; ListScheduled returns registration order.
type Dispatcher interface {
	RequestPermission(ctx context.Context) (Permission, error)
	Schedule(ctx context.Context, content Content, trigger Trigger) (Handle, error)
	Cancel(ctx context.Context, handle Handle) error
	CancelAll(ctx context.Context) error
	ListScheduled(ctx context.Context) ([]Scheduled, error)
}

// Notifier is the last hop for reminders that came due.
type Notifier interface {
	Notify(ctx context.Context, s Scheduled) error
}
