package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/health-appointment-reminders/internal/calendar"
	"github.com/hackgods/health-appointment-reminders/internal/reminder"
)

// Key layout:
//
//	reminders:item:<handle>   JSON storedReminder
//	reminders:due             zset handle -> next fire time (unix ms), all users
//	reminders:dead            zset handle -> time it was found undecodable
//	reminders:<user>:order    zset handle -> registration sequence
//	reminders:seq             registration counter
const (
	dueKey  = "reminders:due"
	deadKey = "reminders:dead"
	seqKey  = "reminders:seq"

	retryDelay = time.Minute
)

func itemKey(h reminder.Handle) string { return "reminders:item:" + string(h) }
func orderKey(ns string) string        { return "reminders:" + ns + ":order" }

type storedReminder struct {
	Namespace string             `json:"namespace"`
	Scheduled reminder.Scheduled `json:"scheduled"`
}

// ReminderStore persists reminders for every user and serves the delivery
// worker. Per-user dispatchers come from ForUser.
type ReminderStore struct {
	client     *redis.Client
	loc        *time.Location
	permission reminder.Permission
	now        func() time.Time
}

func NewReminderStore(client *redis.Client, loc *time.Location, enabled bool) *ReminderStore {
	p := reminder.PermissionGranted
	if !enabled {
		p = reminder.PermissionDenied
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderStore{client: client, loc: loc, permission: p, now: time.Now}
}

// ForUser returns a dispatcher scoped to one user's reminders.
func (s *ReminderStore) ForUser(userID string) reminder.Dispatcher {
	return &userDispatcher{store: s, ns: userID}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", reminder.ErrUnavailable, op, err)
}

// nextFire returns when a trigger should first fire after now.
func (s *ReminderStore) nextFire(t reminder.Trigger, now time.Time) time.Time {
	switch t.Kind {
	case reminder.TriggerOnce:
		return t.At
	case reminder.TriggerDaily:
		return calendar.NextOccurrence(now, t.TimeOfDay, s.loc)
	default:
		return now
	}
}

type userDispatcher struct {
	store *ReminderStore
	ns    string
}

func (d *userDispatcher) RequestPermission(_ context.Context) (reminder.Permission, error) {
	return d.store.permission, nil
}

func (d *userDispatcher) Schedule(ctx context.Context, content reminder.Content, trigger reminder.Trigger) (reminder.Handle, error) {
	if d.store.permission != reminder.PermissionGranted {
		return "", reminder.ErrPermissionDenied
	}

	s := reminder.Scheduled{
		Handle:  reminder.Handle(uuid.NewString()),
		Content: content,
		Trigger: trigger,
	}
	data, err := json.Marshal(storedReminder{Namespace: d.ns, Scheduled: s})
	if err != nil {
		return "", fmt.Errorf("marshal reminder: %w", err)
	}

	client := d.store.client
	seq, err := client.Incr(ctx, seqKey).Result()
	if err != nil {
		return "", unavailable("next sequence", err)
	}

	fireAt := d.store.nextFire(trigger, d.store.now())
	_, err = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, itemKey(s.Handle), data, 0)
		pipe.ZAdd(ctx, dueKey, redis.Z{Score: float64(fireAt.UnixMilli()), Member: string(s.Handle)})
		if trigger.Kind != reminder.TriggerImmediate {
			pipe.ZAdd(ctx, orderKey(d.ns), redis.Z{Score: float64(seq), Member: string(s.Handle)})
		}
		return nil
	})
	if err != nil {
		return "", unavailable("store reminder", err)
	}
	return s.Handle, nil
}

// Cancel ignores handles that do not belong to this user.
func (d *userDispatcher) Cancel(ctx context.Context, h reminder.Handle) error {
	err := d.store.client.ZScore(ctx, orderKey(d.ns), string(h)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return unavailable("find reminder", err)
	}

	_, err = d.store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, itemKey(h))
		pipe.ZRem(ctx, dueKey, string(h))
		pipe.ZRem(ctx, orderKey(d.ns), string(h))
		return nil
	})
	if err != nil {
		return unavailable("cancel reminder", err)
	}
	return nil
}

func (d *userDispatcher) CancelAll(ctx context.Context) error {
	client := d.store.client
	handles, err := client.ZRange(ctx, orderKey(d.ns), 0, -1).Result()
	if err != nil {
		return unavailable("list reminders", err)
	}
	if len(handles) == 0 {
		return nil
	}

	keys := make([]string, 0, len(handles))
	members := make([]any, 0, len(handles))
	for _, h := range handles {
		keys = append(keys, itemKey(reminder.Handle(h)))
		members = append(members, h)
	}

	_, err = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, dueKey, members...)
		pipe.Del(ctx, orderKey(d.ns))
		return nil
	})
	if err != nil {
		return unavailable("cancel all reminders", err)
	}
	return nil
}

func (d *userDispatcher) ListScheduled(ctx context.Context) ([]reminder.Scheduled, error) {
	client := d.store.client
	handles, err := client.ZRange(ctx, orderKey(d.ns), 0, -1).Result()
	if err != nil {
		return nil, unavailable("list reminders", err)
	}
	if len(handles) == 0 {
		return []reminder.Scheduled{}, nil
	}

	keys := make([]string, 0, len(handles))
	for _, h := range handles {
		keys = append(keys, itemKey(reminder.Handle(h)))
	}
	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("load reminders", err)
	}

	out := make([]reminder.Scheduled, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var sr storedReminder
		if err := json.Unmarshal([]byte(raw), &sr); err != nil {
			return nil, fmt.Errorf("decode reminder: %w", err)
		}
		out = append(out, sr.Scheduled)
	}
	return out, nil
}

// ProcessDue hands every reminder due at or before now to notify. One-shot
// and immediate reminders are removed after delivery; daily ones are re-armed
// for their next occurrence. A reminder that fails to notify is retried after
// retryDelay and one that cannot be decoded is moved to the dead set; neither
// holds back the rest of the batch. The returned error joins every per-reminder
// failure.
func (s *ReminderStore) ProcessDue(ctx context.Context, now time.Time, limit int64, notify func(context.Context, reminder.Scheduled) error) (int, error) {
	handles, err := s.client.ZRangeByScore(ctx, dueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return 0, unavailable("load due reminders", err)
	}

	// a notified reminder is always settled, even when the lock deadline
	// expires right after notify returns
	settleCtx := context.WithoutCancel(ctx)

	delivered := 0
	var errs []error
	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		handle := reminder.Handle(h)
		raw, err := s.client.Get(ctx, itemKey(handle)).Result()
		if errors.Is(err, redis.Nil) {
			// cancelled between listing and loading
			s.client.ZRem(ctx, dueKey, h)
			continue
		}
		if err != nil {
			errs = append(errs, unavailable("load reminder", err))
			break
		}

		var sr storedReminder
		if err := json.Unmarshal([]byte(raw), &sr); err != nil {
			errs = append(errs, fmt.Errorf("decode reminder %s: %w", h, err))
			if err := s.bury(settleCtx, h, now); err != nil {
				errs = append(errs, err)
				break
			}
			continue
		}

		if err := notify(ctx, sr.Scheduled); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", h, err))
			retryAt := now.Add(retryDelay)
			if err := s.client.ZAdd(settleCtx, dueKey, redis.Z{Score: float64(retryAt.UnixMilli()), Member: h}).Err(); err != nil {
				errs = append(errs, unavailable("reschedule reminder", err))
				break
			}
			continue
		}
		delivered++

		if err := s.settle(settleCtx, sr, now); err != nil {
			errs = append(errs, err)
			break
		}
	}
	return delivered, errors.Join(errs...)
}

func (s *ReminderStore) settle(ctx context.Context, sr storedReminder, now time.Time) error {
	h := string(sr.Scheduled.Handle)
	var err error
	if sr.Scheduled.Trigger.Repeats() {
		next := s.nextFire(sr.Scheduled.Trigger, now)
		err = s.client.ZAdd(ctx, dueKey, redis.Z{Score: float64(next.UnixMilli()), Member: h}).Err()
	} else {
		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, itemKey(sr.Scheduled.Handle))
			pipe.ZRem(ctx, dueKey, h)
			pipe.ZRem(ctx, orderKey(sr.Namespace), h)
			return nil
		})
	}
	if err != nil {
		return unavailable("settle reminder", err)
	}
	return nil
}

// bury takes an undecodable reminder out of the due set. The raw item stays
// in place for inspection.
func (s *ReminderStore) bury(ctx context.Context, h string, now time.Time) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, dueKey, h)
		pipe.ZAdd(ctx, deadKey, redis.Z{Score: float64(now.UnixMilli()), Member: h})
		return nil
	})
	if err != nil {
		return unavailable("bury reminder", err)
	}
	return nil
}
