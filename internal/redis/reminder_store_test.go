package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/health-appointment-reminders/internal/calendar"
	"github.com/hackgods/health-appointment-reminders/internal/reminder"
)

var testNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, enabled bool) (*ReminderStore, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewReminderStore(client, time.UTC, enabled)
	store.now = func() time.Time { return testNow }
	return store, client
}

func content(kind, id string) reminder.Content {
	return reminder.Content{
		Title: "Rappel",
		Body:  "body",
		Data:  map[string]string{reminder.DataType: kind, reminder.DataMedicationID: id},
	}
}

func TestReminderStore_ScheduleListCancel(t *testing.T) {
	store, _ := newTestStore(t, true)
	ctx := context.Background()
	alice := store.ForUser("alice")
	bob := store.ForUser("bob")

	h1, err := alice.Schedule(ctx, content("medication", "m1"), reminder.Daily(calendar.TimeOfDay{Hour: 8}))
	require.NoError(t, err)
	h2, err := alice.Schedule(ctx, content("medication", "m1"), reminder.Daily(calendar.TimeOfDay{Hour: 20}))
	require.NoError(t, err)
	hb, err := bob.Schedule(ctx, content("medication", "m2"), reminder.Once(testNow.Add(time.Hour)))
	require.NoError(t, err)

	// a handle owned by someone else is left alone
	require.NoError(t, alice.Cancel(ctx, hb))

	listed, err := alice.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, h1, listed[0].Handle)
	assert.Equal(t, h2, listed[1].Handle)
	assert.Equal(t, calendar.TimeOfDay{Hour: 20}, listed[1].Trigger.TimeOfDay)

	require.NoError(t, alice.Cancel(ctx, h1))
	listed, err = alice.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, h2, listed[0].Handle)

	for i := 0; i < 2; i++ {
		require.NoError(t, alice.CancelAll(ctx))
		listed, err = alice.ListScheduled(ctx)
		require.NoError(t, err)
		assert.Empty(t, listed)
	}

	listed, err = bob.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestReminderStore_PermissionDenied(t *testing.T) {
	store, _ := newTestStore(t, false)
	ctx := context.Background()
	d := store.ForUser("alice")

	p, err := d.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, reminder.PermissionDenied, p)

	_, err = d.Schedule(ctx, content("medication", "m1"), reminder.Immediate())
	assert.ErrorIs(t, err, reminder.ErrPermissionDenied)
}

func TestReminderStore_ProcessDue(t *testing.T) {
	store, _ := newTestStore(t, true)
	ctx := context.Background()
	d := store.ForUser("alice")

	once, err := d.Schedule(ctx, content("appointment", "a1"), reminder.Once(testNow.Add(time.Hour)))
	require.NoError(t, err)
	daily, err := d.Schedule(ctx, content("medication", "m1"), reminder.Daily(calendar.TimeOfDay{Hour: 8}))
	require.NoError(t, err)

	var got []reminder.Handle
	collect := func(_ context.Context, s reminder.Scheduled) error {
		got = append(got, s.Handle)
		return nil
	}

	n, err := store.ProcessDue(ctx, testNow, 100, collect)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.ProcessDue(ctx, testNow.Add(2*time.Hour), 100, collect)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []reminder.Handle{once}, got)

	// delivered once, never again
	n, err = store.ProcessDue(ctx, testNow.Add(3*time.Hour), 100, collect)
	require.NoError(t, err)
	assert.Zero(t, n)

	tomorrow8 := time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)
	n, err = store.ProcessDue(ctx, tomorrow8, 100, collect)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, daily, got[1])

	// re-armed for the following morning
	n, err = store.ProcessDue(ctx, tomorrow8.Add(time.Hour), 100, collect)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.ProcessDue(ctx, tomorrow8.Add(24*time.Hour), 100, collect)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	listed, err := d.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, daily, listed[0].Handle)
}

func TestReminderStore_ProcessDueRetriesFailedNotify(t *testing.T) {
	store, _ := newTestStore(t, true)
	ctx := context.Background()
	d := store.ForUser("alice")

	failing, err := d.Schedule(ctx, content("appointment", "a1"), reminder.Immediate())
	require.NoError(t, err)
	other, err := d.Schedule(ctx, content("appointment", "a2"), reminder.Immediate())
	require.NoError(t, err)

	boom := errors.New("push gateway down")
	var got []reminder.Handle
	notify := func(_ context.Context, s reminder.Scheduled) error {
		if s.Handle == failing {
			return boom
		}
		got = append(got, s.Handle)
		return nil
	}

	n, err := store.ProcessDue(ctx, testNow, 10, notify)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
	assert.Equal(t, []reminder.Handle{other}, got)

	// pushed back, not retried within the same minute
	n, err = store.ProcessDue(ctx, testNow.Add(retryDelay/2), 10, notify)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.ProcessDue(ctx, testNow.Add(retryDelay), 10, func(_ context.Context, s reminder.Scheduled) error {
		got = append(got, s.Handle)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []reminder.Handle{other, failing}, got)
}

func TestReminderStore_ProcessDueBuriesCorruptReminder(t *testing.T) {
	store, client := newTestStore(t, true)
	ctx := context.Background()
	d := store.ForUser("alice")

	m1, err := d.Schedule(ctx, content("medication", "m1"), reminder.Once(testNow.Add(time.Hour)))
	require.NoError(t, err)
	m2, err := d.Schedule(ctx, content("medication", "m2"), reminder.Once(testNow.Add(time.Hour)))
	require.NoError(t, err)
	require.NoError(t, client.Set(ctx, itemKey(m1), "{not json", 0).Err())

	var got []reminder.Handle
	collect := func(_ context.Context, s reminder.Scheduled) error {
		got = append(got, s.Handle)
		return nil
	}

	n, err := store.ProcessDue(ctx, testNow.Add(2*time.Hour), 10, collect)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode reminder "+string(m1))
	assert.Equal(t, 1, n)
	assert.Equal(t, []reminder.Handle{m2}, got)

	err = client.ZScore(ctx, dueKey, string(m1)).Err()
	assert.ErrorIs(t, err, redis.Nil)
	dead, err := client.ZRange(ctx, deadKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{string(m1)}, dead)

	n, err = store.ProcessDue(ctx, testNow.Add(3*time.Hour), 10, collect)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReminderStore_ProcessDueStopsWhenContextEnds(t *testing.T) {
	store, _ := newTestStore(t, true)
	d := store.ForUser("alice")

	first, err := d.Schedule(context.Background(), content("appointment", "a1"), reminder.Once(testNow.Add(time.Hour)))
	require.NoError(t, err)
	second, err := d.Schedule(context.Background(), content("appointment", "a2"), reminder.Once(testNow.Add(2*time.Hour)))
	require.NoError(t, err)

	// the deadline passes while the first reminder is being sent
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got []reminder.Handle
	n, err := store.ProcessDue(ctx, testNow.Add(3*time.Hour), 10, func(_ context.Context, s reminder.Scheduled) error {
		got = append(got, s.Handle)
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
	assert.Equal(t, []reminder.Handle{first}, got)

	// the first was settled despite the cancel, so only the second remains
	n, err = store.ProcessDue(context.Background(), testNow.Add(3*time.Hour), 10, func(_ context.Context, s reminder.Scheduled) error {
		got = append(got, s.Handle)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []reminder.Handle{first, second}, got)
}

func TestRedisLocker(t *testing.T) {
	_, client := newTestStore(t, true)
	locker := NewRedisLocker(client, 5*time.Second)
	ctx := context.Background()

	err := locker.WithLock(ctx, "reminder-delivery", func(ctx context.Context) error {
		inner := locker.WithLock(ctx, "reminder-delivery", func(context.Context) error { return nil })
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)

	ran := false
	err = locker.WithLock(ctx, "reminder-delivery", func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}
