package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/health-appointment-reminders/internal/appointment"
	"github.com/hackgods/health-appointment-reminders/internal/auth"
	"github.com/hackgods/health-appointment-reminders/internal/calendar"
	"github.com/hackgods/health-appointment-reminders/internal/reminder"
)

// Monday 19 October 2026, 10:00.
var testNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

var today = calendar.DateOf(testNow)

func newTestCalendar() *calendar.Calendar {
	return calendar.New(calendar.FixedClock{T: testNow}, time.UTC)
}

func newTestResolver() *Resolver {
	return NewResolver(newTestCalendar(), DefaultHorizonDays, DefaultEmergencySurcharge)
}

func testDoctor() Doctor {
	return Doctor{
		ID:              uuid.New(),
		Name:            "Dr. Marie Dubois",
		Specialty:       "Cardiologie",
		AvailableSlots:  []string{"08:00", "09:00", "10:30", "14:00", "16:00"},
		ConsultationFee: decimal.NewFromInt(60),
	}
}

func TestResolver_ValidateDate(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name string
		date calendar.Date
		ok   bool
	}{
		{"today", today, true},
		{"tomorrow", today.AddDays(1), true},
		{"last day of window", today.AddDays(6), true},
		{"past the window", today.AddDays(7), false},
		{"yesterday", today.AddDays(-1), false},
		{"last year", today.AddDays(-365), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateDate(tt.date)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrDateOutOfWindow)
			}
		})
	}
}

func TestResolver_SelectableDates(t *testing.T) {
	dates := newTestResolver().SelectableDates()
	require.Len(t, dates, 7)
	assert.Equal(t, today, dates[0])
	assert.Equal(t, today.AddDays(6), dates[6])
}

func TestResolver_TotalFee(t *testing.T) {
	r := newTestResolver()
	base := decimal.NewFromInt(60)

	assert.True(t, r.TotalFee(base, appointment.TypeEmergency).Equal(decimal.NewFromInt(80)))
	assert.True(t, r.TotalFee(base, appointment.TypeConsultation).Equal(base))
	assert.True(t, r.TotalFee(base, appointment.TypeFollowUp).Equal(base))
}

func TestDraft_SelectionRules(t *testing.T) {
	ctx := context.Background()
	doc := testDoctor()
	d := NewDraft(newTestResolver(), NewMemoryDoctorRepository(doc), doc.ID)

	assert.ErrorIs(t, d.SelectTime("09:00"), ErrNoDateSelected)
	assert.True(t, d.Fee().IsZero())

	slots, err := d.SelectDate(ctx, today.AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, doc.AvailableSlots, slots)

	require.NoError(t, d.SelectTime("09:00"))
	assert.Equal(t, "09:00", d.Slot())
	assert.ErrorIs(t, d.SelectTime("09:30"), ErrSlotNotOffered)
	assert.Equal(t, "09:00", d.Slot())

	_, err = d.SelectDate(ctx, today.AddDays(2))
	require.NoError(t, err)
	assert.Empty(t, d.Slot(), "changing the date clears the time")

	require.NoError(t, d.SelectTime("14:00"))
	_, err = d.SelectDate(ctx, today.AddDays(30))
	assert.ErrorIs(t, err, ErrDateOutOfWindow)
	date, ok := d.Date()
	require.True(t, ok)
	assert.Equal(t, today.AddDays(2), date)
	assert.Equal(t, "14:00", d.Slot())
}

func TestDraft_TodaySlotsAlreadyPassed(t *testing.T) {
	doc := testDoctor()
	d := NewDraft(newTestResolver(), NewMemoryDoctorRepository(doc), doc.ID)

	slots, err := d.SelectDate(context.Background(), today)
	require.NoError(t, err)
	assert.Len(t, slots, 5)

	assert.ErrorIs(t, d.SelectTime("08:00"), ErrSlotInPast)
	assert.NoError(t, d.SelectTime("10:30"))
}

func TestDraft_FeeFollowsType(t *testing.T) {
	doc := testDoctor()
	d := NewDraft(newTestResolver(), NewMemoryDoctorRepository(doc), doc.ID)
	_, err := d.SelectDate(context.Background(), today.AddDays(1))
	require.NoError(t, err)

	assert.True(t, d.Fee().Equal(decimal.NewFromInt(60)))
	require.NoError(t, d.SetType(appointment.TypeEmergency))
	assert.True(t, d.Fee().Equal(decimal.NewFromInt(80)))
	assert.ErrorIs(t, d.SetType("urgent"), ErrInvalidType)
	assert.Equal(t, appointment.TypeEmergency, d.Type())
}

func TestDraft_UnknownDoctor(t *testing.T) {
	d := NewDraft(newTestResolver(), NewMemoryDoctorRepository(), uuid.New())
	_, err := d.SelectDate(context.Background(), today)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestMemoryDoctorRepository_ListDoctors(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDoctorRepository(
		Doctor{Name: "Dr. Zoe Martin", Specialty: "Cardiologie", City: "Lyon"},
		Doctor{Name: "Dr. Anne Petit", Specialty: "Dermatologie", City: "Paris"},
		Doctor{Name: "Dr. Marc Roux", Specialty: "Cardiologie", City: "Paris"},
	)

	names := func(ds []Doctor) []string {
		out := make([]string, 0, len(ds))
		for _, d := range ds {
			out = append(out, d.Name)
		}
		return out
	}

	tests := []struct {
		name   string
		filter DoctorFilter
		want   []string
	}{
		{"no filter", DoctorFilter{}, []string{"Dr. Anne Petit", "Dr. Marc Roux", "Dr. Zoe Martin"}},
		{"specialty", DoctorFilter{Specialty: "cardio"}, []string{"Dr. Marc Roux", "Dr. Zoe Martin"}},
		{"city", DoctorFilter{City: "PARIS"}, []string{"Dr. Anne Petit", "Dr. Marc Roux"}},
		{"both", DoctorFilter{Specialty: "cardio", City: "paris"}, []string{"Dr. Marc Roux"}},
		{"no match", DoctorFilter{City: "Nantes"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListDoctors(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}

	specialties, err := repo.ListSpecialties(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cardiologie", "Dermatologie"}, specialties)
}

func TestMemoryDoctorRepository_GetDoctor(t *testing.T) {
	ctx := context.Background()
	doc := testDoctor()
	repo := NewMemoryDoctorRepository(doc)

	got, err := repo.GetDoctor(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Name, got.Name)

	_, err = repo.GetDoctor(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, a *appointment.Appointment) (uuid.UUID, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status appointment.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockRepository) ListByUser(ctx context.Context, userID string) ([]appointment.Appointment, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]appointment.Appointment), args.Error(1)
}

type fixture struct {
	doctor     Doctor
	repo       *appointment.MemoryRepository
	dispatcher *reminder.MemoryDispatcher
	scheduler  *reminder.Scheduler
	resolver   *Resolver
}

func newFixture() *fixture {
	log, _ := logtest.NewNullLogger()
	cal := newTestCalendar()
	disp := reminder.NewMemoryDispatcher()
	return &fixture{
		doctor:     testDoctor(),
		repo:       appointment.NewMemoryRepository(),
		dispatcher: disp,
		scheduler:  reminder.NewScheduler(disp, cal, log),
		resolver:   NewResolver(cal, DefaultHorizonDays, DefaultEmergencySurcharge),
	}
}

func (f *fixture) service(session auth.Session) *Service {
	log, _ := logtest.NewNullLogger()
	return NewService(f.repo, session, f.scheduler, f.resolver, log)
}

func (f *fixture) draft(t *testing.T, date calendar.Date, slot string, typ appointment.Type) *Draft {
	t.Helper()
	d := NewDraft(f.resolver, NewMemoryDoctorRepository(f.doctor), f.doctor.ID)
	_, err := d.SelectDate(context.Background(), date)
	require.NoError(t, err)
	require.NoError(t, d.SelectTime(slot))
	require.NoError(t, d.SetType(typ))
	return d
}

func TestService_ConfirmRequiresSignIn(t *testing.T) {
	f := newFixture()
	d := f.draft(t, today.AddDays(3), "09:00", appointment.TypeConsultation)

	_, _, err := f.service(auth.StaticSession("")).Confirm(context.Background(), d, "", true)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	listed, _ := f.repo.ListByUser(context.Background(), "")
	assert.Empty(t, listed)
}

func TestService_ConfirmIncompleteDraft(t *testing.T) {
	f := newFixture()
	svc := f.service(auth.StaticSession("user-1"))

	d := NewDraft(f.resolver, NewMemoryDoctorRepository(f.doctor), f.doctor.ID)
	_, _, err := svc.Confirm(context.Background(), d, "", false)
	assert.ErrorIs(t, err, ErrNoDateSelected)

	_, err = d.SelectDate(context.Background(), today.AddDays(1))
	require.NoError(t, err)
	_, _, err = svc.Confirm(context.Background(), d, "", false)
	assert.ErrorIs(t, err, ErrNoSlotSelected)
}

func TestService_ConfirmEmergencyWithReminder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.draft(t, today.AddDays(3), "09:00", appointment.TypeEmergency)

	appt, req, err := f.service(auth.StaticSession("user-1")).Confirm(ctx, d, "douleur thoracique", true)
	require.NoError(t, err)
	require.NotNil(t, appt)

	assert.NotEqual(t, uuid.Nil, appt.ID)
	assert.Equal(t, "user-1", appt.UserID)
	assert.Equal(t, appointment.StatusScheduled, appt.Status)
	assert.True(t, appt.Fee.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, calendar.TimeOfDay{Hour: 9}, appt.Time)
	assert.Equal(t, "douleur thoracique", appt.Notes)

	require.NotNil(t, req)
	assert.Equal(t, appt.Instant(time.UTC).Add(-24*time.Hour), req.Trigger.At)
	assert.Equal(t, appt.ID.String(), req.TargetID)

	stored, err := f.repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Fee.Equal(decimal.NewFromInt(80)))
}

func TestService_ConfirmTomorrowMorningSkipsPastReminder(t *testing.T) {
	f := newFixture()
	d := f.draft(t, today.AddDays(1), "09:00", appointment.TypeConsultation)

	appt, req, err := f.service(auth.StaticSession("user-1")).Confirm(context.Background(), d, "", true)
	require.NoError(t, err)
	assert.True(t, appt.Fee.Equal(decimal.NewFromInt(60)))
	assert.Nil(t, req)
}

func TestService_ReminderFailureKeepsBooking(t *testing.T) {
	f := newFixture()
	f.dispatcher.SetPermission(reminder.PermissionDenied)
	d := f.draft(t, today.AddDays(4), "14:00", appointment.TypeFollowUp)

	appt, req, err := f.service(auth.StaticSession("user-1")).Confirm(context.Background(), d, "", true)
	require.NoError(t, err)
	require.NotNil(t, appt)
	assert.Nil(t, req)

	stored, _ := f.repo.ListByUser(context.Background(), "user-1")
	assert.Len(t, stored, 1)
}

func TestService_RepositoryFailureSurfacesUnchanged(t *testing.T) {
	f := newFixture()
	repo := new(mockRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(uuid.Nil, appointment.ErrUnavailable)

	log, _ := logtest.NewNullLogger()
	svc := NewService(repo, auth.StaticSession("user-1"), f.scheduler, f.resolver, log)
	d := f.draft(t, today.AddDays(3), "09:00", appointment.TypeConsultation)

	_, _, err := svc.Confirm(context.Background(), d, "", true)
	assert.True(t, errors.Is(err, appointment.ErrUnavailable))
	assert.Empty(t, f.scheduler.Outstanding())
	repo.AssertExpectations(t)
}

func TestService_CancelDropsReminders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := f.service(auth.StaticSession("user-1"))

	appt, req, err := svc.Confirm(ctx, f.draft(t, today.AddDays(5), "16:00", appointment.TypeConsultation), "", true)
	require.NoError(t, err)
	require.NotNil(t, req)

	tracker := appointment.NewTracker(f.repo, f.resolver.Calendar())
	require.NoError(t, tracker.Load(ctx, "user-1"))

	cancelled, err := svc.Cancel(ctx, tracker, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, cancelled.Status)

	listed, err := f.scheduler.ListScheduledReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)

	again, err := svc.Cancel(ctx, tracker, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, again.Status)

	_, err = svc.Cancel(ctx, tracker, uuid.New())
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}
