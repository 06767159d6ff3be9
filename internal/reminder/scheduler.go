package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/health-appointment-reminders/internal/appointment"
	"github.com/hackgods/health-appointment-reminders/internal/calendar"
	"github.com/hackgods/health-appointment-reminders/internal/frequency"
	"github.com/hackgods/health-appointment-reminders/internal/record"
)

const (
	AppointmentLead = 24 * time.Hour
	VaccinationLead = 7 * 24 * time.Hour
)

// Scheduler turns appointments and medical records into dispatcher
// registrations and remembers the handles it created. Single consumer: it is
// not safe for concurrent use.
type Scheduler struct {
	dispatcher  Dispatcher
	cal         *calendar.Calendar
	log         logrus.FieldLogger
	outstanding []Handle
}

func NewScheduler(dispatcher Dispatcher, cal *calendar.Calendar, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		dispatcher: dispatcher,
		cal:        cal,
		log:        log.WithField("component", "reminder_scheduler"),
	}
}

func (s *Scheduler) RequestPermission(ctx context.Context) error {
	p, err := s.dispatcher.RequestPermission(ctx)
	if err != nil {
		return err
	}
	if p != PermissionGranted {
		return ErrPermissionDenied
	}
	return nil
}

// ScheduleAppointmentReminder registers a one-shot reminder 24h before the
// appointment. It returns nil, nil when that moment has already passed.
func (s *Scheduler) ScheduleAppointmentReminder(ctx context.Context, a appointment.Appointment) (*Request, error) {
	instant := a.Instant(s.cal.Location())
	firesAt := instant.Add(-AppointmentLead)
	if !s.cal.IsFuture(firesAt) {
		s.log.WithField("appointment_id", a.ID).Debug("appointment reminder skipped, fire time passed")
		return nil, nil
	}

	content := Content{
		Title: "Rappel de rendez-vous",
		Body:  fmt.Sprintf("Vous avez un rendez-vous demain avec %s à %s", a.DoctorName, a.Time),
		Data: map[string]string{
			DataType:            string(KindAppointment),
			DataAppointmentID:   a.ID.String(),
			DataDoctorName:      a.DoctorName,
			DataAppointmentTime: instant.Format(time.RFC3339),
		},
	}
	return s.register(ctx, KindAppointment, a.ID.String(), content, Once(firesAt))
}

// ScheduleMedicationReminder registers one daily reminder per parsed time of
// day, in ascending order. On failure the handles registered so far are
// returned together with the dispatcher error.
func (s *Scheduler) ScheduleMedicationReminder(ctx context.Context, m record.Medication) ([]Request, error) {
	times := frequency.Parse(m.Frequency)
	requests := make([]Request, 0, len(times))

	for _, tod := range times {
		content := Content{
			Title: "Rappel de médicament",
			Body:  fmt.Sprintf("Il est temps de prendre %s (%s)", m.Name, m.Dosage),
			Data: map[string]string{
				DataType:           string(KindMedication),
				DataMedicationID:   m.ID.String(),
				DataMedicationName: m.Name,
			},
		}
		req, err := s.register(ctx, KindMedication, m.ID.String(), content, Daily(tod))
		if err != nil {
			return requests, err
		}
		requests = append(requests, *req)
	}
	return requests, nil
}

// ScheduleMedicationReminders schedules every active medication in input
// order and stops at the first failure.
func (s *Scheduler) ScheduleMedicationReminders(ctx context.Context, meds []record.Medication) ([]Request, error) {
	var all []Request
	for _, m := range record.ActiveMedications(meds) {
		reqs, err := s.ScheduleMedicationReminder(ctx, m)
		all = append(all, reqs...)
		if err != nil {
			return all, fmt.Errorf("medication %s: %w", m.ID, err)
		}
	}
	return all, nil
}

// ScheduleVaccinationReminder registers a one-shot reminder a week before the
// next due date. Missing due dates and passed fire times yield nil, nil.
func (s *Scheduler) ScheduleVaccinationReminder(ctx context.Context, v record.Vaccination) (*Request, error) {
	if v.NextDue == nil {
		return nil, nil
	}

	firesAt := v.NextDue.Midnight(s.cal.Location()).Add(-VaccinationLead)
	if !s.cal.IsFuture(firesAt) {
		s.log.WithField("vaccination_id", v.ID).Debug("vaccination reminder skipped, fire time passed")
		return nil, nil
	}

	content := Content{
		Title: "Rappel de vaccination",
		Body:  fmt.Sprintf("Votre rappel %s est prévu dans une semaine", v.Name),
		Data: map[string]string{
			DataType:            string(KindVaccination),
			DataVaccinationID:   v.ID.String(),
			DataVaccinationName: v.Name,
		},
	}
	return s.register(ctx, KindVaccination, v.ID.String(), content, Once(firesAt))
}

// ScheduleVaccinationReminders returns how many reminders were created.
func (s *Scheduler) ScheduleVaccinationReminders(ctx context.Context, vacs []record.Vaccination) (int, error) {
	count := 0
	for _, v := range vacs {
		req, err := s.ScheduleVaccinationReminder(ctx, v)
		if err != nil {
			return count, fmt.Errorf("vaccination %s: %w", v.ID, err)
		}
		if req != nil {
			count++
		}
	}
	return count, nil
}

func (s *Scheduler) CancelReminder(ctx context.Context, h Handle) error {
	if err := s.dispatcher.Cancel(ctx, h); err != nil {
		return err
	}
	s.forget(h)
	return nil
}

// CancelAllReminders is idempotent. If the dispatcher fails the local handle
// list is left as is and may be stale; re-list to resynchronise.
func (s *Scheduler) CancelAllReminders(ctx context.Context) error {
	if err := s.dispatcher.CancelAll(ctx); err != nil {
		return err
	}
	s.outstanding = nil
	return nil
}

// CancelTargetReminders cancels every scheduled reminder whose payload points
// at targetID and returns how many were cancelled.
func (s *Scheduler) CancelTargetReminders(ctx context.Context, targetID string) (int, error) {
	scheduled, err := s.ListScheduledReminders(ctx)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, r := range scheduled {
		if r.TargetID != targetID {
			continue
		}
		if err := s.CancelReminder(ctx, r.Handle); err != nil {
			return cancelled, err
		}
		cancelled++
	}
	return cancelled, nil
}

// ListScheduledReminders reports the dispatcher's state in registration order.
func (s *Scheduler) ListScheduledReminders(ctx context.Context) ([]Request, error) {
	scheduled, err := s.dispatcher.ListScheduled(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Request, 0, len(scheduled))
	for _, sc := range scheduled {
		out = append(out, requestFromScheduled(sc))
	}
	return out, nil
}

// SendImmediateReminder bypasses scheduling; used to test delivery.
func (s *Scheduler) SendImmediateReminder(ctx context.Context, title, body string, data map[string]string) error {
	_, err := s.dispatcher.Schedule(ctx, Content{Title: title, Body: body, Data: data}, Immediate())
	return err
}

// Outstanding returns the handles this scheduler registered and has not
// cancelled. It only covers this Scheduler value: one built per request, as
// the HTTP API does, starts empty even when the dispatcher holds reminders.
// Use ListScheduledReminders for the dispatcher's view.
func (s *Scheduler) Outstanding() []Handle {
	out := make([]Handle, len(s.outstanding))
	copy(out, s.outstanding)
	return out
}

func (s *Scheduler) register(ctx context.Context, kind Kind, targetID string, content Content, trigger Trigger) (*Request, error) {
	h, err := s.dispatcher.Schedule(ctx, content, trigger)
	if err != nil {
		return nil, err
	}
	s.outstanding = append(s.outstanding, h)

	req := &Request{
		Handle:   h,
		Kind:     kind,
		TargetID: targetID,
		Content:  content,
		Trigger:  trigger,
	}
	s.log.WithFields(logrus.Fields{
		"handle":  h,
		"kind":    kind,
		"target":  targetID,
		"trigger": trigger.String(),
	}).Info("reminder scheduled")
	return req, nil
}

func (s *Scheduler) forget(h Handle) {
	for i, o := range s.outstanding {
		if o == h {
			s.outstanding = append(s.outstanding[:i], s.outstanding[i+1:]...)
			return
		}
	}
}
