package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/health-appointment-reminders/internal/appointment"
	"github.com/hackgods/health-appointment-reminders/internal/auth"
	"github.com/hackgods/health-appointment-reminders/internal/calendar"
	"github.com/hackgods/health-appointment-reminders/internal/reminder"
)

type Service struct {
	repo      appointment.Repository
	session   auth.Session
	scheduler *reminder.Scheduler
	resolver  *Resolver
	log       logrus.FieldLogger
}

// NewService wires the booking flow. scheduler may be nil when reminders are
// not wanted.
func NewService(repo appointment.Repository, session auth.Session, scheduler *reminder.Scheduler, resolver *Resolver, log logrus.FieldLogger) *Service {
	return &Service{
		repo:      repo,
		session:   session,
		scheduler: scheduler,
		resolver:  resolver,
		log:       log.WithField("component", "booking"),
	}
}

// Confirm books the draft for the signed-in user with the fee frozen at its
// current value. When remind is set the 24h reminder is scheduled too; a
// reminder failure is logged and the booking stands.
func (s *Service) Confirm(ctx context.Context, d *Draft, notes string, remind bool) (*appointment.Appointment, *reminder.Request, error) {
	userID, ok := s.session.CurrentUserID()
	if !ok {
		return nil, nil, ErrNotSignedIn
	}
	if err := d.ready(); err != nil {
		return nil, nil, err
	}
	if err := s.resolver.ValidateDate(d.offer.Date); err != nil {
		return nil, nil, err
	}

	tod, err := calendar.ParseTimeOfDay(d.slot)
	if err != nil {
		return nil, nil, err
	}

	appt := &appointment.Appointment{
		UserID:          userID,
		DoctorID:        d.offer.DoctorID,
		DoctorName:      d.offer.DoctorName,
		DoctorSpecialty: d.offer.Specialty,
		Date:            d.offer.Date,
		Time:            tod,
		Type:            d.typ,
		Status:          appointment.StatusScheduled,
		Fee:             d.Fee(),
		Notes:           notes,
	}

	if _, err := s.repo.Create(ctx, appt); err != nil {
		return nil, nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"appointment_id": appt.ID,
		"user_id":        userID,
		"doctor_id":      appt.DoctorID,
	})
	log.WithField("fee", appt.Fee.String()).Info("appointment booked")

	if !remind || s.scheduler == nil {
		return appt, nil, nil
	}

	req, err := s.scheduler.ScheduleAppointmentReminder(ctx, *appt)
	if err != nil {
		log.WithError(err).Warn("appointment reminder not scheduled")
		return appt, nil, nil
	}
	return appt, req, nil
}

// Cancel cancels through the tracker and then drops any reminder pointing at
// the appointment.
func (s *Service) Cancel(ctx context.Context, t *appointment.Tracker, id uuid.UUID) (appointment.Appointment, error) {
	a, err := t.Cancel(ctx, id)
	if err != nil {
		return a, err
	}
	if a.Status != appointment.StatusCancelled || s.scheduler == nil {
		return a, nil
	}

	n, err := s.scheduler.CancelTargetReminders(ctx, id.String())
	if err != nil {
		s.log.WithError(err).WithField("appointment_id", id).Warn("reminders of cancelled appointment not removed")
		return a, nil
	}
	if n > 0 {
		s.log.WithFields(logrus.Fields{"appointment_id": id, "reminders": n}).Info("appointment reminders cancelled")
	}
	return a, nil
}
