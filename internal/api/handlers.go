package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/health-appointment-reminders/internal/appointment"
	"github.com/hackgods/health-appointment-reminders/internal/booking"
	"github.com/hackgods/health-appointment-reminders/internal/calendar"
	"github.com/hackgods/health-appointment-reminders/internal/record"
	"github.com/hackgods/health-appointment-reminders/internal/reminder"
)

// Helpers

func (s *server) requestLog(r *http.Request) logrus.FieldLogger {
	return s.log.WithField("request_id", GetRequestID(r.Context()))
}

// scheduler builds a reminder scheduler bound to the caller's dispatcher.
// It lives for one request; reminder state is read back from the dispatcher.
func (s *server) scheduler(r *http.Request) *reminder.Scheduler {
	return reminder.NewScheduler(s.cfg.Dispatchers(userIDFrom(r.Context())), s.cfg.Calendar, s.requestLog(r))
}

func (s *server) bookingService(r *http.Request) *booking.Service {
	return booking.NewService(s.cfg.Appointments, sessionFrom(r.Context()), s.scheduler(r), s.resolver, s.requestLog(r))
}

// decode reads a JSON body into dst and validates its tags.
func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func optionalDate(s string) (*calendar.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := calendar.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, booking.ErrNotSignedIn):
		writeError(w, http.StatusUnauthorized, "not_signed_in", err.Error())
	case errors.Is(err, booking.ErrDateOutOfWindow):
		writeError(w, http.StatusUnprocessableEntity, "date_out_of_window", err.Error())
	case errors.Is(err, booking.ErrSlotInPast):
		writeError(w, http.StatusUnprocessableEntity, "slot_in_past", err.Error())
	case errors.Is(err, booking.ErrSlotNotOffered):
		writeError(w, http.StatusConflict, "slot_not_offered", err.Error())
	case errors.Is(err, booking.ErrNoDateSelected),
		errors.Is(err, booking.ErrNoSlotSelected),
		errors.Is(err, booking.ErrInvalidType),
		errors.Is(err, appointment.ErrUnknownFilter):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, booking.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, reminder.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "notification_permission_denied", err.Error())
	case errors.Is(err, booking.ErrUnavailable),
		errors.Is(err, appointment.ErrUnavailable),
		errors.Is(err, record.ErrUnavailable),
		errors.Is(err, reminder.ErrUnavailable):
		s.requestLog(r).WithError(err).Error("dependency unavailable")
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "a backing store is unavailable, retry later")
	default:
		s.requestLog(r).WithError(err).Error("unexpected error")
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// Booking

func (s *server) bookingDates(w http.ResponseWriter, r *http.Request) {
	dates := s.resolver.SelectableDates()
	out := make([]BookingDate, 0, len(dates))
	for _, d := range dates {
		out = append(out, BookingDate{
			Date:  d,
			Label: calendar.FormatDate(d),
			Today: s.cfg.Calendar.IsToday(d),
		})
	}
	writeJSON(w, http.StatusOK, map[string][]BookingDate{"dates": out})
}

// Doctors

func (s *server) listDoctors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doctors, err := s.cfg.Doctors.ListDoctors(r.Context(), booking.DoctorFilter{
		Specialty: q.Get("specialty"),
		City:      q.Get("city"),
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	out := make([]DoctorResponse, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, toDoctorResponse(d))
	}
	writeJSON(w, http.StatusOK, DoctorsResponse{Doctors: out})
}

func (s *server) getDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	d, err := s.cfg.Doctors.GetDoctor(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDoctorResponse(*d))
}

func (s *server) listSpecialties(w http.ResponseWriter, r *http.Request) {
	specialties, err := s.cfg.Doctors.ListSpecialties(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"specialties": specialties})
}

func (s *server) doctorSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	date, err := calendar.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	draft := booking.NewDraft(s.resolver, s.cfg.Doctors, doctorID)
	slots, err := draft.SelectDate(r.Context(), date)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if t := r.URL.Query().Get("type"); t != "" {
		if err := draft.SetType(appointment.Type(t)); err != nil {
			s.handleError(w, r, err)
			return
		}
	}

	offer, _ := draft.Offer()
	writeJSON(w, http.StatusOK, SlotsResponse{
		DoctorID:   doctorID,
		DoctorName: offer.DoctorName,
		Specialty:  offer.Specialty,
		Date:       date,
		Type:       draft.Type(),
		Slots:      slots,
		Fee:        draft.Fee(),
	})
}

// Appointments

func (s *server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if !s.decode(w, r, &req) {
		return
	}

	doctorID := uuid.MustParse(req.DoctorID)
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return
	}

	draft := booking.NewDraft(s.resolver, s.cfg.Doctors, doctorID)
	if _, err := draft.SelectDate(r.Context(), date); err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := draft.SelectTime(req.Time); err != nil {
		s.handleError(w, r, err)
		return
	}
	if req.Type != "" {
		if err := draft.SetType(appointment.Type(req.Type)); err != nil {
			s.handleError(w, r, err)
			return
		}
	}

	appt, rem, err := s.bookingService(r).Confirm(r.Context(), draft, req.Notes, req.Remind)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	resp := CreateAppointmentResponse{Appointment: toAppointmentResponse(*appt)}
	if rem != nil {
		rr := toReminderResponse(*rem)
		resp.Reminder = &rr
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *server) loadTracker(w http.ResponseWriter, r *http.Request) (*appointment.Tracker, bool) {
	tracker := appointment.NewTracker(s.cfg.Appointments, s.cfg.Calendar)
	if err := tracker.Load(r.Context(), userIDFrom(r.Context())); err != nil {
		s.handleError(w, r, err)
		return nil, false
	}
	return tracker, true
}

func (s *server) listAppointments(w http.ResponseWriter, r *http.Request) {
	filter, err := appointment.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	tracker, ok := s.loadTracker(w, r)
	if !ok {
		return
	}

	items := tracker.Filter(filter)
	out := make([]AppointmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"filter": filter, "appointments": out})
}

func (s *server) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	tracker, ok := s.loadTracker(w, r)
	if !ok {
		return
	}

	a, err := s.bookingService(r).Cancel(r.Context(), tracker, id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(a))
}

func (s *server) completeAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	tracker, ok := s.loadTracker(w, r)
	if !ok {
		return
	}

	a, err := tracker.Complete(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(a))
}

// Records

func (s *server) listRecords(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	meds, err := s.cfg.Records.ListMedications(r.Context(), userID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	vacs, err := s.cfg.Records.ListVaccinations(r.Context(), userID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordsResponse(meds, vacs))
}

func (s *server) createMedication(w http.ResponseWriter, r *http.Request) {
	var req CreateMedicationRequest
	if !s.decode(w, r, &req) {
		return
	}

	start, err := calendar.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_date", err.Error())
		return
	}
	end, err := optionalDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_date", err.Error())
		return
	}

	m := &record.Medication{
		UserID:       userIDFrom(r.Context()),
		Name:         req.Name,
		Dosage:       req.Dosage,
		Frequency:    req.Frequency,
		PrescribedBy: req.PrescribedBy,
		StartDate:    start,
		EndDate:      end,
		Active:       req.Active == nil || *req.Active,
	}
	id, err := s.cfg.Records.CreateMedication(r.Context(), m)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

func (s *server) createVaccination(w http.ResponseWriter, r *http.Request) {
	var req CreateVaccinationRequest
	if !s.decode(w, r, &req) {
		return
	}

	given, err := calendar.ParseDate(req.AdministeredOn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_administered_on", err.Error())
		return
	}
	nextDue, err := optionalDate(req.NextDue)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_next_due", err.Error())
		return
	}

	v := &record.Vaccination{
		UserID:         userIDFrom(r.Context()),
		Name:           req.Name,
		AdministeredOn: given,
		NextDue:        nextDue,
		AdministeredBy: req.AdministeredBy,
	}
	id, err := s.cfg.Records.CreateVaccination(r.Context(), v)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// Reminders

func (s *server) requestPermission(w http.ResponseWriter, r *http.Request) {
	if err := s.scheduler(r).RequestPermission(r.Context()); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PermissionResponse{Permission: reminder.PermissionGranted})
}

func (s *server) scheduleMedicationReminders(w http.ResponseWriter, r *http.Request) {
	meds, err := s.cfg.Records.ListMedications(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	reqs, err := s.scheduler(r).ScheduleMedicationReminders(r.Context(), meds)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, RemindersResponse{Reminders: toReminderResponses(reqs)})
}

func (s *server) scheduleVaccinationReminders(w http.ResponseWriter, r *http.Request) {
	vacs, err := s.cfg.Records.ListVaccinations(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	n, err := s.scheduler(r).ScheduleVaccinationReminders(r.Context(), vacs)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, VaccinationRemindersResponse{Scheduled: n})
}

func (s *server) listReminders(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.scheduler(r).ListScheduledReminders(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RemindersResponse{Reminders: toReminderResponses(reqs)})
}

func (s *server) cancelAllReminders(w http.ResponseWriter, r *http.Request) {
	if err := s.scheduler(r).CancelAllReminders(r.Context()); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) cancelReminder(w http.ResponseWriter, r *http.Request) {
	h := reminder.Handle(chi.URLParam(r, "handle"))
	if err := s.scheduler(r).CancelReminder(r.Context(), h); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) sendTestReminder(w http.ResponseWriter, r *http.Request) {
	var req TestReminderRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.scheduler(r).SendImmediateReminder(r.Context(), req.Title, req.Body, map[string]string{"type": "test"}); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
