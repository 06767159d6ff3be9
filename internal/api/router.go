package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/health-appointment-reminders/internal/appointment"
	"github.com/hackgods/health-appointment-reminders/internal/booking"
	"github.com/hackgods/health-appointment-reminders/internal/calendar"
	"github.com/hackgods/health-appointment-reminders/internal/record"
	"github.com/hackgods/health-appointment-reminders/internal/reminder"
)

// DispatcherFactory returns the notification dispatcher holding userID's
// reminders.
type DispatcherFactory func(userID string) reminder.Dispatcher

type RouterConfig struct {
	Doctors      booking.DoctorRepository
	Appointments appointment.Repository
	Records      record.Repository
	Dispatchers  DispatcherFactory
	Calendar     *calendar.Calendar
	HorizonDays  int
	Surcharge    decimal.Decimal
	JWTSecret    []byte
	Logger       logrus.FieldLogger
	Dependencies []Dependency
	Env          string
	Version      string
}

type server struct {
	cfg      RouterConfig
	resolver *booking.Resolver
	validate *validator.Validate
	log      logrus.FieldLogger
}

func NewRouter(cfg RouterConfig) http.Handler {
	s := &server{
		cfg:      cfg,
		resolver: booking.NewResolver(cfg.Calendar, cfg.HorizonDays, cfg.Surcharge),
		validate: validator.New(),
		log:      cfg.Logger.WithField("component", "api"),
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.Dependencies, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/booking/dates", s.bookingDates)
	r.Get("/specialties", s.listSpecialties)
	r.Get("/doctors", s.listDoctors)
	r.Get("/doctors/{id}", s.getDoctor)
	r.Get("/doctors/{id}/slots", s.doctorSlots)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Post("/appointments", s.createAppointment)
		r.Get("/appointments", s.listAppointments)
		r.Post("/appointments/{id}/cancel", s.cancelAppointment)
		r.Post("/appointments/{id}/complete", s.completeAppointment)

		r.Get("/records", s.listRecords)
		r.Post("/records/medications", s.createMedication)
		r.Post("/records/vaccinations", s.createVaccination)

		r.Post("/reminders/permission", s.requestPermission)
		r.Post("/reminders/medications", s.scheduleMedicationReminders)
		r.Post("/reminders/vaccinations", s.scheduleVaccinationReminders)
		r.Get("/reminders", s.listReminders)
		r.Delete("/reminders", s.cancelAllReminders)
		r.Delete("/reminders/{handle}", s.cancelReminder)
		r.Post("/reminders/test", s.sendTestReminder)
	})

	return r
}
