package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/health-appointment-reminders/internal/appointment"
	"github.com/hackgods/health-appointment-reminders/internal/booking"
	"github.com/hackgods/health-appointment-reminders/internal/calendar"
	"github.com/hackgods/health-appointment-reminders/internal/record"
	"github.com/hackgods/health-appointment-reminders/internal/reminder"
)

type BookingDate struct {
	Date  calendar.Date `json:"date"`
	Label string        `json:"label"`
	Today bool          `json:"today"`
}

type DoctorResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Specialty       string          `json:"specialty"`
	City            string          `json:"city,omitempty"`
	AvailableSlots  []string        `json:"available_slots"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
}

type DoctorsResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
}

type SlotsResponse struct {
	DoctorID   uuid.UUID        `json:"doctor_id"`
	DoctorName string           `json:"doctor_name"`
	Specialty  string           `json:"specialty"`
	Date       calendar.Date    `json:"date"`
	Type       appointment.Type `json:"type"`
	Slots      []string         `json:"slots"`
	Fee        decimal.Decimal  `json:"fee"`
}

type CreateAppointmentRequest struct {
	DoctorID string `json:"doctor_id" validate:"required,uuid"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Time     string `json:"time" validate:"required,datetime=15:04"`
	Type     string `json:"type" validate:"omitempty,oneof=consultation followup emergency"`
	Notes    string `json:"notes" validate:"max=500"`
	Remind   bool   `json:"remind"`
}

type AppointmentResponse struct {
	ID              uuid.UUID          `json:"id"`
	DoctorID        uuid.UUID          `json:"doctor_id"`
	DoctorName      string             `json:"doctor_name"`
	DoctorSpecialty string             `json:"doctor_specialty"`
	Date            calendar.Date      `json:"date"`
	Time            calendar.TimeOfDay `json:"time"`
	Type            appointment.Type   `json:"type"`
	Status          appointment.Status `json:"status"`
	Fee             decimal.Decimal    `json:"fee"`
	Notes           string             `json:"notes,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type CreateAppointmentResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	Reminder    *ReminderResponse   `json:"reminder,omitempty"`
}

type ReminderResponse struct {
	Handle   reminder.Handle  `json:"handle"`
	Kind     reminder.Kind    `json:"kind,omitempty"`
	TargetID string           `json:"target_id,omitempty"`
	Title    string           `json:"title"`
	Body     string           `json:"body"`
	Trigger  reminder.Trigger `json:"trigger"`
}

type RemindersResponse struct {
	Reminders []ReminderResponse `json:"reminders"`
}

type VaccinationRemindersResponse struct {
	Scheduled int `json:"scheduled"`
}

type PermissionResponse struct {
	Permission reminder.Permission `json:"permission"`
}

type TestReminderRequest struct {
	Title string `json:"title" validate:"required,max=100"`
	Body  string `json:"body" validate:"required,max=500"`
}

type CreateMedicationRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Dosage       string `json:"dosage" validate:"max=100"`
	Frequency    string `json:"frequency" validate:"max=200"`
	PrescribedBy string `json:"prescribed_by" validate:"max=200"`
	StartDate    string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Active       *bool  `json:"active"`
}

type CreateVaccinationRequest struct {
	Name           string `json:"name" validate:"required,max=200"`
	AdministeredOn string `json:"administered_on" validate:"required,datetime=2006-01-02"`
	NextDue        string `json:"next_due" validate:"omitempty,datetime=2006-01-02"`
	AdministeredBy string `json:"administered_by" validate:"max=200"`
}

type MedicationResponse struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Dosage       string         `json:"dosage,omitempty"`
	Frequency    string         `json:"frequency,omitempty"`
	PrescribedBy string         `json:"prescribed_by,omitempty"`
	StartDate    calendar.Date  `json:"start_date"`
	EndDate      *calendar.Date `json:"end_date,omitempty"`
	Active       bool           `json:"active"`
}

type VaccinationResponse struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	AdministeredOn calendar.Date  `json:"administered_on"`
	NextDue        *calendar.Date `json:"next_due,omitempty"`
	AdministeredBy string         `json:"administered_by,omitempty"`
}

type RecordsResponse struct {
	Medications  []MedicationResponse  `json:"medications"`
	Vaccinations []VaccinationResponse `json:"vaccinations"`
}

type CreatedResponse struct {
	ID uuid.UUID `json:"id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		DoctorName:      a.DoctorName,
		DoctorSpecialty: a.DoctorSpecialty,
		Date:            a.Date,
		Time:            a.Time,
		Type:            a.Type,
		Status:          a.Status,
		Fee:             a.Fee,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toDoctorResponse(d booking.Doctor) DoctorResponse {
	slots := d.AvailableSlots
	if slots == nil {
		slots = []string{}
	}
	return DoctorResponse{
		ID:              d.ID,
		Name:            d.Name,
		Specialty:       d.Specialty,
		City:            d.City,
		AvailableSlots:  slots,
		ConsultationFee: d.ConsultationFee,
	}
}

func toRecordsResponse(meds []record.Medication, vacs []record.Vaccination) RecordsResponse {
	out := RecordsResponse{
		Medications:  make([]MedicationResponse, 0, len(meds)),
		Vaccinations: make([]VaccinationResponse, 0, len(vacs)),
	}
	for _, m := range meds {
		out.Medications = append(out.Medications, MedicationResponse{
			ID:           m.ID,
			Name:         m.Name,
			Dosage:       m.Dosage,
			Frequency:    m.Frequency,
			PrescribedBy: m.PrescribedBy,
			StartDate:    m.StartDate,
			EndDate:      m.EndDate,
			Active:       m.Active,
		})
	}
	for _, v := range vacs {
		out.Vaccinations = append(out.Vaccinations, VaccinationResponse{
			ID:             v.ID,
			Name:           v.Name,
			AdministeredOn: v.AdministeredOn,
			NextDue:        v.NextDue,
			AdministeredBy: v.AdministeredBy,
		})
	}
	return out
}

func toReminderResponse(r reminder.Request) ReminderResponse {
	return ReminderResponse{
		Handle:   r.Handle,
		Kind:     r.Kind,
		TargetID: r.TargetID,
		Title:    r.Content.Title,
		Body:     r.Content.Body,
		Trigger:  r.Trigger,
	}
}

func toReminderResponses(reqs []reminder.Request) []ReminderResponse {
	out := make([]ReminderResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toReminderResponse(r))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
