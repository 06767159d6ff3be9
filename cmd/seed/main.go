package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/health-appointment-reminders/internal/booking"
	"github.com/hackgods/health-appointment-reminders/internal/calendar"
	"github.com/hackgods/health-appointment-reminders/internal/db"
	"github.com/hackgods/health-appointment-reminders/internal/logger"
	"github.com/hackgods/health-appointment-reminders/internal/record"
)

var specialties = []string{
	"Médecine générale",
	"Cardiologie",
	"Dermatologie",
	"Pédiatrie",
	"Gynécologie",
	"Ophtalmologie",
	"Endocrinologie",
	"Neurologie",
	"ORL",
	"Psychiatrie",
}

var cities = []string{"Paris", "Lyon", "Marseille", "Toulouse", "Bordeaux", "Lille", "Nantes", "Strasbourg"}

var prescriptions = []struct {
	name, dosage, frequency string
}{
	{"Metformine", "500mg", "2 fois par jour"},
	{"Doliprane", "1g", "3 fois par jour"},
	{"Levothyrox", "75µg", "une fois par jour le matin"},
	{"Amlodipine", "5mg", "1 fois par jour"},
	{"Atorvastatine", "20mg", "le soir"},
	{"Ventoline", "100µg", "si besoin"},
	{"Kardégic", "75mg", "une fois par jour"},
	{"Amoxicilline", "1g", "trois fois par jour"},
}

var vaccines = []struct {
	name   string
	period time.Duration
}{
	{"Grippe saisonnière", 365 * 24 * time.Hour},
	{"Tétanos-Diphtérie-Polio", 10 * 365 * 24 * time.Hour},
	{"Covid-19", 180 * 24 * time.Hour},
	{"Hépatite B", 0},
}

func main() {
	log := logger.New(getEnv("APP_ENV", "dev"), getEnv("LOG_LEVEL", "info"))
	log.Info("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctors := booking.NewPgDoctorRepository(pool)
	if err := seedDoctors(ctx, log, doctors, 40); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}

	records := record.NewPgRepository(pool)
	if err := seedRecords(ctx, log, records, 200); err != nil {
		log.Fatalf("seed records: %v", err)
	}

	log.Info("seed complete")
}

func seedDoctors(ctx context.Context, log logrus.FieldLogger, repo booking.DoctorRepository, count int) error {
	log.WithField("count", count).Info("seeding doctors")

	grids := []struct{ start, end, interval int }{
		{8, 18, 60},
		{9, 17, 30},
		{8, 12, 20},
		{14, 19, 45},
	}

	for i := 0; i < count; i++ {
		g := grids[gofakeit.Number(0, len(grids)-1)]
		grid, err := calendar.GenerateTimeSlots(g.start, g.end, g.interval)
		if err != nil {
			return err
		}

		slots := make([]string, 0, len(grid))
		for _, tod := range grid {
			// leave some holes so grids differ between doctors
			if gofakeit.Number(1, 10) > 8 {
				continue
			}
			slots = append(slots, tod.String())
		}

		d := &booking.Doctor{
			Name:            "Dr. " + gofakeit.FirstName() + " " + gofakeit.LastName(),
			Specialty:       specialties[gofakeit.Number(0, len(specialties)-1)],
			City:            gofakeit.RandomString(cities),
			AvailableSlots:  slots,
			ConsultationFee: decimal.NewFromInt(int64(gofakeit.Number(5, 24) * 5)),
		}
		if _, err := repo.CreateDoctor(ctx, d); err != nil {
			return err
		}
	}

	log.Info("doctors seeded")
	return nil
}

func seedRecords(ctx context.Context, log logrus.FieldLogger, repo record.Repository, users int) error {
	log.WithField("users", users).Info("seeding medical records")

	now := time.Now()
	for i := 0; i < users; i++ {
		userID := uuid.NewString()

		for j := gofakeit.Number(0, 3); j > 0; j-- {
			p := prescriptions[gofakeit.Number(0, len(prescriptions)-1)]
			m := &record.Medication{
				UserID:       userID,
				Name:         p.name,
				Dosage:       p.dosage,
				Frequency:    p.frequency,
				PrescribedBy: "Dr. " + gofakeit.LastName(),
				StartDate:    calendar.DateOf(gofakeit.DateRange(now.AddDate(-1, 0, 0), now)),
				Active:       gofakeit.Number(1, 10) <= 8,
			}
			if _, err := repo.CreateMedication(ctx, m); err != nil {
				return fmt.Errorf("user %s medication: %w", userID, err)
			}
		}

		for j := gofakeit.Number(0, 2); j > 0; j-- {
			vac := vaccines[gofakeit.Number(0, len(vaccines)-1)]
			given := gofakeit.DateRange(now.AddDate(-2, 0, 0), now)
			v := &record.Vaccination{
				UserID:         userID,
				Name:           vac.name,
				AdministeredOn: calendar.DateOf(given),
				AdministeredBy: "Dr. " + gofakeit.LastName(),
			}
			if vac.period > 0 {
				due := calendar.DateOf(given.Add(vac.period))
				v.NextDue = &due
			}
			if _, err := repo.CreateVaccination(ctx, v); err != nil {
				return fmt.Errorf("user %s vaccination: %w", userID, err)
			}
		}

		if (i+1)%50 == 0 {
			log.Infof("records seeded: %d/%d users", i+1, users)
		}
	}

	log.Info("medical records seeded")
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
