package record

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/health-appointment-reminders/internal/calendar"
)

func TestActiveMedications(t *testing.T) {
	med := func(name string, active bool) Medication {
		return Medication{Name: name, Active: active}
	}

	tests := []struct {
		name string
		in   []Medication
		want []string
	}{
		{"nil input", nil, nil},
		{"none active", []Medication{med("Doliprane", false)}, nil},
		{"all active", []Medication{med("Metformine", true), med("Amlodipine", true)}, []string{"Metformine", "Amlodipine"}},
		{"keeps order", []Medication{
			med("Levothyrox", true),
			med("Doliprane", false),
			med("Metformine", true),
		}, []string{"Levothyrox", "Metformine"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, m := range ActiveMedications(tt.in) {
				got = append(got, m.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryRepository_PerUser(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	start := calendar.Date{Year: 2026, Month: 10, Day: 1}

	given := &Medication{UserID: "alice", Name: "Metformine", StartDate: start, Active: true}
	id, err := repo.CreateMedication(ctx, given)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, id, given.ID)

	fixed := uuid.New()
	id, err = repo.CreateMedication(ctx, &Medication{ID: fixed, UserID: "alice", Name: "Doliprane", StartDate: start})
	require.NoError(t, err)
	assert.Equal(t, fixed, id)

	_, err = repo.CreateMedication(ctx, &Medication{UserID: "bob", Name: "Amlodipine", StartDate: start, Active: true})
	require.NoError(t, err)
	_, err = repo.CreateVaccination(ctx, &Vaccination{UserID: "bob", Name: "Tétanos", AdministeredOn: start})
	require.NoError(t, err)

	tests := []struct {
		user         string
		medications  []string
		vaccinations int
	}{
		{"alice", []string{"Metformine", "Doliprane"}, 0},
		{"bob", []string{"Amlodipine"}, 1},
		{"carol", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			meds, err := repo.ListMedications(ctx, tt.user)
			require.NoError(t, err)
			var names []string
			for _, m := range meds {
				assert.Equal(t, tt.user, m.UserID)
				names = append(names, m.Name)
			}
			assert.Equal(t, tt.medications, names)

			vacs, err := repo.ListVaccinations(ctx, tt.user)
			require.NoError(t, err)
			assert.Len(t, vacs, tt.vaccinations)
		})
	}
}
