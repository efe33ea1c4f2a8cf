package visit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicq/queue-api/internal/lock"
	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository/memory"
	activityservice "github.com/clinicq/queue-api/internal/service/activity"
	apperrors "github.com/clinicq/queue-api/pkg/errors"
)

type fixture struct {
	svc          *Service
	visits       *memory.VisitRepository
	doctors      *memory.DoctorRepository
	appointments *memory.AppointmentRepository
	activityRepo *memory.ActivityRepository
	doctor       *model.Doctor
	actor        model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	visits := memory.NewVisitRepository()
	doctors := memory.NewDoctorRepository()
	appointments := memory.NewAppointmentRepository()
	activityRepo := memory.NewActivityRepository()

	doctor := &model.Doctor{
		Base:            model.Base{ID: uuid.New()},
		ClinicID:        uuid.New(),
		Name:            "Dr. John Kim",
		MaxTokensPerDay: 50,
		Status:          model.DoctorStatusAvailable,
	}
	doctor.SeedTokens()
	require.NoError(t, doctors.Create(context.Background(), doctor))

	svc := NewService(visits, doctors, appointments,
		activityservice.NewService(activityRepo), lock.NewKeyedLocker(), nil, nil, nil)

	return &fixture{
		svc:          svc,
		visits:       visits,
		doctors:      doctors,
		appointments: appointments,
		activityRepo: activityRepo,
		doctor:       doctor,
		actor:        model.Actor{HandlerID: uuid.New(), HandlerName: "Priya"},
	}
}

func (f *fixture) addVisit(t *testing.T, status model.VisitStatus, position int) *model.Visit {
	t.Helper()
	visit := &model.Visit{
		Base:          model.Base{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
		TokenNumber:   queueToken(position),
		ClinicID:      f.doctor.ClinicID,
		DoctorID:      f.doctor.ID,
		VisitDate:     "2026-08-27",
		QueuePosition: position,
		PatientName:   "Patient",
		PatientAge:    35,
		PatientPhone:  "555-0100",
		Status:        status,
		BookedAt:      time.Now(),
		Version:       1,
	}
	require.NoError(t, f.visits.Create(context.Background(), visit))
	return visit
}

func queueToken(position int) string {
	return fmt.Sprintf("K%03d", position)
}

func (f *fixture) entries(t *testing.T) []*model.ActivityEntry {
	t.Helper()
	entries, err := f.activityRepo.List(context.Background(), &model.ActivityFilters{
		ClinicID: f.doctor.ClinicID,
		Limit:    100,
	})
	require.NoError(t, err)
	return entries
}

func TestSetStatusWalksTheHappyPath(t *testing.T) {
	f := newFixture(t)
	visit := f.addVisit(t, model.VisitStatusWaiting, 1)
	ctx := context.Background()

	change, err := f.svc.SetStatus(ctx, f.actor, visit.ID, model.VisitStatusArrived)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusArrived, change.Visit.Status)
	assert.NotNil(t, change.Visit.ArrivedAt)
	assert.Nil(t, change.CascadedDoctor)

	change, err = f.svc.SetStatus(ctx, f.actor, visit.ID, model.VisitStatusWithDoctor)
	require.NoError(t, err)
	assert.NotNil(t, change.Visit.ConsultStartedAt)

	change, err = f.svc.SetStatus(ctx, f.actor, visit.ID, model.VisitStatusCompleted)
	require.NoError(t, err)
	assert.NotNil(t, change.Visit.ConsultEndedAt)
}

func TestSetStatusRejectsInvalidTransitions(t *testing.T) {
	cases := []struct {
		from model.VisitStatus
		to   model.VisitStatus
	}{
		{model.VisitStatusWaiting, model.VisitStatusWithDoctor},
		{model.VisitStatusWaiting, model.VisitStatusCompleted},
		{model.VisitStatusArrived, model.VisitStatusWaiting},
		{model.VisitStatusArrived, model.VisitStatusCompleted},
		{model.VisitStatusWithDoctor, model.VisitStatusWaiting},
		{model.VisitStatusWithDoctor, model.VisitStatusNoShow},
		{model.VisitStatusCompleted, model.VisitStatusWaiting},
		{model.VisitStatusCompleted, model.VisitStatusWithDoctor},
		{model.VisitStatusNoShow, model.VisitStatusArrived},
		{model.VisitStatusMissed, model.VisitStatusWaiting},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			f := newFixture(t)
			visit := f.addVisit(t, tc.from, 1)

			_, err := f.svc.SetStatus(context.Background(), f.actor, visit.ID, tc.to)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))
		})
	}
}

func TestRejectedTransitionChangesNothing(t *testing.T) {
	f := newFixture(t)
	visit := f.addVisit(t, model.VisitStatusWaiting, 1)

	_, err := f.svc.SetStatus(context.Background(), f.actor, visit.ID, model.VisitStatusCompleted)
	require.Error(t, err)

	stored, err := f.visits.Get(context.Background(), visit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusWaiting, stored.Status)
	assert.Empty(t, f.entries(t))
}

func TestSetStatusCascadesDoctorToWithPatient(t *testing.T) {
	f := newFixture(t)
	first := f.addVisit(t, model.VisitStatusArrived, 1)
	f.addVisit(t, model.VisitStatusWaiting, 2)

	change, err := f.svc.SetStatus(context.Background(), f.actor, first.ID, model.VisitStatusWithDoctor)
	require.NoError(t, err)

	require.NotNil(t, change.CascadedDoctor)
	assert.Equal(t, model.DoctorStatusWithPatient, change.CascadedDoctor.Status)
	assert.Equal(t, first.TokenNumber, change.CascadedDoctor.CurrentToken)

	stored, err := f.doctors.Get(context.Background(), f.doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DoctorStatusWithPatient, stored.Status)
}

func TestCompletionFreesDoctorAndBumpsCounter(t *testing.T) {
	f := newFixture(t)
	visit := f.addVisit(t, model.VisitStatusWithDoctor, 1)

	change, err := f.svc.SetStatus(context.Background(), f.actor, visit.ID, model.VisitStatusCompleted)
	require.NoError(t, err)

	require.NotNil(t, change.CascadedDoctor)
	assert.Equal(t, model.DoctorStatusAvailable, change.CascadedDoctor.Status)
	assert.Equal(t, 1, change.CascadedDoctor.CompletedToday)
}

func TestCompletionClosesLinkedAppointment(t *testing.T) {
	f := newFixture(t)
	visit := f.addVisit(t, model.VisitStatusWithDoctor, 1)

	appointment := &model.Appointment{
		Base:    model.Base{ID: uuid.New()},
		UserID:  uuid.New(),
		VisitID: visit.ID,
		Status:  model.AppointmentStatusUpcoming,
	}
	require.NoError(t, f.appointments.Create(context.Background(), appointment))

	_, err := f.svc.SetStatus(context.Background(), f.actor, visit.ID, model.VisitStatusCompleted)
	require.NoError(t, err)

	stored, err := f.appointments.Get(context.Background(), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, stored.Status)
}

func TestEachTransitionWritesExactlyOneActivityEntry(t *testing.T) {
	f := newFixture(t)
	visit := f.addVisit(t, model.VisitStatusWaiting, 1)

	_, err := f.svc.SetStatus(context.Background(), f.actor, visit.ID, model.VisitStatusArrived)
	require.NoError(t, err)

	entries := f.entries(t)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, model.ActivityPatientStatusChange, entry.Action)
	assert.Equal(t, f.actor.HandlerID, entry.HandlerID)
	assert.Equal(t, visit.ID, entry.TargetID)
	require.NotNil(t, entry.OldValue)
	require.NotNil(t, entry.NewValue)
	assert.Equal(t, "waiting", *entry.OldValue)
	assert.Equal(t, "arrived", *entry.NewValue)
}

func TestSetStatusDetectsStaleWrites(t *testing.T) {
	f := newFixture(t)
	visit := f.addVisit(t, model.VisitStatusWaiting, 1)

	// A concurrent writer bumps the version behind our back.
	stored, err := f.visits.Get(context.Background(), visit.ID)
	require.NoError(t, err)
	require.NoError(t, f.visits.Update(context.Background(), stored))

	stale := *visit
	stale.Version = 1
	stale.Status = model.VisitStatusArrived
	err = f.visits.Update(context.Background(), &stale)
	require.Error(t, err)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	visit := f.addVisit(t, model.VisitStatusWaiting, 1)

	_, err := f.svc.SetStatus(context.Background(), f.actor, visit.ID, model.VisitStatus("vanished"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestSetStatusForMissingVisit(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetStatus(context.Background(), f.actor, uuid.New(), model.VisitStatusArrived)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
