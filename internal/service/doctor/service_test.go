package doctor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicq/queue-api/internal/lock"
	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository/memory"
	activityservice "github.com/clinicq/queue-api/internal/service/activity"
	eventservice "github.com/clinicq/queue-api/internal/service/event"
	apperrors "github.com/clinicq/queue-api/pkg/errors"
)

type fixture struct {
	svc          *Service
	doctors      *memory.DoctorRepository
	visits       *memory.VisitRepository
	activityRepo *memory.ActivityRepository
	outbox       *memory.OutboxRepository
	locker       lock.Locker
	clinicID     uuid.UUID
	actor        model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	doctors := memory.NewDoctorRepository()
	visits := memory.NewVisitRepository()
	activityRepo := memory.NewActivityRepository()
	outbox := memory.NewOutboxRepository()
	locker := lock.NewKeyedLocker()

	svc := NewService(doctors, visits,
		activityservice.NewService(activityRepo),
		eventservice.NewService(outbox), locker, nil, nil)

	return &fixture{
		svc:          svc,
		doctors:      doctors,
		visits:       visits,
		activityRepo: activityRepo,
		outbox:       outbox,
		locker:       locker,
		clinicID:     uuid.New(),
		actor:        model.Actor{HandlerID: uuid.New(), HandlerName: "Priya"},
	}
}

func (f *fixture) addDoctor(t *testing.T, name string, status model.DoctorStatus) *model.Doctor {
	t.Helper()
	doctor := &model.Doctor{
		Base:            model.Base{ID: uuid.New()},
		ClinicID:        f.clinicID,
		Name:            name,
		MaxTokensPerDay: 50,
		Status:          status,
	}
	doctor.SeedTokens()
	require.NoError(t, f.doctors.Create(context.Background(), doctor))
	return doctor
}

func (f *fixture) addActiveVisit(t *testing.T, doctorID uuid.UUID, position int, email string) *model.Visit {
	t.Helper()
	visit := &model.Visit{
		Base:          model.Base{ID: uuid.New()},
		TokenNumber:   "S00" + string(rune('0'+position)),
		ClinicID:      f.clinicID,
		DoctorID:      doctorID,
		VisitDate:     time.Now().Format(model.DateFormat),
		QueuePosition: position,
		PatientName:   "Patient",
		PatientPhone:  "555-0100",
		PatientEmail:  email,
		Status:        model.VisitStatusWaiting,
		BookedAt:      time.Now(),
		Version:       1,
	}
	require.NoError(t, f.visits.Create(context.Background(), visit))
	return visit
}

func TestCreateSeedsTokenMarkers(t *testing.T) {
	f := newFixture(t)

	doctor, err := f.svc.Create(context.Background(), &model.CreateDoctorRequest{
		ClinicID:            f.clinicID.String(),
		Name:                "Dr. Sarah Smith",
		Specialty:           "Pediatrics",
		WorkingDays:         []string{"monday"},
		StartTime:           "09:00",
		EndTime:             "17:00",
		ConsultationMinutes: 15,
		MaxTokensPerDay:     40,
	})
	require.NoError(t, err)

	assert.Equal(t, "S01", doctor.CurrentToken)
	assert.Equal(t, "S01", doctor.NextToken)
	assert.Equal(t, model.DoctorStatusNotArrived, doctor.Status)
}

func TestTokenPrefixUsesSurnameInitial(t *testing.T) {
	cases := map[string]byte{
		"Dr. Sarah Smith": 'S',
		"John Kim":        'K',
		"Dr. Okafor":      'O',
		"dr. lee":         'L',
		"Dr.":             'A',
		"":                'A',
	}
	for name, want := range cases {
		doctor := &model.Doctor{Name: name}
		assert.Equal(t, want, doctor.TokenPrefix(), "name %q", name)
	}
}

func TestSetStatusRecordsOneActivityEntry(t *testing.T) {
	f := newFixture(t)
	doctor := f.addDoctor(t, "Dr. Sarah Smith", model.DoctorStatusNotArrived)

	change, err := f.svc.SetStatus(context.Background(), f.actor, doctor.ID, model.DoctorStatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, model.DoctorStatusAvailable, change.Doctor.Status)
	assert.Empty(t, change.NotifyPatientIDs)

	entries, err := f.activityRepo.List(context.Background(), &model.ActivityFilters{
		ClinicID: f.clinicID, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActivityDoctorStatusChange, entries[0].Action)
	assert.Equal(t, "not_arrived", *entries[0].OldValue)
	assert.Equal(t, "available", *entries[0].NewValue)
}

func TestNotArrivedWithQueuedPatientsEmitsDelayNotices(t *testing.T) {
	f := newFixture(t)
	doctor := f.addDoctor(t, "Dr. Sarah Smith", model.DoctorStatusAvailable)
	first := f.addActiveVisit(t, doctor.ID, 1, "alice@example.com")
	second := f.addActiveVisit(t, doctor.ID, 2, "")

	change, err := f.svc.SetStatus(context.Background(), f.actor, doctor.ID, model.DoctorStatusNotArrived)
	require.NoError(t, err)

	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, change.NotifyPatientIDs)

	events, err := f.outbox.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	var notice model.DelayNotice
	require.NoError(t, json.Unmarshal(events[0].Payload, &notice))
	assert.Equal(t, doctor.ID, notice.DoctorID)
	assert.Equal(t, "Dr. Sarah Smith", notice.DoctorName)
}

func TestNotArrivedWithEmptyQueueEmitsNothing(t *testing.T) {
	f := newFixture(t)
	doctor := f.addDoctor(t, "Dr. Sarah Smith", model.DoctorStatusBreak)

	change, err := f.svc.SetStatus(context.Background(), f.actor, doctor.ID, model.DoctorStatusNotArrived)
	require.NoError(t, err)
	assert.Empty(t, change.NotifyPatientIDs)

	events, err := f.outbox.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNotArrivedSkipsPatientInConsultation(t *testing.T) {
	f := newFixture(t)
	doctor := f.addDoctor(t, "Dr. Sarah Smith", model.DoctorStatusWithPatient)
	inRoom := f.addActiveVisit(t, doctor.ID, 1, "")
	inRoom.Status = model.VisitStatusWithDoctor
	require.NoError(t, f.visits.Update(context.Background(), inRoom))
	waiting := f.addActiveVisit(t, doctor.ID, 2, "bob@example.com")

	change, err := f.svc.SetStatus(context.Background(), f.actor, doctor.ID, model.DoctorStatusNotArrived)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{waiting.ID}, change.NotifyPatientIDs)

	events, err := f.outbox.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestSetStatusWaitsForTheQueueScopeLock(t *testing.T) {
	f := newFixture(t)
	doctor := f.addDoctor(t, "Dr. Sarah Smith", model.DoctorStatusWithPatient)
	ctx := context.Background()
	scope := lock.Scope{
		ClinicID: f.clinicID,
		DoctorID: doctor.ID,
		Date:     time.Now().Format(model.DateFormat),
	}

	held := make(chan struct{})
	proceed := make(chan struct{})
	holderDone := make(chan error, 1)
	go func() {
		holderDone <- f.locker.WithLock(ctx, scope, func(lockCtx context.Context) error {
			close(held)
			<-proceed
			// The doctor-side write a completed consultation performs.
			current, err := f.doctors.Get(lockCtx, doctor.ID)
			if err != nil {
				return err
			}
			current.Status = model.DoctorStatusAvailable
			current.CompletedToday++
			return f.doctors.Update(lockCtx, current)
		})
	}()
	<-held

	statusDone := make(chan error, 1)
	go func() {
		_, err := f.svc.SetStatus(ctx, f.actor, doctor.ID, model.DoctorStatusBreak)
		statusDone <- err
	}()

	select {
	case <-statusDone:
		t.Fatal("status change committed while the scope lock was held elsewhere")
	case <-time.After(50 * time.Millisecond):
	}

	close(proceed)
	require.NoError(t, <-holderDone)
	require.NoError(t, <-statusDone)

	final, err := f.doctors.Get(ctx, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DoctorStatusBreak, final.Status)
	assert.Equal(t, 1, final.CompletedToday)
}

func TestSetStatusAllowsAnyDirection(t *testing.T) {
	f := newFixture(t)
	doctor := f.addDoctor(t, "Dr. Sarah Smith", model.DoctorStatusNotArrived)
	ctx := context.Background()

	for _, status := range []model.DoctorStatus{
		model.DoctorStatusAvailable,
		model.DoctorStatusBreak,
		model.DoctorStatusWithPatient,
		model.DoctorStatusAvailable,
	} {
		_, err := f.svc.SetStatus(ctx, f.actor, doctor.ID, status)
		require.NoError(t, err)
	}
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	doctor := f.addDoctor(t, "Dr. Sarah Smith", model.DoctorStatusAvailable)

	_, err := f.svc.SetStatus(context.Background(), f.actor, doctor.ID, model.DoctorStatus("on_vacation"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestSetStatusForMissingDoctor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetStatus(context.Background(), f.actor, uuid.New(), model.DoctorStatusAvailable)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
