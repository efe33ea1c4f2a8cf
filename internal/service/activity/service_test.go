package activity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository/memory"
)

func newService() (*Service, uuid.UUID) {
	return NewService(memory.NewActivityRepository()), uuid.New()
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	svc, clinicID := newService()

	id, err := svc.Record(context.Background(), &model.ActivityEntry{
		ClinicID:    clinicID,
		HandlerID:   uuid.New(),
		HandlerName: "Priya",
		Action:      model.ActivityHandlerLogin,
		TargetType:  model.ActivityTargetSystem,
		Details:     "Handler logged in",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	entries, err := svc.List(context.Background(), &model.ActivityFilters{ClinicID: clinicID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestRecordStatusChangeCapturesOldAndNew(t *testing.T) {
	svc, clinicID := newService()
	actor := model.Actor{HandlerID: uuid.New(), HandlerName: "Priya"}
	targetID := uuid.New()

	_, err := svc.RecordStatusChange(context.Background(), actor, clinicID,
		model.ActivityPatientStatusChange, model.ActivityTargetPatient,
		targetID, "Alice", "waiting", "arrived")
	require.NoError(t, err)

	entries, err := svc.List(context.Background(), &model.ActivityFilters{ClinicID: clinicID})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "Updated patient status from waiting to arrived", entry.Details)
	assert.Equal(t, "waiting", *entry.OldValue)
	assert.Equal(t, "arrived", *entry.NewValue)
	assert.Equal(t, targetID, entry.TargetID)
	assert.Equal(t, actor.HandlerID, entry.HandlerID)
}

func TestListReturnsNewestFirstWithDefaultLimit(t *testing.T) {
	svc, clinicID := newService()
	ctx := context.Background()

	for i := 0; i < DefaultListLimit+5; i++ {
		_, err := svc.Record(ctx, &model.ActivityEntry{
			ClinicID:  clinicID,
			Action:    model.ActivityDoctorStatusChange,
			Details:   fmt.Sprintf("entry %d", i),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	entries, err := svc.List(ctx, &model.ActivityFilters{ClinicID: clinicID})
	require.NoError(t, err)
	require.Len(t, entries, DefaultListLimit)
	assert.Equal(t, fmt.Sprintf("entry %d", DefaultListLimit+4), entries[0].Details)
}

func TestListFiltersByAction(t *testing.T) {
	svc, clinicID := newService()
	ctx := context.Background()

	_, err := svc.Record(ctx, &model.ActivityEntry{ClinicID: clinicID, Action: model.ActivityHandlerLogin})
	require.NoError(t, err)
	_, err = svc.Record(ctx, &model.ActivityEntry{ClinicID: clinicID, Action: model.ActivityDoctorStatusChange})
	require.NoError(t, err)

	entries, err := svc.List(ctx, &model.ActivityFilters{
		ClinicID: clinicID,
		Action:   model.ActivityHandlerLogin,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActivityHandlerLogin, entries[0].Action)
}

func TestListScopesByClinic(t *testing.T) {
	svc, clinicID := newService()
	ctx := context.Background()

	_, err := svc.Record(ctx, &model.ActivityEntry{ClinicID: clinicID, Action: model.ActivityHandlerLogin})
	require.NoError(t, err)
	_, err = svc.Record(ctx, &model.ActivityEntry{ClinicID: uuid.New(), Action: model.ActivityHandlerLogin})
	require.NoError(t, err)

	entries, err := svc.List(ctx, &model.ActivityFilters{ClinicID: clinicID})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
