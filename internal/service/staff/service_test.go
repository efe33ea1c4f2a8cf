package staff

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository/memory"
	activityservice "github.com/clinicq/queue-api/internal/service/activity"
	"github.com/clinicq/queue-api/pkg/auth"
	apperrors "github.com/clinicq/queue-api/pkg/errors"
	"github.com/clinicq/queue-api/pkg/logger"
	"github.com/clinicq/queue-api/pkg/security"

	"github.com/google/uuid"
)

type fixture struct {
	svc          *Service
	activityRepo *memory.ActivityRepository
	sessions     auth.SessionService
	clinicID     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	activityRepo := memory.NewActivityRepository()
	sessions := auth.NewSessionService("test-secret", time.Hour)
	svc := NewService(
		memory.NewHandlerRepository(),
		security.NewBcryptHasher(4),
		sessions,
		activityservice.NewService(activityRepo),
		nil,
	)
	return &fixture{svc: svc, activityRepo: activityRepo, sessions: sessions, clinicID: uuid.New()}
}

func (f *fixture) createHandler(t *testing.T, phone string) *model.Handler {
	t.Helper()
	handler, err := f.svc.CreateHandler(context.Background(), &model.CreateHandlerRequest{
		ClinicID:   f.clinicID.String(),
		Name:       "Priya",
		Phone:      phone,
		AccessCode: "super-secret",
	})
	require.NoError(t, err)
	return handler
}

func TestCreateHandlerStoresOnlyTheHash(t *testing.T) {
	f := newFixture(t)

	handler := f.createHandler(t, "555-0100")
	assert.NotEmpty(t, handler.AccessCodeHash)
	assert.NotEqual(t, "super-secret", handler.AccessCodeHash)
}

func TestCreateHandlerRejectsShortAccessCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateHandler(context.Background(), &model.CreateHandlerRequest{
		ClinicID:   f.clinicID.String(),
		Name:       "Priya",
		Phone:      "555-0100",
		AccessCode: "short",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestCreateHandlerRejectsDuplicatePhone(t *testing.T) {
	f := newFixture(t)
	f.createHandler(t, "555-0100")

	_, err := f.svc.CreateHandler(context.Background(), &model.CreateHandlerRequest{
		ClinicID:   f.clinicID.String(),
		Name:       "Another",
		Phone:      "555-0100",
		AccessCode: "super-secret",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestLoginMintsAValidSession(t *testing.T) {
	f := newFixture(t)
	created := f.createHandler(t, "555-0100")

	handler, token, err := f.svc.Login(context.Background(), &model.HandlerLoginRequest{
		Phone:      "555-0100",
		AccessCode: "super-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, handler.ID)
	assert.Positive(t, token.ExpiresIn)

	claims, err := f.sessions.Validate(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.HandlerID)
	assert.Equal(t, f.clinicID, claims.ClinicID)
}

func TestLoginHidesWhichPartWasWrong(t *testing.T) {
	f := newFixture(t)
	f.createHandler(t, "555-0100")
	ctx := context.Background()

	_, _, errBadCode := f.svc.Login(ctx, &model.HandlerLoginRequest{
		Phone: "555-0100", AccessCode: "wrong-code",
	})
	_, _, errBadPhone := f.svc.Login(ctx, &model.HandlerLoginRequest{
		Phone: "555-9999", AccessCode: "super-secret",
	})

	require.Error(t, errBadCode)
	require.Error(t, errBadPhone)
	assert.Equal(t, errBadCode.Error(), errBadPhone.Error())
	assert.True(t, apperrors.Is(errBadCode, apperrors.ErrUnauthorized))
	assert.True(t, apperrors.Is(errBadPhone, apperrors.ErrUnauthorized))
}

type failingActivityRepo struct{}

func (failingActivityRepo) Create(context.Context, *model.ActivityEntry) error {
	return errors.New("activity store down")
}

func (failingActivityRepo) List(context.Context, *model.ActivityFilters) ([]*model.ActivityEntry, error) {
	return nil, nil
}

func TestLoginSurvivesAndLogsAuditFailure(t *testing.T) {
	var logs bytes.Buffer
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: &logs})

	handlers := memory.NewHandlerRepository()
	svc := NewService(
		handlers,
		security.NewBcryptHasher(4),
		auth.NewSessionService("test-secret", time.Hour),
		activityservice.NewService(failingActivityRepo{}),
		log,
	)

	clinicID := uuid.New()
	_, err := svc.CreateHandler(context.Background(), &model.CreateHandlerRequest{
		ClinicID:   clinicID.String(),
		Name:       "Priya",
		Phone:      "555-0100",
		AccessCode: "super-secret",
	})
	require.NoError(t, err)

	_, token, err := svc.Login(context.Background(), &model.HandlerLoginRequest{
		Phone:      "555-0100",
		AccessCode: "super-secret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Contains(t, logs.String(), "failed to record session activity")
}

func TestLoginAndLogoutAreAudited(t *testing.T) {
	f := newFixture(t)
	created := f.createHandler(t, "555-0100")
	ctx := context.Background()

	_, _, err := f.svc.Login(ctx, &model.HandlerLoginRequest{
		Phone: "555-0100", AccessCode: "super-secret",
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, created.ID))

	entries, err := f.activityRepo.List(ctx, &model.ActivityFilters{ClinicID: f.clinicID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActivityHandlerLogout, entries[0].Action)
	assert.Equal(t, model.ActivityHandlerLogin, entries[1].Action)
}
