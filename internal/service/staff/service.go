package staff

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
	"github.com/clinicq/queue-api/internal/service/activity"
	"github.com/clinicq/queue-api/pkg/auth"
	apperrors "github.com/clinicq/queue-api/pkg/errors"
	"github.com/clinicq/queue-api/pkg/logger"
	"github.com/clinicq/queue-api/pkg/security"
)

// Service manages clinic handlers and their sessions. Logins and logouts are
// recorded in the activity log like any other staff action.
type Service struct {
	handlers repository.HandlerRepository
	hasher   security.AccessCodeHasher
	sessions auth.SessionService
	activity *activity.Service
	logger   *logger.Logger
}

func NewService(
	handlers repository.HandlerRepository,
	hasher security.AccessCodeHasher,
	sessions auth.SessionService,
	activitySvc *activity.Service,
	l *logger.Logger,
) *Service {
	return &Service{
		handlers: handlers,
		hasher:   hasher,
		sessions: sessions,
		activity: activitySvc,
		logger:   l,
	}
}

// CreateHandler registers a staff member. The access code is stored only as a
// bcrypt hash.
func (s *Service) CreateHandler(ctx context.Context, req *model.CreateHandlerRequest) (*model.Handler, error) {
	clinicID, err := uuid.Parse(req.ClinicID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid clinic id", err)
	}
	if len(req.AccessCode) < security.MinAccessCodeLen {
		return nil, apperrors.BadRequest("access code too short", nil)
	}

	hash, err := s.hasher.Hash(req.AccessCode)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := time.Now()
	handler := &model.Handler{
		Base:           model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ClinicID:       clinicID,
		Name:           req.Name,
		Phone:          req.Phone,
		AccessCodeHash: hash,
	}
	if err := s.handlers.Create(ctx, handler); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.BadRequest("a handler with this phone already exists", err)
		}
		return nil, apperrors.Internal(err)
	}
	return handler, nil
}

// Login verifies phone plus access code and mints a session token. A wrong
// phone and a wrong code produce the same error, so the endpoint does not
// leak which handlers exist.
func (s *Service) Login(ctx context.Context, req *model.HandlerLoginRequest) (*model.Handler, *model.TokenResponse, error) {
	handler, err := s.handlers.GetByPhone(ctx, req.Phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.Unauthorized(errors.New("invalid credentials"))
		}
		return nil, nil, apperrors.Internal(err)
	}

	if err := s.hasher.Compare(handler.AccessCodeHash, req.AccessCode); err != nil {
		return nil, nil, apperrors.Unauthorized(errors.New("invalid credentials"))
	}

	token, expiresAt, err := s.sessions.Generate(handler.ID, handler.ClinicID, handler.Name, handler.IsAdmin)
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}

	s.recordSession(ctx, handler, model.ActivityHandlerLogin, "Handler logged in")

	return handler, &model.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}, nil
}

// Logout records the end of a session. Tokens are stateless, so this is an
// audit event, not a revocation.
func (s *Service) Logout(ctx context.Context, handlerID uuid.UUID) error {
	handler, err := s.handlers.Get(ctx, handlerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("handler", err)
		}
		return apperrors.Internal(err)
	}
	s.recordSession(ctx, handler, model.ActivityHandlerLogout, "Handler logged out")
	return nil
}

func (s *Service) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.Handler, error) {
	handlers, err := s.handlers.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return handlers, nil
}

// recordSession audits a login or logout. The session itself is already
// established, so a failed audit write is logged rather than failing the
// request.
func (s *Service) recordSession(ctx context.Context, handler *model.Handler, action model.ActivityAction, details string) {
	_, err := s.activity.Record(ctx, &model.ActivityEntry{
		ClinicID:    handler.ClinicID,
		HandlerID:   handler.ID,
		HandlerName: handler.Name,
		Action:      action,
		TargetType:  model.ActivityTargetSystem,
		TargetID:    handler.ID,
		TargetName:  handler.Name,
		Details:     details,
	})
	if err != nil && s.logger != nil {
		s.logger.Error(err, "failed to record session activity",
			"handler_id", handler.ID.String(), "action", string(action))
	}
}
