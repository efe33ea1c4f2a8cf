package clinic

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
	apperrors "github.com/clinicq/queue-api/pkg/errors"
)

type Service struct {
	clinics repository.ClinicRepository
	doctors repository.DoctorRepository
}

func NewService(clinics repository.ClinicRepository, doctors repository.DoctorRepository) *Service {
	return &Service{clinics: clinics, doctors: doctors}
}

func (s *Service) Create(ctx context.Context, req *model.CreateClinicRequest) (*model.Clinic, error) {
	now := time.Now()
	clinic := &model.Clinic{
		Base:        model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:        req.Name,
		Specialty:   req.Specialty,
		Address:     req.Address,
		Phone:       req.Phone,
		BookingType: req.BookingType,
	}
	if err := s.clinics.Create(ctx, clinic); err != nil {
		return nil, apperrors.Internal(err)
	}
	return clinic, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	clinic, err := s.clinics.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("clinic", err)
		}
		return nil, apperrors.Internal(err)
	}
	return clinic, nil
}

// MarkSetup flips the setup flag once the clinic has at least one doctor.
// Dashboards branch on it to show onboarding versus the live queue.
func (s *Service) MarkSetup(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	clinic, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if clinic.IsSetup {
		return clinic, nil
	}

	doctors, err := s.doctors.ListByClinic(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(doctors) == 0 {
		return nil, apperrors.BadRequest("clinic has no doctors yet", nil)
	}

	clinic.IsSetup = true
	clinic.UpdatedAt = time.Now()
	if err := s.clinics.Update(ctx, clinic); err != nil {
		return nil, apperrors.Internal(err)
	}
	return clinic, nil
}
