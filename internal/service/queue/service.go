package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/lock"
	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
	apperrors "github.com/clinicq/queue-api/pkg/errors"
	"github.com/clinicq/queue-api/pkg/logger"
	"github.com/clinicq/queue-api/pkg/messaging"
	"github.com/clinicq/queue-api/pkg/metrics"
)

// Service owns token allocation and queue ordering for doctor queues. All
// writes for a (clinic, doctor, date) scope run under that scope's lock so
// derivations never observe a half-applied change.
type Service struct {
	clinics      repository.ClinicRepository
	doctors      repository.DoctorRepository
	visits       repository.VisitRepository
	appointments repository.AppointmentRepository
	sequences    repository.TokenSequenceRepository
	locker       lock.Locker
	broker       messaging.Broker
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewService(
	clinics repository.ClinicRepository,
	doctors repository.DoctorRepository,
	visits repository.VisitRepository,
	appointments repository.AppointmentRepository,
	sequences repository.TokenSequenceRepository,
	locker lock.Locker,
	broker messaging.Broker,
	m *metrics.Metrics,
	l *logger.Logger,
) *Service {
	return &Service{
		clinics:      clinics,
		doctors:      doctors,
		visits:       visits,
		appointments: appointments,
		sequences:    sequences,
		locker:       locker,
		broker:       broker,
		metrics:      m,
		logger:       l,
	}
}

type BookVisitParams struct {
	UserID   uuid.UUID
	ClinicID uuid.UUID
	DoctorID uuid.UUID
	Date     string
	TimeSlot *string
	Patient  model.PatientInfo
}

type BookingResult struct {
	Visit       *model.Visit       `json:"visit"`
	Appointment *model.Appointment `json:"appointment"`
}

// AllocateToken hands out the next token code for a doctor's queue on a date.
// Codes are strictly increasing within the scope and never reused; a
// cancellation leaves a gap rather than recycling its token.
func (s *Service) AllocateToken(ctx context.Context, clinicID, doctorID uuid.UUID, date string) (string, error) {
	doctor, err := s.getDoctor(ctx, clinicID, doctorID)
	if err != nil {
		return "", err
	}

	var token string
	err = s.locker.WithLock(ctx, lock.Scope{ClinicID: clinicID, DoctorID: doctorID, Date: date}, func(lockCtx context.Context) error {
		seq, err := s.sequences.Next(lockCtx, clinicID, doctorID, date)
		if err != nil {
			return fmt.Errorf("failed to advance token sequence: %w", err)
		}
		token = FormatToken(doctor.TokenPrefix(), seq)
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// PreviewToken derives the token a booking made right now would receive. It
// is a dry run of the allocator: nothing is persisted, and the projection is
// only stable until the next confirmed booking in the same scope.
func (s *Service) PreviewToken(ctx context.Context, clinicID, doctorID uuid.UUID, date string) (string, error) {
	doctor, err := s.getDoctor(ctx, clinicID, doctorID)
	if err != nil {
		return "", err
	}

	current, err := s.sequences.Current(ctx, clinicID, doctorID, date)
	if err != nil {
		return "", fmt.Errorf("failed to read token sequence: %w", err)
	}
	return FormatToken(doctor.TokenPrefix(), current+1), nil
}

// BookVisit allocates a token and a queue position, creates the visit record
// and its booking-level appointment, and bumps the doctor's daily counters.
func (s *Service) BookVisit(ctx context.Context, params BookVisitParams) (*BookingResult, error) {
	clinic, err := s.clinics.Get(ctx, params.ClinicID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("clinic", err)
		}
		return nil, apperrors.Internal(err)
	}

	doctor, err := s.getDoctor(ctx, params.ClinicID, params.DoctorID)
	if err != nil {
		return nil, err
	}

	var result *BookingResult
	scope := lock.Scope{ClinicID: params.ClinicID, DoctorID: params.DoctorID, Date: params.Date}
	err = s.locker.WithLock(ctx, scope, func(lockCtx context.Context) error {
		booked, err := s.visits.CountForDate(lockCtx, doctor.ID, params.Date)
		if err != nil {
			return apperrors.Internal(err)
		}
		if booked >= doctor.MaxTokensPerDay {
			return apperrors.CapacityExceeded(fmt.Sprintf(
				"doctor %s has reached the daily limit of %d tokens", doctor.Name, doctor.MaxTokensPerDay))
		}

		seq, err := s.sequences.Next(lockCtx, params.ClinicID, doctor.ID, params.Date)
		if err != nil {
			return apperrors.Internal(fmt.Errorf("failed to advance token sequence: %w", err))
		}

		maxPos, err := s.visits.MaxQueuePosition(lockCtx, doctor.ID, params.Date)
		if err != nil {
			return apperrors.Internal(err)
		}

		now := time.Now()
		visit := &model.Visit{
			Base:          model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			TokenNumber:   FormatToken(doctor.TokenPrefix(), seq),
			ClinicID:      params.ClinicID,
			DoctorID:      doctor.ID,
			VisitDate:     params.Date,
			QueuePosition: maxPos + 1,
			PatientName:   params.Patient.Name,
			PatientAge:    params.Patient.Age,
			PatientPhone:  params.Patient.Phone,
			PatientEmail:  params.Patient.Email,
			Reason:        params.Patient.Reason,
			Status:        model.VisitStatusWaiting,
			BookedAt:      now,
			Version:       1,
		}
		if err := s.visits.Create(lockCtx, visit); err != nil {
			return apperrors.Internal(fmt.Errorf("failed to create visit: %w", err))
		}

		doctor.TotalPatientsToday++
		s.refreshNextToken(lockCtx, doctor, params.Date)
		if err := s.doctors.Update(lockCtx, doctor); err != nil {
			return apperrors.Internal(fmt.Errorf("failed to update doctor counters: %w", err))
		}

		appointment := &model.Appointment{
			Base:        model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			UserID:      params.UserID,
			VisitID:     visit.ID,
			ClinicID:    clinic.ID,
			ClinicName:  clinic.Name,
			DoctorID:    doctor.ID,
			DoctorName:  doctor.Name,
			VisitDate:   params.Date,
			TimeSlot:    params.TimeSlot,
			TokenNumber: visit.TokenNumber,
			Status:      model.AppointmentStatusUpcoming,
		}
		if err := s.appointments.Create(lockCtx, appointment); err != nil {
			return apperrors.Internal(fmt.Errorf("failed to create appointment: %w", err))
		}

		result = &BookingResult{Visit: visit, Appointment: appointment}
		return nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.BookingsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues("success").Inc()
	}
	s.publishQueueUpdate(ctx, params.DoctorID, params.Date)

	return result, nil
}

// ListQueue returns the doctor's active queue for a date with ranks derived
// fresh on every read: position i in the returned slice is rank i+1. Stored
// queue positions only supply the ordering key, so cancellations leave no
// holes in what callers see.
func (s *Service) ListQueue(ctx context.Context, doctorID uuid.UUID, date string) ([]model.QueuedVisit, error) {
	active, err := s.visits.ListActive(ctx, doctorID, date)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list active visits: %w", err))
	}

	queue := make([]model.QueuedVisit, 0, len(active))
	for i, v := range active {
		queue = append(queue, model.QueuedVisit{Visit: *v, Rank: i + 1})
	}

	if s.metrics != nil {
		s.metrics.QueueDepth.WithLabelValues(doctorID.String()).Set(float64(len(queue)))
	}
	return queue, nil
}

// Rank computes the derived rank of one visit among the active records for
// its scope. Returns 0 when the visit is terminal.
func (s *Service) Rank(ctx context.Context, visit *model.Visit) (int, error) {
	if visit.Status.Terminal() {
		return 0, nil
	}
	active, err := s.visits.ListActive(ctx, visit.DoctorID, visit.VisitDate)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	for i, v := range active {
		if v.ID == visit.ID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (s *Service) getDoctor(ctx context.Context, clinicID, doctorID uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	if doctor.ClinicID != clinicID {
		return nil, apperrors.BadRequest("doctor does not belong to this clinic", nil)
	}
	return doctor, nil
}

// refreshNextToken points the doctor's next_token marker at the head of the
// waiting queue, or past the current token when the queue is empty. Failures
// here are logged, not fatal: the marker is display state.
func (s *Service) refreshNextToken(ctx context.Context, doctor *model.Doctor, date string) {
	active, err := s.visits.ListActive(ctx, doctor.ID, date)
	if err != nil {
		if s.logger != nil {
			s.logger.Error(err, "failed to refresh next token", "doctor_id", doctor.ID.String())
		}
		return
	}
	for _, v := range active {
		if v.Status == model.VisitStatusWaiting || v.Status == model.VisitStatusArrived {
			doctor.NextToken = v.TokenNumber
			return
		}
	}
	doctor.SeedTokens()
}

func (s *Service) publishQueueUpdate(ctx context.Context, doctorID uuid.UUID, date string) {
	if s.broker == nil {
		return
	}
	msg := messaging.Message{
		Type: "queue_updated",
		Payload: map[string]string{
			"doctor_id": doctorID.String(),
			"date":      date,
		},
	}
	if err := s.broker.Publish(ctx, messaging.ChannelQueueUpdates, msg); err != nil && s.logger != nil {
		s.logger.Error(err, "failed to publish queue update", "doctor_id", doctorID.String())
	}
}
