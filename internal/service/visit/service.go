package visit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/lock"
	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
	"github.com/clinicq/queue-api/internal/service/activity"
	apperrors "github.com/clinicq/queue-api/pkg/errors"
	"github.com/clinicq/queue-api/pkg/logger"
	"github.com/clinicq/queue-api/pkg/messaging"
	"github.com/clinicq/queue-api/pkg/metrics"
)

// Service drives the visit state machine. A transition either fully applies,
// with its timestamps, doctor cascade and single activity entry, or it is
// rejected and nothing changes.
type Service struct {
	visits       repository.VisitRepository
	doctors      repository.DoctorRepository
	appointments repository.AppointmentRepository
	activity     *activity.Service
	locker       lock.Locker
	broker       messaging.Broker
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewService(
	visits repository.VisitRepository,
	doctors repository.DoctorRepository,
	appointments repository.AppointmentRepository,
	activitySvc *activity.Service,
	locker lock.Locker,
	broker messaging.Broker,
	m *metrics.Metrics,
	l *logger.Logger,
) *Service {
	return &Service{
		visits:       visits,
		doctors:      doctors,
		appointments: appointments,
		activity:     activitySvc,
		locker:       locker,
		broker:       broker,
		metrics:      m,
		logger:       l,
	}
}

// Get returns a single visit record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	visit, err := s.visits.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("visit", err)
		}
		return nil, apperrors.Internal(err)
	}
	return visit, nil
}

// SetStatus moves a visit to newStatus. Only the edges of the state machine
// are accepted; anything else is an invalid transition, including any move out
// of a terminal status. The doctor cascade, appointment completion and
// activity entry all commit with the visit change.
func (s *Service) SetStatus(ctx context.Context, actor model.Actor, visitID uuid.UUID, newStatus model.VisitStatus) (*model.VisitStatusChange, error) {
	if !newStatus.Valid() {
		return nil, apperrors.BadRequest("unknown visit status: "+string(newStatus), nil)
	}

	visit, err := s.Get(ctx, visitID)
	if err != nil {
		return nil, err
	}

	var change *model.VisitStatusChange
	scope := lock.Scope{ClinicID: visit.ClinicID, DoctorID: visit.DoctorID, Date: visit.VisitDate}
	err = s.locker.WithLock(ctx, scope, func(lockCtx context.Context) error {
		// Re-read under the lock so the transition check and the version
		// guard see the same row.
		current, err := s.visits.Get(lockCtx, visitID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NotFound("visit", err)
			}
			return apperrors.Internal(err)
		}

		if !current.Status.CanTransition(newStatus) {
			return apperrors.InvalidTransition(string(current.Status), string(newStatus))
		}

		oldStatus := current.Status
		now := time.Now()
		current.Status = newStatus
		current.UpdatedAt = now
		switch newStatus {
		case model.VisitStatusArrived:
			current.ArrivedAt = &now
		case model.VisitStatusWithDoctor:
			current.ConsultStartedAt = &now
		case model.VisitStatusCompleted:
			current.ConsultEndedAt = &now
		}

		if err := s.visits.Update(lockCtx, current); err != nil {
			if errors.Is(err, repository.ErrStaleVersion) {
				return apperrors.StaleRead("visit")
			}
			return apperrors.Internal(err)
		}

		doctor, err := s.cascadeDoctor(lockCtx, current, newStatus)
		if err != nil {
			return err
		}

		if newStatus == model.VisitStatusCompleted {
			if err := s.completeAppointment(lockCtx, current.ID); err != nil {
				return err
			}
		}

		if _, err := s.activity.RecordStatusChange(lockCtx, actor, current.ClinicID,
			model.ActivityPatientStatusChange, model.ActivityTargetPatient,
			current.ID, current.PatientName, string(oldStatus), string(newStatus)); err != nil {
			return apperrors.Internal(err)
		}

		if s.metrics != nil {
			s.metrics.VisitTransitions.WithLabelValues(string(oldStatus), string(newStatus)).Inc()
		}
		change = &model.VisitStatusChange{Visit: current, CascadedDoctor: doctor}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishQueueUpdate(ctx, change.Visit)
	return change, nil
}

// cascadeDoctor applies the doctor-side effects of a visit transition:
// starting a consultation pulls the doctor to with_patient and points the
// token markers at this visit; completing one frees the doctor and bumps the
// completed counter.
func (s *Service) cascadeDoctor(ctx context.Context, visit *model.Visit, newStatus model.VisitStatus) (*model.Doctor, error) {
	if newStatus != model.VisitStatusWithDoctor && newStatus != model.VisitStatusCompleted {
		return nil, nil
	}

	doctor, err := s.doctors.Get(ctx, visit.DoctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}

	switch newStatus {
	case model.VisitStatusWithDoctor:
		doctor.Status = model.DoctorStatusWithPatient
		doctor.CurrentToken = visit.TokenNumber
		s.pointNextToken(ctx, doctor, visit)
	case model.VisitStatusCompleted:
		doctor.Status = model.DoctorStatusAvailable
		doctor.CompletedToday++
		s.pointNextToken(ctx, doctor, visit)
	}

	if err := s.doctors.Update(ctx, doctor); err != nil {
		return nil, apperrors.Internal(err)
	}
	return doctor, nil
}

// pointNextToken sets next_token to the first active visit other than the one
// just transitioned.
func (s *Service) pointNextToken(ctx context.Context, doctor *model.Doctor, except *model.Visit) {
	active, err := s.visits.ListActive(ctx, doctor.ID, except.VisitDate)
	if err != nil {
		if s.logger != nil {
			s.logger.Error(err, "failed to refresh next token", "doctor_id", doctor.ID.String())
		}
		return
	}
	for _, v := range active {
		if v.ID != except.ID {
			doctor.NextToken = v.TokenNumber
			return
		}
	}
	doctor.NextToken = doctor.CurrentToken
}

func (s *Service) completeAppointment(ctx context.Context, visitID uuid.UUID) error {
	appointment, err := s.appointments.GetByVisit(ctx, visitID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Walk-in visits have no booking-level record.
			return nil
		}
		return apperrors.Internal(err)
	}
	if appointment.Status != model.AppointmentStatusUpcoming {
		return nil
	}
	appointment.Status = model.AppointmentStatusCompleted
	appointment.UpdatedAt = time.Now()
	if err := s.appointments.Update(ctx, appointment); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) publishQueueUpdate(ctx context.Context, visit *model.Visit) {
	if s.broker == nil {
		return
	}
	msg := messaging.Message{
		Type: "queue_updated",
		Payload: map[string]string{
			"doctor_id": visit.DoctorID.String(),
			"date":      visit.VisitDate,
			"visit_id":  visit.ID.String(),
			"status":    string(visit.Status),
		},
	}
	if err := s.broker.Publish(ctx, messaging.ChannelQueueUpdates, msg); err != nil && s.logger != nil {
		s.logger.Error(err, "failed to publish queue update", "visit_id", visit.ID.String())
	}
}
