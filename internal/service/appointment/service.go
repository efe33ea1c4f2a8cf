package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/lock"
	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
	"github.com/clinicq/queue-api/internal/service/activity"
	"github.com/clinicq/queue-api/internal/service/queue"
	apperrors "github.com/clinicq/queue-api/pkg/errors"
	"github.com/clinicq/queue-api/pkg/logger"
	"github.com/clinicq/queue-api/pkg/messaging"
	"github.com/clinicq/queue-api/pkg/metrics"
)

// Service covers the booking-level appointment lifecycle: the patient-facing
// record that survives the day, as opposed to the intra-day visit.
type Service struct {
	appointments repository.AppointmentRepository
	visits       repository.VisitRepository
	doctors      repository.DoctorRepository
	queue        *queue.Service
	activity     *activity.Service
	locker       lock.Locker
	broker       messaging.Broker
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewService(
	appointments repository.AppointmentRepository,
	visits repository.VisitRepository,
	doctors repository.DoctorRepository,
	queueSvc *queue.Service,
	activitySvc *activity.Service,
	locker lock.Locker,
	broker messaging.Broker,
	m *metrics.Metrics,
	l *logger.Logger,
) *Service {
	return &Service{
		appointments: appointments,
		visits:       visits,
		doctors:      doctors,
		queue:        queueSvc,
		activity:     activitySvc,
		locker:       locker,
		broker:       broker,
		metrics:      m,
		logger:       l,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.appointments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	return appointment, nil
}

// Cancel marks an upcoming appointment cancelled and retires its visit from
// the queue. Cancelling an already-cancelled appointment is a no-op success;
// cancelling a completed one is rejected. The visit's token is never reissued
// and everyone behind it moves up one rank on the next queue read.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch appointment.Status {
	case model.AppointmentStatusCancelled:
		return appointment, nil
	case model.AppointmentStatusCompleted:
		return nil, apperrors.InvalidTransition(
			string(model.AppointmentStatusCompleted), string(model.AppointmentStatusCancelled))
	}

	scope := lock.Scope{ClinicID: appointment.ClinicID, DoctorID: appointment.DoctorID, Date: appointment.VisitDate}
	err = s.locker.WithLock(ctx, scope, func(lockCtx context.Context) error {
		now := time.Now()
		appointment.Status = model.AppointmentStatusCancelled
		appointment.CancelledAt = &now
		appointment.UpdatedAt = now
		if err := s.appointments.Update(lockCtx, appointment); err != nil {
			return apperrors.Internal(err)
		}
		patientName, err := s.retireVisit(lockCtx, appointment.VisitID, now)
		if err != nil {
			return err
		}

		// Patient-initiated, so there is no handler behind this entry. The
		// repeated-cancel no-op above never reaches this point, which keeps
		// the log at one entry per cancellation.
		oldStatus := string(model.AppointmentStatusUpcoming)
		newStatus := string(model.AppointmentStatusCancelled)
		if _, err := s.activity.Record(lockCtx, &model.ActivityEntry{
			ClinicID:   appointment.ClinicID,
			Action:     model.ActivityAppointmentCancelled,
			TargetType: model.ActivityTargetPatient,
			TargetID:   appointment.ID,
			TargetName: patientName,
			Details:    "Appointment cancelled by patient",
			OldValue:   &oldStatus,
			NewValue:   &newStatus,
		}); err != nil {
			return apperrors.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CancellationsTotal.Inc()
	}
	s.publishQueueUpdate(ctx, appointment)
	return appointment, nil
}

// publishQueueUpdate tells waiting-room displays the queue changed shape.
// The repeated-cancel no-op returns before the lock, so only a committed
// cancellation publishes.
func (s *Service) publishQueueUpdate(ctx context.Context, appointment *model.Appointment) {
	if s.broker == nil {
		return
	}
	msg := messaging.Message{
		Type: "queue_updated",
		Payload: map[string]string{
			"doctor_id": appointment.DoctorID.String(),
			"date":      appointment.VisitDate,
		},
	}
	if err := s.broker.Publish(ctx, messaging.ChannelQueueUpdates, msg); err != nil && s.logger != nil {
		s.logger.Error(err, "failed to publish queue update", "appointment_id", appointment.ID.String())
	}
}

// retireVisit forces the linked visit into its terminal missed status so it
// drops out of active queue reads, and returns the patient name for the audit
// entry. A visit already terminal is left alone.
func (s *Service) retireVisit(ctx context.Context, visitID uuid.UUID, now time.Time) (string, error) {
	visit, err := s.visits.Get(ctx, visitID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", apperrors.Internal(err)
	}
	if visit.Status.Terminal() {
		return visit.PatientName, nil
	}

	visit.Status = model.VisitStatusMissed
	visit.UpdatedAt = now
	if err := s.visits.Update(ctx, visit); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return "", apperrors.StaleRead("visit")
		}
		return "", apperrors.Internal(err)
	}
	return visit.PatientName, nil
}

// ListForUser returns the user's appointments newest first, each upcoming one
// decorated with a live snapshot of its queue: the doctor's current token and
// status plus the visit's derived rank.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.AppointmentView, error) {
	appointments, err := s.appointments.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	views := make([]*model.AppointmentView, 0, len(appointments))
	for _, a := range appointments {
		view := &model.AppointmentView{Appointment: *a}
		if a.Status == model.AppointmentStatusUpcoming {
			s.decorate(ctx, view)
		}
		views = append(views, view)
	}
	return views, nil
}

// decorate fills in the live fields. Lookups here are best-effort: a missing
// doctor or visit leaves the snapshot blank rather than failing the list.
func (s *Service) decorate(ctx context.Context, view *model.AppointmentView) {
	doctor, err := s.doctors.Get(ctx, view.DoctorID)
	if err != nil {
		if s.logger != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error(err, "failed to load doctor for appointment view", "appointment_id", view.ID.String())
		}
		return
	}
	view.CurrentToken = doctor.CurrentToken
	view.DoctorStatus = doctor.Status

	visit, err := s.visits.Get(ctx, view.VisitID)
	if err != nil {
		return
	}
	rank, err := s.queue.Rank(ctx, visit)
	if err != nil {
		return
	}
	view.QueuePosition = rank
}
