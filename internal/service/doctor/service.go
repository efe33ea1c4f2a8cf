package doctor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/clinicq/queue-api/internal/lock"
	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
	"github.com/clinicq/queue-api/internal/service/activity"
	"github.com/clinicq/queue-api/internal/service/event"
	apperrors "github.com/clinicq/queue-api/pkg/errors"
	"github.com/clinicq/queue-api/pkg/logger"
	"github.com/clinicq/queue-api/pkg/metrics"
)

// Service manages doctor records and the doctor status controller. Doctor
// status moves freely between its four values; the interesting part is the
// delay notices a move back to not_arrived fans out.
type Service struct {
	doctors  repository.DoctorRepository
	visits   repository.VisitRepository
	activity *activity.Service
	events   *event.Service
	locker   lock.Locker
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewService(
	doctors repository.DoctorRepository,
	visits repository.VisitRepository,
	activitySvc *activity.Service,
	events *event.Service,
	locker lock.Locker,
	m *metrics.Metrics,
	l *logger.Logger,
) *Service {
	return &Service{
		doctors:  doctors,
		visits:   visits,
		activity: activitySvc,
		events:   events,
		locker:   locker,
		metrics:  m,
		logger:   l,
	}
}

// Create registers a doctor. Token markers are seeded so queue displays never
// see an empty code.
func (s *Service) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	clinicID, err := uuid.Parse(req.ClinicID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid clinic id", err)
	}

	now := time.Now()
	doctor := &model.Doctor{
		Base:                model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ClinicID:            clinicID,
		Name:                req.Name,
		Specialty:           req.Specialty,
		WorkingDays:         pq.StringArray(req.WorkingDays),
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		ConsultationMinutes: req.ConsultationMinutes,
		MaxTokensPerDay:     req.MaxTokensPerDay,
		Status:              model.DoctorStatusNotArrived,
	}
	doctor.SeedTokens()

	if err := s.doctors.Create(ctx, doctor); err != nil {
		return nil, apperrors.Internal(err)
	}
	return doctor, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.doctors.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	return doctor, nil
}

func (s *Service) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error) {
	doctors, err := s.doctors.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return doctors, nil
}

// SetStatus applies a doctor status change. Any valid status may be set from
// any other; a change to not_arrived while patients are already queued emits
// one delay notice intent per queued patient. Notice delivery is asynchronous
// and never blocks or rolls back the status change.
func (s *Service) SetStatus(ctx context.Context, actor model.Actor, doctorID uuid.UUID, newStatus model.DoctorStatus) (*model.DoctorStatusChange, error) {
	if !newStatus.Valid() {
		return nil, apperrors.BadRequest("unknown doctor status: "+string(newStatus), nil)
	}

	doctor, err := s.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	// Bookings and visit cascades write this same row under the day's queue
	// scope lock, so the status change takes the lock too and re-reads the
	// row inside it. A stale copy would clobber their counter and token
	// marker updates.
	today := time.Now().Format(model.DateFormat)
	scope := lock.Scope{ClinicID: doctor.ClinicID, DoctorID: doctor.ID, Date: today}
	var change *model.DoctorStatusChange
	err = s.locker.WithLock(ctx, scope, func(lockCtx context.Context) error {
		current, err := s.doctors.Get(lockCtx, doctorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NotFound("doctor", err)
			}
			return apperrors.Internal(err)
		}

		oldStatus := current.Status
		current.Status = newStatus
		current.UpdatedAt = time.Now()
		if err := s.doctors.Update(lockCtx, current); err != nil {
			return apperrors.Internal(err)
		}

		if _, err := s.activity.RecordStatusChange(lockCtx, actor, current.ClinicID,
			model.ActivityDoctorStatusChange, model.ActivityTargetDoctor,
			current.ID, current.Name, string(oldStatus), string(newStatus)); err != nil {
			return apperrors.Internal(err)
		}

		change = &model.DoctorStatusChange{Doctor: current, NotifyPatientIDs: []uuid.UUID{}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newStatus == model.DoctorStatusNotArrived {
		change.NotifyPatientIDs = s.emitDelayNotices(ctx, change.Doctor)
	}

	if s.metrics != nil {
		s.metrics.DoctorTransitions.WithLabelValues(string(newStatus)).Inc()
	}
	return change, nil
}

// emitDelayNotices enqueues one notice per patient still waiting on today's
// queue. A patient already in consultation is not delayed, so with_doctor
// visits are skipped. Enqueue failures are logged per visit and skipped; the
// remaining notices still go out.
func (s *Service) emitDelayNotices(ctx context.Context, doctor *model.Doctor) []uuid.UUID {
	today := time.Now().Format(model.DateFormat)
	active, err := s.visits.ListActive(ctx, doctor.ID, today)
	if err != nil {
		if s.logger != nil {
			s.logger.Error(err, "failed to list visits for delay notices", "doctor_id", doctor.ID.String())
		}
		return []uuid.UUID{}
	}

	notified := make([]uuid.UUID, 0, len(active))
	for _, v := range active {
		if v.Status != model.VisitStatusWaiting && v.Status != model.VisitStatusArrived {
			continue
		}
		notice := &model.DelayNotice{
			ClinicID:     doctor.ClinicID,
			DoctorID:     doctor.ID,
			DoctorName:   doctor.Name,
			VisitID:      v.ID,
			PatientName:  v.PatientName,
			PatientPhone: v.PatientPhone,
			PatientEmail: v.PatientEmail,
			TokenNumber:  v.TokenNumber,
		}
		if _, err := s.events.EmitDelayNotice(ctx, notice); err != nil {
			if s.logger != nil {
				s.logger.Error(err, "failed to enqueue delay notice", "visit_id", v.ID.String())
			}
			continue
		}
		notified = append(notified, v.ID)
	}

	if s.metrics != nil {
		s.metrics.DelayNoticesEmitted.Add(float64(len(notified)))
	}
	return notified
}
