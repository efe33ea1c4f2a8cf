package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/pkg/logger"
	"github.com/clinicq/queue-api/pkg/messaging"
)

type fakeBroker struct {
	published []messaging.Message
	err       error
}

func (b *fakeBroker) Publish(_ context.Context, _ string, message interface{}) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, message.(messaging.Message))
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBroker) Close() error { return nil }

type fakeMailer struct {
	sent []*model.DelayNotice
}

func (m *fakeMailer) SendDelayNotice(notice *model.DelayNotice) error {
	m.sent = append(m.sent, notice)
	return nil
}

func (m *fakeMailer) Send(to, subject, body string) error { return nil }

// recordingOutbox hands out a fixed batch and records every status update.
type recordingOutbox struct {
	pending  []*model.OutboxEvent
	statuses map[uuid.UUID]model.OutboxStatus
	messages map[uuid.UUID]string
}

func newRecordingOutbox() *recordingOutbox {
	return &recordingOutbox{
		statuses: make(map[uuid.UUID]model.OutboxStatus),
		messages: make(map[uuid.UUID]string),
	}
}

func (r *recordingOutbox) Create(_ context.Context, event *model.OutboxEvent) error {
	r.pending = append(r.pending, event)
	return nil
}

func (r *recordingOutbox) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	if limit > 0 && len(r.pending) > limit {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func (r *recordingOutbox) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error {
	r.statuses[id] = status
	if errorMessage != nil {
		r.messages[id] = *errorMessage
	}
	return nil
}

type fixture struct {
	processor *OutboxProcessor
	outbox    *recordingOutbox
	broker    *fakeBroker
	mailer    *fakeMailer
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	outbox := newRecordingOutbox()
	broker := &fakeBroker{}
	mailer := &fakeMailer{}
	quiet := logger.NewLogger(&logger.Config{Level: logger.FatalLevel, Output: io.Discard})
	return &fixture{
		processor: NewOutboxProcessor(outbox, broker, mailer, nil, quiet, cfg),
		outbox:    outbox,
		broker:    broker,
		mailer:    mailer,
	}
}

func (f *fixture) addEvent(t *testing.T, eventType, email string, retryCount int) *model.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(model.DelayNotice{
		ID:           uuid.New(),
		DoctorID:     uuid.New(),
		DoctorName:   "Dr. Sarah Smith",
		TokenNumber:  "S001",
		PatientEmail: email,
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)

	event := &model.OutboxEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		Payload:    payload,
		Status:     model.OutboxStatusPending,
		RetryCount: retryCount,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, f.outbox.Create(context.Background(), event))
	return event
}

func TestProcessBatchDeliversAndMarksProcessed(t *testing.T) {
	f := newFixture(t, Config{})
	event := f.addEvent(t, model.NotificationKindDoctorDelayed, "alice@example.com", 0)

	f.processor.processBatch(context.Background())

	require.Len(t, f.broker.published, 1)
	assert.Equal(t, model.NotificationKindDoctorDelayed, f.broker.published[0].Type)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "alice@example.com", f.mailer.sent[0].PatientEmail)
	assert.Equal(t, model.OutboxStatusProcessed, f.outbox.statuses[event.ID])
}

func TestProcessBatchSkipsEmailWithoutAddress(t *testing.T) {
	f := newFixture(t, Config{})
	f.addEvent(t, model.NotificationKindDoctorDelayed, "", 0)

	f.processor.processBatch(context.Background())

	assert.Len(t, f.broker.published, 1)
	assert.Empty(t, f.mailer.sent)
}

func TestProcessBatchRetriesOnPublishFailure(t *testing.T) {
	f := newFixture(t, Config{MaxRetries: 3})
	f.broker.err = errors.New("redis down")
	event := f.addEvent(t, model.NotificationKindDoctorDelayed, "", 0)

	f.processor.processBatch(context.Background())

	assert.Equal(t, model.OutboxStatusRetry, f.outbox.statuses[event.ID])
	assert.Contains(t, f.outbox.messages[event.ID], "redis down")
}

func TestProcessBatchFailsAfterMaxRetries(t *testing.T) {
	f := newFixture(t, Config{MaxRetries: 3})
	f.broker.err = errors.New("redis down")
	event := f.addEvent(t, model.NotificationKindDoctorDelayed, "", 2)

	f.processor.processBatch(context.Background())

	assert.Equal(t, model.OutboxStatusFailed, f.outbox.statuses[event.ID])
}

func TestUnknownEventTypeIsNotDelivered(t *testing.T) {
	f := newFixture(t, Config{MaxRetries: 3})
	event := f.addEvent(t, "mystery_event", "", 0)

	f.processor.processBatch(context.Background())

	assert.Empty(t, f.broker.published)
	assert.Empty(t, f.mailer.sent)
	assert.Equal(t, model.OutboxStatusRetry, f.outbox.statuses[event.ID])
}
