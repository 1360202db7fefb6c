package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercata/mercata-backend/pkg/config"
	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
	"github.com/mercata/mercata-backend/pkg/logger"
)

func TestService_processBatchPublishesAndMarks(t *testing.T) {
	first := outboxEventForTest(enums.EventOrderCreated, enums.AggregateCheckout)
	second := outboxEventForTest(enums.EventPaymentReceived, enums.AggregatePayment)
	repo := &fakeOutboxRepo{batches: [][]models.OutboxEvent{{first, second}}}
	pub := &fakePublisher{}
	service := newPublisherServiceTest(t, repo, pub)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if len(repo.published) != 2 {
		t.Fatalf("expected 2 published marks, got %d", len(repo.published))
	}
	if len(repo.failed) != 0 {
		t.Fatalf("expected no failure marks, got %d", len(repo.failed))
	}

	if len(pub.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Attributes["event_type"] != string(enums.EventOrderCreated) {
		t.Fatalf("unexpected event_type attribute: %s", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_type"] != string(enums.AggregateCheckout) {
		t.Fatalf("unexpected aggregate_type attribute: %s", msg.Attributes["aggregate_type"])
	}
	if msg.Attributes["aggregate_id"] != first.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attribute: %s", msg.Attributes["aggregate_id"])
	}
	if string(msg.Data) != string(first.Payload) {
		t.Fatalf("unexpected payload: %s", msg.Data)
	}
}

func TestService_publishFailureMarksFailedAndKeepsDraining(t *testing.T) {
	failing := outboxEventForTest(enums.EventPayoutCompleted, enums.AggregatePayout)
	healthy := outboxEventForTest(enums.EventOrderCreated, enums.AggregateCheckout)
	repo := &fakeOutboxRepo{batches: [][]models.OutboxEvent{{failing, healthy}}}
	pub := &fakePublisher{
		failFor: map[string]error{
			string(enums.EventPayoutCompleted): errors.New("topic unavailable"),
		},
	}
	service := newPublisherServiceTest(t, repo, pub)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if len(repo.failed) != 1 || repo.failed[0].id != failing.ID {
		t.Fatalf("expected failure mark for the failing event, got %+v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != healthy.ID {
		t.Fatalf("expected the healthy event published, got %+v", repo.published)
	}
}

func TestService_emptyOutboxIsNotProcessed(t *testing.T) {
	repo := &fakeOutboxRepo{}
	pub := &fakePublisher{}
	service := newPublisherServiceTest(t, repo, pub)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if processed {
		t.Fatal("expected empty outbox to report no work")
	}
	if len(pub.messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(pub.messages))
	}
}

func TestService_fetchErrorSurfaces(t *testing.T) {
	repo := &fakeOutboxRepo{fetchErr: errors.New("relation does not exist")}
	service := newPublisherServiceTest(t, repo, &fakePublisher{})

	if _, err := service.processBatch(context.Background()); err == nil {
		t.Fatal("expected fetch error to surface")
	}
}

func TestService_missingPublisherFailsTheEvent(t *testing.T) {
	event := outboxEventForTest(enums.EventRefundProcessed, enums.AggregateOrder)
	repo := &fakeOutboxRepo{batches: [][]models.OutboxEvent{{event}}}
	service := newPublisherServiceTestWithFactory(t, repo, func() publisher { return nil })

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if len(repo.failed) != 1 || repo.failed[0].id != event.ID {
		t.Fatalf("expected failure mark, got %+v", repo.failed)
	}
}

func TestService_fetchHonorsBatchSizeAndAttemptCeiling(t *testing.T) {
	repo := &fakeOutboxRepo{}
	service := newPublisherServiceTest(t, repo, &fakePublisher{})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if repo.lastLimit != defaultBatchSize {
		t.Fatalf("expected fetch limit %d, got %d", defaultBatchSize, repo.lastLimit)
	}
	if repo.lastMaxAttempts != defaultMaxAttempts {
		t.Fatalf("expected attempt ceiling %d, got %d", defaultMaxAttempts, repo.lastMaxAttempts)
	}
}

func TestNextBackoff_doublesUntilTheCap(t *testing.T) {
	base := 500 * time.Millisecond

	backoff := nextBackoff(base, base, maxBackoff)
	if backoff != time.Second {
		t.Fatalf("expected 1s, got %s", backoff)
	}
	backoff = nextBackoff(backoff, base, maxBackoff)
	if backoff != 2*time.Second {
		t.Fatalf("expected 2s, got %s", backoff)
	}
	backoff = nextBackoff(8*time.Second, base, maxBackoff)
	if backoff != maxBackoff {
		t.Fatalf("expected cap %s, got %s", maxBackoff, backoff)
	}
	backoff = nextBackoff(maxBackoff, base, maxBackoff)
	if backoff != maxBackoff {
		t.Fatalf("expected backoff to stay at the cap, got %s", backoff)
	}
}

func newPublisherServiceTest(t *testing.T, repo *fakeOutboxRepo, pub *fakePublisher) *Service {
	t.Helper()
	return newPublisherServiceTestWithFactory(t, repo, func() publisher { return pub })
}

func newPublisherServiceTestWithFactory(t *testing.T, repo *fakeOutboxRepo, factory publisherFactory) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Config:           &config.Config{},
		Logger:           logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:               &fakeDBClient{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		PublisherFactory: factory,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func outboxEventForTest(eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC),
	}
}

type fakeDBClient struct {
	pingErr error
}

func (f *fakeDBClient) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeDBClient) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakePubSubClient struct {
	pingErr error
}

func (f *fakePubSubClient) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakePubSubClient) SettlementPublisher() *gcppubsub.Publisher { return nil }

type failureMark struct {
	id  uuid.UUID
	err error
}

type fakeOutboxRepo struct {
	batches  [][]models.OutboxEvent
	fetchErr error

	lastLimit       int
	lastMaxAttempts int
	published       []uuid.UUID
	failed          []failureMark
}

func (f *fakeOutboxRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	f.lastLimit = limit
	f.lastMaxAttempts = maxAttempts
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeOutboxRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, failureMark{id: id, err: err})
	return nil
}

type fakePublisher struct {
	failFor  map[string]error
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if err, ok := f.failFor[msg.Attributes["event_type"]]; ok {
		return fakePublishResult{err: err}
	}
	f.messages = append(f.messages, msg)
	return fakePublishResult{id: "m_" + msg.Attributes["aggregate_id"]}
}

type fakePublishResult struct {
	id  string
	err error
}

func (f fakePublishResult) Get(ctx context.Context) (string, error) {
	return f.id, f.err
}
