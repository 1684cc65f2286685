package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lokutor-ai/stream-orchestrator/pkg/domain"
	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
)

// InterruptStore is the FIFO queue of interrupt IDs plus the keyed hash of
// interrupt records, backed by the same Redis instance as the other queues.
type InterruptStore struct {
	client redis.Cmdable
	logger orchestrator.Logger
	nowFn  func() float64
}

// NewInterruptStore wraps a Redis-compatible client as the Interrupt Store.
func NewInterruptStore(client redis.Cmdable, logger orchestrator.Logger) *InterruptStore {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	return &InterruptStore{client: client, logger: logger, nowFn: unixFloat}
}

// Register queues a new interrupt for processing. Rejects kind=general and
// enforces that superchats carry both a persona and a message.
func (s *InterruptStore) Register(ctx context.Context, kind domain.Kind, persona, message string) (domain.InterruptRecord, error) {
	if kind == domain.KindGeneral {
		return domain.InterruptRecord{}, orchestrator.ErrUnsupportedInterruptKind
	}
	if kind == domain.KindSuperchat && (persona == "" || message == "") {
		return domain.InterruptRecord{}, orchestrator.ErrMissingSuperchatFields
	}

	rec := domain.InterruptRecord{
		InterruptID: uuid.NewString(),
		Kind:        kind,
		Persona:     persona,
		Message:     message,
		Status:      domain.StatusQueued,
		CreatedAt:   s.nowFn(),
	}

	if err := s.put(ctx, rec); err != nil {
		return domain.InterruptRecord{}, err
	}
	if err := s.client.RPush(ctx, interruptQueueKey, rec.InterruptID).Err(); err != nil {
		return domain.InterruptRecord{}, fmt.Errorf("push interrupt id: %w", err)
	}

	s.logger.Info("queued interrupt", "interruptID", rec.InterruptID, "kind", kind, "persona", persona)
	return rec, nil
}

// PopNext pops the oldest queued interrupt ID and advances its status to
// processing. Returns (zero value, false, nil) if the queue is empty, or if
// the popped ID has no matching record (an orphan, dropped silently per the
// store's error taxonomy).
func (s *InterruptStore) PopNext(ctx context.Context) (domain.InterruptRecord, bool, error) {
	id, err := s.client.LPop(ctx, interruptQueueKey).Result()
	if err == redis.Nil {
		return domain.InterruptRecord{}, false, nil
	}
	if err != nil {
		return domain.InterruptRecord{}, false, fmt.Errorf("pop interrupt queue: %w", err)
	}

	rec, ok, err := s.get(ctx, id)
	if err != nil {
		return domain.InterruptRecord{}, false, err
	}
	if !ok {
		s.logger.Warn("interrupt missing payload, dropping orphan", "interruptID", id)
		return domain.InterruptRecord{}, false, nil
	}

	rec.Status = domain.StatusProcessing
	rec.StartedAt = s.nowFn()
	if err := s.put(ctx, rec); err != nil {
		return domain.InterruptRecord{}, false, err
	}
	return rec, true, nil
}

// MarkProcessed updates a record's terminal status and completion time. A
// no-op if the record no longer exists. Never touches the queue list.
func (s *InterruptStore) MarkProcessed(ctx context.Context, interruptID string, status domain.InterruptStatus) error {
	rec, ok, err := s.get(ctx, interruptID)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Debug("interrupt completed but record missing", "interruptID", interruptID)
		return nil
	}
	rec.Status = status
	rec.CompletedAt = s.nowFn()
	return s.put(ctx, rec)
}

// Requeue pushes an interrupt back onto the tail of the queue, stamping a
// retry_at while preserving its original created_at.
func (s *InterruptStore) Requeue(ctx context.Context, rec domain.InterruptRecord) error {
	rec.RetryAt = s.nowFn()
	if err := s.put(ctx, rec); err != nil {
		return err
	}
	if err := s.client.RPush(ctx, interruptQueueKey, rec.InterruptID).Err(); err != nil {
		return fmt.Errorf("requeue interrupt: %w", err)
	}
	s.logger.Info("requeued interrupt", "interruptID", rec.InterruptID)
	return nil
}

// Reset clears both the queue and the record map.
func (s *InterruptStore) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, interruptQueueKey, interruptDataKey).Err(); err != nil {
		return fmt.Errorf("reset interrupt store: %w", err)
	}
	return nil
}

func (s *InterruptStore) put(ctx context.Context, rec domain.InterruptRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal interrupt record: %w", err)
	}
	if err := s.client.HSet(ctx, interruptDataKey, rec.InterruptID, body).Err(); err != nil {
		return fmt.Errorf("store interrupt record: %w", err)
	}
	return nil
}

func (s *InterruptStore) get(ctx context.Context, interruptID string) (domain.InterruptRecord, bool, error) {
	raw, err := s.client.HGet(ctx, interruptDataKey, interruptID).Result()
	if err == redis.Nil {
		return domain.InterruptRecord{}, false, nil
	}
	if err != nil {
		return domain.InterruptRecord{}, false, fmt.Errorf("load interrupt record: %w", err)
	}
	var rec domain.InterruptRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.InterruptRecord{}, false, fmt.Errorf("unmarshal interrupt record: %w", err)
	}
	return rec, true, nil
}
