package store

import (
	"context"
	"testing"

	"github.com/lokutor-ai/stream-orchestrator/pkg/domain"
	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
)

func TestInterruptStoreRegisterRejectsGeneral(t *testing.T) {
	s := NewInterruptStore(newTestClient(t), nil)
	_, err := s.Register(context.Background(), domain.KindGeneral, "", "")
	if err != orchestrator.ErrUnsupportedInterruptKind {
		t.Fatalf("expected ErrUnsupportedInterruptKind, got %v", err)
	}
}

func TestInterruptStoreRegisterRequiresSuperchatFields(t *testing.T) {
	s := NewInterruptStore(newTestClient(t), nil)
	_, err := s.Register(context.Background(), domain.KindSuperchat, "speed", "")
	if err != orchestrator.ErrMissingSuperchatFields {
		t.Fatalf("expected ErrMissingSuperchatFields, got %v", err)
	}
	_, err = s.Register(context.Background(), domain.KindSuperchat, "", "hi")
	if err != orchestrator.ErrMissingSuperchatFields {
		t.Fatalf("expected ErrMissingSuperchatFields, got %v", err)
	}
}

func TestInterruptStoreFIFO(t *testing.T) {
	ctx := context.Background()
	s := NewInterruptStore(newTestClient(t), nil)

	a, err := s.Register(ctx, domain.KindGift, "", "")
	if err != nil {
		t.Fatalf("register a: %v", err)
	}
	b, err := s.Register(ctx, domain.KindSuperchat, "speed", "hi")
	if err != nil {
		t.Fatalf("register b: %v", err)
	}

	first, ok, err := s.PopNext(ctx)
	if err != nil || !ok {
		t.Fatalf("pop first: ok=%v err=%v", ok, err)
	}
	if first.InterruptID != a.InterruptID {
		t.Errorf("expected FIFO order, got %s want %s", first.InterruptID, a.InterruptID)
	}
	if first.Status != domain.StatusProcessing {
		t.Errorf("expected status processing, got %s", first.Status)
	}

	second, ok, err := s.PopNext(ctx)
	if err != nil || !ok {
		t.Fatalf("pop second: ok=%v err=%v", ok, err)
	}
	if second.InterruptID != b.InterruptID {
		t.Errorf("expected second id %s, got %s", b.InterruptID, second.InterruptID)
	}

	_, ok, err = s.PopNext(ctx)
	if err != nil {
		t.Fatalf("pop empty: %v", err)
	}
	if ok {
		t.Errorf("expected empty queue")
	}
}

func TestInterruptStoreRequeuePreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewInterruptStore(newTestClient(t), nil)

	rec, err := s.Register(ctx, domain.KindGift, "", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	popped, ok, err := s.PopNext(ctx)
	if err != nil || !ok {
		t.Fatalf("pop: ok=%v err=%v", ok, err)
	}

	if err := s.Requeue(ctx, popped); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	again, ok, err := s.PopNext(ctx)
	if err != nil || !ok {
		t.Fatalf("pop after requeue: ok=%v err=%v", ok, err)
	}
	if again.CreatedAt != rec.CreatedAt {
		t.Errorf("expected created_at preserved across requeue, got %v want %v", again.CreatedAt, rec.CreatedAt)
	}
	if again.RetryAt == 0 {
		t.Errorf("expected retry_at to be stamped")
	}
}

func TestInterruptStorePopOrphanDropsSilently(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	s := NewInterruptStore(client, nil)

	// Push an ID directly with no matching hash record, simulating a
	// corrupted/crashed write.
	if err := client.RPush(ctx, interruptQueueKey, "ghost-id").Err(); err != nil {
		t.Fatalf("seed orphan: %v", err)
	}

	rec, ok, err := s.PopNext(ctx)
	if err != nil {
		t.Fatalf("expected no error on orphan, got %v", err)
	}
	if ok {
		t.Errorf("expected orphan to be dropped silently, got %+v", rec)
	}
}

func TestInterruptStoreMarkProcessedMissingIsNoop(t *testing.T) {
	s := NewInterruptStore(newTestClient(t), nil)
	if err := s.MarkProcessed(context.Background(), "does-not-exist", domain.StatusProcessed); err != nil {
		t.Fatalf("expected no error for missing record, got %v", err)
	}
}

func TestInterruptStoreReset(t *testing.T) {
	ctx := context.Background()
	s := NewInterruptStore(newTestClient(t), nil)

	if _, err := s.Register(ctx, domain.KindGift, "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	_, ok, err := s.PopNext(ctx)
	if err != nil || ok {
		t.Fatalf("expected empty store after reset, ok=%v err=%v", ok, err)
	}
}
