package store

import (
	"context"
	"testing"

	"github.com/lokutor-ai/stream-orchestrator/pkg/domain"
)

func TestScriptQueueReplaceAndPop(t *testing.T) {
	ctx := context.Background()
	q := NewScriptQueue(newTestClient(t), nil)

	text := "\n  [Speed] line one  \n\n[Speed] line two\n   \n"
	if err := q.Replace(ctx, text, domain.KindGeneral, "speed"); err != nil {
		t.Fatalf("replace: %v", err)
	}

	first, ok, err := q.PopHead(ctx)
	if err != nil || !ok {
		t.Fatalf("pop first: ok=%v err=%v", ok, err)
	}
	if first.Line != "[Speed] line one" {
		t.Errorf("expected trimmed line, got %q", first.Line)
	}
	if first.Kind != domain.KindGeneral || first.Persona != "speed" {
		t.Errorf("unexpected tagging: %+v", first)
	}

	second, ok, err := q.PopHead(ctx)
	if err != nil || !ok {
		t.Fatalf("pop second: ok=%v err=%v", ok, err)
	}
	if second.Line != "[Speed] line two" {
		t.Errorf("expected trimmed line, got %q", second.Line)
	}

	_, ok, err = q.PopHead(ctx)
	if err != nil {
		t.Fatalf("pop empty: %v", err)
	}
	if ok {
		t.Errorf("expected empty queue")
	}
}

func TestScriptQueueReplaceEmptyIsNotAnError(t *testing.T) {
	ctx := context.Background()
	q := NewScriptQueue(newTestClient(t), nil)

	if err := q.Replace(ctx, "\n\n   \n", domain.KindGeneral, "speed"); err != nil {
		t.Fatalf("expected no error replacing with blank text, got %v", err)
	}
	n, err := q.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
}

func TestScriptQueueSnapshotRemaining(t *testing.T) {
	ctx := context.Background()
	q := NewScriptQueue(newTestClient(t), nil)

	if err := q.Replace(ctx, "[A] one\n[B] two", domain.KindGeneral, "speed"); err != nil {
		t.Fatalf("replace: %v", err)
	}

	snap, err := q.SnapshotRemaining(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap != "[A] one\n[B] two" {
		t.Errorf("unexpected snapshot: %q", snap)
	}

	// Snapshot does not consume.
	n, err := q.Len(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected queue untouched, len=%d err=%v", n, err)
	}
}

func TestScriptQueueReplaceAtomicallyDropsUnspokenLines(t *testing.T) {
	ctx := context.Background()
	q := NewScriptQueue(newTestClient(t), nil)

	if err := q.Replace(ctx, "[A] one\n[A] two\n[A] three", domain.KindGeneral, "speed"); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if _, _, err := q.PopHead(ctx); err != nil {
		t.Fatalf("pop head: %v", err)
	}

	if err := q.Replace(ctx, "[B] new", domain.KindGift, "speed"); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	n, err := q.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected replace to drop all unspoken lines, len=%d", n)
	}
	entry, ok, err := q.PopHead(ctx)
	if err != nil || !ok {
		t.Fatalf("pop: ok=%v err=%v", ok, err)
	}
	if entry.Line != "[B] new" || entry.Kind != domain.KindGift {
		t.Errorf("unexpected surviving entry: %+v", entry)
	}
}
