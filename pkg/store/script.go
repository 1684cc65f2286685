package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/lokutor-ai/stream-orchestrator/pkg/domain"
	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
)

// ScriptQueue is the FIFO of upcoming dialogue lines. Replacing it resets
// the processor-local line index the caller tracks alongside it — Replace
// itself does not own that counter, it only guarantees the queue side of
// the invariant (see processor.Processor's lineIndex).
type ScriptQueue struct {
	client redis.Cmdable
	logger orchestrator.Logger
}

// NewScriptQueue wraps a Redis-compatible client as the Script Queue.
func NewScriptQueue(client redis.Cmdable, logger orchestrator.Logger) *ScriptQueue {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	return &ScriptQueue{client: client, logger: logger}
}

// Replace splits text on newlines, trims and drops empty lines, and
// atomically swaps the queue contents for the result, each line tagged with
// kind and persona.
func (q *ScriptQueue) Replace(ctx context.Context, text string, kind domain.Kind, persona string) error {
	lines := strings.Split(text, "\n")
	entries := make([]interface{}, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		body, err := json.Marshal(domain.ScriptEntry{Line: trimmed, Kind: kind, Persona: persona})
		if err != nil {
			return fmt.Errorf("marshal script entry: %w", err)
		}
		entries = append(entries, body)
	}

	pipe := q.client.TxPipeline()
	pipe.Del(ctx, scriptQueueKey)
	if len(entries) > 0 {
		pipe.RPush(ctx, scriptQueueKey, entries...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replace script queue: %w", err)
	}

	q.logger.Info("replaced script queue", "lines", len(entries), "kind", kind)
	return nil
}

// PopHead removes and returns the head entry, or ok=false if the queue is empty.
func (q *ScriptQueue) PopHead(ctx context.Context) (domain.ScriptEntry, bool, error) {
	raw, err := q.client.LPop(ctx, scriptQueueKey).Result()
	if err == redis.Nil {
		return domain.ScriptEntry{}, false, nil
	}
	if err != nil {
		return domain.ScriptEntry{}, false, fmt.Errorf("pop script queue: %w", err)
	}
	var entry domain.ScriptEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return domain.ScriptEntry{}, false, fmt.Errorf("unmarshal script entry: %w", err)
	}
	return entry, true, nil
}

// SnapshotRemaining returns the newline-joined text of every pending line,
// without consuming them.
func (q *ScriptQueue) SnapshotRemaining(ctx context.Context) (string, error) {
	raws, err := q.client.LRange(ctx, scriptQueueKey, 0, -1).Result()
	if err != nil {
		return "", fmt.Errorf("snapshot script queue: %w", err)
	}
	lines := make([]string, 0, len(raws))
	for _, raw := range raws {
		var entry domain.ScriptEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return "", fmt.Errorf("unmarshal script entry: %w", err)
		}
		lines = append(lines, entry.Line)
	}
	return strings.Join(lines, "\n"), nil
}

// Len returns the queue depth.
func (q *ScriptQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, scriptQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("len script queue: %w", err)
	}
	return n, nil
}

// Reset clears the queue.
func (q *ScriptQueue) Reset(ctx context.Context) error {
	if err := q.client.Del(ctx, scriptQueueKey).Err(); err != nil {
		return fmt.Errorf("reset script queue: %w", err)
	}
	return nil
}
