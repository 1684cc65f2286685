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

// HistoryLog is the append-only record of everything the stream has already
// said, used to give the Script Generator context.
type HistoryLog struct {
	client redis.Cmdable
	logger orchestrator.Logger
	nowFn  func() float64
}

// NewHistoryLog wraps a Redis-compatible client as the History Log.
func NewHistoryLog(client redis.Cmdable, logger orchestrator.Logger) *HistoryLog {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	return &HistoryLog{client: client, logger: logger, nowFn: unixFloat}
}

// Append adds a record to the tail of the log. The timestamp is stamped here
// if the caller left it zero.
func (h *HistoryLog) Append(ctx context.Context, rec domain.HistoryRecord) error {
	if rec.Timestamp == 0 {
		rec.Timestamp = h.nowFn()
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}
	if err := h.client.RPush(ctx, historyKey, body).Err(); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Snapshot returns the last `limit` entries rendered as "[persona] text\n"
// lines, joined. A non-positive limit returns the entire log.
func (h *HistoryLog) Snapshot(ctx context.Context, limit int) (string, error) {
	start := int64(0)
	if limit > 0 {
		n, err := h.client.LLen(ctx, historyKey).Result()
		if err != nil {
			return "", fmt.Errorf("len history: %w", err)
		}
		if n > int64(limit) {
			start = n - int64(limit)
		}
	}

	raws, err := h.client.LRange(ctx, historyKey, start, -1).Result()
	if err != nil {
		return "", fmt.Errorf("range history: %w", err)
	}

	var b strings.Builder
	for _, raw := range raws {
		var rec domain.HistoryRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return "", fmt.Errorf("unmarshal history record: %w", err)
		}
		fmt.Fprintf(&b, "[%s] %s\n", rec.Persona, rec.Text)
	}
	return b.String(), nil
}

// Reset clears the log.
func (h *HistoryLog) Reset(ctx context.Context) error {
	if err := h.client.Del(ctx, historyKey).Err(); err != nil {
		return fmt.Errorf("reset history: %w", err)
	}
	return nil
}
