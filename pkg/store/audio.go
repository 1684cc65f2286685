package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/lokutor-ai/stream-orchestrator/pkg/domain"
	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
)

// enqueueLuaScript atomically increments the chunk counter and pushes the
// finished record (with the new chunk_id already embedded) onto the queue
// tail, so a reader can never observe a counter bump without the matching
// record appearing right behind it.
var enqueueLuaScript = redis.NewScript(`
	local next_id = redis.call('INCR', KEYS[2])
	redis.call('RPUSH', KEYS[1], ARGV[1] .. next_id .. ARGV[2])
	return next_id
`)

// AudioQueue is the FIFO of rendered audio chunks awaiting client pull.
// The Stream Processor is its sole writer; HTTP handlers only drain and count.
type AudioQueue struct {
	client redis.Cmdable
	logger orchestrator.Logger
}

// NewAudioQueue wraps a Redis-compatible client as the Audio Queue.
func NewAudioQueue(client redis.Cmdable, logger orchestrator.Logger) *AudioQueue {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	return &AudioQueue{client: client, logger: logger}
}

// audioChunkPayload is a chunk record without its chunk_id: we marshal the
// record minus chunk_id, then the Lua script splices the id value in at
// enqueue time so the counter and the record are a single atomic write.
type audioChunkPayload struct {
	Kind        domain.Kind `json:"kind"`
	AudioBase64 string      `json:"audio_base64"`
	Transcript  string      `json:"transcript"`
	Speaker     string      `json:"speaker"`
}

// Enqueue appends a newly synthesized chunk to the tail of the queue and
// returns the chunk_id assigned to it. Chunk IDs are a monotonically
// increasing integer counter, not opaque IDs.
func (q *AudioQueue) Enqueue(ctx context.Context, kind domain.Kind, audioBase64, transcript, speaker string) (string, error) {
	body, err := json.Marshal(audioChunkPayload{
		Kind:        kind,
		AudioBase64: audioBase64,
		Transcript:  transcript,
		Speaker:     speaker,
	})
	if err != nil {
		return "", fmt.Errorf("marshal audio chunk: %w", err)
	}

	// Splice chunk_id into the JSON object ourselves so the whole record
	// (counter value included) is produced inside the Lua script's single
	// atomic step; ARGV[1] is the object opened with chunk_id, ARGV[2] the
	// rest of the object.
	prefix := `{"chunk_id":"`
	suffix := `",` + string(body[1:])

	res, err := enqueueLuaScript.Run(ctx, q.client, []string{audioQueueKey, audioCounterKey}, prefix, suffix).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue audio chunk: %w", err)
	}

	chunkID := fmt.Sprintf("%v", res)
	q.logger.Info("enqueued audio chunk", "chunkID", chunkID, "kind", kind, "speaker", speaker)
	return chunkID, nil
}

// Drain pops every chunk off the queue head, in insertion order. This is a
// destructive read: once returned, the chunks are gone from the store.
func (q *AudioQueue) Drain(ctx context.Context) ([]domain.AudioChunk, error) {
	var chunks []domain.AudioChunk
	for {
		raw, err := q.client.LPop(ctx, audioQueueKey).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("drain audio queue: %w", err)
		}

		var chunk domain.AudioChunk
		if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
			return nil, fmt.Errorf("%w: %v", orchestrator.ErrCorruptChunk, err)
		}
		if chunk.ChunkID == "" || chunk.Transcript == "" || chunk.Speaker == "" {
			return nil, orchestrator.ErrCorruptChunk
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Count returns the queue length without mutating it.
func (q *AudioQueue) Count(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, audioQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count audio queue: %w", err)
	}
	return n, nil
}

// Reset clears the queue and the chunk counter.
func (q *AudioQueue) Reset(ctx context.Context) error {
	if err := q.client.Del(ctx, audioQueueKey, audioCounterKey).Err(); err != nil {
		return fmt.Errorf("reset audio queue: %w", err)
	}
	return nil
}

// nextChunkIDPeek is a test/debug helper returning the current counter value.
func (q *AudioQueue) nextChunkIDPeek(ctx context.Context) (int64, error) {
	v, err := q.client.Get(ctx, audioCounterKey).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}
