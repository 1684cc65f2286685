// Package domain holds the data model shared by the stores, the stream
// processor, and the HTTP surface: interrupts, script lines, audio chunks,
// and history records.
package domain

// Kind classifies an audio chunk, script entry, or interrupt.
type Kind string

const (
	KindGeneral   Kind = "general"
	KindSuperchat Kind = "superchat"
	KindGift      Kind = "gift"
)

// InterruptStatus tracks an InterruptRecord through its lifecycle.
type InterruptStatus string

const (
	StatusQueued       InterruptStatus = "queued"
	StatusProcessing   InterruptStatus = "processing"
	StatusProcessed    InterruptStatus = "processed"
	StatusQueuedScript InterruptStatus = "queued_script"
)

// Persona is a named voice identity: a reference clip, its transcript, and
// the scene description used to condition the TTS prompt.
type Persona struct {
	ID               string
	ReferenceAudio   []byte
	ReferenceFormat  string // file extension without the dot, e.g. "wav"
	ReferenceText    string
	SceneDescription string
}

// ScriptEntry is one line queued to be spoken.
type ScriptEntry struct {
	Line    string `json:"line"`
	Kind    Kind   `json:"kind"`
	Persona string `json:"persona"`
}

// InterruptRecord is a viewer-triggered event awaiting processing.
type InterruptRecord struct {
	InterruptID string          `json:"interrupt_id"`
	Kind        Kind            `json:"kind"`
	Persona     string          `json:"persona,omitempty"`
	Message     string          `json:"message,omitempty"`
	Status      InterruptStatus `json:"status"`
	CreatedAt   float64         `json:"created_at"`
	StartedAt   float64         `json:"started_at,omitempty"`
	CompletedAt float64         `json:"completed_at,omitempty"`
	RetryAt     float64         `json:"retry_at,omitempty"`
}

// AudioChunk is one synthesized payload ready for the player client.
type AudioChunk struct {
	ChunkID      string `json:"chunk_id"`
	Kind         Kind   `json:"kind"`
	AudioBase64  string `json:"audio_base64"`
	Transcript   string `json:"transcript"`
	Speaker      string `json:"speaker"`
}

// HistoryRecord is an append-only entry describing what the stream already said.
type HistoryRecord struct {
	Persona   string  `json:"persona"`
	Text      string  `json:"text"`
	Kind      Kind    `json:"kind"`
	ChunkID   string  `json:"chunk_id"`
	Timestamp float64 `json:"timestamp"`
}
