// Package processor implements the Stream Processor: the single worker
// that ties the Interrupt Store, Script Queue, Audio Queue, and History Log
// together, synthesizing audio and driving script rewrites.
package processor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lokutor-ai/stream-orchestrator/pkg/domain"
	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
	"github.com/lokutor-ai/stream-orchestrator/pkg/store"
)

// speakerTagRe pulls a leading "[Speaker]" off a script line; group 1 is the
// speaker, group 2 the remaining spoken text.
var speakerTagRe = regexp.MustCompile(`^\[([^\]]+)\]\s*(.*)$`)

// SynthesisParams is the subset of TTS generation parameters the processor
// controls per call; it is passed through verbatim to the Synthesizer.
type SynthesisParams struct {
	LineIndex     *int
	N             int
	ValidSampling bool
}

// Synthesizer is the TTS Generator contract the processor depends on.
// Defined here (rather than importing pkg/providers/tts directly) so the
// processor stays decoupled from the concrete HTTP client and is easy to
// fake in tests.
type Synthesizer interface {
	Generate(ctx context.Context, persona, text string, params SynthesisParams) (string, error)
}

// Rewriter is the Script Generator contract the processor depends on.
type Rewriter interface {
	Rewrite(ctx context.Context, historyText, triggerText, remainingText, sender string) (string, error)
}

// historySnapshotLimit bounds how much history context is sent to the
// Script Generator on every rewrite.
const historySnapshotLimit = 50

// Outcome describes what a single process_once tick actually did, for
// logging and tests. A nil Outcome means both queues were empty.
type Outcome struct {
	Kind      string // "superchat", "gift", or "script_line"
	ChunkID   string // empty for gift
	Persona   string
	Text      string
	RescoredN int
}

// Processor is the Stream Processor. It is the sole writer to the Script
// Queue, Audio Queue, History Log, and Interrupt status; HTTP handlers only
// append to the Interrupt Store and read the Audio Queue.
type Processor struct {
	audio      *store.AudioQueue
	interrupts *store.InterruptStore
	script     *store.ScriptQueue
	history    *store.HistoryLog

	synth    Synthesizer
	rewriter Rewriter
	logger   orchestrator.Logger
	cfg      orchestrator.Config

	mu        sync.Mutex
	lineIndex int
}

// New wires a Stream Processor around its four durable queues and its two
// remote collaborators.
func New(
	audio *store.AudioQueue,
	interrupts *store.InterruptStore,
	script *store.ScriptQueue,
	history *store.HistoryLog,
	synth Synthesizer,
	rewriter Rewriter,
	cfg orchestrator.Config,
	logger orchestrator.Logger,
) *Processor {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	return &Processor{
		audio:      audio,
		interrupts: interrupts,
		script:     script,
		history:    history,
		synth:      synth,
		rewriter:   rewriter,
		cfg:        cfg,
		logger:     logger,
	}
}

// ProcessOnce executes one unit of work: an interrupt if one is queued,
// otherwise the next script line, otherwise nothing.
func (p *Processor) ProcessOnce(ctx context.Context) (*Outcome, error) {
	rec, ok, err := p.interrupts.PopNext(ctx)
	if err != nil {
		return nil, fmt.Errorf("pop interrupt: %w", err)
	}
	if ok {
		return p.processInterrupt(ctx, rec)
	}
	return p.processScriptLine(ctx)
}

func (p *Processor) processInterrupt(ctx context.Context, rec domain.InterruptRecord) (*Outcome, error) {
	switch rec.Kind {
	case domain.KindSuperchat:
		return p.processSuperchat(ctx, rec)
	case domain.KindGift:
		return p.processGift(ctx, rec)
	default:
		p.logger.Error("unsupported interrupt kind reached the processor", "kind", rec.Kind, "interruptID", rec.InterruptID)
		return nil, fmt.Errorf("%w: %s", orchestrator.ErrUnsupportedInterruptKind, rec.Kind)
	}
}

func (p *Processor) processSuperchat(ctx context.Context, rec domain.InterruptRecord) (*Outcome, error) {
	audioB64, err := p.synth.Generate(ctx, rec.Persona, rec.Message, SynthesisParams{})
	if err != nil {
		return p.failInterrupt(ctx, rec, fmt.Errorf("synthesize superchat audio: %w", err))
	}

	chunkID, err := p.audio.Enqueue(ctx, domain.KindSuperchat, audioB64, rec.Message, rec.Persona)
	if err != nil {
		return p.failInterrupt(ctx, rec, fmt.Errorf("enqueue superchat audio: %w", err))
	}

	if err := p.history.Append(ctx, domain.HistoryRecord{
		Persona: rec.Persona,
		Text:    rec.Message,
		Kind:    domain.KindSuperchat,
		ChunkID: chunkID,
	}); err != nil {
		return p.failInterrupt(ctx, rec, fmt.Errorf("append superchat history: %w", err))
	}

	if err := p.rewriteScript(ctx, rec.Message, rec.Persona, domain.KindGeneral); err != nil {
		return p.failInterrupt(ctx, rec, fmt.Errorf("rewrite script after superchat: %w", err))
	}

	if err := p.interrupts.MarkProcessed(ctx, rec.InterruptID, domain.StatusProcessed); err != nil {
		return nil, fmt.Errorf("mark superchat processed: %w", err)
	}

	return &Outcome{Kind: "superchat", ChunkID: chunkID, Persona: rec.Persona, Text: rec.Message}, nil
}

func (p *Processor) processGift(ctx context.Context, rec domain.InterruptRecord) (*Outcome, error) {
	if err := p.rewriteScript(ctx, p.cfg.GiftPrompt, "gift", domain.KindGift); err != nil {
		return p.failInterrupt(ctx, rec, fmt.Errorf("rewrite script after gift: %w", err))
	}

	if err := p.interrupts.MarkProcessed(ctx, rec.InterruptID, domain.StatusQueuedScript); err != nil {
		return nil, fmt.Errorf("mark gift queued_script: %w", err)
	}

	return &Outcome{Kind: "gift", Text: p.cfg.GiftPrompt}, nil
}

// rewriteScript snapshots history and the remaining script, asks the
// Rewriter for a replacement, and swaps the Script Queue in if the
// completion was non-empty. Resets the processor-local line index whenever
// the queue is actually replaced, per the reset_state/script_replace
// invariant.
func (p *Processor) rewriteScript(ctx context.Context, triggerText, sender string, kind domain.Kind) error {
	historyText, err := p.history.Snapshot(ctx, historySnapshotLimit)
	if err != nil {
		return fmt.Errorf("snapshot history: %w", err)
	}
	remainingText, err := p.script.SnapshotRemaining(ctx)
	if err != nil {
		return fmt.Errorf("snapshot remaining script: %w", err)
	}

	newScript, err := p.rewriter.Rewrite(ctx, historyText, triggerText, remainingText, sender)
	if err != nil {
		return fmt.Errorf("rewrite: %w", err)
	}
	if strings.TrimSpace(newScript) == "" {
		p.logger.Info("script rewrite returned empty, leaving script unchanged", "sender", sender)
		return nil
	}

	if err := p.script.Replace(ctx, newScript, kind, p.cfg.DefaultPersona); err != nil {
		return fmt.Errorf("replace script: %w", err)
	}
	p.resetLineIndex()
	return nil
}

// failInterrupt requeues rec (preserving its original created_at) and
// returns the original error so the tick driver logs and backs off.
func (p *Processor) failInterrupt(ctx context.Context, rec domain.InterruptRecord, cause error) (*Outcome, error) {
	p.logger.Warn("interrupt processing failed, requeuing", "interruptID", rec.InterruptID, "error", cause)
	if err := p.interrupts.Requeue(ctx, rec); err != nil {
		return nil, fmt.Errorf("requeue interrupt after failure (%v): %w", cause, err)
	}
	return nil, cause
}

func (p *Processor) processScriptLine(ctx context.Context) (*Outcome, error) {
	entry, ok, err := p.script.PopHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("pop script head: %w", err)
	}
	if !ok {
		return nil, nil
	}

	speaker, text := parseSpeaker(entry.Line, entry.Persona)

	idx := p.currentLineIndex()
	audioB64, err := p.synth.Generate(ctx, speaker, text, SynthesisParams{LineIndex: &idx})
	if err != nil {
		return nil, fmt.Errorf("synthesize script line: %w", err)
	}

	chunkID, err := p.audio.Enqueue(ctx, entry.Kind, audioB64, text, speaker)
	if err != nil {
		return nil, fmt.Errorf("enqueue script audio: %w", err)
	}

	if err := p.history.Append(ctx, domain.HistoryRecord{
		Persona: speaker,
		Text:    text,
		Kind:    entry.Kind,
		ChunkID: chunkID,
	}); err != nil {
		return nil, fmt.Errorf("append script history: %w", err)
	}

	p.incrementLineIndex()
	return &Outcome{Kind: "script_line", ChunkID: chunkID, Persona: speaker, Text: text}, nil
}

// parseSpeaker splits a leading "[Speaker]" tag off line. The inline tag,
// when present, overrides the entry's stored persona.
func parseSpeaker(line, fallbackPersona string) (speaker, text string) {
	if m := speakerTagRe.FindStringSubmatch(line); m != nil {
		return m[1], m[2]
	}
	return fallbackPersona, line
}

func (p *Processor) currentLineIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lineIndex
}

func (p *Processor) incrementLineIndex() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lineIndex++
}

func (p *Processor) resetLineIndex() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lineIndex = 0
}

// ResetState clears the Audio Queue, Interrupt Store, and History Log, and
// reloads the configured default script. Used on boot or explicit reset.
func (p *Processor) ResetState(ctx context.Context) error {
	if err := p.audio.Reset(ctx); err != nil {
		return fmt.Errorf("reset audio queue: %w", err)
	}
	if err := p.interrupts.Reset(ctx); err != nil {
		return fmt.Errorf("reset interrupt store: %w", err)
	}
	if err := p.history.Reset(ctx); err != nil {
		return fmt.Errorf("reset history log: %w", err)
	}
	if err := p.script.Replace(ctx, p.cfg.DefaultScript, domain.KindGeneral, p.cfg.DefaultPersona); err != nil {
		return fmt.Errorf("reload default script: %w", err)
	}
	p.resetLineIndex()
	return nil
}

// Run is the tick driver: it calls ProcessOnce on a fixed cadence until ctx
// is cancelled. Unexpected errors are logged and backed off; cancellation
// exits cleanly once the in-flight tick completes.
func (p *Processor) Run(ctx context.Context) {
	loopInterval := time.Duration(p.cfg.LoopInterval) * time.Millisecond
	errorBackoff := time.Duration(p.cfg.ErrorBackoff) * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stream processor shutting down")
			return
		default:
		}

		outcome, err := p.ProcessOnce(ctx)
		if err != nil {
			p.logger.Error("process_once failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
			continue
		}
		if outcome != nil {
			p.logger.Debug("tick completed", "kind", outcome.Kind, "chunkID", outcome.ChunkID, "persona", outcome.Persona)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(loopInterval):
		}
	}
}
