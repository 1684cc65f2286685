package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
)

// rewriteSystemPrompt instructs the model to behave as the stream's script
// writer rather than a conversational assistant.
const rewriteSystemPrompt = "You are the script writer for a live stream. " +
	"Given the recent speech history, the queued upcoming lines, and a " +
	"triggering event, write the next lines of script for the streamer to " +
	"speak. Respond with script lines only, one per line, no commentary."

const modifyScriptPromptTemplate = `Streamer: %s
Persona: %s

Recent speech history:
%s

Remaining queued script:
%s

Triggering event from %s: %s

Write the new upcoming script lines.`

// Rewriter is the Script Generator: given the recent history, the event
// that triggered a rewrite, and the script lines not yet spoken, it asks an
// LLMProvider for a replacement script. There is no retry — on any error or
// an empty completion it hands back the remaining script unchanged.
type Rewriter struct {
	provider     orchestrator.LLMProvider
	streamerName string
	scenePersona string
	logger       orchestrator.Logger
}

// NewRewriter wires a Script Generator around provider. streamerName and
// scenePersonaDescription are embedded in every prompt so the rewrite stays
// in character.
func NewRewriter(provider orchestrator.LLMProvider, streamerName, scenePersonaDescription string, logger orchestrator.Logger) *Rewriter {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	return &Rewriter{
		provider:     provider,
		streamerName: streamerName,
		scenePersona: scenePersonaDescription,
		logger:       logger,
	}
}

// Rewrite asks the LLM for a new script given historyText (recent spoken
// lines), triggerText (the message that prompted the rewrite), and
// remainingText (the script lines not yet spoken). sender identifies who
// triggered the rewrite (a superchat persona, or "gift" for a gift event).
// On any provider error or an empty completion, Rewrite returns
// (remainingText, nil) so the existing script survives untouched — a
// failed rewrite is not a fatal condition.
func (r *Rewriter) Rewrite(ctx context.Context, historyText, triggerText, remainingText, sender string) (string, error) {
	prompt := fmt.Sprintf(
		modifyScriptPromptTemplate,
		r.streamerName,
		r.scenePersona,
		historyText,
		remainingText,
		sender,
		triggerText,
	)

	messages := []orchestrator.Message{
		{Role: "system", Content: rewriteSystemPrompt},
		{Role: "user", Content: prompt},
	}

	completion, err := r.provider.Complete(ctx, messages)
	if err != nil {
		r.logger.Warn("script rewrite failed, keeping existing script", "error", err, "provider", r.provider.Name())
		return remainingText, nil
	}

	completion = strings.TrimSpace(completion)
	if completion == "" {
		r.logger.Warn("script rewrite returned an empty completion, keeping existing script", "provider", r.provider.Name())
		return remainingText, nil
	}

	return completion, nil
}
