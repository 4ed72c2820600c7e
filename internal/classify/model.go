package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shulebot/shulebot/internal/llm"
)

// DefaultTimeout bounds a single model classification call.
const DefaultTimeout = 800 * time.Millisecond

// ModelRequest carries everything the model classifier needs for one call.
type ModelRequest struct {
	Utterance      string
	AllowedIntents []string
	// RecentContext holds the last few conversation turns, oldest first.
	RecentContext []string
	// EntitySchema maps entity names to short descriptions the model may
	// extract alongside the intent.
	EntitySchema map[string]string
	// SystemPrompt overrides the built-in instruction when the active
	// catalog carries a classification template.
	SystemPrompt string
}

// ModelClassifier asks an LLM backend for a structured intent decision
// constrained to an allowed intent set. It always returns a usable,
// schema-valid Result: timeouts, transport errors and malformed responses
// all degrade to sentinel or repaired results instead of propagating.
type ModelClassifier struct {
	provider llm.Provider
	model    string
	timeout  time.Duration
}

// NewModelClassifier creates a model classifier. A zero timeout selects
// DefaultTimeout.
func NewModelClassifier(provider llm.Provider, model string, timeout time.Duration) *ModelClassifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ModelClassifier{provider: provider, model: model, timeout: timeout}
}

const classifySystemPrompt = `You are the intent classifier of a school management assistant. Decide which single operation the user wants.

You MUST respond with valid JSON only, matching this schema:
{
  "intent": "one of the allowed intents",
  "confidence": 0.0,
  "entities": {"name": "value"},
  "alternatives": [{"intent": "...", "confidence": 0.0}]
}

Rules:
- "intent" must be exactly one of the allowed intents listed in the request
- "confidence" is your certainty between 0 and 1
- extract only entities named in the entity schema; omit the rest
- list at most 3 alternatives, ordered by confidence, excluding the chosen intent
- no prose, no markdown, JSON only`

// Classify sends the utterance to the model and validates the decision.
// The returned intent is always a member of req.AllowedIntents or one of
// the sentinels "timeout"/"error".
func (mc *ModelClassifier) Classify(ctx context.Context, req ModelRequest) Result {
	if len(req.AllowedIntents) == 0 {
		return Result{Intent: IntentError, Confidence: 0, Err: "no allowed intents"}
	}

	ctx, cancel := context.WithTimeout(ctx, mc.timeout)
	defer cancel()

	system := req.SystemPrompt
	if system == "" {
		system = classifySystemPrompt
	}

	resp, err := mc.provider.Complete(ctx, llm.CompletionRequest{
		Model: mc.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: buildUserPrompt(req)},
		},
		MaxTokens:   512,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return Result{Intent: IntentTimeout, Confidence: 0}
		}
		return Result{Intent: IntentError, Confidence: 0, Err: err.Error()}
	}

	return repairDecision(resp.Content, req.AllowedIntents)
}

func buildUserPrompt(req ModelRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Allowed intents: %s\n", strings.Join(req.AllowedIntents, ", "))

	if len(req.EntitySchema) > 0 {
		b.WriteString("Entity schema:\n")
		for name, desc := range req.EntitySchema {
			fmt.Fprintf(&b, "- %s: %s\n", name, desc)
		}
	}

	if len(req.RecentContext) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range req.RecentContext {
			fmt.Fprintf(&b, "%s\n", turn)
		}
	}

	fmt.Fprintf(&b, "\nUser message: %s\n", req.Utterance)
	return b.String()
}

// modelDecision mirrors the JSON shape the model is instructed to emit.
type modelDecision struct {
	Intent       string         `json:"intent"`
	Confidence   float64        `json:"confidence"`
	Entities     map[string]any `json:"entities"`
	Alternatives []Alternative  `json:"alternatives"`
}

// repairDecision decodes the raw model text and coerces it into a valid
// Result. Decode failures fall back to a plain-text scan for any allowed
// intent name, so the caller always receives a member of the allowed set.
func repairDecision(raw string, allowed []string) Result {
	var decision modelDecision
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &decision); err != nil {
		return scanFallback(raw, allowed)
	}

	result := Result{
		Confidence: clamp(decision.Confidence),
		Entities:   decision.Entities,
	}
	if result.Entities == nil {
		result.Entities = map[string]any{}
	}

	intent, ok := matchAllowed(decision.Intent, allowed)
	if !ok {
		intent = allowed[0]
		result.Confidence = 0.1
	}
	result.Intent = intent

	for _, alt := range decision.Alternatives {
		name, ok := matchAllowed(alt.Intent, allowed)
		if !ok || name == result.Intent {
			continue
		}
		result.Alternatives = append(result.Alternatives, Alternative{
			Intent:     name,
			Confidence: clamp(alt.Confidence),
		})
		if len(result.Alternatives) == 3 {
			break
		}
	}

	return result
}

// matchAllowed resolves a candidate intent against the allowed set,
// exact match first, then case-insensitive.
func matchAllowed(candidate string, allowed []string) (string, bool) {
	for _, a := range allowed {
		if candidate == a {
			return a, true
		}
	}
	for _, a := range allowed {
		if strings.EqualFold(candidate, a) {
			return a, true
		}
	}
	return "", false
}

// scanFallback searches the raw response for any allowed intent name and
// picks the earliest occurrence. Without a hit the first allowed intent is
// returned at the minimum confidence.
func scanFallback(raw string, allowed []string) Result {
	lower := strings.ToLower(raw)

	best := ""
	bestIdx := -1
	for _, a := range allowed {
		idx := strings.Index(lower, strings.ToLower(a))
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx {
			best, bestIdx = a, idx
		}
	}

	if bestIdx >= 0 {
		return Result{Intent: best, Confidence: 0.3, Entities: map[string]any{}}
	}
	return Result{Intent: allowed[0], Confidence: 0.1, Entities: map[string]any{}}
}

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag, from the model output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		first := strings.TrimSpace(s[:idx])
		if first == "" || !strings.ContainsAny(first, "{}[]") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
