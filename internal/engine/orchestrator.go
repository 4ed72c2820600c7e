package engine

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/shulebot/shulebot/internal/catalog"
	"github.com/shulebot/shulebot/internal/classify"
	"github.com/shulebot/shulebot/internal/handlers"
	"github.com/shulebot/shulebot/internal/session"
	"github.com/shulebot/shulebot/internal/slots"
)

// Conversation states reported in replies.
const (
	StateIdle       = "IDLE"
	StateCollecting = "COLLECTING"
	StateDispatched = "DISPATCHED"
)

// DefaultMinConfidence is the floor below which a classification is treated
// as inconclusive and answered with a clarification prompt.
const DefaultMinConfidence = 0.3

// CatalogSource yields the pattern catalog to classify against. Production
// wiring passes the config cache; tests inject a fixed catalog.
type CatalogSource interface {
	GetActive(ctx context.Context) *catalog.Catalog
}

// ModelClassifier is the fallback classifier consulted when no rule matches.
type ModelClassifier interface {
	Classify(ctx context.Context, req classify.ModelRequest) classify.Result
}

// Dispatcher executes a fully slot-filled intent against the school backend.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent string, slots map[string]any) (*handlers.Result, error)
}

// Reply is the orchestrator's answer to one utterance.
type Reply struct {
	SessionID string   `json:"session_id"`
	Intent    string   `json:"intent,omitempty"`
	Text      string   `json:"text"`
	State     string   `json:"state"`
	Missing   []string `json:"missing,omitempty"`
}

// Orchestrator drives the per-session conversation state machine: it resumes
// pending slot collection, classifies fresh utterances, merges extracted
// slots and either asks for what is still missing or dispatches the
// operation. Every turn resolves to a user-facing reply; failures along the
// way degrade to messages, never to a dropped turn.
type Orchestrator struct {
	catalogs      CatalogSource
	rules         *classify.RuleClassifier
	model         ModelClassifier
	sessions      *session.Store
	dispatcher    Dispatcher
	minConfidence float64
}

// New creates an orchestrator. A zero minConfidence selects
// DefaultMinConfidence.
func New(catalogs CatalogSource, model ModelClassifier, sessions *session.Store, dispatcher Dispatcher, minConfidence float64) *Orchestrator {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Orchestrator{
		catalogs:      catalogs,
		rules:         classify.NewRuleClassifier(),
		model:         model,
		sessions:      sessions,
		dispatcher:    dispatcher,
		minConfidence: minConfidence,
	}
}

// defaultIntents is the allowed intent set handed to the model classifier
// when no catalog is active.
var defaultIntents = []string{
	"create_class", "list_classes", "register_student", "student_count",
	"set_fee_amount", "fee_balance", "generate_invoices", "greeting", "help",
}

// cancelWords end a pending slot collection unconditionally.
var cancelWords = map[string]bool{
	"cancel": true, "no": true, "stop": true, "nevermind": true, "never mind": true,
}

// HandleMessage runs one conversation turn for a session.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, text string) *Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return &Reply{
			SessionID: sessionID,
			State:     StateIdle,
			Text:      "I didn't catch that. What would you like to do?",
		}
	}

	state, lapsed, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		// A state read failure must not kill the turn; proceed as fresh.
		log.Printf("engine: reading session %s failed, treating as fresh: %v", sessionID, err)
		state, lapsed = nil, false
	}

	if state != nil {
		return o.continueCollecting(ctx, state, text)
	}

	reply := o.handleFresh(ctx, sessionID, text)
	if lapsed {
		reply.Text = "Your previous request expired, so I'm starting over. " + reply.Text
	}
	return reply
}

// handleFresh classifies an utterance with no pending state behind it.
func (o *Orchestrator) handleFresh(ctx context.Context, sessionID, text string) *Reply {
	cat := o.catalogs.GetActive(ctx)

	var result classify.Result
	if ruled := o.rules.Classify(text, cat); ruled != nil {
		result = *ruled
	} else {
		req := classify.ModelRequest{
			Utterance:      text,
			AllowedIntents: allowedIntents(cat),
			EntitySchema:   slots.EntitySchema(""),
		}
		if tpl, ok := cat.Template("general", "", "classify"); ok {
			req.SystemPrompt = tpl.Body
		}
		result = o.model.Classify(ctx, req)
	}

	switch result.Intent {
	case classify.IntentTimeout:
		return &Reply{SessionID: sessionID, Intent: result.Intent, State: StateIdle,
			Text: "That took too long to process. Please try again."}
	case classify.IntentError:
		return &Reply{SessionID: sessionID, Intent: result.Intent, State: StateIdle,
			Text: "Something went wrong while working that out. Please try again."}
	case classify.IntentUnknown:
		return o.clarify(sessionID, result.Intent)
	}
	if result.Confidence < o.minConfidence {
		return o.clarify(sessionID, result.Intent)
	}

	if reply := directReply(sessionID, result.Intent); reply != nil {
		return reply
	}

	collected := slots.Merge(result.Entities, slots.Extract(result.Intent, text, cat.Synonyms()))
	missing := slots.Missing(result.Intent, collected)
	if len(missing) == 0 {
		return o.dispatch(ctx, sessionID, result.Intent, collected)
	}

	state := &session.State{SessionID: sessionID, PendingIntent: result.Intent, CollectedSlots: collected}
	if err := o.sessions.Set(ctx, state); err != nil {
		log.Printf("engine: persisting session %s failed: %v", sessionID, err)
	}
	return o.askForMissing(sessionID, result.Intent, missing)
}

// continueCollecting merges a new utterance into a pending slot collection.
func (o *Orchestrator) continueCollecting(ctx context.Context, state *session.State, text string) *Reply {
	if cancelWords[strings.ToLower(strings.TrimSpace(text))] {
		if err := o.sessions.Delete(ctx, state.SessionID); err != nil {
			log.Printf("engine: clearing session %s failed: %v", state.SessionID, err)
		}
		return &Reply{
			SessionID: state.SessionID,
			Intent:    state.PendingIntent,
			State:     StateIdle,
			Text:      "Okay, I've cancelled that request.",
		}
	}

	cat := o.catalogs.GetActive(ctx)
	merged := slots.Merge(state.CollectedSlots, slots.Extract(state.PendingIntent, text, cat.Synonyms()))

	missing := slots.Missing(state.PendingIntent, merged)
	if len(missing) > 0 {
		state.CollectedSlots = merged
		if err := o.sessions.Set(ctx, state); err != nil {
			log.Printf("engine: persisting session %s failed: %v", state.SessionID, err)
		}
		return o.askForMissing(state.SessionID, state.PendingIntent, missing)
	}

	if err := o.sessions.Delete(ctx, state.SessionID); err != nil {
		log.Printf("engine: clearing session %s failed: %v", state.SessionID, err)
	}
	return o.dispatch(ctx, state.SessionID, state.PendingIntent, merged)
}

// dispatch invokes the operation handler with the final slot map. A handler
// failure keeps the collected slots so the user can retry with one message
// instead of starting over.
func (o *Orchestrator) dispatch(ctx context.Context, sessionID, intent string, collected map[string]any) *Reply {
	result, err := o.dispatcher.Dispatch(ctx, intent, collected)
	if err != nil {
		log.Printf("engine: dispatching %s for session %s failed: %v", intent, sessionID, err)
		state := &session.State{SessionID: sessionID, PendingIntent: intent, CollectedSlots: collected}
		if serr := o.sessions.Set(ctx, state); serr != nil {
			log.Printf("engine: preserving slots for session %s failed: %v", sessionID, serr)
		}
		return &Reply{
			SessionID: sessionID,
			Intent:    intent,
			State:     StateCollecting,
			Text:      "The school system is not responding right now. I've kept your details, send any message to retry or say cancel.",
		}
	}

	return &Reply{
		SessionID: sessionID,
		Intent:    intent,
		State:     StateDispatched,
		Text:      result.Body,
	}
}

func (o *Orchestrator) clarify(sessionID, intent string) *Reply {
	return &Reply{
		SessionID: sessionID,
		Intent:    intent,
		State:     StateIdle,
		Text: "I'm not sure what you need. You can ask me to create classes, register students, " +
			"set fees, check fee balances or generate invoices.",
	}
}

func (o *Orchestrator) askForMissing(sessionID, intent string, missing []string) *Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "To %s I still need:\n", strings.ReplaceAll(intent, "_", " "))
	for i, item := range missing {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return &Reply{
		SessionID: sessionID,
		Intent:    intent,
		State:     StateCollecting,
		Missing:   missing,
		Text:      strings.TrimRight(b.String(), "\n"),
	}
}

// directReply answers intents that have no operation handler.
func directReply(sessionID, intent string) *Reply {
	switch intent {
	case "greeting":
		return &Reply{SessionID: sessionID, Intent: intent, State: StateIdle,
			Text: "Hello! I can help you manage classes, students, fees and invoices. What would you like to do?"}
	case "help":
		return &Reply{SessionID: sessionID, Intent: intent, State: StateIdle,
			Text: "I can create classes, register students, count students, set fee amounts, " +
				"check fee balances and generate invoices. Just tell me what you need in plain words."}
	default:
		return nil
	}
}

// allowedIntents collects the distinct intents of the catalog's positive
// patterns in evaluation order, falling back to the built-in set when no
// catalog is active.
func allowedIntents(cat *catalog.Catalog) []string {
	if cat.IsEmpty() {
		return defaultIntents
	}
	seen := map[string]bool{}
	var out []string
	for _, p := range cat.Positives() {
		if seen[p.Intent] {
			continue
		}
		seen[p.Intent] = true
		out = append(out, p.Intent)
	}
	return out
}
