// FILE: pkg/agent/tools/email.go
// PURPOSE: Email tools for the agent loop. Search runs over the indexed
// corpus; draft/send form a two-step confirmation gate so the model can
// never fire an email the user has not approved.
package tools

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"ai-context-engine/pkg/agent"
	"ai-context-engine/pkg/embedding"
	"ai-context-engine/pkg/llm"
	"ai-context-engine/pkg/rag/search"
	"ai-context-engine/pkg/store"
)

const emailSearchLimit = 8

// Mailer delivers a confirmed draft. The SMTP implementation lives in
// internal/pkg/mailer.
type Mailer interface {
	Send(to []string, subject string, body string) error
}

// DraftStore is the slice of the pending-action store email_send needs.
// *agent.PendingStore satisfies it.
type DraftStore interface {
	Consume(ctx context.Context, userId uuid.UUID, actionType string) (*agent.PendingAction, error)
	Save(ctx context.Context, action *agent.PendingAction) error
}

// EmailSearch runs semantic search restricted to indexed email documents.
type EmailSearch struct {
	embedder *embedding.Batcher
	search   *search.Client
}

func NewEmailSearch(embedder *embedding.Batcher, searchClient *search.Client) *EmailSearch {
	return &EmailSearch{embedder: embedder, search: searchClient}
}

func (t *EmailSearch) Definition() llm.Tool {
	return llm.Tool{
		Name: string(agent.ToolEmailSearch),
		Description: "Search the user's indexed email. Use for questions about " +
			"what someone wrote, sent, or asked for over email.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to look for, phrased as a full question or topic.",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *EmailSearch) Execute(ctx context.Context, inv agent.Invocation) (string, error) {
	query := stringArg(inv.Args, "query")
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	vec := t.embedder.EmbedOne(query, embedding.TaskRetrievalQuery)
	if vec == nil {
		return errorPayloadJSON("could not embed the query", "try search_context instead"), nil
	}

	sources := []string{store.SourceEmailSummary, store.SourceEmailChunk}
	results := t.search.Search(ctx, inv.UserID, query, vec, sources, 0, emailSearchLimit)

	hits := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		hits = append(hits, map[string]interface{}{
			"title":     r.Title,
			"text":      snippet(r.Text, 600),
			"score":     r.FusedScore,
			"source_id": r.SourceId,
		})
	}
	return marshalPayload(map[string]interface{}{
		"results": hits,
		"count":   len(hits),
	}), nil
}

// EmailDraft stages an outgoing email. It never sends anything: the draft
// becomes a pending action, and only email_send, after user confirmation,
// turns it into a delivery.
type EmailDraft struct{}

func NewEmailDraft() *EmailDraft { return &EmailDraft{} }

func (t *EmailDraft) Definition() llm.Tool {
	return llm.Tool{
		Name: string(agent.ToolEmailDraft),
		Description: "Draft an email for the user to approve. Always show the draft " +
			"and wait for confirmation; never follow up with email_send in the same turn.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"to": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Recipient email addresses.",
				},
				"subject": map[string]interface{}{
					"type": "string",
				},
				"body": map[string]interface{}{
					"type":        "string",
					"description": "Full message body, written in the user's voice.",
				},
			},
			"required": []string{"to", "body"},
		},
	}
}

func (t *EmailDraft) Execute(ctx context.Context, inv agent.Invocation) (string, error) {
	to := stringListArg(inv.Args, "to")
	body := stringArg(inv.Args, "body")
	if len(to) == 0 || body == "" {
		return "", fmt.Errorf("to and body are required")
	}

	subject := stringArg(inv.Args, "subject")
	if subject == "" {
		subject = "(no subject)"
	}

	return marshalPayload(map[string]interface{}{
		"draft_id":     uuid.NewString(),
		"to":           to,
		"subject":      subject,
		"body_preview": snippet(body, 200),
		"status":       "pending_confirmation",
		"next":         "show the draft to the user; call email_send only after they confirm",
	}), nil
}

// PendingFromResult turns a successful draft into the pending action the
// confirmation step consumes. The full body comes from the call args, not
// the trimmed payload.
func (t *EmailDraft) PendingFromResult(inv agent.Invocation, payload string) (*agent.PendingAction, bool) {
	var res struct {
		DraftID string `json:"draft_id"`
	}
	if err := unmarshalPayload(payload, &res); err != nil || res.DraftID == "" {
		return nil, false
	}

	to := stringListArg(inv.Args, "to")
	subject := stringArg(inv.Args, "subject")
	if subject == "" {
		subject = "(no subject)"
	}
	return &agent.PendingAction{
		ID:      res.DraftID,
		UserID:  inv.UserID.String(),
		Type:    agent.PendingEmailDraft,
		Summary: fmt.Sprintf("email to %s: %s", strings.Join(to, ", "), subject),
		Payload: map[string]interface{}{
			"to":      to,
			"subject": subject,
			"body":    stringArg(inv.Args, "body"),
		},
		CreatedAt: time.Now(),
	}, true
}

// EmailSend delivers the pending draft. The consume is atomic, so a
// double-confirmation across instances sends at most once.
type EmailSend struct {
	pending DraftStore
	mailer  Mailer
	logger  *log.Logger
}

func NewEmailSend(pending DraftStore, mailer Mailer, logger *log.Logger) *EmailSend {
	if logger == nil {
		logger = log.Default()
	}
	return &EmailSend{pending: pending, mailer: mailer, logger: logger}
}

func (t *EmailSend) Definition() llm.Tool {
	return llm.Tool{
		Name: string(agent.ToolEmailSend),
		Description: "Send the pending email draft. Only call after the user has " +
			"explicitly confirmed in this conversation.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"draft_id": map[string]interface{}{
					"type":        "string",
					"description": "The draft_id returned by email_draft.",
				},
			},
			"required": []string{},
		},
	}
}

func (t *EmailSend) Execute(ctx context.Context, inv agent.Invocation) (string, error) {
	action, err := t.pending.Consume(ctx, inv.UserID, agent.PendingEmailDraft)
	if err != nil {
		return "", fmt.Errorf("load pending draft: %w", err)
	}
	if action == nil {
		return errorPayloadJSON("no pending email draft", "create one with email_draft first"), nil
	}

	if wanted := stringArg(inv.Args, "draft_id"); wanted != "" && wanted != action.ID {
		// Stale id from an earlier draft. Put the live one back so the
		// model can re-confirm against it.
		if err := t.pending.Save(ctx, action); err != nil {
			t.logger.Printf("[PENDING] Re-save after id mismatch failed: %v", err)
		}
		return errorPayloadJSON(
			"draft_id does not match the pending draft",
			"re-read the pending draft summary or create a fresh draft with email_draft",
		), nil
	}

	to := stringListArg(action.Payload, "to")
	if len(to) == 0 {
		return errorPayloadJSON("draft has no recipients", "create a new draft with email_draft"), nil
	}
	subject := stringArg(action.Payload, "subject")
	body := stringArg(action.Payload, "body")

	if err := t.mailer.Send(to, subject, body); err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}

	t.logger.Printf("[AGENT] Sent email draft %s for user %s (%d recipients)",
		action.ID, inv.UserID, len(to))
	return marshalPayload(map[string]interface{}{
		"sent":     true,
		"draft_id": action.ID,
		"to":       to,
		"subject":  subject,
	}), nil
}
