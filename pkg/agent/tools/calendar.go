package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ai-context-engine/pkg/agent"
	"ai-context-engine/pkg/llm"
	"ai-context-engine/pkg/provider"
)

const googleCalendarBase = "https://www.googleapis.com/calendar/v3"

type googleEventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

func (t googleEventTime) value() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

type googleEvent struct {
	Id          string          `json:"id"`
	Summary     string          `json:"summary"`
	Location    string          `json:"location,omitempty"`
	Description string          `json:"description,omitempty"`
	HtmlLink    string          `json:"htmlLink,omitempty"`
	Start       googleEventTime `json:"start"`
	End         googleEventTime `json:"end"`
	Attendees   []struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"attendees,omitempty"`
}

func compactEvent(e googleEvent) map[string]interface{} {
	out := map[string]interface{}{
		"id":    e.Id,
		"title": e.Summary,
		"start": e.Start.value(),
		"end":   e.End.value(),
	}
	if e.Location != "" {
		out["location"] = e.Location
	}
	if len(e.Attendees) > 0 {
		emails := make([]string, 0, len(e.Attendees))
		for _, a := range e.Attendees {
			emails = append(emails, a.Email)
		}
		out["attendees"] = emails
	}
	return out
}

// CalendarLookup reads events from the user's primary Google calendar.
type CalendarLookup struct {
	resolver provider.AccountResolver
	client   *http.Client
	base     string
}

func NewCalendarLookup(resolver provider.AccountResolver) *CalendarLookup {
	return &CalendarLookup{resolver: resolver, client: newHTTPClient(), base: googleCalendarBase}
}

func (t *CalendarLookup) Definition() llm.Tool {
	return llm.Tool{
		Name: string(agent.ToolCalendarLookup),
		Description: "List events from the user's live calendar between two instants. " +
			"Use when the corpus may be behind, or for exact current details of an event.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"time_min": map[string]interface{}{
					"type":        "string",
					"description": "Range start, RFC3339 (e.g. 2026-08-24T00:00:00+10:00).",
				},
				"time_max": map[string]interface{}{
					"type":        "string",
					"description": "Range end, RFC3339.",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Optional free-text filter on event fields.",
				},
				"account": map[string]interface{}{
					"type":        "string",
					"description": "Optional account email (or fragment) when the user has several.",
				},
			},
			"required": []string{"time_min", "time_max"},
		},
	}
}

func (t *CalendarLookup) Execute(ctx context.Context, inv agent.Invocation) (string, error) {
	timeMin := stringArg(inv.Args, "time_min")
	timeMax := stringArg(inv.Args, "time_max")
	if timeMin == "" || timeMax == "" {
		return "", fmt.Errorf("time_min and time_max are required")
	}

	cred, err := t.resolver.Resolve(ctx, inv.UserID, stringArg(inv.Args, "account"))
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("timeMin", timeMin)
	params.Set("timeMax", timeMax)
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	params.Set("maxResults", "10")
	if q := stringArg(inv.Args, "query"); q != "" {
		params.Set("q", q)
	}

	var res struct {
		Items []googleEvent `json:"items"`
	}
	reqURL := t.base + "/calendars/primary/events?" + params.Encode()
	if err := doJSON(ctx, t.client, http.MethodGet, reqURL, cred.AccessToken, nil, &res); err != nil {
		return "", fmt.Errorf("calendar lookup: %w", err)
	}

	events := make([]map[string]interface{}, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, compactEvent(item))
	}
	return marshalPayload(map[string]interface{}{
		"events":  events,
		"count":   len(events),
		"account": cred.Email,
	}), nil
}

// CalendarCreate books a new event on the user's primary calendar and
// invites the given attendees.
type CalendarCreate struct {
	resolver provider.AccountResolver
	client   *http.Client
	base     string
}

func NewCalendarCreate(resolver provider.AccountResolver) *CalendarCreate {
	return &CalendarCreate{resolver: resolver, client: newHTTPClient(), base: googleCalendarBase}
}

func (t *CalendarCreate) Definition() llm.Tool {
	return llm.Tool{
		Name: string(agent.ToolCalendarCreate),
		Description: "Create a calendar event. Only call after the user stated a concrete " +
			"time; never guess one.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Event title.",
				},
				"start": map[string]interface{}{
					"type":        "string",
					"description": "Start instant, RFC3339 in the user's timezone.",
				},
				"end": map[string]interface{}{
					"type":        "string",
					"description": "End instant, RFC3339. Defaults to one hour after start.",
				},
				"attendees": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Attendee email addresses.",
				},
				"location": map[string]interface{}{
					"type": "string",
				},
				"description": map[string]interface{}{
					"type": "string",
				},
				"account": map[string]interface{}{
					"type":        "string",
					"description": "Optional account email (or fragment) when the user has several.",
				},
			},
			"required": []string{"title", "start"},
		},
	}
}

func (t *CalendarCreate) Execute(ctx context.Context, inv agent.Invocation) (string, error) {
	title := stringArg(inv.Args, "title")
	startRaw := stringArg(inv.Args, "start")
	if title == "" || startRaw == "" {
		return "", fmt.Errorf("title and start are required")
	}

	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return "", fmt.Errorf("start must be RFC3339: %w", err)
	}
	endRaw := stringArg(inv.Args, "end")
	if endRaw == "" {
		endRaw = start.Add(time.Hour).Format(time.RFC3339)
	}

	cred, err := t.resolver.Resolve(ctx, inv.UserID, stringArg(inv.Args, "account"))
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"summary": title,
		"start":   googleEventTime{DateTime: startRaw, TimeZone: inv.Timezone},
		"end":     googleEventTime{DateTime: endRaw, TimeZone: inv.Timezone},
	}
	if loc := stringArg(inv.Args, "location"); loc != "" {
		body["location"] = loc
	}
	if desc := stringArg(inv.Args, "description"); desc != "" {
		body["description"] = desc
	}
	if attendees := stringListArg(inv.Args, "attendees"); len(attendees) > 0 {
		list := make([]map[string]string, 0, len(attendees))
		for _, email := range attendees {
			list = append(list, map[string]string{"email": email})
		}
		body["attendees"] = list
	}

	var created googleEvent
	reqURL := t.base + "/calendars/primary/events?sendUpdates=all"
	if err := doJSON(ctx, t.client, http.MethodPost, reqURL, cred.AccessToken, body, &created); err != nil {
		return "", fmt.Errorf("calendar create: %w", err)
	}

	return marshalPayload(map[string]interface{}{
		"created":  true,
		"event_id": created.Id,
		"title":    created.Summary,
		"start":    created.Start.value(),
		"link":     created.HtmlLink,
		"account":  cred.Email,
	}), nil
}
