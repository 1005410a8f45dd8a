package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"ai-context-engine/pkg/agent"
	"ai-context-engine/pkg/provider"
)

type staticResolver struct {
	cred *provider.Credential
	err  error
}

func (r staticResolver) Resolve(ctx context.Context, userId uuid.UUID, hint string) (*provider.Credential, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.cred, nil
}

func okResolver() staticResolver {
	return staticResolver{cred: &provider.Credential{AccessToken: "tok-1", Email: "me@example.com"}}
}

func testInvocation(args map[string]interface{}) agent.Invocation {
	return agent.Invocation{
		UserID:   uuid.MustParse("6f9619ff-8b86-4d01-b42d-00cf4fc964ff"),
		CallID:   "call-1",
		Args:     args,
		Timezone: "America/New_York",
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func decodePayload(t *testing.T, payload string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		t.Fatalf("payload is not JSON: %v\n%s", err, payload)
	}
	return out
}

// listField pulls a JSON array of objects out of a decoded payload.
func listField(t *testing.T, payload map[string]interface{}, key string) []map[string]interface{} {
	t.Helper()
	raw, ok := payload[key].([]interface{})
	if !ok {
		t.Fatalf("payload[%q] is %T, want array", key, payload[key])
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			t.Fatalf("payload[%q] element is %T, want object", key, item)
		}
		out = append(out, entry)
	}
	return out
}

func TestDoJSONRetriesOnceOnServerError(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	if err := doJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, "", nil, &out); err != nil {
		t.Fatalf("doJSON: %v", err)
	}
	if hits != 2 {
		t.Errorf("hits = %d, want 2", hits)
	}
	if !out.OK {
		t.Error("response body was not decoded")
	}
}

func TestDoJSONGivesUpAfterOneRetry(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := doJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, "", nil, nil)
	if err == nil {
		t.Fatal("expected error after retry exhausted")
	}
	if hits != 2 {
		t.Errorf("hits = %d, want 2", hits)
	}
}

func TestDoJSONMapsUnauthorizedToReconnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := doJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, "tok", nil, nil)
	if !errors.Is(err, provider.ErrReconnectRequired) {
		t.Fatalf("err = %v, want ErrReconnectRequired", err)
	}
}

func TestDoJSONSendsBearerAndBody(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	payload := map[string]string{"k": "v"}
	if err := doJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL, "tok-9", payload, nil); err != nil {
		t.Fatalf("doJSON: %v", err)
	}
	if gotAuth != "Bearer tok-9" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody["k"] != "v" {
		t.Errorf("body = %v", gotBody)
	}
}
