package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"office", RoleOffice},
		{"FIELD", RoleField},
		{" data ", RoleData},
		{"", RoleOffice},
		{"admin", RoleOffice},
	}

	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	for _, role := range []Role{RoleOffice, RoleField, RoleData} {
		p := SystemPrompt(role)
		if !strings.HasPrefix(p, roleFirstLine[role]) {
			t.Errorf("%s prompt should start with its role line, got %q", role, p)
		}
		if !strings.HasSuffix(p, commonSystemSuffix) {
			t.Errorf("%s prompt should end with the shared suffix", role)
		}
	}
}

func TestClient_Complete(t *testing.T) {
	var got completionRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  청소팀을 보내세요.  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", Options{Temperature: 0.3, TopP: 0.85})
	answer, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "SD-001 상태?"}}, RoleField)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if answer != "청소팀을 보내세요." {
		t.Errorf("expected trimmed answer, got %q", answer)
	}
	if auth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", auth)
	}
	if got.Model != "qwen-32b" || got.MaxTokens != 512 {
		t.Errorf("expected defaults, got model=%s max_tokens=%d", got.Model, got.MaxTokens)
	}
	if got.Temperature != 0.3 || got.TopP != 0.85 {
		t.Errorf("unexpected sampling params: %+v", got)
	}
	if len(got.Stop) != 2 || got.Stop[0] != "<|im_end|>" {
		t.Errorf("unexpected stop sequences: %v", got.Stop)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[0].Content != SystemPrompt(RoleField) {
		t.Errorf("expected system prompt first, got %+v", got.Messages)
	}
}

func TestClient_Complete_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}},
		{"null content", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[{"message":{"content":null}}]}`))
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, "", Options{})
			_, err := c.Complete(context.Background(), nil, RoleOffice)
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
			if UserMessage(err, c.Timeout()) != ServerErrorMessage {
				t.Errorf("unexpected user message %q", UserMessage(err, c.Timeout()))
			}
		})
	}
}

func TestClient_Complete_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, "", Options{Timeout: 50 * time.Millisecond})
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, RoleData)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if msg := UserMessage(err, 120*time.Second); !strings.Contains(msg, "120초") {
		t.Errorf("expected timeout seconds in message, got %q", msg)
	}
}

func TestClient_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", Options{Timeout: time.Second})
	_, err := c.Complete(context.Background(), nil, RoleOffice)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
