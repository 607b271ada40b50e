package classifier

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/calloway/papergraph/internal/paper"
)

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType string
		wantConf float64
		wantFail bool
	}{
		{
			name:     "bare json",
			raw:      `{"relationship_type": "extends", "confidence": 0.75, "evidence": "builds on"}`,
			wantType: "extends",
			wantConf: 0.75,
		},
		{
			name:     "fenced json",
			raw:      "Here is my analysis:\n```json\n{\"relationship_type\": \"supports\", \"confidence\": 0.6, \"evidence\": \"similar\"}\n```\nDone.",
			wantType: "supports",
			wantConf: 0.6,
		},
		{
			name:     "fence without language tag",
			raw:      "```\n{\"relationship_type\": \"contradicts\", \"confidence\": 0.9, \"evidence\": \"conflict\"}\n```",
			wantType: "contradicts",
			wantConf: 0.9,
		},
		{
			name:     "json embedded in prose",
			raw:      `The relationship is {"relationship_type": "none", "confidence": 0.2, "evidence": "unrelated"} as shown.`,
			wantType: "none",
			wantConf: 0.2,
		},
		{
			name:     "unknown type collapses to none",
			raw:      `{"relationship_type": "builds_on", "confidence": 0.8, "evidence": "x"}`,
			wantType: "none",
			wantConf: 0.8,
		},
		{
			name:     "confidence clamped high",
			raw:      `{"relationship_type": "extends", "confidence": 1.7, "evidence": "x"}`,
			wantType: "extends",
			wantConf: 1.0,
		},
		{
			name:     "confidence clamped low",
			raw:      `{"relationship_type": "extends", "confidence": -0.3, "evidence": "x"}`,
			wantType: "extends",
			wantConf: 0.0,
		},
		{
			name:     "no json at all",
			raw:      "I cannot determine a relationship between these papers.",
			wantFail: true,
		},
		{
			name:     "malformed json",
			raw:      `{"relationship_type": "extends", "confidence": }`,
			wantFail: true,
		},
		{
			name:     "empty response",
			raw:      "",
			wantFail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseOutcome(tt.raw)
			if tt.wantFail {
				if got.ParseFailure == nil {
					t.Fatalf("parseOutcome(%q) = %+v, want ParseFailure", tt.raw, got)
				}
				if got.ParseFailure.Raw != tt.raw {
					t.Error("ParseFailure must carry the raw text")
				}
				if !got.IsNone() {
					t.Error("a ParseFailure outcome must be IsNone")
				}
				return
			}
			if got.Ok == nil {
				t.Fatalf("parseOutcome(%q) = ParseFailure, want Ok", tt.raw)
			}
			if got.Ok.Type != tt.wantType {
				t.Errorf("type = %q, want %q", got.Ok.Type, tt.wantType)
			}
			if got.Ok.Confidence != tt.wantConf {
				t.Errorf("confidence = %v, want %v", got.Ok.Confidence, tt.wantConf)
			}
		})
	}
}

func TestOutcome_IsNone(t *testing.T) {
	ok := Outcome{Ok: &Judgment{Type: "extends", Confidence: 0.8}}
	if ok.IsNone() {
		t.Error("extends outcome should not be none")
	}
	none := Outcome{Ok: &Judgment{Type: "none"}}
	if !none.IsNone() {
		t.Error("none outcome should be none")
	}
}

func TestBuildPairPrompt_NoAbstract(t *testing.T) {
	src := &paper.Paper{Title: "New", Authors: []string{"A"}, KeyFinding: "finding-only text"}
	tgt := &paper.Paper{Title: "Old", Authors: []string{"B"}, Abstract: "old abstract"}

	prompt := buildPairPrompt(src, tgt)

	if !strings.Contains(prompt, "Abstract: Unknown") {
		t.Error("missing abstract should render as Unknown, not repeat the key finding")
	}
	if got := strings.Count(prompt, "finding-only text"); got != 1 {
		t.Errorf("key finding appears %d times in prompt, want 1", got)
	}
	if !strings.Contains(prompt, "Abstract: old abstract") {
		t.Error("target abstract missing from prompt")
	}
}

func TestGeminiClient_Classify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"{\"relationship_type\": \"extends\", \"confidence\": 0.8, \"evidence\": \"reuses the method\"}"}]}}]}`)
	}))
	defer srv.Close()

	c := NewGeminiClient(WithAPIKey("test-key"), WithBaseURL(srv.URL))

	src := &paper.Paper{Title: "New", Authors: []string{"A"}, Abstract: "new work"}
	tgt := &paper.Paper{Title: "Old", Authors: []string{"B"}, Abstract: "old work"}

	out, err := c.Classify(context.Background(), src, tgt)
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if out.Ok == nil || out.Ok.Type != "extends" || out.Ok.Confidence != 0.8 {
		t.Errorf("Classify() = %+v", out)
	}
}

func TestGeminiClient_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewGeminiClient(WithAPIKey("bad"), WithBaseURL(srv.URL))
	_, err := c.Classify(context.Background(), &paper.Paper{}, &paper.Paper{})
	if err == nil || !IsAuthError(err) {
		t.Errorf("Classify() error = %v, want auth error", err)
	}
}

func TestGeminiClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewGeminiClient(WithAPIKey("k"), WithBaseURL(srv.URL))
	_, err := c.Classify(context.Background(), &paper.Paper{}, &paper.Paper{})
	if err == nil || !IsRateLimited(err) {
		t.Errorf("Classify() error = %v, want rate limited", err)
	}
}

func TestGeminiClient_UnparseableModelOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"I am not sure about these papers."}]}}]}`)
	}))
	defer srv.Close()

	c := NewGeminiClient(WithAPIKey("k"), WithBaseURL(srv.URL))
	out, err := c.Classify(context.Background(), &paper.Paper{}, &paper.Paper{})
	if err != nil {
		t.Fatalf("Classify() error = %v; prose output is data, not a transport error", err)
	}
	if out.ParseFailure == nil {
		t.Errorf("Classify() = %+v, want ParseFailure", out)
	}
}
