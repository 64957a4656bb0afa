package policy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"creativegen/internal/domain"
)

func TestStaticDefaultsToSafe(t *testing.T) {
	v, err := Static{}.Check(context.Background(), domain.GenerationRequest{})
	if err != nil || v.Risk != RiskSafe {
		t.Fatalf("verdict = %+v err = %v", v, err)
	}
}

func TestChainKeepsWorstVerdict(t *testing.T) {
	chain := Chain{
		Static{Verdict: Verdict{Risk: RiskSafe}},
		Static{Verdict: Verdict{Risk: RiskUnsafe, Details: []string{"logo detected"}}},
		Static{Verdict: Verdict{Risk: RiskReview, Details: []string{"face detected"}}},
	}
	v, err := chain.Check(context.Background(), domain.GenerationRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v.Risk != RiskUnsafe || len(v.Details) != 2 {
		t.Fatalf("verdict = %+v", v)
	}
}

func TestNewModerationRequiresKey(t *testing.T) {
	if _, err := NewModeration(ModerationOptions{}); domain.KindOf(err) != domain.KindConfiguration {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func moderationServer(t *testing.T, flagged []bool, gotInput *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/moderations") {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode body: %v (%s)", err, body)
		}
		*gotInput = req.Input
		results := make([]map[string]any, len(flagged))
		for i, f := range flagged {
			results[i] = map[string]any{"flagged": f, "categories": map[string]bool{}, "category_scores": map[string]float64{}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "modr-1", "model": req.Model, "results": results})
	}))
}

func TestModerationFlagsUnsafeText(t *testing.T) {
	var input []string
	srv := moderationServer(t, []bool{false, true}, &input)
	defer srv.Close()

	m, err := NewModeration(ModerationOptions{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"})
	if err != nil {
		t.Fatalf("NewModeration: %v", err)
	}
	req := domain.GenerationRequest{Augmentations: []string{"show the product", "something nasty"}}
	v, err := m.Check(context.Background(), req)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v.Risk != RiskUnsafe || len(v.Details) != 1 || !strings.Contains(v.Details[0], "augmentation 2") {
		t.Fatalf("verdict = %+v", v)
	}
	if len(input) != 2 {
		t.Fatalf("sent input = %v", input)
	}
}

func TestModerationSkipsEmptyText(t *testing.T) {
	m, err := NewModeration(ModerationOptions{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1/"})
	if err != nil {
		t.Fatalf("NewModeration: %v", err)
	}
	v, err := m.Check(context.Background(), domain.GenerationRequest{})
	if err != nil || v.Risk != RiskSafe {
		t.Fatalf("verdict = %+v err = %v", v, err)
	}
}
