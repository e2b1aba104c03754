package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRunContext_RendersResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.api/cody/context" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Query string `json:"query"`
			Repos []struct {
				Name string `json:"name"`
				ID   string `json:"id"`
			} `json:"repos"`
			CodeResultsCount int    `json:"codeResultsCount"`
			Version          string `json:"version"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Query != "token validation" {
			t.Errorf("query = %q", req.Query)
		}
		if len(req.Repos) != 2 || req.Repos[0].Name != "github.com/acme/widgets" || req.Repos[1].ID == "" {
			t.Errorf("repos = %+v", req.Repos)
		}
		if req.CodeResultsCount != 3 || req.Version != "2.0" {
			t.Errorf("counts/version = %d %q", req.CodeResultsCount, req.Version)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{
				"blob": map[string]any{
					"path":       "internal/auth/token.go",
					"repository": map[string]any{"name": "github.com/acme/widgets"},
					"commit":     map[string]any{"oid": "deadbeef"},
				},
				"startLine":    10,
				"endLine":      24,
				"chunkContent": "func Validate() error {\n\treturn nil\n}",
			}},
		})
	}))
	t.Cleanup(srv.Close)

	args := append(writeTestConfig(t, srv.URL),
		"-repo", "github.com/acme/widgets",
		"-repo-id", "UmVwbzox",
		"-code-results", "3",
		"token", "validation")
	var out bytes.Buffer
	if err := runContext(args, &out); err != nil {
		t.Fatalf("runContext: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Context results (1)", "internal/auth/token.go:10-24", "func Validate() error {"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunContext_RequiresRepoAndQuery(t *testing.T) {
	var out bytes.Buffer
	if err := runContext([]string{"-repo", "github.com/acme/widgets"}, &out); err == nil {
		t.Fatalf("expected error for missing query")
	}
	if err := runContext([]string{"some", "query"}, &out); err == nil {
		t.Fatalf("expected error for missing repo")
	}
}
