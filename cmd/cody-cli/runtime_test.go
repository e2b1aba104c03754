package main

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestConfig writes a TOML config pointing at the given endpoint and
// returns flags selecting it; the -env path points into the temp dir so a
// developer's local .env never leaks into tests.
func writeTestConfig(t *testing.T, endpoint string) []string {
	t.Helper()
	for _, key := range []string{"SOURCEGRAPH_URL", "SOURCEGRAPH_ACCESS_TOKEN", "SOURCEGRAPH_X_REQUESTED_WITH", "SOURCEGRAPH_MODEL"} {
		t.Setenv(key, "")
	}
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.toml")
	content := `
url = "` + endpoint + `"
token = "sgp_test_token"
responses_dir = "` + filepath.ToSlash(filepath.Join(tmp, "responses")) + `"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return []string{"-config", cfgPath, "-env", filepath.Join(tmp, ".env")}
}
