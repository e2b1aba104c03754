package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cody-cli/internal/logger"
)

var log = logger.Named("session")

const redactedPlaceholder = "[REDACTED]"

// Transcript renders the session to a self-contained markdown document:
// metadata header, each turn's request/response or error with timing and
// usage, tool invocations, and usage totals. The output is a pure function
// of recorded state, so flushing twice yields identical bytes.
func (r *Recorder) Transcript() ([]byte, error) {
	r.mu.Lock()
	meta := r.meta
	turns := make([]Turn, len(r.turns))
	copy(turns, r.turns)
	secrets := append([]string(nil), r.secrets...)
	r.mu.Unlock()

	var buf bytes.Buffer
	title := meta.Task
	if title == "" {
		title = "session"
	}
	fmt.Fprintf(&buf, "# Transcript: %s\n\n", title)
	fmt.Fprintf(&buf, "**Session:** %s\n\n", meta.ID)
	fmt.Fprintf(&buf, "**Started:** %s\n\n", meta.StartedAt.UTC().Format(time.RFC3339))
	if meta.Model != "" {
		fmt.Fprintf(&buf, "**Model:** %s\n\n", meta.Model)
	}
	if meta.Endpoint != "" {
		fmt.Fprintf(&buf, "**Endpoint:** %s\n\n", meta.Endpoint)
	}
	if meta.RequestedWith != "" {
		fmt.Fprintf(&buf, "**Client:** %s\n\n", meta.RequestedWith)
	}
	fmt.Fprintf(&buf, "**Turns:** %d\n\n", len(turns))
	buf.WriteString("---\n\n")

	var totals struct {
		prompt, completion, total int
	}
	for _, turn := range turns {
		fmt.Fprintf(&buf, "## Turn %d\n\n", turn.Index)
		fmt.Fprintf(&buf, "- Started: %s\n", turn.StartedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(&buf, "- Latency: %d ms\n", turn.Latency.Milliseconds())
		if turn.Failed {
			fmt.Fprintf(&buf, "- Outcome: failed\n")
		} else {
			fmt.Fprintf(&buf, "- Outcome: ok\n")
		}
		fmt.Fprintf(&buf, "- Usage: prompt=%d completion=%d total=%d\n\n",
			turn.Usage.PromptTokens, turn.Usage.CompletionTokens, turn.Usage.TotalTokens)
		totals.prompt += turn.Usage.PromptTokens
		totals.completion += turn.Usage.CompletionTokens
		totals.total += turn.Usage.TotalTokens

		if err := writeJSONBlock(&buf, "Request", turn.Request); err != nil {
			return nil, err
		}
		if turn.Response != nil {
			if err := writeJSONBlock(&buf, "Response", turn.Response); err != nil {
				return nil, err
			}
		}
		if turn.Error != "" {
			fmt.Fprintf(&buf, "### Error\n\n```\n%s\n```\n\n", turn.Error)
		}
		for _, call := range turn.ToolCalls {
			status := "ok"
			if call.Failed {
				status = "failed"
			}
			fmt.Fprintf(&buf, "### Tool call %s (%s): %s\n\n", call.Name, call.ID, status)
			fmt.Fprintf(&buf, "- Duration: %d ms\n", call.Duration.Milliseconds())
			fmt.Fprintf(&buf, "- Arguments: `%s`\n", call.Arguments)
			if call.Failed {
				fmt.Fprintf(&buf, "- Error: %s\n", call.ErrorDetail)
			} else {
				fmt.Fprintf(&buf, "- Output: `%s`\n", call.Output)
			}
			buf.WriteString("\n")
		}
	}

	buf.WriteString("---\n\n")
	fmt.Fprintf(&buf, "**Total usage:** prompt=%d completion=%d total=%d\n",
		totals.prompt, totals.completion, totals.total)

	return redact(buf.Bytes(), secrets), nil
}

// Flush writes the transcript under dir as <timestamp>_<task>.md and
// returns the artifact path. Only the filename embeds the flush clock; the
// document body is deterministic.
func (r *Recorder) Flush(dir string) (string, error) {
	content, err := r.Transcript()
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "responses"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.md", time.Now().Format("20060102_150405"), SanitizeTask(r.Metadata().Task))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	log.WithField("path", path).Info("transcript flushed")
	return path, nil
}

// SanitizeTask converts a task label into a filename fragment: only
// alphanumerics, spaces, dashes and underscores survive; spaces become
// underscores and the result is lowered.
func SanitizeTask(task string) string {
	var sb strings.Builder
	for _, r := range task {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			sb.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(sb.String())
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	cleaned = strings.ToLower(cleaned)
	if cleaned == "" {
		cleaned = "session"
	}
	return cleaned
}

// ListArtifacts lists flushed transcript filenames under dir, newest first.
func ListArtifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func writeJSONBlock(buf *bytes.Buffer, title string, payload any) error {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(buf, "### %s\n\n```json\n%s\n```\n\n", title, encoded)
	return nil
}

// redact removes every configured secret from the rendered document. This
// is a hard contract: transcripts are meant to be shared.
func redact(content []byte, secrets []string) []byte {
	for _, secret := range secrets {
		content = bytes.ReplaceAll(content, []byte(secret), []byte(redactedPlaceholder))
	}
	return content
}
