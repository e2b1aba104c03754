package api

import "encoding/json"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleToolResult marks a locally produced tool result. The API rejects
	// the OpenAI "tool" role, so this role is rewritten to "assistant" on
	// the wire (MarshalJSON below); the tool_call_id field keeps the
	// linkage to the invocation it answers.
	RoleToolResult Role = "tool-result"
)

// Message is one conversation entry. An assistant message carries content,
// tool calls, or both; a tool-result message carries ToolCallID, Name and
// the serialized tool output in Content.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	type wire Message
	w := wire(m)
	if w.Role == RoleToolResult {
		w.Role = RoleAssistant
	}
	return json.Marshal(w)
}

// ToolCall is a tool invocation requested by the model. Arguments is raw
// text claimed to be JSON; it is untrusted until validated.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSchema is the declaration embedded in outbound chat requests.
type ToolSchema struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type ChatRequest struct {
	Model       string       `json:"model"`
	Messages    []Message    `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
	Tools       []ToolSchema `json:"tools,omitempty"`
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates usage across turns.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Model is one entry of the model catalog. ID is an opaque
// provider::apiVersion::modelName identifier.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// RepoSpec selects a repository for context search, by name or by id.
type RepoSpec struct {
	Name string `json:"name,omitempty"`
	ID   string `json:"id,omitempty"`
}

type ContextRequest struct {
	Query            string     `json:"query"`
	Repos            []RepoSpec `json:"repos"`
	CodeResultsCount int        `json:"codeResultsCount,omitempty"`
	TextResultsCount int        `json:"textResultsCount,omitempty"`
	FilePatterns     []string   `json:"filePatterns,omitempty"`
	Version          string     `json:"version,omitempty"`
}

type ContextResponse struct {
	Results []ContextResult `json:"results"`
}

type ContextResult struct {
	Blob         Blob   `json:"blob"`
	StartLine    int    `json:"startLine"`
	EndLine      int    `json:"endLine"`
	ChunkContent string `json:"chunkContent"`
}

type Blob struct {
	Path       string     `json:"path"`
	Repository Repository `json:"repository"`
	Commit     Commit     `json:"commit"`
	URL        string     `json:"url"`
}

type Repository struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type Commit struct {
	OID string `json:"oid"`
}
