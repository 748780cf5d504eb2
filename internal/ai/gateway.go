// Package ai provides a provider-agnostic LLM gateway used to draft rubrics
// and grade student work.
package ai

import "context"

// TaskType names the kind of completion for routing and logging.
type TaskType int

const (
	TaskRubric TaskType = iota
	TaskGrading
)

func (t TaskType) String() string {
	switch t {
	case TaskRubric:
		return "rubric"
	case TaskGrading:
		return "grading"
	default:
		return "unknown"
	}
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a completion.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Task        TaskType  `json:"task,omitempty"`
	// JSONMode asks the provider for a single JSON object reply.
	JSONMode bool `json:"json_mode,omitempty"`
}

// CompletionResponse is the output of a completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Completer is what rubric generation and grading need from the gateway.
// Router and every Provider satisfy it.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Provider is the interface all LLM providers implement.
type Provider interface {
	Completer
	HealthCheck(ctx context.Context) error
}
