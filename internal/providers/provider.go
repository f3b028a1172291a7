package providers

import (
	"context"
	"time"
)

// LLMClient sends chat completion requests. Translation and narration
// rewriting both go through it.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openai").
	Name() string
}

// TTSProvider converts text to audio.
type TTSProvider interface {
	// Name returns the provider identifier.
	Name() string

	// Generate synthesizes one piece of text.
	Generate(ctx context.Context, req *TTSRequest) (*TTSResult, error)
}

// VoicesLister is implemented by TTS providers that can enumerate voices.
type VoicesLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}

// Voice is one selectable TTS voice.
type Voice struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	Content string `json:"content"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`

	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`

	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// TTSRequest is a single synthesis request.
type TTSRequest struct {
	Text         string
	Voice        string // provider default if empty
	Format       string // "mp3", "wav", ...
	Instructions string // style hint for models that support it
}

// TTSResult is the response from a TTS provider.
type TTSResult struct {
	Success bool
	Audio   []byte

	DurationMS int
	Format     string
	SampleRate int

	CostUSD       float64
	CharCount     int
	ExecutionTime time.Duration
	RequestID     string
	ErrorMessage  string
}
