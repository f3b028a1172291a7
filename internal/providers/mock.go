package providers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/bookvoice/internal/audio"
)

// MockName is the provider type for the offline mock providers.
const MockName = "mock"

// MockClient is an offline LLMClient. It echoes the last user message
// unless ResponseText is set.
type MockClient struct {
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	CostPerCall  float64

	requestCount atomic.Int64
}

// NewMockClient creates a mock client with no latency.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockName
}

// Chat answers a chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockName,
		ModelUsed: req.Model,
		Attempts:  1,
	}
	if err := mockFailure(c.ShouldFail, c.FailAfter, count); err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}
	if err := mockSleep(ctx, c.Latency); err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}

	content := c.ResponseText
	if content == "" {
		for i := len(req.Messages) - 1; i >= 0; i-- {
			if req.Messages[i].Role == "user" {
				content = req.Messages[i].Content
				break
			}
		}
	}

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4
	}
	result.Success = true
	result.Content = content
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	result.CostUSD = c.CostPerCall
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// MockTTS is an offline TTSProvider producing silent WAV audio whose length
// follows the text length.
type MockTTS struct {
	Latency    time.Duration
	ShouldFail bool
	FailAfter  int
	SampleRate int
	// MSPerChar sets the generated duration; defaults to 5ms.
	MSPerChar int

	requestCount atomic.Int64
}

// NewMockTTS creates a mock TTS provider.
func NewMockTTS() *MockTTS {
	return &MockTTS{SampleRate: 8000, MSPerChar: 5}
}

// Name returns the provider identifier.
func (p *MockTTS) Name() string {
	return MockName
}

// Generate returns silence sized to the request text.
func (p *MockTTS) Generate(ctx context.Context, req *TTSRequest) (*TTSResult, error) {
	start := time.Now()
	count := p.requestCount.Add(1)

	if req == nil || req.Text == "" {
		err := fmt.Errorf("text is required")
		return &TTSResult{ErrorMessage: err.Error()}, err
	}
	chars := len([]rune(req.Text))
	if err := mockFailure(p.ShouldFail, p.FailAfter, count); err != nil {
		return &TTSResult{ErrorMessage: err.Error(), CharCount: chars}, err
	}
	if err := mockSleep(ctx, p.Latency); err != nil {
		return &TTSResult{ErrorMessage: err.Error(), CharCount: chars}, err
	}

	perChar := p.MSPerChar
	if perChar <= 0 {
		perChar = 5
	}
	durationMS := chars * perChar
	return &TTSResult{
		Success:       true,
		Audio:         audio.Silence(durationMS, p.SampleRate),
		DurationMS:    durationMS,
		Format:        "wav",
		SampleRate:    p.SampleRate,
		CharCount:     chars,
		ExecutionTime: time.Since(start),
		RequestID:     fmt.Sprintf("mock-tts-%d", count),
	}, nil
}

// ListVoices returns a single mock voice.
func (p *MockTTS) ListVoices(_ context.Context) ([]Voice, error) {
	return []Voice{{VoiceID: "mock", Name: "Mock Voice"}}, nil
}

// RequestCount returns the number of requests made.
func (p *MockTTS) RequestCount() int64 {
	return p.requestCount.Load()
}

func mockFailure(always bool, after int, count int64) error {
	if always {
		return fmt.Errorf("mock provider configured to fail")
	}
	if after > 0 && int(count) > after {
		return fmt.Errorf("mock provider failed after %d requests", after)
	}
	return nil
}

func mockSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ LLMClient    = (*MockClient)(nil)
	_ TTSProvider  = (*MockTTS)(nil)
	_ VoicesLister = (*MockTTS)(nil)
)
