package providers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/bookvoice/internal/audio"
)

func TestMockClient(t *testing.T) {
	t.Run("echoes last user message", func(t *testing.T) {
		c := NewMockClient()

		result, err := c.Chat(context.Background(), &ChatRequest{
			Model: "test-model",
			Messages: []Message{
				{Role: "system", Content: "Translate."},
				{Role: "user", Content: "Dobrý den."},
			},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Errorf("Success = false, want true")
		}
		if result.Content != "Dobrý den." {
			t.Errorf("Content = %q, want %q", result.Content, "Dobrý den.")
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", c.RequestCount())
		}
	})

	t.Run("fixed response", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "hello world"

		result, err := c.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != "hello world" {
			t.Errorf("Content = %q, want %q", result.Content, "hello world")
		}
	})

	t.Run("failure", func(t *testing.T) {
		c := NewMockClient()
		c.ShouldFail = true

		result, err := c.Chat(context.Background(), &ChatRequest{})
		if err == nil {
			t.Error("expected error, got nil")
		}
		if result.Success {
			t.Error("expected Success = false")
		}
	})

	t.Run("fail after N", func(t *testing.T) {
		c := NewMockClient()
		c.FailAfter = 2

		for i := 0; i < 2; i++ {
			if _, err := c.Chat(context.Background(), &ChatRequest{}); err != nil {
				t.Fatalf("request %d should succeed: %v", i+1, err)
			}
		}
		if _, err := c.Chat(context.Background(), &ChatRequest{}); err == nil {
			t.Error("third request should fail")
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		c := NewMockClient()
		c.Latency = 5 * time.Second

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Chat(ctx, &ChatRequest{})
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestMockTTS(t *testing.T) {
	p := NewMockTTS()
	p.MSPerChar = 10

	result, err := p.Generate(context.Background(), &TTSRequest{Text: "Ahoj svete"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.DurationMS != 100 {
		t.Errorf("DurationMS = %d, want 100", result.DurationMS)
	}
	if result.Format != "wav" {
		t.Errorf("Format = %q, want wav", result.Format)
	}
	wav, err := audio.ParseWAV(result.Audio)
	if err != nil {
		t.Fatalf("ParseWAV() error = %v", err)
	}
	if got := wav.Duration(); got < 0.099 || got > 0.101 {
		t.Errorf("Duration = %f, want 0.1", got)
	}

	if _, err := p.Generate(context.Background(), &TTSRequest{}); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows initial requests", func(t *testing.T) {
		limiter := NewRateLimiter(10, 5)

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("took too long: %v", elapsed)
		}
	})

	t.Run("unlimited", func(t *testing.T) {
		limiter := NewRateLimiter(0, 0)
		for i := 0; i < 100; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
		}
		if got := limiter.Status().TotalConsumed; got != 100 {
			t.Errorf("TotalConsumed = %d, want 100", got)
		}
	})

	t.Run("record 429", func(t *testing.T) {
		limiter := NewRateLimiter(60, 1)

		limiter.Record429(time.Second)

		status := limiter.Status()
		if status.Last429Time.IsZero() {
			t.Error("Last429Time should be set")
		}
		if !status.PausedUntil.After(time.Now()) {
			t.Error("PausedUntil should be in the future")
		}
	})

	t.Run("pause respects cancellation", func(t *testing.T) {
		limiter := NewRateLimiter(60, 1)
		limiter.Record429(time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := limiter.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		limiter := NewRateLimiter(1, 1)
		_ = limiter.Wait(context.Background())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := limiter.Wait(ctx); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		limiter := NewRateLimiter(1000, 10)

		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := limiter.Wait(context.Background()); err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		if failures.Load() > 0 {
			t.Errorf("had %d errors", failures.Load())
		}
		if got := limiter.Status().TotalConsumed; got != 10 {
			t.Errorf("TotalConsumed = %d, want 10", got)
		}
	})
}

func TestGuard(t *testing.T) {
	fast := RetryPolicy{Attempts: 3, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	t.Run("retries transient failures", func(t *testing.T) {
		g := NewGuard(nil, fast, nil)
		calls := 0
		got, attempts, err := Do(context.Background(), g, "test", func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", &StatusError{Provider: "test", StatusCode: http.StatusBadGateway}
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if got != "ok" {
			t.Errorf("result = %q, want ok", got)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("client errors are final", func(t *testing.T) {
		g := NewGuard(nil, fast, nil)
		_, attempts, err := Do(context.Background(), g, "test", func(ctx context.Context) (int, error) {
			return 0, &StatusError{Provider: "test", StatusCode: http.StatusUnauthorized, Message: "bad key"}
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401 StatusError, got %v", err)
		}
	})

	t.Run("rate limit pauses limiter", func(t *testing.T) {
		limiter := NewRateLimiter(0, 1)
		g := NewGuard(limiter, RetryPolicy{Attempts: 2, Delay: time.Millisecond}, nil)
		calls := 0
		_, _, err := Do(context.Background(), g, "test", func(ctx context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, &RateLimitError{Message: "slow down", RetryAfter: 10 * time.Millisecond, StatusCode: http.StatusTooManyRequests}
			}
			return 1, nil
		})
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if limiter.Status().Last429Time.IsZero() {
			t.Error("expected limiter to record the 429")
		}
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		g := NewGuard(nil, fast, nil)
		_, attempts, err := Do(context.Background(), g, "test", func(ctx context.Context) (int, error) {
			return 0, errors.New("connection reset")
		})
		if err == nil || err.Error() != "connection reset" {
			t.Fatalf("expected last error, got %v", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"0.5", 500 * time.Millisecond},
		{"-1", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
