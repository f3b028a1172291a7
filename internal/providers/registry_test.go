package providers

import (
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get LLM", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()

		r.RegisterLLM("test-llm", mock)

		client, guard, err := r.GetLLM("test-llm")
		if err != nil {
			t.Fatalf("GetLLM() error = %v", err)
		}
		if client != mock {
			t.Error("got different client than registered")
		}
		if guard == nil {
			t.Error("expected a guard")
		}
	})

	t.Run("register and get TTS", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockTTS()

		r.RegisterTTS("test-tts", mock)

		provider, _, err := r.GetTTS("test-tts")
		if err != nil {
			t.Fatalf("GetTTS() error = %v", err)
		}
		if provider != mock {
			t.Error("got different provider than registered")
		}
	})

	t.Run("get nonexistent", func(t *testing.T) {
		r := NewRegistry()
		if _, _, err := r.GetLLM("nonexistent"); err == nil {
			t.Error("expected error for nonexistent LLM")
		}
		if _, _, err := r.GetTTS("nonexistent"); err == nil {
			t.Error("expected error for nonexistent TTS")
		}
	})

	t.Run("list providers", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("llm2", NewMockClient())
		r.RegisterLLM("llm1", NewMockClient())
		r.RegisterTTS("tts1", NewMockTTS())

		llmList := r.ListLLM()
		if len(llmList) != 2 || llmList[0] != "llm1" {
			t.Errorf("ListLLM() = %v, want sorted [llm1 llm2]", llmList)
		}
		if got := r.ListTTS(); len(got) != 1 {
			t.Errorf("ListTTS() returned %d items, want 1", len(got))
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.RegisterLLM("concurrent-llm", NewMockClient())
			}()
			go func() {
				defer wg.Done()
				_, _, _ = r.GetLLM("concurrent-llm")
			}()
		}
		wg.Wait()
	})
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Run("registers providers from config", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"openai": {Type: "openai", Model: "gpt-4.1-mini", APIKey: "test-key", Enabled: true},
				"mock":   {Type: "mock", Enabled: true},
			},
			TTSProviders: map[string]TTSProviderConfig{
				"openai": {Type: "openai", Model: "gpt-4o-mini-tts", Voice: "echo", APIKey: "test-key", Enabled: true},
			},
		})

		if _, _, err := r.GetLLM("openai"); err != nil {
			t.Error("expected openai LLM to be registered")
		}
		if _, _, err := r.GetLLM("mock"); err != nil {
			t.Error("expected mock LLM to be registered without an API key")
		}
		tts, _, err := r.GetTTS("openai")
		if err != nil {
			t.Fatal("expected openai TTS provider to be registered")
		}
		if c, ok := tts.(*OpenAITTSClient); !ok || c.Voice() != "echo" {
			t.Errorf("unexpected TTS provider %T", tts)
		}
	})

	t.Run("skips disabled and keyless providers", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"disabled": {Type: "openai", APIKey: "test-key", Enabled: false},
				"keyless":  {Type: "openai", Enabled: true},
			},
			TTSProviders: map[string]TTSProviderConfig{
				"unknown": {Type: "elevator", APIKey: "test-key", Enabled: true},
			},
		})

		if len(r.ListLLM()) != 0 {
			t.Errorf("expected no LLM clients, got %v", r.ListLLM())
		}
		if len(r.ListTTS()) != 0 {
			t.Errorf("expected no TTS providers, got %v", r.ListTTS())
		}
	})
}

func TestRegistryReload(t *testing.T) {
	r := NewRegistryFromConfig(RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"a": {Type: "mock", Enabled: true},
			"b": {Type: "mock", Enabled: true},
		},
	})
	before, _, _ := r.GetLLM("a")

	r.Reload(RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"a": {Type: "mock", Enabled: true},
			"c": {Type: "mock", Model: "x", Enabled: true},
		},
	})

	after, _, err := r.GetLLM("a")
	if err != nil {
		t.Fatalf("GetLLM(a) error = %v", err)
	}
	if before != after {
		t.Error("unchanged provider should not be re-created")
	}
	if _, _, err := r.GetLLM("b"); err == nil {
		t.Error("expected b to be unregistered")
	}
	if _, _, err := r.GetLLM("c"); err != nil {
		t.Error("expected c to be registered")
	}

	r.Reload(RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"a": {Type: "mock", Model: "changed", Enabled: true},
		},
	})
	changed, _, _ := r.GetLLM("a")
	if changed == before {
		t.Error("changed provider should be re-created")
	}
}
