package providers

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
)

const (
	openAITTSDefaultModel = "gpt-4o-mini-tts"
	openAITTSDefaultVoice = "echo"

	// Speech responses carry no usage block. USD per 1M tokens.
	openAIGPT4oMiniTTSInputCostPer1M       = 0.60
	openAIGPT4oMiniTTSOutputAudioCostPer1M = 12.00
)

// OpenAITTSConfig holds configuration for the OpenAI TTS client.
type OpenAITTSConfig struct {
	APIKey       string
	Model        string        // "gpt-4o-mini-tts" (default), "tts-1", "tts-1-hd"
	Voice        string        // "echo" (default)
	Speed        float64       // clamped to 0.25-4.0
	Instructions string        // Used by gpt-4o-mini-tts
	RateLimit    float64       // Requests per second
	MaxRetries   int           // Attempts made by Guard
	Timeout      time.Duration // HTTP timeout
	BaseURL      string        // Optional (tests)
	HTTPClient   *http.Client  // Optional (tests)
}

// OpenAITTSClient implements TTSProvider using the official OpenAI SDK.
type OpenAITTSClient struct {
	openAIConn
	model        string
	voice        string
	speed        float64
	instructions string
}

// NewOpenAITTSClient creates a new OpenAI TTS client.
func NewOpenAITTSClient(cfg OpenAITTSConfig) *OpenAITTSClient {
	if cfg.Model == "" {
		cfg.Model = openAITTSDefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = openAITTSDefaultVoice
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	cfg.Speed = math.Max(0.25, math.Min(4.0, cfg.Speed))
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 8.0
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}

	return &OpenAITTSClient{
		openAIConn:   newOpenAIConn(cfg.APIKey, cfg.BaseURL, cfg.HTTPClient, cfg.Timeout, cfg.MaxRetries, cfg.RateLimit),
		model:        cfg.Model,
		voice:        cfg.Voice,
		speed:        cfg.Speed,
		instructions: cfg.Instructions,
	}
}

// Name returns the provider identifier.
func (c *OpenAITTSClient) Name() string {
	return OpenAIName
}

// Model returns the configured default model.
func (c *OpenAITTSClient) Model() string {
	return c.model
}

// Voice returns the configured default voice.
func (c *OpenAITTSClient) Voice() string {
	return c.voice
}

// Generate converts text to audio using the speech endpoint.
func (c *OpenAITTSClient) Generate(ctx context.Context, req *TTSRequest) (*TTSResult, error) {
	start := time.Now()
	fail := func(err error, chars int) (*TTSResult, error) {
		return &TTSResult{
			ErrorMessage:  err.Error(),
			CharCount:     chars,
			ExecutionTime: time.Since(start),
		}, err
	}

	if req == nil {
		return fail(fmt.Errorf("request is required"), 0)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return fail(fmt.Errorf("text is required"), 0)
	}
	chars := len([]rune(text))

	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = c.voice
	}

	format := normalizeOpenAIFormat(req.Format)
	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(c.model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: format,
		Speed:          openai.Float(c.speed),
	}

	instructions := strings.TrimSpace(req.Instructions)
	if instructions == "" {
		instructions = strings.TrimSpace(c.instructions)
	}
	if instructions != "" && supportsInstructions(c.model) {
		params.Instructions = openai.String(instructions)
	}

	resp, err := c.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return fail(mapOpenAIError("OpenAI TTS", err), chars)
	}
	defer resp.Body.Close()

	audioBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("failed reading openai audio response: %w", err), chars)
	}

	// ~150 words per minute at ~5 characters per word.
	estimatedDurationMS := (chars * 60 * 1000) / (150 * 5)

	return &TTSResult{
		Success:       true,
		Audio:         audioBytes,
		DurationMS:    estimatedDurationMS,
		Format:        openAIResultFormat(format),
		CostUSD:       estimateOpenAITTSCostUSD(c.model, text, estimatedDurationMS),
		CharCount:     chars,
		ExecutionTime: time.Since(start),
		RequestID:     resp.Header.Get("x-request-id"),
	}, nil
}

func estimateOpenAITTSCostUSD(model, text string, durationMS int) float64 {
	chars := float64(len([]rune(text)))
	model = strings.TrimSpace(strings.ToLower(model))
	switch {
	case model == "tts-1-hd":
		return chars * (0.03 / 1000.0)
	case model == "tts-1":
		return chars * (0.015 / 1000.0)
	case strings.HasPrefix(model, "gpt-4o-mini-tts"):
		textTokens := estimateTextTokens(text)
		audioTokens := estimateAudioTokens(durationMS)
		return float64(textTokens)*(openAIGPT4oMiniTTSInputCostPer1M/1_000_000.0) +
			float64(audioTokens)*(openAIGPT4oMiniTTSOutputAudioCostPer1M/1_000_000.0)
	default:
		return chars * (0.015 / 1000.0)
	}
}

func estimateTextTokens(text string) int {
	runes := len([]rune(strings.TrimSpace(text)))
	if runes == 0 {
		return 0
	}
	return int(math.Ceil(float64(runes) / 4.0))
}

// ~50 audio tokens per second.
func estimateAudioTokens(durationMS int) int {
	if durationMS <= 0 {
		return 0
	}
	return int(math.Ceil(float64(durationMS) / 1000.0 * 50.0))
}

// ListVoices returns the built-in OpenAI TTS voice list.
func (c *OpenAITTSClient) ListVoices(_ context.Context) ([]Voice, error) {
	names := []string{
		"alloy", "ash", "ballad", "coral", "echo", "fable", "nova",
		"onyx", "sage", "shimmer", "verse", "marin", "cedar",
	}
	voices := make([]Voice, 0, len(names))
	for _, name := range names {
		voices = append(voices, Voice{VoiceID: name, Name: name})
	}
	return voices, nil
}

func supportsInstructions(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-4o-mini-tts")
}

func normalizeOpenAIFormat(format string) openai.AudioSpeechNewParamsResponseFormat {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "mp3":
		return openai.AudioSpeechNewParamsResponseFormatMP3
	case "opus":
		return openai.AudioSpeechNewParamsResponseFormatOpus
	case "aac":
		return openai.AudioSpeechNewParamsResponseFormatAAC
	case "flac":
		return openai.AudioSpeechNewParamsResponseFormatFLAC
	case "pcm":
		return openai.AudioSpeechNewParamsResponseFormatPCM
	default:
		return openai.AudioSpeechNewParamsResponseFormatWAV
	}
}

func openAIResultFormat(format openai.AudioSpeechNewParamsResponseFormat) string {
	switch format {
	case openai.AudioSpeechNewParamsResponseFormatMP3:
		return "mp3"
	case openai.AudioSpeechNewParamsResponseFormatOpus:
		return "opus"
	case openai.AudioSpeechNewParamsResponseFormatAAC:
		return "aac"
	case openai.AudioSpeechNewParamsResponseFormatFLAC:
		return "flac"
	case openai.AudioSpeechNewParamsResponseFormatPCM:
		return "pcm"
	default:
		return "wav"
	}
}

var _ TTSProvider = (*OpenAITTSClient)(nil)
var _ VoicesLister = (*OpenAITTSClient)(nil)
