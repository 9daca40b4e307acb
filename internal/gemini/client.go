// Package gemini wraps the Google Gemini API behind the single completion
// call the digest pipeline needs.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/okatrych/digestobot/internal/config"
	apperrors "github.com/okatrych/digestobot/internal/errors"
	"github.com/okatrych/digestobot/internal/retry"
)

// Client defines the chat-completion surface used by the digest pipeline.
type Client interface {
	// Complete sends the system instruction and content turns to the model
	// and returns the generated text. A safety block surfaces as a
	// BlockedError carrying the upstream reason; transient upstream
	// failures surface as UpstreamError after retries are exhausted.
	Complete(ctx context.Context, system string, contents []*genai.Content) (string, error)
}

type sdkClient struct {
	genaiClient *genai.Client
	log         *slog.Logger
	modelName   string
	temperature float32
	maxTokens   int32
	maxRetries  int
	retryDelay  time.Duration
}

// NewClient creates a Gemini client from the provided configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewValidationError("api_key", "gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("failed to create genai client", err)
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized", "model", cfg.Model)
	return &sdkClient{
		genaiClient: gi,
		log:         logger,
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

func (c *sdkClient) contentConfig(system string) *genai.GenerateContentConfig {
	temp := c.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}
	if c.maxTokens > 0 {
		cfg.MaxOutputTokens = c.maxTokens
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	return cfg
}

func (c *sdkClient) Complete(ctx context.Context, system string, contents []*genai.Content) (string, error) {
	cfg := c.contentConfig(system)

	resp, err := retry.Do(ctx, c.maxRetries+1, c.retryDelay, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		resp, err := c.genaiClient.Models.GenerateContent(ctx, c.modelName, contents, cfg)
		if err != nil {
			var apiErr *genai.APIError
			if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) {
				c.log.WarnContext(ctx, "Gemini API call failed with retriable error", "code", apiErr.Code, "error", err)
				return nil, err
			}
			c.log.ErrorContext(ctx, "Gemini API call failed", "error", err)
			return nil, retry.Stop(err)
		}
		return resp, nil
	})
	if err != nil {
		return "", apperrors.NewUpstreamError("gemini completion failed", err)
	}

	return c.extractText(ctx, resp)
}

func (c *sdkClient) extractText(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reason)
		return "", apperrors.NewBlockedError(reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", apperrors.NewUpstreamError(fmt.Sprintf("gemini returned no content, finish reason: %s", finishReason), nil)
	}

	text := resp.Text()
	if text == "" {
		c.log.WarnContext(ctx, "Gemini response text is empty")
		return "", apperrors.NewUpstreamError("gemini returned empty text", nil)
	}

	return text, nil
}
