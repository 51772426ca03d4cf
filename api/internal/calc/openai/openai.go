package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"calc-be/api/internal/util"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultBaseURL = "https://api.openai.com/v1/"
)

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int64
}

type Engine struct {
	cfg    Config
	client *openai.Client
}

func New(cfg Config) *Engine {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)
	return &Engine{cfg: cfg, client: client}
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.cfg.Model }

func (e *Engine) Complete(ctx context.Context, prompt string, img []byte, mime string) (string, error) {
	if e.cfg.APIKey == "" {
		return "", errors.New("OPENAI_API_KEY is empty")
	}
	dataURL := util.MakeDataURL(mime, img)

	params := openai.ChatCompletionNewParams{
		Model: openai.F(e.cfg.Model),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessageParts(
				openai.TextPart(prompt),
				openai.ImagePart(dataURL),
			),
		}),
		Temperature: openai.F(e.cfg.Temperature),
	}
	if e.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.F(e.cfg.MaxTokens)
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	out := resp.Choices[0].Message.Content
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("openai: empty content (finish: %s)", resp.Choices[0].FinishReason)
	}
	return out, nil
}
