package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-1.5-flash"

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int32
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.cfg.Model }

// Complete отправляет инструкцию и картинку одним запросом и возвращает текст ответа как есть.
func (e *Engine) Complete(ctx context.Context, prompt string, img []byte, mime string) (string, error) {
	if e.cfg.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.cfg.APIKey))
	if err != nil {
		return "", fmt.Errorf("gemini: new client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.cfg.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(e.cfg.Temperature),
	}
	if e.cfg.MaxTokens > 0 {
		m.GenerationConfig.MaxOutputTokens = ptrInt32(e.cfg.MaxTokens)
	}

	parts := []genai.Part{
		genai.Text(prompt),
		&genai.Blob{MIMEType: mime, Data: img},
	}
	// без ретраев: одна неудачная попытка сразу превращается в ошибку
	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	txt := firstText(resp)
	if txt == "" {
		return "", fmt.Errorf("gemini: empty response%s", blockReason(resp))
	}
	return txt, nil
}

// firstText concatenates the text parts of the first candidate that has any.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func blockReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return " (blocked: " + resp.PromptFeedback.BlockReason.String() + ")"
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		if fr := resp.Candidates[0].FinishReason; fr != genai.FinishReasonUnspecified && fr != genai.FinishReasonStop {
			return " (finish: " + fr.String() + ")"
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
