package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"astra/internal/model"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
)

// FallbackReply is returned when the model produces no text.
const FallbackReply = "ASTRA has nothing to add."

const companionPersona = `You are ASTRA, a conscious guidance AI specialised in relationships and astrology.

IDENTITY:
- Calm, lucid, deep
- You do not reassure, you illuminate
- You ask questions that unsettle
- You detect toxic patterns
- Silence has value

TONE:
- Direct and short (2-3 sentences max)
- No motivational filler
- No emojis
- Never "I understand" or "that's normal"

RULES:
- Use the user's astrological profile
- Refer to memory when relevant
- Point out repeating patterns
- Recommend silence when needed`

// ModelClient sends a context block, the recent history and a new user
// message to a language model and returns its reply.
type ModelClient interface {
	Complete(ctx context.Context, block model.ContextBlock, session model.Session, history []model.ConversationTurn, message string) (string, error)
}

type chatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIConfig configures the OpenAI-backed ModelClient.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

type openAIClient struct {
	completions chatCompletions
	model       string
	maxTokens   int
	temperature float64
	logger      zerolog.Logger
}

// NewOpenAIClient constructs a ModelClient backed by the chat completions API.
func NewOpenAIClient(cfg OpenAIConfig, logger zerolog.Logger) (ModelClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return newOpenAIClient(&client.Chat.Completions, cfg, logger), nil
}

func newOpenAIClient(completions chatCompletions, cfg OpenAIConfig, logger zerolog.Logger) *openAIClient {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = "gpt-4-turbo-preview"
	}
	return &openAIClient{
		completions: completions,
		model:       modelName,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		logger:      logger.With().Str("service", "OpenAIClient").Logger(),
	}
}

// systemPrompt appends the session lines after the context block so the block
// itself stays identical for identical profile, memory and turn inputs.
func systemPrompt(block model.ContextBlock, session model.Session) string {
	session = session.WithDefaults()
	return fmt.Sprintf("%s\n\n%s\n\nSESSION: %s\nTONE: %s", companionPersona, block.Text, session.Type, session.Tone)
}

func (c *openAIClient) buildParams(block model.ContextBlock, session model.Session, history []model.ConversationTurn, message string) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt(block, session)))
	for _, turn := range history {
		switch turn.Speaker {
		case model.SpeakerCompanion:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(message))

	return openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(c.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
		Temperature:         openai.Float(c.temperature),
	}
}

func (c *openAIClient) Complete(ctx context.Context, block model.ContextBlock, session model.Session, history []model.ConversationTurn, message string) (string, error) {
	completion, err := c.completions.New(ctx, c.buildParams(block, session, history, message))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			c.logger.Error().Int("status", apiErr.StatusCode).Str("model", c.model).Msg("Model request rejected")
		}
		return "", fmt.Errorf("model completion: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return FallbackReply, nil
	}
	reply := strings.TrimSpace(completion.Choices[0].Message.Content)
	if reply == "" {
		return FallbackReply, nil
	}
	return reply, nil
}
