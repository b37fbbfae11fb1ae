package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/josecalvo/rubi/backend/internal/config"
	"github.com/josecalvo/rubi/backend/internal/logger"
	chatmodel "github.com/josecalvo/rubi/backend/internal/model/chat"
)

// Service wraps the LLM provider behind the two calls the pipeline needs:
// a token stream for chat turns and a plain completion for the learning
// extractor.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
	log       *logger.Logger
}

// NewService builds the chat model and compiles the prompt chain.
func NewService(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
		log:       log.With("service", "ai"),
	}, nil
}

// StreamReply opens a token stream for one chat turn. History must not
// include the user message being answered; it is passed separately.
func (s *Service) StreamReply(ctx context.Context, systemPrompt string, history []chatmodel.Message, userMessage string) (*schema.StreamReader[*schema.Message], error) {
	input := map[string]any{
		"system":  systemPrompt,
		"history": toSchemaMessages(history),
		"query":   userMessage,
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("stream chat chain: %w", err)
	}
	return stream, nil
}

// Complete runs a single non-streaming prompt and returns the reply text.
func (s *Service) Complete(ctx context.Context, promptText string) (string, error) {
	response, err := s.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(promptText)})
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	return response.Content, nil
}

func toSchemaMessages(messages []chatmodel.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chatmodel.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chatmodel.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}
