package openai

import (
	"github.com/koscakluka/ema-playground/core/llms"
	goopenai "github.com/sashabaranov/go-openai"
)

func toOpenAIMessages(instructions string, turns []llms.Turn) []goopenai.ChatCompletionMessage {
	messages := []goopenai.ChatCompletionMessage{}
	if instructions != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: instructions,
		})
	}

	for _, turn := range turns {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleUser,
			Content: turn.Prompt,
		})

		if turn.Response == "" {
			continue
		}
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleAssistant,
			Content: turn.Response,
		})
	}
	return messages
}
