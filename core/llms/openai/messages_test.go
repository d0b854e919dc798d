package openai

import (
	"testing"

	"github.com/koscakluka/ema-playground/core/llms"
	goopenai "github.com/sashabaranov/go-openai"
)

func TestToOpenAIMessagesReplaysHistoryInOrder(t *testing.T) {
	turns := []llms.Turn{
		{Prompt: "first prompt", Response: "first response"},
		{Prompt: "unanswered prompt"},
		{Prompt: "third prompt", Response: "third response"},
	}

	messages := toOpenAIMessages("be nice", turns)

	expected := []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: "be nice"},
		{Role: goopenai.ChatMessageRoleUser, Content: "first prompt"},
		{Role: goopenai.ChatMessageRoleAssistant, Content: "first response"},
		{Role: goopenai.ChatMessageRoleUser, Content: "unanswered prompt"},
		{Role: goopenai.ChatMessageRoleUser, Content: "third prompt"},
		{Role: goopenai.ChatMessageRoleAssistant, Content: "third response"},
	}

	if len(messages) != len(expected) {
		t.Fatalf("expected %d messages, got %d", len(expected), len(messages))
	}
	for i := range expected {
		if messages[i].Role != expected[i].Role || messages[i].Content != expected[i].Content {
			t.Fatalf("unexpected message %d: %+v", i, messages[i])
		}
	}
}

func TestToOpenAIMessagesSkipsEmptyInstructions(t *testing.T) {
	messages := toOpenAIMessages("", nil)

	if len(messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(messages))
	}
}
