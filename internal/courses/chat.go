package courses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

const assistantPersona = `You are Birdie AI, a helpful assistant for the "Hole 'N One" golf course and tee time booking website.
Your primary goal is to assist users with finding golf courses and booking tee times.
You are knowledgeable about golf courses, tee times, and the features of the "Hole 'N One" website.
Encourage users to use the search bar to find courses.
If a user asks about booking, guide them to use the "Book Now" buttons on the course cards.
Keep your responses concise and focused on golf and website functionality.`

// Chat answers one user turn. The conversation is stateless: the caller sends
// the history and gets it back extended with this exchange.
func (s *Service) Chat(ctx context.Context, req schemas.ChatRequest) (*schemas.ChatResponse, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, fmt.Errorf("chat model is not configured")
	}

	start := time.Now()
	resp, err := s.llm.Generate(ctx, schemas.GenerationRequest{
		Role:         schemas.RoleChat,
		SystemPrompt: assistantPersona,
		UserPrompt:   chatTranscript(req.History, msg),
	})
	observe("chat", start)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		return nil, fmt.Errorf("chat model returned an empty response")
	}

	history := make([]schemas.ChatMessage, 0, len(req.History)+2)
	history = append(history, req.History...)
	history = append(history,
		schemas.ChatMessage{Role: "user", Content: msg},
		schemas.ChatMessage{Role: "assistant", Content: reply},
	)
	return &schemas.ChatResponse{Response: reply, History: history}, nil
}

// chatTranscript flattens prior turns into the prompt, ending with the new message.
func chatTranscript(history []schemas.ChatMessage, msg string) string {
	if len(history) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, m := range history {
		if m.Role == "system" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	fmt.Fprintf(&b, "\nuser: %s", msg)
	return b.String()
}
