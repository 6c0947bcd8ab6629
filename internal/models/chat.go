package models

// Chat roles forwarded to the language model
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of the widget transcript
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries the full transcript plus the message just typed
type ChatRequest struct {
	Messages   []ChatMessage `json:"messages" binding:"max=100"`
	NewMessage string        `json:"newMessage" binding:"required,max=4000"`
}

// ChatResponse is a single assistant reply
type ChatResponse struct {
	Response      string `json:"response"`
	BookingPrompt bool   `json:"bookingPrompt"`
}
