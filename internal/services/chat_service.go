package services

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/goldhabermd/clinic-api/config"
	"github.com/goldhabermd/clinic-api/internal/models"
	"github.com/goldhabermd/clinic-api/internal/practice"
	"github.com/goldhabermd/clinic-api/pkg/anthropic"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"github.com/goldhabermd/clinic-api/pkg/metrics"
	"github.com/goldhabermd/clinic-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ChatService relays the widget conversation to the language model. It never
// returns an error: any upstream failure becomes a canned fallback reply.
type ChatService struct {
	llm              CompletionClient
	chatbot          practice.Chatbot
	interceptBooking bool
	timeout          time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewChatService creates a new chat relay
func NewChatService(llm CompletionClient, profile *practice.Profile, cfg *config.Config) *ChatService {
	return &ChatService{
		llm:              llm,
		chatbot:          profile.Chatbot,
		interceptBooking: cfg.Chat.InterceptBooking,
		timeout:          cfg.Chat.Timeout(),
		//nolint:gosec // G404: fallback choice needs no cryptographic randomness
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand replaces the random source used to pick fallbacks (tests)
func (s *ChatService) WithRand(r *rand.Rand) *ChatService {
	s.rnd = r
	return s
}

func (s *ChatService) Reply(ctx context.Context, req *models.ChatRequest) *models.ChatResponse {
	ctx, span := tracing.StartSpan(ctx, "ChatService.Reply",
		attribute.Int("chat.transcript_length", len(req.Messages)))
	defer span.End()

	if s.interceptBooking && DetectBookingIntent(s.chatbot.AppointmentTriggers, req.NewMessage) {
		metrics.ChatReplies.WithLabelValues("booking_intercept").Inc()
		span.SetAttributes(attribute.String("chat.source", "booking_intercept"))
		return &models.ChatResponse{
			Response:      s.chatbot.BookingPrompt,
			BookingPrompt: true,
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.llm.Complete(ctx, s.chatbot.SystemPrompt, buildTranscript(req.Messages, req.NewMessage))
	if err != nil {
		tracing.RecordError(span, err)
		logger.Warn("Chat completion failed, using fallback reply", zap.Error(err))
		metrics.ChatReplies.WithLabelValues("fallback").Inc()
		span.SetAttributes(attribute.String("chat.source", "fallback"))
		return s.respond(s.fallback())
	}

	metrics.ChatReplies.WithLabelValues("model").Inc()
	span.SetAttributes(attribute.String("chat.source", "model"))
	return s.respond(text)
}

// respond shapes model and fallback replies the same way
func (s *ChatService) respond(text string) *models.ChatResponse {
	return &models.ChatResponse{
		Response:      text,
		BookingPrompt: DetectBookingIntent(s.chatbot.AppointmentTriggers, text),
	}
}

// fallback picks uniformly from the configured replies
func (s *ChatService) fallback() string {
	replies := s.chatbot.FallbackReplies
	if len(replies) == 0 {
		return ""
	}
	s.mu.Lock()
	i := s.rnd.Intn(len(replies))
	s.mu.Unlock()
	return replies[i]
}

// buildTranscript keeps user and assistant turns, drops blank ones, and shapes
// the result the way the Messages API requires: it starts with a user turn and
// roles alternate (adjacent turns of one role are joined).
func buildTranscript(history []models.ChatMessage, newMessage string) []anthropic.Message {
	all := make([]models.ChatMessage, 0, len(history)+1)
	all = append(all, history...)
	all = append(all, models.ChatMessage{Role: models.ChatRoleUser, Content: newMessage})

	out := make([]anthropic.Message, 0, len(all))
	for _, m := range all {
		if m.Role != models.ChatRoleUser && m.Role != models.ChatRoleAssistant {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		// The widget opens with an assistant greeting
		if len(out) == 0 && m.Role != models.ChatRoleUser {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + content
			continue
		}
		out = append(out, anthropic.Message{Role: m.Role, Content: content})
	}
	return out
}
