package practice

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()

	assert.Equal(t, "Dr. Gal Goldhaber", p.Doctor.Name)
	assert.Equal(t, "Goldhaber Medical Center", p.Clinic.Name)
	assert.Len(t, p.Services, 5)
	assert.Len(t, p.Conditions, 4)
	assert.Len(t, p.Chatbot.FallbackReplies, 3)
	assert.Contains(t, p.Chatbot.AppointmentTriggers, "תור")
	assert.Contains(t, p.Chatbot.SystemPrompt, "NEVER provide medical diagnosis")
	assert.NotEmpty(t, p.Chatbot.BookingPrompt)
	assert.Len(t, p.Clinic.Hours, 7)
}

func TestProfile_ServiceLookup(t *testing.T) {
	p := Default()

	s, ok := p.Service("home-visits")
	require.True(t, ok)
	assert.Equal(t, "₪600", s.Price)

	assert.True(t, p.HasService("pediatric-care"))
	assert.False(t, p.HasService("surgery"))
	assert.False(t, p.HasService(""))
}

func TestProfile_ConditionLookup(t *testing.T) {
	p := Default()

	c, ok := p.Condition("asthma")
	require.True(t, ok)
	assert.Equal(t, "Chronic Diseases", c.Category)
	assert.Contains(t, c.Symptoms, "Wheezing")

	_, ok = p.Condition("unknown")
	assert.False(t, ok)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		errorMsg string
	}{
		{
			name:     "no services",
			yaml:     "chatbot: {systemPrompt: x, bookingPrompt: y, fallbackReplies: [z]}",
			errorMsg: "at least one service",
		},
		{
			name: "duplicate service id",
			yaml: `services: [{id: a, name: A}, {id: a, name: B}]
chatbot: {systemPrompt: x, bookingPrompt: y, fallbackReplies: [z]}`,
			errorMsg: "duplicate service id",
		},
		{
			name:     "missing system prompt",
			yaml:     "services: [{id: a}]\nchatbot: {bookingPrompt: y, fallbackReplies: [z]}",
			errorMsg: "systemPrompt",
		},
		{
			name:     "missing fallback replies",
			yaml:     "services: [{id: a}]\nchatbot: {systemPrompt: x, bookingPrompt: y}",
			errorMsg: "fallbackReplies",
		},
		{
			name:     "malformed yaml",
			yaml:     "services: [",
			errorMsg: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestLoad(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Medical Assistant", p.Chatbot.Name)

	path := filepath.Join(t.TempDir(), "practice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`services: [{id: checkup, name: Checkup}]
chatbot:
  systemPrompt: Be brief.
  bookingPrompt: Press the button.
  fallbackReplies: [Call us.]
`), 0o600))

	p, err = Load(path)
	require.NoError(t, err)
	assert.True(t, p.HasService("checkup"))
	assert.Equal(t, []string{"Call us."}, p.Chatbot.FallbackReplies)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
