package chat

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bz888/murmur/internal/ollama"
)

func strPtr(s string) *string { return &s }

var testConfig = GenerationConfig{Model: "llava:7b", Temperature: 0.8, TopP: 0.9, TopK: 40}

func TestTranslatePreservesOrderAndDropsUnknownRoles(t *testing.T) {
	history := []Message{
		{Role: "system", Content: "You can ask me **questions**"},
		{Role: RoleUser, Content: "one"},
		{Role: RoleAssistant, Content: "two"},
		{Role: "tool", Content: "ignored"},
		{Role: RoleUser, Content: "three"},
	}

	req, err := Translate(history, testConfig)
	require.NoError(t, err)

	assert.Equal(t, []ollama.Message{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}, req.Messages)
	assert.Equal(t, "llava:7b", req.Model)
	assert.True(t, req.Stream)
}

func TestTranslateIgnoresUnknownRolesEntirely(t *testing.T) {
	clean := []Message{
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, Content: "a"},
	}
	noisy := []Message{
		{Role: "system", Content: "s"},
		{Role: RoleUser, Content: "q"},
		{Role: "User", Content: "wrong case"},
		{Role: RoleAssistant, Content: "a"},
		{Role: "", Content: "empty"},
	}

	want, err := Translate(clean, testConfig)
	require.NoError(t, err)
	got, err := Translate(noisy, testConfig)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestTranslateOptions(t *testing.T) {
	req, err := Translate(nil, GenerationConfig{Model: "m", Temperature: 0.2, TopP: 0.5, TopK: 7})
	require.NoError(t, err)

	assert.Empty(t, req.Messages)
	assert.NotNil(t, req.Messages)
	assert.Equal(t, &ollama.Options{Temperature: 0.2, TopP: 0.5, TopK: 7}, req.Options)
}

func TestTranslateDecodesImage(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	history := []Message{{
		Role:    RoleUser,
		Content: "what is this?",
		Image:   strPtr(base64.StdEncoding.EncodeToString(raw)),
	}}

	req, err := Translate(history, testConfig)
	require.NoError(t, err)

	require.Len(t, req.Messages, 1)
	assert.Equal(t, []ollama.ImageData{raw}, req.Messages[0].Images)
}

func TestTranslateRejectsMalformedImage(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Content: "fine"},
		{Role: RoleUser, Content: "broken", Image: strPtr("not base64!")},
	}

	req, err := Translate(history, testConfig)

	assert.Nil(t, req)
	assert.ErrorIs(t, err, ErrImageDecode)
	assert.ErrorContains(t, err, "message 1")
}

func TestTranslateSkipsImageOfDroppedMessage(t *testing.T) {
	history := []Message{{Role: "system", Image: strPtr("not base64!")}}

	req, err := Translate(history, testConfig)
	require.NoError(t, err)
	assert.Empty(t, req.Messages)
}

func TestUnrecognized(t *testing.T) {
	history := []Message{
		{Role: "system", Content: "s"},
		{Role: RoleUser, Content: "q"},
		{Role: "tool", Content: "t"},
	}

	dropped := Unrecognized(history)
	require.Len(t, dropped, 2)
	assert.Equal(t, "system", dropped[0].Role.String())
	assert.Equal(t, "tool", dropped[1].Role.String())
}

func TestRoleRecognized(t *testing.T) {
	assert.True(t, RoleUser.Recognized())
	assert.True(t, RoleAssistant.Recognized())
	assert.False(t, Role("system").Recognized())
	assert.False(t, Role("").Recognized())
}
