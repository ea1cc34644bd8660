package chat

import (
	"encoding/base64"
	"fmt"

	"github.com/bz888/murmur/internal/ollama"
)

// Translate builds the Ollama chat request for history. Messages with an
// unrecognized role are skipped; everything else keeps its order. An image
// that is not valid base64 fails the whole translation.
func Translate(history []Message, cfg GenerationConfig) (*ollama.ChatRequest, error) {
	messages := make([]ollama.Message, 0, len(history))

	for i, msg := range history {
		var out ollama.Message
		switch msg.Role {
		case RoleUser:
			out = ollama.Message{Role: ollama.RoleUser, Content: msg.Content}
		case RoleAssistant:
			out = ollama.Message{Role: ollama.RoleAssistant, Content: msg.Content}
		default:
			continue
		}

		if msg.Image != nil {
			img, err := base64.StdEncoding.DecodeString(*msg.Image)
			if err != nil {
				return nil, fmt.Errorf("%w: message %d: %w", ErrImageDecode, i, err)
			}
			out.Images = []ollama.ImageData{img}
		}

		messages = append(messages, out)
	}

	return &ollama.ChatRequest{
		Model:    cfg.Model,
		Messages: messages,
		Stream:   true,
		Options: &ollama.Options{
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			TopK:        cfg.TopK,
		},
	}, nil
}

// Unrecognized returns the messages Translate would skip.
func Unrecognized(history []Message) []Message {
	var dropped []Message
	for _, msg := range history {
		if !msg.Role.Recognized() {
			dropped = append(dropped, msg)
		}
	}
	return dropped
}
