package chat

// Message is one turn of the conversation as supplied by the front end.
// Image, when set, is base64 encoded.
type Message struct {
	Role    Role    `json:"role"`
	Content string  `json:"content"`
	Image   *string `json:"image"`
}

// GenerationConfig is fixed for the lifetime of one prompt.
type GenerationConfig struct {
	Model       string  `json:"language_model"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	TopK        uint32  `json:"top_k"`
}

type Prompt struct {
	RequestID string           `json:"request_id,omitempty"`
	Config    GenerationConfig `json:"config"`
	History   []Message        `json:"context"`
}

// Fragment is emitted once per backend chunk that carries a message. The
// fragment with Done set is the last one of its request.
type Fragment struct {
	RequestID  string  `json:"request_id"`
	Model      string  `json:"model"`
	Message    Message `json:"message"`
	CreatedAt  string  `json:"created_at"`
	Done       bool    `json:"done"`
	DoneReason string  `json:"done_reason,omitempty"`
}

const (
	DoneReasonCancelled = "cancelled"
	DoneReasonTimeout   = "timeout"
)
