package chat

import "errors"

var (
	// ErrBackendUnavailable covers failures to reach Ollama, to open a chat
	// stream or list models, and errors Ollama reports mid-stream.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrStreamDecode means a chunk could not be decoded. The stream is
	// aborted; fragments emitted before it stand.
	ErrStreamDecode = errors.New("stream decode error")

	// ErrSinkUnavailable means the event sink rejected a fragment.
	ErrSinkUnavailable = errors.New("event sink unavailable")

	// ErrCancelled means the caller's context ended before the stream did.
	ErrCancelled = errors.New("prompt cancelled")

	// ErrImageDecode means a message image was not valid base64.
	ErrImageDecode = errors.New("image decode error")
)
