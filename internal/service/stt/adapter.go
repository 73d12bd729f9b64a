// Package stt defines the streaming recognizer contract. A recognizer is an
// alternative source for the user segment stream when the coordinator
// receives raw audio instead of transcribed segments.
package stt

import "context"

// Callback receives recognition results. Results carry no utterance id;
// the receiver assigns one per utterance and rotates it on end of
// utterance.
type Callback interface {
	// OnPartial delivers an interim transcript of the current utterance.
	OnPartial(text string)

	// OnFinal delivers the final transcript of the current utterance.
	OnFinal(text string, confidence float64)

	// OnEndOfUtterance marks the end of the current utterance.
	OnEndOfUtterance()

	// OnError reports a recognition failure. The stream may continue.
	OnError(err error)
}

// Adapter is a streaming recognizer (Google, mock).
type Adapter interface {
	// Start opens the recognition stream; results go to cb.
	Start(ctx context.Context, cb Callback) error

	// SendAudio feeds one chunk of audio.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the stream and releases resources.
	Close() error
}
