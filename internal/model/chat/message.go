package chat

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// EmotionTranscribed marks a user message that originated from a voice
// transcription rather than the text box.
const EmotionTranscribed = "transcribed"

// Message is a single turn in a user's chat log. Messages are append-only:
// once created they are never mutated or deleted.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Emotion   string    `json:"emotion,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Valid reports whether the sender is one of the two known values.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAI
}
