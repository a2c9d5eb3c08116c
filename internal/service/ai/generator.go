package ai

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/empathyai/companion/internal/analysis/emotion"
	"github.com/empathyai/companion/internal/model/chat"
)

// Generator produces empathetic replies from fixed rules. It is the fallback
// when no chat model is configured and the safety net when the model errors.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator seeds a generator from the clock.
func NewGenerator() *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

var copingStrategies = map[emotion.Label][]string{
	emotion.Sad: {
		"try taking a short walk in nature",
		"listen to uplifting music",
		"reach out to a friend for support",
	},
	emotion.Angry: {
		"practice deep breathing exercises",
		"write down your thoughts in a journal",
		"engage in physical exercise to release tension",
	},
	emotion.Fearful: {
		"try a mindfulness meditation",
		"visualize a calm and safe place",
		"break down your concerns into smaller, manageable parts",
	},
	emotion.Happy: {
		"share your happiness with others",
		"practice gratitude by noting what you're thankful for",
		"engage in an activity that brings you more joy",
	},
	emotion.Surprised: {
		"take a moment to process your feelings",
		"consider the potential opportunities this surprise might bring",
		"share your experience with someone you trust",
	},
}

var defaultStrategies = []string{
	"take a few deep breaths",
	"reflect on your feelings",
	"consider talking to someone you trust",
}

var followUps = map[emotion.Label][]string{
	emotion.Sad: {
		"How long have you been feeling this way?",
		"Is there something specific that's particularly upsetting?",
		"Have you experienced similar feelings of sadness before?",
	},
	emotion.Happy: {
		"What's the best part of this that's making you feel this way?",
		"How do you think you can maintain this positive feeling?",
		"Would you like to share this joy with someone special?",
	},
	emotion.Angry: {
		"What about this is frustrating you the most?",
		"Have you tried any strategies to manage your anger?",
		"Is there a way to address the source of your anger directly?",
	},
	emotion.Fearful: {
		"What's the worst outcome you're worried about?",
		"Has anything helped you feel safer in moments like this before?",
		"Would it help to talk through what's making you anxious?",
	},
	emotion.Surprised: {
		"How are you feeling now that you've had a moment to take it in?",
		"Was this a welcome surprise or an unsettling one?",
	},
}

var defaultFollowUps = []string{
	"Would you like to tell me more about that?",
	"How are you feeling about it right now?",
	"What do you think would help most at this moment?",
}

// Reply builds an empathetic response to text given the detected emotion.
func (g *Generator) Reply(emotionTag, text string) string {
	label := normalizeEmotion(emotionTag)

	var b strings.Builder
	b.WriteString("Good ")
	b.WriteString(g.timeContext())
	b.WriteString(". ")
	b.WriteString(emotion.Reflection(label))
	b.WriteString(" When you're ready, you could ")
	b.WriteString(g.pick(copingStrategies[label], defaultStrategies))
	b.WriteString(". ")
	b.WriteString(g.pick(followUps[label], defaultFollowUps))
	return b.String()
}

// timeContext buckets the current hour the way the companion greets.
func (g *Generator) timeContext() string {
	hour := g.now().Hour()
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

func (g *Generator) pick(options, fallback []string) string {
	if len(options) == 0 {
		options = fallback
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return options[g.rng.Intn(len(options))]
}

// normalizeEmotion maps request emotion tags onto the vocabulary. The
// transcription sentinel and unknown tags read as neutral.
func normalizeEmotion(tag string) emotion.Label {
	label := emotion.Label(strings.ToLower(strings.TrimSpace(tag)))
	if label == "" || label == chat.EmotionTranscribed || !emotion.Known(label) {
		return emotion.Neutral
	}
	return label
}

// describeHistory renders recent turns for the model prompt.
func describeHistory(messages []chat.Message, limit int) string {
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Sender, m.Text)
	}
	return b.String()
}
