package ai

import (
	"strings"
	"testing"
	"time"

	"github.com/empathyai/companion/internal/analysis/emotion"
	"github.com/empathyai/companion/internal/model/chat"
)

func fixedClock(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2024, 5, 1, hour, 0, 0, 0, time.UTC)
	}
}

func TestTimeContextBuckets(t *testing.T) {
	g := NewGenerator()
	cases := map[int]string{6: "morning", 13: "afternoon", 22: "evening", 3: "evening"}
	for hour, want := range cases {
		g.now = fixedClock(hour)
		if got := g.timeContext(); got != want {
			t.Fatalf("hour %d: expected %s, got %s", hour, want, got)
		}
	}
}

func TestReplyReflectsEmotion(t *testing.T) {
	g := NewGenerator()
	g.now = fixedClock(9)

	reply := g.Reply("sad", "I lost my job")
	if !strings.Contains(reply, "Good morning") {
		t.Fatalf("expected greeting, got %q", reply)
	}
	if !strings.Contains(reply, emotion.Reflection(emotion.Sad)) {
		t.Fatalf("expected sad reflection, got %q", reply)
	}
}

func TestReplyUnknownEmotionReadsNeutral(t *testing.T) {
	g := NewGenerator()
	g.now = fixedClock(9)

	for _, tag := range []string{"", "bogus", chat.EmotionTranscribed} {
		reply := g.Reply(tag, "hello")
		if !strings.Contains(reply, emotion.Reflection(emotion.Neutral)) {
			t.Fatalf("tag %q: expected neutral reflection, got %q", tag, reply)
		}
	}
}

func TestNormalizeEmotion(t *testing.T) {
	if got := normalizeEmotion(" Happy "); got != emotion.Happy {
		t.Fatalf("expected happy, got %s", got)
	}
	if got := normalizeEmotion(chat.EmotionTranscribed); got != emotion.Neutral {
		t.Fatalf("expected neutral for transcription sentinel, got %s", got)
	}
}

func TestDescribeHistoryLimits(t *testing.T) {
	msgs := []chat.Message{
		{Sender: chat.SenderUser, Text: "one"},
		{Sender: chat.SenderAI, Text: "two"},
		{Sender: chat.SenderUser, Text: "three"},
	}

	got := describeHistory(msgs, 2)
	if strings.Contains(got, "one") {
		t.Fatalf("expected oldest turn trimmed, got %q", got)
	}
	if !strings.Contains(got, "ai: two") || !strings.Contains(got, "user: three") {
		t.Fatalf("unexpected history rendering: %q", got)
	}
}
