package emotion

// Label 表示面部表情分类器输出的情绪标签。
type Label string

const (
	Happy     Label = "happy"
	Sad       Label = "sad"
	Angry     Label = "angry"
	Surprised Label = "surprised"
	Neutral   Label = "neutral"
	Fearful   Label = "fearful"
	Disgusted Label = "disgusted"
)

// Vocabulary lists every label the classifier can produce, in canonical
// order. Dominant ties are broken by this order, first max wins.
var Vocabulary = []Label{Happy, Sad, Angry, Surprised, Neutral, Fearful, Disgusted}

// Scores maps each label to the classifier's confidence for one face.
type Scores map[Label]float64

// Dominant reduces one inference pass to the single highest-confidence label.
// The boolean is false when the scores carry no known label.
func Dominant(scores Scores) (Label, bool) {
	var best Label
	bestScore := -1.0
	for _, label := range Vocabulary {
		s, ok := scores[label]
		if !ok {
			continue
		}
		if s > bestScore {
			bestScore = s
			best = label
		}
	}
	if bestScore < 0 {
		return "", false
	}
	return best, true
}

// Known reports whether the label belongs to the vocabulary.
func Known(label Label) bool {
	for _, l := range Vocabulary {
		if l == label {
			return true
		}
	}
	return false
}

var reflections = map[Label]string{
	Happy:     "I sense joy in your expression! Would you like to share what's bringing you happiness?",
	Sad:       "I notice you're feeling down. Would you like to talk about what's troubling you?",
	Angry:     "I can see that something's frustrating you. Would you like to discuss what's bothering you?",
	Surprised: "You seem surprised! Has something unexpected caught your attention?",
	Neutral:   "You appear calm and composed. How are you feeling inside?",
	Fearful:   "I sense some anxiety or concern. Would you like to explore what's causing these feelings?",
	Disgusted: "Something seems to be bothering you. Would you like to talk about what's causing this reaction?",
}

// Reflection 返回针对当前情绪的共情式开场白。
func Reflection(label Label) string {
	if text, ok := reflections[label]; ok {
		return text
	}
	return "I notice you're expressing " + string(label) + ". Would you like to talk about how you're feeling?"
}
