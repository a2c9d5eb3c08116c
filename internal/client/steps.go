package client

import (
	"fmt"
	"sync"
)

// Step is one screen in the fixed interaction flow.
type Step int

const (
	StepWelcome Step = iota
	StepAuthChoice
	StepLogin
	StepSignUp
	StepMainMenu
	StepChat
	StepFacialDetection
	StepVoiceRecording
)

var stepNames = map[Step]string{
	StepWelcome:         "welcome",
	StepAuthChoice:      "auth-choice",
	StepLogin:           "login",
	StepSignUp:          "signup",
	StepMainMenu:        "main-menu",
	StepChat:            "chat",
	StepFacialDetection: "facial-detection",
	StepVoiceRecording:  "voice-recording",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// transitions is the full edge set. Every edge is an explicit button press;
// the only other movements are the session gate's forced jumps.
var transitions = map[Step][]Step{
	StepWelcome:         {StepAuthChoice},
	StepAuthChoice:      {StepLogin, StepSignUp},
	StepLogin:           {},
	StepSignUp:          {},
	StepMainMenu:        {StepChat, StepFacialDetection, StepVoiceRecording},
	StepChat:            {StepMainMenu},
	StepFacialDetection: {StepMainMenu},
	StepVoiceRecording:  {StepMainMenu},
}

// ErrIllegalTransition is returned when a requested step is not reachable
// from the current one.
type ErrIllegalTransition struct {
	From, To Step
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal step transition %s -> %s", e.From, e.To)
}

// Navigator is the linear screen cursor. The zero value starts at the
// welcome step.
type Navigator struct {
	mu      sync.RWMutex
	current Step
}

// NewNavigator starts at the welcome step.
func NewNavigator() *Navigator {
	return &Navigator{current: StepWelcome}
}

// Current returns the active step.
func (n *Navigator) Current() Step {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

// Go moves along an explicit edge of the transition table.
func (n *Navigator) Go(to Step) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, allowed := range transitions[n.current] {
		if allowed == to {
			n.current = to
			return nil
		}
	}
	return &ErrIllegalTransition{From: n.current, To: to}
}

// force jumps to a step regardless of the table. Reserved for the session
// gate's sign-in and sign-out resets.
func (n *Navigator) force(to Step) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, known := stepNames[to]; !known {
		// Out-of-range steps are unrepresentable by construction.
		panic(fmt.Sprintf("force to unknown step %d", int(to)))
	}
	n.current = to
}
