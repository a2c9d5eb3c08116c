package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNavigatorStartsAtWelcome(t *testing.T) {
	nav := NewNavigator()
	require.Equal(t, StepWelcome, nav.Current())
}

func TestNavigatorFollowsEdges(t *testing.T) {
	nav := NewNavigator()

	require.NoError(t, nav.Go(StepAuthChoice))
	require.NoError(t, nav.Go(StepLogin))
	require.Equal(t, StepLogin, nav.Current())
}

func TestNavigatorRejectsIllegalEdges(t *testing.T) {
	cases := []struct {
		name string
		path []Step
		to   Step
	}{
		{"welcome to chat", nil, StepChat},
		{"welcome to main menu", nil, StepMainMenu},
		{"login has no manual exit", []Step{StepAuthChoice, StepLogin}, StepMainMenu},
		{"welcome to facial", nil, StepFacialDetection},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nav := NewNavigator()
			for _, step := range tc.path {
				require.NoError(t, nav.Go(step))
			}
			before := nav.Current()

			err := nav.Go(tc.to)
			var illegal *ErrIllegalTransition
			require.ErrorAs(t, err, &illegal)
			require.Equal(t, before, illegal.From)
			require.Equal(t, tc.to, illegal.To)
			require.Equal(t, before, nav.Current(), "a rejected transition must not move the cursor")
		})
	}
}

func TestNavigatorFeatureStepsReturnToMainMenu(t *testing.T) {
	for _, feature := range []Step{StepChat, StepFacialDetection, StepVoiceRecording} {
		nav := NewNavigator()
		nav.force(StepMainMenu)

		require.NoError(t, nav.Go(feature))
		require.NoError(t, nav.Go(StepMainMenu))
	}
}

func TestNavigatorForcePanicsOnUnknownStep(t *testing.T) {
	nav := NewNavigator()
	require.Panics(t, func() { nav.force(Step(42)) })
}

func TestErrIllegalTransitionMessage(t *testing.T) {
	err := error(&ErrIllegalTransition{From: StepWelcome, To: StepChat})
	require.EqualError(t, err, "illegal step transition welcome -> chat")
	require.False(t, errors.Is(err, ErrInvalidSpeed))
}
