package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/empathyai/companion/internal/model/chat"
	"github.com/empathyai/companion/internal/model/user"
)

type fakeAuth struct {
	loginErr  error
	signupErr error
	logoutErr error
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (Identity, error) {
	if f.loginErr != nil {
		return Identity{}, f.loginErr
	}
	return Identity{ID: "u1", Name: "Avery", Email: email}, nil
}

func (f *fakeAuth) Signup(_ context.Context, profile user.Profile, _ string) (Identity, error) {
	if f.signupErr != nil {
		return Identity{}, f.signupErr
	}
	return Identity{ID: "u2", Name: profile.Name, Email: profile.Email}, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	return f.logoutErr
}

type fakeSubscriber struct {
	mu        sync.Mutex
	live      int
	started   int
	err       error
	onSnap    func([]chat.Message)
	cancelled int
}

func (f *fakeSubscriber) Subscribe(_ context.Context, onSnapshot func([]chat.Message), _ func(error)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.started++
	f.live++
	f.onSnap = onSnapshot
	return func() {
		f.mu.Lock()
		f.live--
		f.cancelled++
		f.mu.Unlock()
	}, nil
}

func (f *fakeSubscriber) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

func newTestGate(auth Authenticator, sub Subscriber) (*Gate, *Synchronizer, *Navigator, *[]*Error) {
	var surfaced []*Error
	sink := ErrorSink(func(e *Error) { surfaced = append(surfaced, e) })
	sync := NewSynchronizer(&fakeLog{}, &fakeReplies{}, sink)
	nav := NewNavigator()
	return NewGate(auth, sub, sync, nav, sink), sync, nav, &surfaced
}

func TestSignInJumpsToMainMenuAndSubscribes(t *testing.T) {
	sub := &fakeSubscriber{}
	gate, sync, nav, _ := newTestGate(&fakeAuth{}, sub)

	require.NoError(t, gate.SignIn(context.Background(), "avery@example.com", "pw"))

	identity, ok := gate.Identity()
	require.True(t, ok)
	require.Equal(t, "u1", identity.ID)
	require.Equal(t, StepMainMenu, nav.Current())
	require.Equal(t, 1, sub.liveCount())

	// Snapshots delivered over the subscription land in the view.
	sub.onSnap([]chat.Message{{ID: "m1", Text: "welcome back"}})
	require.Len(t, sync.Messages(), 1)
}

func TestSignInFailureChangesNothing(t *testing.T) {
	sub := &fakeSubscriber{}
	gate, _, nav, surfaced := newTestGate(&fakeAuth{loginErr: errors.New("nope")}, sub)

	require.Error(t, gate.SignIn(context.Background(), "avery@example.com", "bad"))

	_, ok := gate.Identity()
	require.False(t, ok)
	require.Equal(t, StepWelcome, nav.Current())
	require.Equal(t, 0, sub.liveCount())
	require.Len(t, *surfaced, 1)
	require.Equal(t, CategoryAuth, (*surfaced)[0].Category)
}

func TestSignUpBehavesLikeSignIn(t *testing.T) {
	sub := &fakeSubscriber{}
	gate, _, nav, _ := newTestGate(&fakeAuth{}, sub)

	profile := user.Profile{Name: "Robin", Email: "robin@example.com", Phone: "555-0100"}
	require.NoError(t, gate.SignUp(context.Background(), profile, "pw"))

	identity, ok := gate.Identity()
	require.True(t, ok)
	require.Equal(t, "Robin", identity.Name)
	require.Equal(t, StepMainMenu, nav.Current())
	require.Equal(t, 1, sub.liveCount())
}

func TestRepeatedSignInKeepsOneSubscription(t *testing.T) {
	sub := &fakeSubscriber{}
	gate, _, _, _ := newTestGate(&fakeAuth{}, sub)

	require.NoError(t, gate.SignIn(context.Background(), "a@example.com", "pw"))
	require.NoError(t, gate.SignIn(context.Background(), "a@example.com", "pw"))
	require.NoError(t, gate.SignIn(context.Background(), "a@example.com", "pw"))

	require.Equal(t, 1, sub.liveCount())
	require.Equal(t, 3, sub.started)
}

func TestSignInWithNewIdentityClearsPreviousView(t *testing.T) {
	sub := &fakeSubscriber{}
	gate, sync, _, _ := newTestGate(&fakeAuth{}, sub)

	require.NoError(t, gate.SignIn(context.Background(), "a@example.com", "pw"))
	sub.onSnap([]chat.Message{{ID: "a1", UserID: "u1", Text: "a private note"}})
	require.Len(t, sync.Messages(), 1)

	// Switching accounts without signing out first must not leak the old
	// user's messages into the new session.
	profile := user.Profile{Name: "Robin", Email: "robin@example.com"}
	require.NoError(t, gate.SignUp(context.Background(), profile, "pw"))
	require.Empty(t, sync.Messages())

	sub.onSnap([]chat.Message{{ID: "b1", UserID: "u2", Text: "hello"}})
	view := sync.Messages()
	require.Len(t, view, 1)
	require.Equal(t, "u2", view[0].UserID)
}

func TestSignOutResetsEverything(t *testing.T) {
	sub := &fakeSubscriber{}
	gate, sync, nav, _ := newTestGate(&fakeAuth{}, sub)

	require.NoError(t, gate.SignIn(context.Background(), "a@example.com", "pw"))
	sub.onSnap([]chat.Message{{ID: "m1", Text: "hello"}})

	require.NoError(t, gate.SignOut(context.Background()))

	_, ok := gate.Identity()
	require.False(t, ok)
	require.Equal(t, StepWelcome, nav.Current())
	require.Equal(t, 0, sub.liveCount())
	require.Empty(t, sync.Messages())
}

func TestFailedSignOutChangesNothing(t *testing.T) {
	sub := &fakeSubscriber{}
	auth := &fakeAuth{}
	gate, sync, nav, surfaced := newTestGate(auth, sub)

	require.NoError(t, gate.SignIn(context.Background(), "a@example.com", "pw"))
	sub.onSnap([]chat.Message{{ID: "m1", Text: "hello"}})

	auth.logoutErr = errors.New("backend down")
	require.Error(t, gate.SignOut(context.Background()))

	_, ok := gate.Identity()
	require.True(t, ok, "a failed sign-out keeps the session")
	require.Equal(t, StepMainMenu, nav.Current())
	require.Equal(t, 1, sub.liveCount())
	require.Len(t, sync.Messages(), 1)
	require.Equal(t, CategoryAuth, (*surfaced)[len(*surfaced)-1].Category)
}

func TestSubscribeFailureSurfacesSyncError(t *testing.T) {
	sub := &fakeSubscriber{err: errors.New("dial failed")}
	gate, _, nav, surfaced := newTestGate(&fakeAuth{}, sub)

	// Sign-in itself still succeeds; only the live view is degraded.
	require.NoError(t, gate.SignIn(context.Background(), "a@example.com", "pw"))
	require.Equal(t, StepMainMenu, nav.Current())
	require.Len(t, *surfaced, 1)
	require.Equal(t, CategorySync, (*surfaced)[0].Category)
}

func TestSendIsNoOpWhenSignedOut(t *testing.T) {
	log := &fakeLog{}
	var surfaced []*Error
	sink := ErrorSink(func(e *Error) { surfaced = append(surfaced, e) })
	sync := NewSynchronizer(log, &fakeReplies{}, sink)
	gate := NewGate(&fakeAuth{}, &fakeSubscriber{}, sync, NewNavigator(), sink)

	require.NoError(t, gate.Send(context.Background(), "hello", "neutral"))
	require.Empty(t, log.messages())
}
