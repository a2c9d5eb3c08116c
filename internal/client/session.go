package client

import (
	"context"
	"sync"

	"github.com/empathyai/companion/internal/model/chat"
	"github.com/empathyai/companion/internal/model/user"
)

// Identity is the signed-in user as the client sees it.
type Identity struct {
	ID    string
	Name  string
	Email string
}

// Authenticator is the remote identity provider.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (Identity, error)
	Signup(ctx context.Context, profile user.Profile, password string) (Identity, error)
	Logout(ctx context.Context) error
}

// Subscriber establishes the live chat-log subscription for the current
// identity. The returned cancel tears the subscription down; onError fires
// once per outage.
type Subscriber interface {
	Subscribe(ctx context.Context, onSnapshot func([]chat.Message), onError func(error)) (cancel func(), err error)
}

// Gate tracks the signed-in identity and owns the side effects of every
// transition: the forced navigation jumps and the single live subscription.
type Gate struct {
	auth   Authenticator
	sub    Subscriber
	sync   *Synchronizer
	nav    *Navigator
	errors ErrorSink

	mu        sync.Mutex
	identity  Identity
	signedIn  bool
	cancelSub func()
}

// NewGate wires the gate to its collaborators.
func NewGate(auth Authenticator, sub Subscriber, sync *Synchronizer, nav *Navigator, errors ErrorSink) *Gate {
	return &Gate{auth: auth, sub: sub, sync: sync, nav: nav, errors: errors}
}

// Identity returns the current identity and whether anyone is signed in.
func (g *Gate) Identity() (Identity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identity, g.signedIn
}

// SignIn submits credentials. On success the navigator jumps to the main
// menu and the chat subscription is (re)established; on failure an auth
// error surfaces and navigation stays put.
func (g *Gate) SignIn(ctx context.Context, email, password string) error {
	identity, err := g.auth.Login(ctx, email, password)
	if err != nil {
		g.errors.emit(CategoryAuth, "Failed to sign in. Please check your credentials.", err)
		return err
	}

	g.enterSignedIn(ctx, identity)
	return nil
}

// SignUp creates an account with a profile record and signs the caller in.
func (g *Gate) SignUp(ctx context.Context, profile user.Profile, password string) error {
	identity, err := g.auth.Signup(ctx, profile, password)
	if err != nil {
		g.errors.emit(CategoryAuth, "Failed to create account. Please try again.", err)
		return err
	}

	g.enterSignedIn(ctx, identity)
	return nil
}

// SignOut invalidates the session, clears the message view and resets the
// navigator to the welcome step. A failed sign-out changes nothing.
func (g *Gate) SignOut(ctx context.Context) error {
	if err := g.auth.Logout(ctx); err != nil {
		g.errors.emit(CategoryAuth, "Failed to sign out. Please try again.", err)
		return err
	}

	g.mu.Lock()
	cancel := g.cancelSub
	g.cancelSub = nil
	g.identity = Identity{}
	g.signedIn = false
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	g.sync.Reset()
	g.nav.force(StepWelcome)
	return nil
}

// Send routes a composed message through the synchronizer under the current
// identity. Signed out, it is a no-op.
func (g *Gate) Send(ctx context.Context, text, emotionTag string) error {
	identity, ok := g.Identity()
	if !ok {
		return nil
	}
	return g.sync.Send(ctx, identity.ID, text, emotionTag)
}

func (g *Gate) enterSignedIn(ctx context.Context, identity Identity) {
	g.mu.Lock()
	prevCancel := g.cancelSub
	g.cancelSub = nil
	g.identity = identity
	g.signedIn = true
	g.mu.Unlock()

	// Exactly one live subscription: tear down the old one first.
	if prevCancel != nil {
		prevCancel()
	}

	// The view starts empty for the new identity; anything a previous
	// session merged must never surface here. The fresh subscription
	// redelivers the full log, so nothing of this user's is lost.
	g.sync.Reset()

	g.nav.force(StepMainMenu)

	cancel, err := g.sub.Subscribe(ctx, g.sync.ApplySnapshot, func(subErr error) {
		g.errors.emit(CategorySync, "Lost connection to chat.", subErr)
	})
	if err != nil {
		g.errors.emit(CategorySync, "Lost connection to chat.", err)
		return
	}

	g.mu.Lock()
	g.cancelSub = cancel
	g.mu.Unlock()
}
