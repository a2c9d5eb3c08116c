package client

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/empathyai/companion/internal/model/chat"
)

const (
	reconnectBase = 500 * time.Millisecond
	reconnectCap  = 10 * time.Second
)

// Subscribe opens the snapshot websocket and keeps it open. The first dial is
// synchronous so the caller learns immediately whether the subscription
// exists; after that a goroutine reads snapshots and redials with capped
// exponential backoff whenever the connection drops. onError fires once per
// outage, not once per failed attempt. The view keeps whatever the last good
// snapshot delivered until a new one arrives.
func (a *API) Subscribe(ctx context.Context, onSnapshot func([]chat.Message), onError func(error)) (func(), error) {
	conn, err := a.DialSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		for {
			err := readSnapshots(ctx, conn, onSnapshot)
			conn.Close()
			if ctx.Err() != nil {
				return
			}
			if onError != nil {
				onError(err)
			}

			conn, err = a.redial(ctx)
			if err != nil {
				return
			}
		}
	}()

	return cancel, nil
}

// readSnapshots pumps snapshots until the connection or the context dies.
func readSnapshots(ctx context.Context, conn *websocket.Conn, onSnapshot func([]chat.Message)) error {
	// Unblock the blocking read when the subscription is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var snapshot []chat.Message
		if err := conn.ReadJSON(&snapshot); err != nil {
			return err
		}
		onSnapshot(snapshot)
	}
}

// redial retries the websocket dial until it succeeds or the context ends.
func (a *API) redial(ctx context.Context) (*websocket.Conn, error) {
	backoff := retry.NewExponential(reconnectBase)
	backoff = retry.WithJitter(reconnectBase/2, backoff)
	backoff = retry.WithCappedDuration(reconnectCap, backoff)

	var conn *websocket.Conn
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		dialed, err := a.DialSnapshots(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		conn = dialed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}
