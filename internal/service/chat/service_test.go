package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	model "github.com/empathyai/companion/internal/model/chat"
	chat "github.com/empathyai/companion/internal/service/chat"
)

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	svc := chat.NewService(chat.NewMemoryLog())
	ctx := context.Background()

	m, err := svc.Append(ctx, model.Message{UserID: "u1", Text: "hello", Sender: model.SenderUser})
	require.NoError(t, err)
	require.NotEmpty(t, m.ID)
	require.False(t, m.Timestamp.IsZero())

	history, err := svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "hello", history[0].Text)
}

func TestAppendValidation(t *testing.T) {
	svc := chat.NewService(chat.NewMemoryLog())
	ctx := context.Background()

	_, err := svc.Append(ctx, model.Message{Text: "x", Sender: model.SenderUser})
	require.ErrorIs(t, err, chat.ErrUserRequired)

	_, err = svc.Append(ctx, model.Message{UserID: "u1", Sender: model.SenderUser})
	require.ErrorIs(t, err, chat.ErrTextRequired)

	_, err = svc.Append(ctx, model.Message{UserID: "u1", Text: "x", Sender: "robot"})
	require.ErrorIs(t, err, chat.ErrInvalidSender)
}

func TestSubscribeDeliversInitialAndUpdatedSnapshots(t *testing.T) {
	svc := chat.NewService(chat.NewMemoryLog())
	ctx := context.Background()

	_, err := svc.Append(ctx, model.Message{UserID: "u1", Text: "first", Sender: model.SenderUser})
	require.NoError(t, err)

	ch, cancel, err := svc.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer cancel()

	initial := waitSnapshot(t, ch)
	require.Len(t, initial, 1)

	_, err = svc.Append(ctx, model.Message{UserID: "u1", Text: "second", Sender: model.SenderAI})
	require.NoError(t, err)

	updated := waitSnapshot(t, ch)
	require.Len(t, updated, 2)
	require.Equal(t, "first", updated[0].Text)
	require.Equal(t, "second", updated[1].Text)
}

func TestSubscribeScopedToUser(t *testing.T) {
	svc := chat.NewService(chat.NewMemoryLog())
	ctx := context.Background()

	ch, cancel, err := svc.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer cancel()

	require.Empty(t, waitSnapshot(t, ch))

	_, err = svc.Append(ctx, model.Message{UserID: "u2", Text: "not yours", Sender: model.SenderUser})
	require.NoError(t, err)

	select {
	case snap := <-ch:
		t.Fatalf("unexpected snapshot for foreign user: %v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelClosesChannel(t *testing.T) {
	svc := chat.NewService(chat.NewMemoryLog())
	ctx := context.Background()

	ch, cancel, err := svc.Subscribe(ctx, "u1")
	require.NoError(t, err)

	waitSnapshot(t, ch)
	cancel()
	cancel() // idempotent

	_, open := <-ch
	require.False(t, open)
}

func waitSnapshot(t *testing.T, ch <-chan []model.Message) []model.Message {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
