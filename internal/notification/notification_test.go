package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/vault_ledger/internal/logging"
)

func TestRedisPublisherPublishesJSON(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, DefaultChannel)
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisher(client, "")
	msg := Message{
		Kind:        KindSecurityAlert,
		Destination: "wallet-1",
		Body:        "limit exceeded",
		Attributes:  map[string]string{"severity": "high"},
	}
	require.NoError(t, pub.Send(ctx, msg))

	select {
	case got := <-sub.Channel():
		var decoded Message
		require.NoError(t, json.Unmarshal([]byte(got.Payload), &decoded))
		assert.Equal(t, msg, decoded)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Send(context.Context, Message) error {
	f.calls++
	return errors.New("down")
}

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	first := &failingNotifier{}
	second := &failingNotifier{}
	m := Multi{first, NewLoggerNotifier(logging.Discard()), nil, second}

	err := m.Send(context.Background(), Message{Kind: KindSecurityAlert})
	require.Error(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}
