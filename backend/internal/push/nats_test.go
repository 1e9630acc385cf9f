package push

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "thinkflow.notifications.u1", Subject("u1"))
}

func TestBridge_DeliversAcrossConnections(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	url := os.Getenv("NATS_TEST_URL")
	if url == "" {
		t.Skip("NATS_TEST_URL not set")
	}

	// Two connections stand in for two server instances
	producer, err := nats.Connect(url)
	require.NoError(t, err)
	defer producer.Close()
	consumer, err := nats.Connect(url)
	require.NoError(t, err)
	defer consumer.Close()

	hub := NewHub(zap.NewNop(), nil)
	defer hub.Close()
	srv := newTestServer(t, hub)
	conn := dial(t, srv, "u1")
	require.Eventually(t, func() bool { return hub.Connected("u1") == 1 }, time.Second, 10*time.Millisecond)

	receiver := NewBridge(consumer, hub, zap.NewNop())
	require.NoError(t, receiver.Start())
	defer receiver.Stop()
	require.NoError(t, consumer.Flush())

	sender := NewBridge(producer, NewHub(zap.NewNop(), nil), zap.NewNop())
	n := domain.Notification{ID: "n1", UserID: "u1", Message: "Ann liked your post.", Type: domain.NotificationLike}
	require.NoError(t, sender.Push(context.Background(), n))
	require.NoError(t, producer.Flush())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got domain.Notification
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "n1", got.ID)
	assert.Equal(t, domain.NotificationLike, got.Type)
}
