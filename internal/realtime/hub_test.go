package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/logging"
)

func TestHubDeliversToTopicSubscribers(t *testing.T) {
	hub := NewHub(4, logging.Discard())
	world := hub.Subscribe(WorldEventTopic(3))
	defer world.Close()
	other := hub.Subscribe(WorldEventTopic(4))
	defer other.Close()

	require.NoError(t, hub.Publish(context.Background(), WorldEventTopic(3), MessageEvent, map[string]int64{"id": 9}))

	select {
	case msg := <-world.C():
		assert.Equal(t, "world_event-3", msg.Topic)
		assert.Equal(t, MessageEvent, msg.Name)
		assert.NotEmpty(t, msg.ID)
	case <-time.After(time.Second):
		t.Fatal("expected message")
	}

	select {
	case msg := <-other.C():
		t.Fatalf("unexpected message on other topic: %+v", msg)
	default:
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub(1, logging.Discard())
	sub := hub.Subscribe(PlayerTopic(7))
	defer sub.Close()

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, PlayerTopic(7), MessageUpdate, nil))
	require.NoError(t, hub.Publish(ctx, PlayerTopic(7), MessageUpdate, nil))

	assert.Len(t, sub.C(), 1)
}

func TestSubscriptionClose(t *testing.T) {
	hub := NewHub(1, logging.Discard())
	sub := hub.Subscribe("player-1")
	assert.Equal(t, 1, hub.Subscribers("player-1"))
	sub.Close()
	sub.Close()
	assert.Equal(t, 0, hub.Subscribers("player-1"))
	_, ok := <-sub.C()
	assert.False(t, ok)
	require.NoError(t, hub.Publish(context.Background(), "player-1", MessageUpdate, nil))
}

func TestHandlerStreamsTopic(t *testing.T) {
	hub := NewHub(4, logging.Discard())
	srv := httptest.NewServer(NewHandler(hub, logging.Discard()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?topic=" + PlayerTopic(5)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers(PlayerTopic(5)) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(context.Background(), PlayerTopic(5), MessageUpdate, map[string]string{"name": "Ayla"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageUpdate, msg.Name)
	assert.Equal(t, "player-5", msg.Topic)
}

func TestHandlerRequiresTopic(t *testing.T) {
	hub := NewHub(4, logging.Discard())
	srv := httptest.NewServer(NewHandler(hub, logging.Discard()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
