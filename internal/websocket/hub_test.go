package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func registerClient(t *testing.T, hub *Hub, userID uint) *Client {
	client := NewClient(hub, nil, userID)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.IsUserOnline(userID) }, time.Second, 5*time.Millisecond)
	return client
}

func receive(t *testing.T, client *Client) map[string]interface{} {
	t.Helper()
	select {
	case raw := <-client.Send:
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestHub_SendToUser(t *testing.T) {
	hub := startHub(t)
	phone := registerClient(t, hub, 7)
	laptop := registerClient(t, hub, 7)
	other := registerClient(t, hub, 8)

	require.NoError(t, hub.SendToUser(7, map[string]interface{}{"type": "new_notification"}))

	assert.Equal(t, "new_notification", receive(t, phone)["type"])
	assert.Equal(t, "new_notification", receive(t, laptop)["type"])
	assert.Len(t, other.Send, 0)
}

func TestHub_TopicRequiresAuthorization(t *testing.T) {
	hub := startHub(t)
	hub.SetAuthorizer(func(userID uint, topic string) bool {
		return userID == 1 && topic == "company:5"
	})
	manager := registerClient(t, hub, 1)
	stranger := registerClient(t, hub, 2)

	assert.True(t, hub.Subscribe(1, "company:5"))
	assert.False(t, hub.Subscribe(2, "company:5"))

	require.NoError(t, hub.PublishToTopic("company:5", map[string]interface{}{"type": "review_submitted"}))
	assert.Equal(t, "review_submitted", receive(t, manager)["type"])
	assert.Len(t, stranger.Send, 0)

	hub.Unsubscribe(1, "company:5")
	require.NoError(t, hub.PublishToTopic("company:5", map[string]interface{}{"type": "review_submitted"}))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, manager.Send, 0)
}

func TestHub_HandleClientMessage_Subscribe(t *testing.T) {
	hub := startHub(t)
	hub.SetAuthorizer(func(uint, string) bool { return true })
	client := registerClient(t, hub, 3)

	hub.HandleClientMessage(client, []byte(`{"type":"subscribe","topic":"blog_post:9"}`))

	msg := receive(t, client)
	assert.Equal(t, "subscription", msg["type"])
	assert.Equal(t, true, msg["granted"])
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, 4)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return !hub.IsUserOnline(4) }, time.Second, 5*time.Millisecond)

	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestHub_TopicDeliveredOnlyToSubscribedSessions(t *testing.T) {
	hub := startHub(t)
	hub.SetAuthorizer(func(uint, string) bool { return true })
	phone := registerClient(t, hub, 5)
	require.True(t, hub.Subscribe(5, "company:1"))

	// 구독 이후 접속한 세션
	laptop := NewClient(hub, nil, 5)
	hub.Register(laptop)
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients[5]) == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.PublishToTopic("company:1", map[string]interface{}{"type": "review_submitted"}))
	assert.Equal(t, "review_submitted", receive(t, phone)["type"])
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, laptop.Send, 0)

	// 직접 보낸 메시지는 모든 세션에 전달
	require.NoError(t, hub.SendToUser(5, map[string]interface{}{"type": "new_notification"}))
	assert.Equal(t, "new_notification", receive(t, phone)["type"])
	assert.Equal(t, "new_notification", receive(t, laptop)["type"])
}

func TestHub_UnregisterKeepsTopicForRemainingSubscriber(t *testing.T) {
	hub := startHub(t)
	hub.SetAuthorizer(func(uint, string) bool { return true })
	phone := registerClient(t, hub, 6)
	laptop := registerClient(t, hub, 6)
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients[6]) == 2
	}, time.Second, 5*time.Millisecond)
	require.True(t, hub.Subscribe(6, "company:2"))

	hub.Unregister(phone)
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients[6]) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.PublishToTopic("company:2", map[string]interface{}{"type": "review_moderated"}))
	assert.Equal(t, "review_moderated", receive(t, laptop)["type"])
}
