package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/bizreview-backend/pkg/logger"
)

// ClientMessage 클라이언트로부터 받은 메시지
type ClientMessage struct {
	Type  string `json:"type"`  // subscribe, unsubscribe
	Topic string `json:"topic"` // 예: company:12
}

// TopicAuthorizer 토픽 구독 권한 확인 (대시보드 실시간 피드용)
type TopicAuthorizer func(userID uint, topic string) bool

// Client WebSocket 클라이언트
type Client struct {
	Hub           *Hub
	Conn          *Conn
	UserID        uint
	Send          chan []byte
	Topics        map[string]bool // 구독 중인 토픽
	mu            sync.RWMutex
	MessageCount  int       // 최근 1초간 받은 메시지 수
	LastResetTime time.Time // 마지막 카운터 리셋 시간
	RateMu        sync.Mutex
}

// NewClient 클라이언트 생성
func NewClient(hub *Hub, conn *Conn, userID uint) *Client {
	return &Client{
		Hub:           hub,
		Conn:          conn,
		UserID:        userID,
		Send:          make(chan []byte, sendBufferSize),
		Topics:        make(map[string]bool),
		LastResetTime: time.Now(),
	}
}

// Hub WebSocket 연결 관리자
type Hub struct {
	// 등록된 클라이언트들 (UserID -> []*Client - 멀티 디바이스 지원)
	clients map[uint][]*Client

	// 토픽별 구독자 (topic -> map[UserID]bool)
	topics map[string]map[uint]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *outbound

	authorize TopicAuthorizer

	mu sync.RWMutex
}

// outbound 전송 대상이 사용자 또는 토픽인 메시지
type outbound struct {
	userID  uint
	topic   string
	message []byte
}

// NewHub Hub 생성
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		topics:     make(map[string]map[uint]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *outbound, 1024),
	}
}

// SetAuthorizer 토픽 구독 권한 확인 함수 설정 (없으면 구독 거부)
func (h *Hub) SetAuthorizer(fn TopicAuthorizer) {
	h.mu.Lock()
	h.authorize = fn
	h.mu.Unlock()
}

// Run Hub 실행 (ctx가 끝나면 종료)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientList, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	newList := make([]*Client, 0, len(clientList))
	found := false
	for _, c := range clientList {
		if c == client {
			found = true
			continue
		}
		newList = append(newList, c)
	}
	if !found {
		return
	}

	if len(newList) == 0 {
		delete(h.clients, client.UserID)
	} else {
		h.clients[client.UserID] = newList
	}
	// 남은 세션 중 구독자가 없는 토픽에서 사용자 제거
	client.mu.RLock()
	for topic := range client.Topics {
		if !anySubscribed(newList, topic) {
			h.dropSubscriber(topic, client.UserID)
		}
	}
	client.mu.RUnlock()
	close(client.Send)

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"user_id":            client.UserID,
		"remaining_sessions": len(newList),
	})
}

func (c *Client) subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Topics[topic]
}

func anySubscribed(clients []*Client, topic string) bool {
	for _, c := range clients {
		if c.subscribed(topic) {
			return true
		}
	}
	return false
}

// dropSubscriber는 h.mu를 잡은 상태에서 호출해야 합니다
func (h *Hub) dropSubscriber(topic string, userID uint) {
	if users, ok := h.topics[topic]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) deliver(msg *outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var recipients []uint
	if msg.topic != "" {
		for userID := range h.topics[msg.topic] {
			recipients = append(recipients, userID)
		}
	} else {
		recipients = []uint{msg.userID}
	}

	for _, userID := range recipients {
		// 멀티 디바이스: 모든 세션에 전송 (토픽 메시지는 구독한 세션만)
		for _, client := range h.clients[userID] {
			if msg.topic != "" && !client.subscribed(msg.topic) {
				continue
			}
			select {
			case client.Send <- msg.message:
			default:
				// Send 채널이 막혀있음 - 비동기로 정리
				go h.Unregister(client)
				logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
					"user_id": userID,
				})
			}
		}
	}
}

// SendToUser 특정 사용자의 모든 세션에 메시지 전송
func (h *Hub) SendToUser(userID uint, message interface{}) error {
	return h.enqueue(&outbound{userID: userID}, message)
}

// PublishToTopic 토픽 구독자 전원에게 메시지 전송
func (h *Hub) PublishToTopic(topic string, message interface{}) error {
	return h.enqueue(&outbound{topic: topic}, message)
}

func (h *Hub) enqueue(out *outbound, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal message", err)
		return err
	}
	out.message = data

	select {
	case h.broadcast <- out:
	default:
		// 메시지 손실 허용 (주요 로직에 영향 없음)
		logger.Warn("Broadcast channel full, message dropped", map[string]interface{}{
			"user_id": out.userID,
			"topic":   out.topic,
		})
	}
	return nil
}

// Subscribe 사용자의 현재 접속 중인 모든 세션을 토픽에 구독 (이후 접속한 세션은 따로 구독해야 함)
func (h *Hub) Subscribe(userID uint, topic string) bool {
	h.mu.RLock()
	authorize := h.authorize
	h.mu.RUnlock()
	if authorize == nil || !authorize(userID, topic) {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clientList, ok := h.clients[userID]
	if !ok {
		return false
	}
	for _, client := range clientList {
		client.mu.Lock()
		client.Topics[topic] = true
		client.mu.Unlock()
	}
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[uint]bool)
	}
	h.topics[topic][userID] = true
	return true
}

// Unsubscribe 토픽 구독 해제
func (h *Hub) Unsubscribe(userID uint, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients[userID] {
		client.mu.Lock()
		delete(client.Topics, topic)
		client.mu.Unlock()
	}
	h.dropSubscriber(topic, userID)
}

// Register 클라이언트 등록
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 클라이언트 등록 해제
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsUserOnline 사용자 온라인 여부 확인
func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// HandleClientMessage 클라이언트 메시지 처리
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	// Rate limiting 체크
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	switch msg.Type {
	case "subscribe":
		ok := h.Subscribe(client.UserID, msg.Topic)
		if !ok {
			logger.Warn("Topic subscription denied", map[string]interface{}{
				"user_id": client.UserID,
				"topic":   msg.Topic,
			})
		}
		_ = h.SendToUser(client.UserID, map[string]interface{}{
			"type":    "subscription",
			"topic":   msg.Topic,
			"granted": ok,
		})
	case "unsubscribe":
		h.Unsubscribe(client.UserID, msg.Topic)
	}
}
