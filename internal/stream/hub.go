// Package stream fans out messages to the websocket clients following a
// view. With redis configured, messages also reach the clients connected to
// other instances.
package stream

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "view:"
	channelSuffix = ":broadcast"
	sendBuffer    = 64
)

type Hub struct {
	redis   *redis.Client
	origin  string
	log     *slog.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	cancel  context.CancelFunc
	done    chan struct{}
}

type Client struct {
	ViewID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		redis:   redisClient,
		origin:  uuid.NewString(),
		log:     logger,
		clients: map[string]map[*Client]struct{}{},
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	if redisClient != nil {
		ready := make(chan struct{})
		go h.subscribeRedis(ctx, ready)
		<-ready
	} else {
		close(h.done)
	}
	return h
}

// Close stops the redis subscription.
func (h *Hub) Close() {
	h.cancel()
	<-h.done
}

func (h *Hub) Register(viewID string) *Client {
	client := &Client{
		ViewID: viewID,
		Send:   make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[viewID] == nil {
		h.clients[viewID] = map[*Client]struct{}{}
	}
	h.clients[viewID][client] = struct{}{}
	return client
}

// Unregister removes the client and closes its Send channel. Calling it
// twice is harmless.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	viewClients, ok := h.clients[client.ViewID]
	if !ok {
		return
	}
	if _, ok := viewClients[client]; !ok {
		return
	}
	delete(viewClients, client)
	if len(viewClients) == 0 {
		delete(h.clients, client.ViewID)
	}
	close(client.Send)
}

// Clients is the number of local clients following a view.
func (h *Hub) Clients(viewID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[viewID])
}

// Broadcast delivers payload to the local clients of the view and publishes
// it for the other instances. Slow clients drop messages.
func (h *Hub) Broadcast(ctx context.Context, viewID string, payload []byte) {
	h.deliver(viewID, payload)

	if h.redis != nil {
		err := h.redis.Publish(ctx, redisChannel(viewID), encodeEnvelope(h.origin, payload)).Err()
		if err != nil {
			h.log.Warn("redis publish failed", "view_id", viewID, "error", err)
		}
	}
}

func (h *Hub) deliver(viewID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[viewID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context, ready chan<- struct{}) {
	defer close(h.done)
	pubsub := h.redis.PSubscribe(ctx, channelPrefix+"*"+channelSuffix)
	defer pubsub.Close()
	// wait for the subscription so that no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		h.log.Warn("redis subscribe failed", "error", err)
	}
	close(ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			origin, payload, ok := decodeEnvelope(msg.Payload)
			if !ok || origin == h.origin {
				continue
			}
			h.deliver(viewIDFromChannel(msg.Channel), []byte(payload))
		}
	}
}

func redisChannel(viewID string) string {
	return channelPrefix + viewID + channelSuffix
}

func viewIDFromChannel(ch string) string {
	if len(ch) <= len(channelPrefix)+len(channelSuffix) ||
		!strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}

// origin id, newline, payload
func encodeEnvelope(origin string, payload []byte) string {
	return origin + "\n" + string(payload)
}

func decodeEnvelope(s string) (origin, payload string, ok bool) {
	origin, payload, ok = strings.Cut(s, "\n")
	return origin, payload, ok && origin != ""
}
