package messenger

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	clientBufferSize = 16
	writeTimeout     = 5 * time.Second
)

type client struct {
	id     uuid.UUID
	device string
	sendC  chan []byte
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	d, ok := s.device(w, r.PathValue("key"))
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade WebSocket connection", "err", err)
		return
	}

	c := &client{
		id:     uuid.New(),
		device: d.Key(),
		sendC:  make(chan []byte, clientBufferSize),
	}
	logger := s.logger.With("client_id", c.id, "device", c.device)
	logger.Info("WebSocket client connected", "remote_addr", r.RemoteAddr)

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.send(c, s.statusMessage(d))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-c.sendC:
				if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
					logger.Error("Failed to set write deadline", "err", err)
					cancel()
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					logger.Error("WebSocket write error", "err", err)
					cancel()
					return
				}
			}
		}
	}()

	// Unblock the reader on shutdown.
	go func() {
		<-ctx.Done()
		conn.Close() //nolint:errcheck
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error", "err", err)
			}
			break
		}

		if msgType == websocket.TextMessage && string(data) == FullStatusRequest {
			logger.Debug("Full status requested")
			s.send(c, s.statusMessage(d))
			continue
		}
		logger.Debug("Ignoring WebSocket message", "type", msgType, "len", len(data))
	}

	cancel()
	<-writerDone

	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()

	logger.Info("WebSocket client disconnected")
}

func (s *Server) statusMessage(d Device) Message {
	return Message{Type: MessageTypeFullStatus, Device: d.Key(), Content: d.Snapshot()}
}

func (s *Server) broadcastStatus(key string) {
	d, ok := s.devices[key]
	if !ok {
		return
	}
	s.broadcast(key, s.statusMessage(d))
}

// broadcast sends msg to every client watching device, or to all clients
// when device is empty.
func (s *Server) broadcast(device string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to marshal message", "type", msg.Type, "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if device == "" || c.device == device {
			s.enqueue(c, data)
		}
	}
}

func (s *Server) send(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to marshal message", "type", msg.Type, "err", err)
		return
	}
	s.enqueue(c, data)
}

func (s *Server) enqueue(c *client, data []byte) {
	select {
	case c.sendC <- data:
	default:
		s.logger.Warn("Message dropped, client too slow", "client_id", c.id)
	}
}
