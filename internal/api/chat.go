package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/terra-clan/scheme-connect/internal/advisor"
	"github.com/terra-clan/scheme-connect/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeWait = 10 * time.Second

// Chat frame types
const (
	FrameConnected = "connected"
	FrameMessage   = "message"
	FrameTyping    = "typing"
	FrameError     = "error"
	FrameClosed    = "closed"
)

// ChatFrame is exchanged over the chat websocket. Clients send
// {type:"message", data}; the server sends message, typing, error and
// closed frames.
type ChatFrame struct {
	Type    string              `json:"type"`
	Data    string              `json:"data,omitempty"`
	Message *models.ChatMessage `json:"message,omitempty"`
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())

	events, unsubscribe, err := s.advisor.Subscribe(sessionID)
	if err != nil {
		s.respondSessionError(w, err, "failed to open chat")
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade to websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	s.logger.Info("chat websocket connected", zap.String("session_id", sessionID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outbound := make(chan ChatFrame, 8)
	outbound <- ChatFrame{Type: FrameConnected, Data: sessionID}

	var wg sync.WaitGroup

	// Session events and local frames -> WebSocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		// Unblocks the reader
		defer conn.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case frame := <-outbound:
				if err := s.writeChatFrame(conn, frame); err != nil {
					return
				}
			case ev, ok := <-events:
				if !ok {
					_ = s.writeChatFrame(conn, ChatFrame{Type: FrameClosed, Data: "session ended"})
					return
				}
				if err := s.writeChatFrame(conn, frameFromEvent(ev)); err != nil {
					return
				}
			}
		}
	}()

	// WebSocket -> session
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("websocket read error", zap.Error(err))
				}
				return
			}

			var frame ChatFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				s.logger.Debug("invalid chat frame", zap.Error(err))
				continue
			}
			if frame.Type != FrameMessage {
				continue
			}

			if _, err := s.advisor.SendMessage(ctx, sessionID, frame.Data); err != nil {
				select {
				case outbound <- ChatFrame{Type: FrameError, Data: err.Error()}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	wg.Wait()
	s.logger.Info("chat websocket disconnected", zap.String("session_id", sessionID))
}

func frameFromEvent(ev advisor.Event) ChatFrame {
	if ev.Type == advisor.EventTyping {
		return ChatFrame{Type: FrameTyping}
	}
	return ChatFrame{Type: FrameMessage, Message: ev.Message}
}

func (s *Server) writeChatFrame(conn *websocket.Conn, frame ChatFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error("failed to marshal chat frame", zap.Error(err))
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("failed to send chat frame", zap.Error(err))
		return err
	}
	return nil
}
