package http

import (
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"vitisco-room-service/internal/app"
	"vitisco-room-service/internal/domain"
)

// WSHandler is the connection gateway: it upgrades HTTP requests, assigns a
// session id per connection, translates inbound messages into room service
// calls and pumps outbound events back over the socket. No game logic here.
type WSHandler struct {
	service  *app.RoomService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomRequest struct {
	RoomCode string `json:"roomCode"`
}

type answerRequest struct {
	RoomCode string `json:"roomCode"`
	OptionID string `json:"optionId"`
}

type chatRequest struct {
	RoomCode string `json:"roomCode"`
	Text     string `json:"text"`
}

// ServeWS runs one connection. The display name comes from the identity layer
// at connection time; the session id is assigned here.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := newConnID()
	sink := make(chan domain.Event, 64)
	writerDone := make(chan struct{})

	// Single writer goroutine; everything outbound goes through sink so
	// room broadcasts and private replies share one ordered stream.
	go func() {
		defer close(writerDone)
		for ev := range sink {
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("ws write error for %s: %v", connID, err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, connID, name, sink, inbound)
	}

	// Remove the player first: after Disconnect returns the room no longer
	// references sink, so closing it cannot race a broadcast.
	h.service.Disconnect(connID)
	close(sink)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, connID, name string, sink chan domain.Event, inbound inboundMessage) {
	switch inbound.Type {
	case "create-room":
		var req roomRequest
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &req); err != nil {
				pushError(sink, "invalid create-room payload")
				return
			}
		}
		if _, err := h.service.CreateRoom(connID, name, sink, req.RoomCode); err != nil {
			pushError(sink, err.Error())
		}

	case "join-room":
		var req roomRequest
		if err := json.Unmarshal(inbound.Payload, &req); err != nil || req.RoomCode == "" {
			pushError(sink, "room code is required")
			return
		}
		if _, err := h.service.JoinRoom(req.RoomCode, connID, name, sink); err != nil {
			pushError(sink, err.Error())
		}

	case "join-random":
		if _, err := h.service.JoinRandom(connID, name, sink); err != nil {
			pushError(sink, err.Error())
		}

	case "start-game":
		var req roomRequest
		if err := json.Unmarshal(inbound.Payload, &req); err != nil || req.RoomCode == "" {
			pushError(sink, "room code is required")
			return
		}
		if err := h.service.StartGame(r.Context(), req.RoomCode, connID); err != nil {
			pushError(sink, err.Error())
		}

	case "submit-answer":
		var req answerRequest
		if err := json.Unmarshal(inbound.Payload, &req); err != nil || req.RoomCode == "" {
			pushError(sink, "invalid answer payload")
			return
		}
		if err := h.service.SubmitAnswer(req.RoomCode, connID, req.OptionID); err != nil {
			pushError(sink, err.Error())
		}

	case "send-message":
		var req chatRequest
		if err := json.Unmarshal(inbound.Payload, &req); err != nil || req.RoomCode == "" || req.Text == "" {
			pushError(sink, "invalid message data")
			return
		}
		if err := h.service.SendMessage(req.RoomCode, connID, req.Text); err != nil {
			pushError(sink, err.Error())
		}

	default:
		pushError(sink, "unsupported message type")
	}
}

// pushError never blocks; a full sink means the writer is gone anyway.
func pushError(sink chan domain.Event, message string) {
	select {
	case sink <- domain.Event{Type: domain.EventError, Payload: domain.ErrorPayload{Message: message}}:
	default:
	}
}

func newConnID() string {
	b := make([]byte, 8)
	_, _ = crand.Read(b)
	return hex.EncodeToString(b)
}
