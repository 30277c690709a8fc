package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
)

// WSHandler is the event gateway: it translates transport sessions into
// participant identities, feeds inbound commands to the engine, and writes
// outbound engine events back to the socket.
type WSHandler struct {
	service  *app.BattleService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.BattleService) *WSHandler {
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

type joinMatchmakingPayload struct {
	Subject     string `json:"subject"`
	DisplayName string `json:"displayName"`
}

type submitAnswerPayload struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
	ElapsedMs      int64  `json:"elapsedMs"`
}

// wsSink buffers outbound events for one connection. Send never blocks the
// engine: when the buffer is full the oldest event is dropped in favour of
// the newest, and a closed sink swallows everything.
type wsSink struct {
	mu     sync.Mutex
	closed bool
	ch     chan domain.Event
}

func newWSSink() *wsSink {
	return &wsSink{ch: make(chan domain.Event, 32)}
}

func (s *wsSink) Send(event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- event:
	default:
		select {
		case <-s.ch:
		default:
		}
		s.ch <- event
	}
}

func (s *wsSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// ServeWS upgrades the request and runs the connection's command loop until
// the transport drops. The participant identifier is taken from the userId
// query parameter when present (reconnects), otherwise freshly generated.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	participantID := r.URL.Query().Get("userId")
	if participantID == "" {
		participantID = uuid.NewString()
	}
	displayName := r.URL.Query().Get("name")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sink := newWSSink()
	h.service.Connect(participantID, displayName, sink)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for event := range sink.ch {
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Teardown order matters: detach from the engine first so no further
	// events target this sink, then close the sink to let the writer drain.
	defer func() { <-writerDone }()
	defer sink.close()
	defer h.service.Disconnect(participantID)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "join_matchmaking":
			var payload joinMatchmakingPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sink.Send(errorEvent("invalid join_matchmaking payload"))
				continue
			}
			if err := h.service.JoinMatchmaking(r.Context(), participantID, payload.Subject, payload.DisplayName); err != nil {
				sink.Send(errorEvent(err.Error()))
			}
		case "leave_matchmaking":
			h.service.LeaveMatchmaking(participantID)
		case "submit_answer":
			var payload submitAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sink.Send(errorEvent("invalid submit_answer payload"))
				continue
			}
			h.service.SubmitAnswer(r.Context(), participantID, payload.QuestionID, payload.SelectedOption, payload.ElapsedMs)
		default:
			sink.Send(errorEvent("unsupported message type"))
		}
	}
}

func errorEvent(message string) domain.Event {
	return domain.Event{Type: domain.EventError, Payload: domain.ErrorPayload{Message: message}}
}
