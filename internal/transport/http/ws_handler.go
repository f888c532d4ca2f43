package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
)

// The websocket channel carries the quiz countdown: the client ticks its
// remaining seconds every few seconds so a reload can resume where it left
// off, and flags expiry when the timer hits zero.

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type tickPayload struct {
	TimeRemainingSeconds int `json:"timeRemainingSeconds"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// serveSessionWS upgrades the connection and persists countdown ticks through
// the session updater. A writer goroutine owns the connection's write side so
// the read loop never writes concurrently.
func (a *API) serveSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(r.URL.Query().Get("sessionId"), 10, 64)
	if err != nil || sessionID <= 0 {
		writeError(w, http.StatusBadRequest, "missing or invalid sessionId")
		return
	}

	identity := identityFrom(r.Context())
	session, err := a.sessions.ActiveSession(r.Context(), identity.UserID)
	if err != nil || session.ID != sessionID {
		writeError(w, http.StatusNotFound, "no active session with that id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// enqueue drops the message if the writer has already exited.
	enqueue := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	enqueue(outboundMessage[any]{Type: "connected", Payload: session})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "tick":
			var payload tickPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.TimeRemainingSeconds < 0 {
				enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid tick payload"}})
				continue
			}
			updated, err := a.sessions.Update(r.Context(), sessionID, &payload.TimeRemainingSeconds, nil)
			if err != nil {
				enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			enqueue(outboundMessage[any]{Type: "synced", Payload: updated})
		case "expired":
			// Timer ran out client-side; the client follows up with the
			// completion call, the server only zeroes the budget here.
			zero := 0
			updated, err := a.sessions.Update(r.Context(), sessionID, &zero, nil)
			if err != nil {
				enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			enqueue(outboundMessage[any]{Type: "synced", Payload: updated})
		default:
			enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(send)
	<-writerDone
}
