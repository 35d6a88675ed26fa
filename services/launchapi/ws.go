package launchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"launchpad/core/events"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsBacklog      = 64
)

type eventPayload struct {
	Seq  uint64       `json:"seq,omitempty"`
	Type string       `json:"type"`
	Data events.Event `json:"data"`
}

// streamSubscriber forwards committed events without blocking the runtime.
// A client that falls wsBacklog events behind is disconnected.
type streamSubscriber struct {
	ch       chan events.Event
	overflow chan struct{}
}

func (s *streamSubscriber) Emit(evt events.Event) {
	select {
	case s.ch <- evt:
	default:
		select {
		case s.overflow <- struct{}{}:
		default:
		}
	}
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	sub := &streamSubscriber{ch: make(chan events.Event, wsBacklog), overflow: make(chan struct{}, 1)}
	unsubscribe := s.ledger.Subscribe(sub)
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	// Clients never send; CloseRead surfaces their disconnect through ctx.
	ctx := conn.CloseRead(r.Context())
	if err := s.pump(ctx, conn, sub); err != nil {
		if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
			s.logger.Debug("event stream ended", "request_id", requestIDFrom(r.Context()), "error", err)
		}
	}
}

func (s *Server) pump(ctx context.Context, conn *websocket.Conn, sub *streamSubscriber) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.overflow:
			return conn.Close(websocket.StatusPolicyViolation, "event backlog exceeded")
		case evt := <-sub.ch:
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt events.Event) error {
	inner, seq := events.Unwrap(evt)
	data, err := json.Marshal(eventPayload{Seq: seq, Type: inner.EventType(), Data: inner})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
