package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
)

// handleSessionWS serves the streaming transport: the same event-batch and
// approval payloads as the REST endpoints, framed by type, with replies
// pushed back on the same connection. Writes stay single-threaded through
// the outbound channel.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := frameTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(2 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	var handlers sync.WaitGroup
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientFrame(data)
		if err != nil {
			code := "invalid_frame"
			if errors.Is(err, protocol.ErrUnsupportedFrame) {
				code = "unsupported_frame"
			}
			send(ctx, outbound, protocol.ErrorFrame{
				Type:   protocol.TypeErrorFrame,
				Code:   code,
				Detail: err.Error(),
			})
			continue
		}

		if t, ok := frameTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}

		// Pipeline rounds involve model calls and can take seconds; handle
		// each frame off the read loop so a slow round does not stall
		// subsequent frames.
		handlers.Add(1)
		go func(frame any) {
			defer handlers.Done()
			s.handleFrame(ctx, frame, outbound)
		}(parsed)
	}

	cancel()
	handlers.Wait()
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

func (s *Server) handleFrame(ctx context.Context, frame any, outbound chan<- any) {
	switch f := frame.(type) {
	case protocol.EventBatchFrame:
		reply := s.service.HandleEvents(ctx, f.Batch)
		send(ctx, outbound, protocol.PlannerReplyFrame{
			Type:  protocol.TypePlannerReplyFrame,
			Reply: reply,
		})
	case protocol.ApprovalFrame:
		batch := s.service.HandleApproval(ctx, f.Approval)
		send(ctx, outbound, protocol.CommandBatchFrame{
			Type:  protocol.TypeCommandBatchFrame,
			Batch: batch,
		})
	}
}

func send(ctx context.Context, outbound chan<- any, msg any) {
	select {
	case <-ctx.Done():
	case outbound <- msg:
	}
}

func frameTypeOf(v any) (protocol.FrameType, bool) {
	switch m := v.(type) {
	case protocol.EventBatchFrame:
		return m.Type, true
	case protocol.ApprovalFrame:
		return m.Type, true
	case protocol.PlannerReplyFrame:
		return m.Type, true
	case protocol.CommandBatchFrame:
		return m.Type, true
	case protocol.ErrorFrame:
		return m.Type, true
	default:
		return "", false
	}
}
