package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/pubsub"
)

const eventHeartbeat = 15 * time.Second

// handleEvents streams committed mutations as server-sent events:
//
//	id: <seq>
//	event: <op>
//	data: <mutation JSON>
//
// The topic query parameter selects airports, routes, airlines or all.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = pubsub.TopicAll
	}
	if !pubsub.ValidTopic(topic) {
		s.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown topic %q", topic))
		return
	}

	sub, err := s.events.Subscribe(r.Context(), topic)
	if err != nil {
		s.respondError(w, r, http.StatusServiceUnavailable, "event feed is closed")
		return
	}
	defer sub.Unsubscribe()

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, ": subscribed to %s\n\n", topic)
	if err := rc.Flush(); err != nil {
		s.logger.Warn("event stream cannot flush", logging.Error(err))
		return
	}

	heartbeat := time.NewTicker(eventHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Warn("failed to encode event", logging.Error(err))
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Op, data)
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
