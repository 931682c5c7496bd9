package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"yogaportal/pkg/events"
	httputil "yogaportal/pkg/http"
)

const streamKeepAlive = 15 * time.Second

// Stream relays bus events as server-sent events. It opens with the current
// state so a client never has to race a GET against the first event.
// ?types=class.updated,booking.updated narrows the feed.
func (h *PortalHandler) Stream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rc := http.NewResponseController(w)
	// the server write timeout would cut the stream
	_ = rc.SetWriteDeadline(time.Time{})

	feed, cancel := h.service.Bus().Subscribe(httputil.QueryList(r, "types")...)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, events.New(events.StateChanged, "portal", h.service.Snapshot())); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.log.Error("Event stream needs a flushable writer", "error", err)
		return
	}

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.stopping:
			return
		case evt, ok := <-feed:
			if !ok {
				return
			}
			if err := writeEvent(w, evt); err != nil {
				h.log.Debug("Stream client gone", "error", err)
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, evt events.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", evt.ID, evt.Type, data)
	return err
}
