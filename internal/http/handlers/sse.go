package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/betonova/readymix-crm/internal/backend"
	"github.com/betonova/readymix-crm/internal/http/response"
)

// streamSnapshots drives one SSE connection off a store subscription. The
// subscribe function is handed replace-latest channel callbacks; only the
// newest pending snapshot is kept when the client is slow.
func streamSnapshots[T any](w http.ResponseWriter, r *http.Request, subscribe func(onSnapshot func([]T), onError func(error)) backend.Unsubscribe) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Long-lived stream; lift the server write deadline for this response.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.WriteHeader(http.StatusOK)

	snapshots := make(chan []T, 1)
	errs := make(chan error, 1)

	unsub := subscribe(
		func(items []T) { replaceLatest(snapshots, items) },
		func(err error) { replaceLatest(errs, err) },
	)
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case items := <-snapshots:
			data, err := json.Marshal(items)
			if err != nil {
				return
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			flusher.Flush()
		case err := <-errs:
			fmt.Fprintf(w, "event: error\ndata: %q\n\n", err.Error())
			flusher.Flush()
		}
	}
}

func replaceLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
