package server

import (
	"fmt"
	"net/http"
)

// FramePublisher delivers encoded JPEG frames to subscribers.
// *source.Feed[[]byte] satisfies it.
type FramePublisher interface {
	Subscribe(fn func([]byte)) (unsubscribe func())
}

// StreamHandler serves the camera preview as MJPEG.
type StreamHandler struct {
	frames FramePublisher
}

// NewStreamHandler creates a StreamHandler reading from frames.
func NewStreamHandler(frames FramePublisher) *StreamHandler {
	return &StreamHandler{frames: frames}
}

// ServeHTTP streams frames until the client goes away. Frames that arrive
// while the previous one is still being written are dropped.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	latest := make(chan []byte, 1)
	unsubscribe := h.frames.Subscribe(func(frame []byte) {
		select {
		case latest <- frame:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case frame := <-latest:
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
			if _, err := w.Write(frame); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}
