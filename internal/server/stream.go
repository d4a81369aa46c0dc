package server

import (
	"fmt"
	"net/http"
	"time"
)

const streamInterval = 66 * time.Millisecond // ~15 FPS

// Preview supplies the most recent camera frame as JPEG.
type Preview interface {
	Snapshot() ([]byte, bool)
}

// StreamHandler serves preview frames as MJPEG.
type StreamHandler struct {
	preview Preview
}

// NewStreamHandler creates a new StreamHandler reading from p.
func NewStreamHandler(p Preview) *StreamHandler {
	return &StreamHandler{preview: p}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		if jpeg, ok := h.preview.Snapshot(); ok {
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
			if _, err := w.Write(jpeg); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
