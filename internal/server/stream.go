package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/korefront/repcoach/internal/overlay"
	"github.com/korefront/repcoach/internal/pose"
)

// Previewer supplies the latest camera frame and its landmarks.
type Previewer interface {
	Preview() (gocv.Mat, []pose.Landmark, time.Time, error)
}

// StreamHandler serves MJPEG frames from the capture pipeline with the
// detected skeleton drawn on top.
type StreamHandler struct {
	source   Previewer
	style    overlay.Style
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler with the given frame source.
func NewStreamHandler(source Previewer) *StreamHandler {
	return &StreamHandler{
		source:   source,
		style:    overlay.DefaultStyle(),
		interval: 66 * time.Millisecond, // ~15 FPS
	}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var last time.Time
	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		img, points, at, err := h.source.Preview()
		if err != nil || !at.After(last) {
			if err == nil {
				img.Close()
			}
			time.Sleep(h.interval)
			continue
		}
		last = at

		overlay.Draw(&img, points, overlay.TopologyV1, h.style)
		buf, err := gocv.IMEncode(".jpg", img)
		img.Close()
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		_, werr := w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()
		if werr != nil {
			return
		}

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(h.interval)
	}
}
