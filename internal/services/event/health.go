package event

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ReadyFunc pings a downstream dependency.
type ReadyFunc func(ctx context.Context) error

type healthHandler struct {
	connected func() bool
	writer    *Writer
}

// NewHealthHandler reports ok, degraded or down. It always answers 200.
func NewHealthHandler(connected func() bool, w *Writer) http.Handler {
	return &healthHandler{connected: connected, writer: w}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		Status          string  `json:"status"`
		MQTTConnected   bool    `json:"mqtt_connected"`
		LastWriteErrorS float64 `json:"last_write_error_age_sec"`
	}
	age := h.writer.LastErrorAge()
	st := status{
		MQTTConnected:   h.connected != nil && h.connected(),
		LastWriteErrorS: age.Seconds(),
	}
	switch {
	case st.MQTTConnected && age > 30*time.Second:
		st.Status = "ok"
	case st.MQTTConnected:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

type readyHandler struct {
	connected func() bool
	ping      ReadyFunc
	writer    *Writer
	minError  time.Duration
}

// NewReadyHandler answers 200 only when MQTT is up, the store answers and no
// write failed in the last minOkErrorAge.
func NewReadyHandler(connected func() bool, ping ReadyFunc, w *Writer, minOkErrorAge time.Duration) http.Handler {
	return &readyHandler{connected: connected, ping: ping, writer: w, minError: minOkErrorAge}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ready := h.connected != nil && h.connected() && h.writer.LastErrorAge() > h.minError
	if ready && h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		ready = h.ping(ctx) == nil
	}
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ready": ready})
}
