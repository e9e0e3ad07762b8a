package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

// ReadyFunc reports whether downstream dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

type readingOut struct {
	FieldID   string   `json:"field_id"`
	SensorID  string   `json:"sensor_id"`
	VWC       float64  `json:"vwc"`
	SoilTemp  float64  `json:"soil_temp"`
	AirTemp   *float64 `json:"air_temp,omitempty"`
	Timestamp string   `json:"timestamp"`
}

func toOut(v messages.SensorData) readingOut {
	return readingOut{
		FieldID: v.FieldID, SensorID: v.SensorID, VWC: v.VWC, SoilTemp: v.SoilTemp,
		AirTemp: v.AirTemp, Timestamp: v.Timestamp.UTC().Format(time.RFC3339),
	}
}

// NewHTTPMux serves health, readiness, metrics and the latest readings.
func NewHTTPMux(svc *Service, ready ReadyFunc, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]any{"ready": false, "error": err.Error()})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ready": true})
	})

	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	// GET /data/latest
	//   source=auto|influx|cache  (auto: Influx first, cache fallback)
	//   minutes=<int>             (Influx window, default 1440)
	mux.HandleFunc("/data/latest", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		source := strings.ToLower(q.Get("source"))
		if source == "" {
			source = "auto"
		}
		minutes := 60 * 24
		if s := q.Get("minutes"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				minutes = n
			}
		}

		var list []messages.SensorData
		var used string

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if source == "influx" || source == "auto" {
			l, err := svc.QueryLatestFromInflux(ctx, minutes)
			if err == nil && len(l) > 0 {
				list, used = l, "influx"
			} else if err != nil {
				svc.log.Warnw("ingest: influx latest failed", "err", err)
			}
		}
		if used == "" {
			list, used = svc.LatestCache(), "cache"
		}

		out := make([]readingOut, 0, len(list))
		for _, v := range list {
			out = append(out, toOut(v))
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].FieldID != out[j].FieldID {
				return out[i].FieldID < out[j].FieldID
			}
			return out[i].SensorID < out[j].SensorID
		})

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Data-Source", used)
		_ = json.NewEncoder(w).Encode(out)
	})

	// GET /fields/{id}/snapshot
	mux.HandleFunc("/fields/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/fields/")
		id, tail, _ := strings.Cut(rest, "/")
		if id == "" || tail != "snapshot" {
			http.NotFound(w, r)
			return
		}
		snap, err := svc.cache.LatestSnapshot(r.Context(), id)
		if errors.Is(err, apperr.ErrNoReading) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	})

	return mux
}
