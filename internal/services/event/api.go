package event

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/store/influx"
)

type DecisionLister interface {
	RecentDecisions(ctx context.Context, fieldID string, minutes, limit int) ([]influx.DecisionRecord, error)
}

type historyParams struct {
	FieldID   string
	Minutes   int
	Limit     int
	TimeoutMS int
}

func parseHistory(r *http.Request) historyParams {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	return historyParams{
		FieldID:   strings.TrimSpace(q.Get("field")),
		Minutes:   get("minutes", 1440, 1, 7*24*60),
		Limit:     get("limit", 20, 1, 500),
		TimeoutMS: get("timeout_ms", 2000, 200, 5000),
	}
}

// NewDecisionHistoryHandler serves
// GET /decisions?field=f1&minutes=1440&limit=20, newest first.
// Query failures answer an empty list with X-Error set.
func NewDecisionHistoryHandler(lister DecisionLister) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		p := parseHistory(r)
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		list, err := lister.RecentDecisions(ctx, p.FieldID, p.Minutes, p.Limit)
		if err != nil {
			w.Header().Set("X-Error", "influx-query-error")
			_, _ = w.Write([]byte("[]"))
			return
		}
		if list == nil {
			list = []influx.DecisionRecord{}
		}
		_ = json.NewEncoder(w).Encode(list)
	})
}
