package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/phantomx-ai/phantomx/internal/events"
	"github.com/phantomx-ai/phantomx/internal/logger"
)

func main() {
	addr := flag.String("addr", ":8099", "listen address for event receiver")
	format := flag.String("format", "console", "log format (console|json)")
	flag.Parse()

	log := logger.New(logger.Config{Level: "info", Format: *format}, "event-receiver")

	mux := http.NewServeMux()
	mux.HandleFunc("/events", handleEvent(log))
	mux.HandleFunc("/", handleEvent(log))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("event receiver listening (POST JSON to /events)", logger.Fields("addr", *addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("receiver error", logger.Fields("error", err.Error()))
	}
}

func handleEvent(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		_ = r.Body.Close()

		var ev events.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			log.Warn("undecodable event", logger.Fields("len", len(body), "error", err.Error()))
			http.Error(w, "invalid event", http.StatusBadRequest)
			return
		}

		log.Info("received event", summarize(&ev))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintln(w, `{"status":"ok"}`)
	}
}

func summarize(ev *events.Event) map[string]interface{} {
	fields := logger.Fields(
		"event_id", ev.ID,
		logger.FieldResultID, ev.ResultID,
		"source", ev.Source,
		"type", ev.Verdict.Type,
		"risk_level", ev.Verdict.RiskLevel,
		"confidence", ev.Verdict.Confidence,
		"total_ms", ev.TimingMs.Total,
	)
	if len(ev.Degraded) > 0 {
		fields["degraded"] = strings.Join(ev.Degraded, ",")
	}
	if ev.RequestID != "" {
		fields[logger.FieldRequestID] = ev.RequestID
	}
	return fields
}
