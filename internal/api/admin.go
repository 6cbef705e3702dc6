package api

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/3xpluto/second-service/internal/httpx"
	"github.com/3xpluto/second-service/internal/timing"
)

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	goVer := ""
	if info, ok := debug.ReadBuildInfo(); ok {
		goVer = info.GoVersion
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"time_utc":       time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int(time.Since(h.info.StartedAt).Seconds()),
		"listen_addr":    h.info.ListenAddr,
		"go_version":     goVer,
		"upstream":       h.info.UpstreamURL,
		"timing_store":   h.info.TimingStore,
	})
}

type timingView struct {
	timing.Record
	Complete         bool   `json:"complete"`
	LocalDurationNs  *int64 `json:"local_duration_ns,omitempty"`
	RemoteDurationNs *int64 `json:"remote_duration_ns,omitempty"`
	TotalLatencyNs   *int64 `json:"total_latency_ns,omitempty"`
}

// timingRecord shows the last record kept for ?uri=<absolute outbound URL>.
func (h *handlers) timingRecord(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		httpx.WriteError(w, http.StatusBadRequest, "uri_required")
		return
	}
	if h.timings == nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found")
		return
	}

	rec, ok, err := h.timings.Get(r.Context(), uri)
	if err != nil {
		httpx.WriteError(w, http.StatusBadGateway, "timing_store_unavailable")
		return
	}
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "not_found")
		return
	}

	v := timingView{Record: rec, Complete: rec.Complete()}
	if v.Complete {
		local, remote, total := timing.Durations(rec)
		v.LocalDurationNs, v.RemoteDurationNs, v.TotalLatencyNs = &local, &remote, &total
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}
