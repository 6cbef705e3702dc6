package mw

import (
	"net/http"
	"strconv"

	"github.com/3xpluto/second-service/internal/timing"
)

// TimeStart stamps the time-start response header before next runs, so a
// caller speaking the timing protocol can attribute our share of the latency.
// It never rejects a request.
func TimeStart(clock timing.Clock, next http.Handler) http.Handler {
	if clock == nil {
		clock = timing.Now
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(timing.HeaderTimeStart, strconv.FormatInt(clock(), 10))
		next.ServeHTTP(w, r)
	})
}
