package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/baggage"

	"github.com/3xpluto/second-service/internal/category"
	"github.com/3xpluto/second-service/internal/httpx"
	"github.com/3xpluto/second-service/internal/mw"
	"github.com/3xpluto/second-service/internal/timing"
	"github.com/3xpluto/second-service/internal/upstream"
)

type handlers struct {
	log     *slog.Logger
	finder  category.Finder
	timings timing.Store
	info    StatusInfo
}

func (h *handlers) categories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.log.WarnContext(ctx, "categories baggage",
		slog.String("rid", mw.RID(ctx)),
		slog.Any("baggage", baggageMembers(ctx)),
	)

	list, err := h.finder.FindAll(ctx)
	if err != nil {
		attrs := []any{slog.String("rid", mw.RID(ctx)), slog.String("error", err.Error())}
		var se *upstream.StatusError
		if errors.As(err, &se) {
			attrs = append(attrs, slog.Int("upstream_status", se.Code))
		}
		h.log.ErrorContext(ctx, "category lookup failed", attrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if list == nil {
		list = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func baggageMembers(ctx context.Context) map[string]string {
	members := baggage.FromContext(ctx).Members()
	out := make(map[string]string, len(members))
	for _, m := range members {
		out[m.Key()] = m.Value()
	}
	return out
}
