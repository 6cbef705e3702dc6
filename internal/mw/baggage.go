package mw

import (
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

// Baggage extracts inbound trace context and baggage headers into the request
// context. Handlers read them back with baggage.FromContext.
func Baggage(p propagation.TextMapPropagator, next http.Handler) http.Handler {
	if p == nil {
		p = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := p.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
