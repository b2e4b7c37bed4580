package clientip

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/mfakit/pkg/logger"
)

// Middleware stores the resolved address in the request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		next.ServeHTTP(w, req.WithContext(WithContext(req.Context(), r.IP(req))))
	})
}

// Extractor adds the client address to log records.
func Extractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		ip := FromContext(ctx)
		if ip == "" {
			return slog.Attr{}, false
		}
		return slog.String("client_ip", ip), true
	}
}
