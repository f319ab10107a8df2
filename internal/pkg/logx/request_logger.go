package logx

import (
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// anonymizeIP keeps the network part of an address: /24 for IPv4, /48 for IPv6.
func anonymizeIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return "unknown_ip"
	}
	addr = addr.Unmap()

	if addr.IsLoopback() {
		return addr.String()
	}

	bits := 48
	if addr.Is4() {
		bits = 24
	}

	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "unknown_ip"
	}
	return prefix.Addr().String()
}

// RequestLogger returns an HTTP middleware that logs one line per request and injects a
// request-scoped logger into the context (retrieve it with zerolog.Ctx).
// WebSocket upgrades are logged when the socket closes, so their latency is the socket lifetime.
// Health checks are logged at Debug level.
func RequestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			logger := Component("http").With().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("remote_ip", anonymizeIP(r.RemoteAddr)).
				Str("request_method", r.Method).
				Str("request_uri", r.RequestURI).
				Logger()

			r = r.WithContext(logger.WithContext(r.Context()))
			next.ServeHTTP(ww, r)

			status := ww.Status()

			var event *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				event = logger.Error()
			case status >= http.StatusBadRequest:
				event = logger.Warn()
			case r.URL.Path == "/health":
				event = logger.Debug()
			default:
				event = logger.Info()
			}

			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					event = event.Str("route", pattern)
				}
			}
			if r.Header.Get("Upgrade") == "websocket" {
				event = event.Bool("websocket", true)
			}

			event.
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Msg("Request completed")
		})
	}
}
