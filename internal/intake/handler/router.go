package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"formgate/internal/intake/middleware"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/platform/httputil"
	metadata "formgate/pkg/platform/middleware/metadata"
	"formgate/pkg/platform/middleware/requesttime"
)

// NewRouter builds the public router. Preflight requests are answered by the
// CORS middleware; every unknown method or path gets 405. trustProxyHeaders
// selects where the rate-limited client address comes from.
func NewRouter(h *Handler, guards *middleware.Guards, logger *slog.Logger, trustProxyHeaders bool) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata(trustProxyHeaders))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(guards.CORS)

	h.Register(r)

	r.NotFound(methodNotAllowed)
	r.MethodNotAllowed(methodNotAllowed)
	return r
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeMethodNotAllowed, "Method not allowed"))
}
