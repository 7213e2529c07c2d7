package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/loteria-client/internal/hub"
	"github.com/DoyleJ11/loteria-client/internal/ws"
)

func SetupRoutes(ctrl Controller, h *hub.Hub, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/view", GetView(ctrl))
	r.Post("/commands/{name}", RunCommand(ctrl, log))
	r.Route("/polling", func(r chi.Router) {
		r.Post("/start", StartPolling(ctrl))
		r.Post("/stop", StopPolling(ctrl))
		r.Post("/resume", ResumePolling(ctrl))
	})
	if h != nil {
		r.Get("/ws", ws.Handler(h, ctrl, log))
	}
	return r
}
