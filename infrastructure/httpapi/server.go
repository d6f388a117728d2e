package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"dm-relay/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the public auth routes, the authenticated API and the
// WebSocket endpoint.
func NewRouter(handlers *Handlers, ws *WSHandler, issuer auth.TokenIssuer) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/api/register", handlers.Register)
	r.Post("/api/login", handlers.Login)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(issuer))
		r.Post("/api/logout", handlers.Logout)
		r.Get("/api/user", handlers.CurrentUser)
		r.Get("/api/users", handlers.Contacts)
		r.Get("/api/messages/{userID}", handlers.History)
		r.Get("/ws", ws.HandleWebSocket)
	})

	return r
}

// ServerWorker runs the HTTP server under the supervisor: listen until
// the supervised context cancels, then drain with a bounded shutdown.
type ServerWorker struct {
	log  *slog.Logger
	addr string
	mux  *chi.Mux
}

func NewServerWorker(log *slog.Logger, addr string, mux *chi.Mux) *ServerWorker {
	return &ServerWorker{log: log, addr: addr, mux: mux}
}

func (w *ServerWorker) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              w.addr,
		Handler:           w.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		w.log.Info("HTTP server listening", "addr", w.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
