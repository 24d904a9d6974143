package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/viewcall/chatrelay/internal/infrastructure/configs"
	"github.com/viewcall/chatrelay/internal/infrastructure/logging"
	"github.com/viewcall/chatrelay/internal/infrastructure/ratelimiter"
	chatHandler "github.com/viewcall/chatrelay/internal/presentation/handler/chat"
	gatewayHandler "github.com/viewcall/chatrelay/internal/presentation/handler/gateway"
	healthHandler "github.com/viewcall/chatrelay/internal/presentation/handler/health"
	meetingsHandler "github.com/viewcall/chatrelay/internal/presentation/handler/meetings"
)

type Application struct {
	config          configs.Config
	chatHandler     *chatHandler.Handler
	meetingsHandler *meetingsHandler.Handler
	healthHandler   *healthHandler.Handler
	gatewayHandler  *gatewayHandler.Handler
	logger          logging.Logger
	ratelimiter     ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	chatHandler *chatHandler.Handler,
	meetingsHandler *meetingsHandler.Handler,
	healthHandler *healthHandler.Handler,
	gatewayHandler *gatewayHandler.Handler,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:          config,
		chatHandler:     chatHandler,
		meetingsHandler: meetingsHandler,
		healthHandler:   healthHandler,
		gatewayHandler:  gatewayHandler,
		logger:          logger,
		ratelimiter:     ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.enableCors)
	r.Use(app.loggerMiddleware)

	// websocket upgrades bypass the rate limiter and request timeout,
	// both would kill long-lived connections
	r.Get("/ws", app.gatewayHandler.ConnectHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(app.rateLimiterMiddleware)

		r.Route("/api", func(r chi.Router) {
			r.Route("/chat", func(r chi.Router) {
				r.Post("/rooms", app.chatHandler.UpsertRoomHandler)
				r.Get("/rooms/{roomId}", app.chatHandler.GetRoomHandler)
				r.Get("/rooms/{roomId}/messages", app.chatHandler.GetRoomMessagesHandler)
			})

			r.Post("/meetings", app.meetingsHandler.CreateMeetingHandler)
			r.Get("/meetings/{meetingId}", app.meetingsHandler.GetMeetingHandler)

			r.Get("/health", app.healthHandler.GetHealth)
			r.Get("/healthz", app.healthHandler.GetHealth)
			r.Get("/ready", app.healthHandler.GetHealth)
			r.Get("/live", app.healthHandler.GetHealth)
		})
	})

	return otelhttp.NewHandler(r, "chatrelay")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Startup, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Startup, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
