package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/ws"
)

// Version is reported by /health.
var Version = "0.1.0"

type Dependencies struct {
	Pipeline  handler.Pipeline
	Frames    handler.FrameSource
	Residents handler.ResidentStore
	Activity  handler.ActivityFeed
	Hub       *ws.Hub
	// Probe backs /ready; nil reports always ready.
	Probe handler.ReadinessProbe

	Stream        handler.StreamConfig
	RateLimit     middleware.RateLimiterConfig
	ResidentRole  string
	MinNameLength int
	Host          string
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
	streamsDone chan struct{}
	cancelHub   context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(logger),
		AppName:               "HomeGuard",
		DisableStartupMessage: true,
	})

	return &Router{
		app:         app,
		logger:      logger,
		deps:        deps,
		streamsDone: make(chan struct{}),
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger, "/stream.mjpeg", "/ws"))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	host := "localhost:3000"
	if r.deps != nil && r.deps.Host != "" {
		host = r.deps.Host
	}
	sw := docs.NewSwagger(host)
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var probe handler.ReadinessProbe
	var clients handler.ClientCounter
	if r.deps != nil {
		probe = r.deps.Probe
		if r.deps.Hub != nil {
			clients = r.deps.Hub
		}
	}
	healthHandler := handler.NewHealthHandler(Version, probe, clients)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	if r.deps.Hub != nil {
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go r.deps.Hub.Run(hubCtx)

		r.app.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}

	apiGroup := r.app.Group("/api")

	if r.deps.Pipeline != nil {
		controlHandler := handler.NewControlHandler(r.deps.Pipeline, r.logger)
		apiGroup.Get("/status", controlHandler.Status)

		// State-changing routes share one per-client budget.
		r.rateLimiter = middleware.NewRateLimiter(r.deps.RateLimit)
		limit := r.rateLimiter.Handler()
		apiGroup.Post("/camera/start", limit, controlHandler.StartCamera)
		apiGroup.Post("/camera/stop", limit, controlHandler.StopCamera)
		apiGroup.Post("/recognition/start", limit, controlHandler.StartRecognition)
		apiGroup.Post("/recognition/stop", limit, controlHandler.StopRecognition)
		apiGroup.Post("/enrollment/start", limit, controlHandler.StartEnrollment)
		apiGroup.Post("/enrollment/cancel", limit, controlHandler.CancelEnrollment)
	}

	if r.deps.Frames != nil {
		streamHandler := handler.NewStreamHandler(r.deps.Frames, r.deps.Stream, r.streamsDone, r.logger)
		r.app.Get("/stream.mjpeg", streamHandler.MJPEG)
		apiGroup.Get("/frame.jpg", streamHandler.Frame)
	}

	if r.deps.Residents != nil {
		residentsHandler := handler.NewResidentsHandler(r.deps.Residents, r.deps.ResidentRole, r.deps.MinNameLength, r.logger)
		apiGroup.Get("/residents", residentsHandler.List)
		apiGroup.Post("/residents", residentsHandler.Create)
		apiGroup.Get("/residents/:id", residentsHandler.Get)
		apiGroup.Put("/residents/:id", residentsHandler.Update)
		apiGroup.Delete("/residents/:id", residentsHandler.Delete)
		apiGroup.Get("/residents/:id/dataset", residentsHandler.Dataset)
		apiGroup.Delete("/residents/:id/dataset", residentsHandler.DeleteDataset)
	}

	if r.deps.Activity != nil {
		activityHandler := handler.NewActivityHandler(r.deps.Activity)
		apiGroup.Get("/activity/latest", activityHandler.Latest)
		apiGroup.Get("/logs", activityHandler.Logs)
		apiGroup.Get("/events/:id", activityHandler.Event)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

// Shutdown ends open MJPEG streams and websocket clients, then stops the
// HTTP server.
func (r *Router) Shutdown() error {
	select {
	case <-r.streamsDone:
	default:
		close(r.streamsDone)
	}

	// Stop WebSocket hub
	if r.cancelHub != nil {
		r.cancelHub()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
