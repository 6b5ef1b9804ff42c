package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/hurricane-hunter/internal/balloon"
	"github.com/i474232898/hurricane-hunter/internal/storm"
)

const serviceName = "hurricane-hunter"

// BalloonHistory serves merged balloon trajectories.
type BalloonHistory interface {
	History(ctx context.Context) (balloon.History, error)
}

// StormAlerts serves filtered storm alerts.
type StormAlerts interface {
	Alerts(ctx context.Context) []storm.Alert
}

// Options configures the Fiber app built by NewApp.
type Options struct {
	CORSOrigins []string
	// AccessLog receives one line per request; nil disables access logging.
	AccessLog io.Writer
	Logger    *slog.Logger
}

// NewApp builds the Fiber app with middleware and all routes registered.
func NewApp(balloons BalloonHistory, storms StormAlerts, opts Options) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Cold history builds wait on upstream timeouts.
		WriteTimeout: 30 * time.Second,
		ErrorHandler: ErrorHandler(opts.Logger),
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	if opts.AccessLog != nil {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
			Output: opts.AccessLog,
		}))
	}
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(opts.CORSOrigins, ","),
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowCredentials: true,
	}))

	RegisterRoutes(app, balloons, storms)
	return app
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
// Errors that are not *fiber.Error are logged and reported as a plain 500.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			log.Error("request failed", "path", c.Path(), "request_id", c.Locals("requestid"), "error", err)
		}

		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": message,
		})
	}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, balloons BalloonHistory, storms StormAlerts) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Hurricane Hunter API is running"})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	api.Get("/balloons/history", func(c *fiber.Ctx) error {
		history, err := balloons.History(detach(c))
		if err != nil {
			if errors.Is(err, balloon.ErrNoData) {
				return fiber.NewError(fiber.StatusServiceUnavailable, "No balloon data available")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch balloon data")
		}
		return c.JSON(history)
	})

	api.Get("/storms", func(c *fiber.Ctx) error {
		return c.JSON(storms.Alerts(detach(c)))
	})
}

// detach keeps request values but drops cancellation, so a client that
// disconnects does not abort fetches that will populate the cache.
func detach(c *fiber.Ctx) context.Context {
	return context.WithoutCancel(c.UserContext())
}
