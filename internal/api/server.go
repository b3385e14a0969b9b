package api

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitegen-backend/internal/sitegen/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/pkg/errors"
)

func NewServer(corsOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		AppName:      "SiteGen Backend",
		BodyLimit:    8 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	return app
}

// customErrorHandler renders errors that escaped the handlers. Fiber errors keep
// their status; anything else becomes a generic 500.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	} else if kind := apperr.KindOf(err); kind != apperr.KindInternal {
		code = apperr.HTTPStatus(err)
		message = apperr.Message(err)
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func StartServer(app *fiber.App, port string) error {
	if port == "" {
		port = "3000"
	}

	listenErr := make(chan error, 1)
	go func() {
		log.Printf("🚀 Server starting on port %s\n", port)
		listenErr <- app.Listen(":" + port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-listenErr:
		return err
	case <-quit:
	}

	log.Println("Shutting down server...")
	return app.ShutdownWithTimeout(30 * time.Second)
}
