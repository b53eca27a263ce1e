package api

import (
	"tasktracker/internal/api/handlers"
	"tasktracker/internal/config"
	"tasktracker/internal/middleware"
	"tasktracker/internal/models"
	"tasktracker/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApp builds the fiber app with every route registered.
func NewApp(deps *config.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "tasktracker",
		ErrorHandler:          middleware.ErrorResponder,
		DisableStartupMessage: true,
	})

	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.Config.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	RegisterRoutes(app, deps)
	return app
}

func RegisterRoutes(app *fiber.App, deps *config.Dependencies) {
	authHandler := &handlers.AuthHandler{Auth: deps.Auth}
	taskHandler := &handlers.TaskHandler{Board: deps.Board, Validate: deps.Validate}
	userHandler := &handlers.UserHandler{Accounts: deps.Accounts}
	session := middleware.RequireSession(deps.Sessions)

	api := app.Group("/api")
	api.Get("/health", handlers.Health)

	// Auth
	auth := api.Group("/auth")
	if deps.Config.RateLimitMax > 0 {
		auth.Use(limiter.New(limiter.Config{
			Max:        deps.Config.RateLimitMax,
			Expiration: deps.Config.RateLimitWindow,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"msg":     "Too many requests, try again later.",
					"success": false,
					"status":  fiber.StatusTooManyRequests,
				})
			},
		}))
	}
	auth.Post("/signup", authHandler.SignUp)
	auth.Post("/signin", authHandler.SignIn)
	auth.Post("/verify-otp", authHandler.VerifyOTP)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Get("/me", session, authHandler.Me)

	// Task
	tasks := api.Group("/tasks")
	tasks.Get("/", taskHandler.ListTasks)
	tasks.Post("/", taskHandler.CreateTask)
	tasks.Patch("/:id", taskHandler.UpdateTask)

	// Admin
	admin := api.Group("/admin", session, middleware.RequireRole(models.RoleAdmin))
	admin.Get("/accounts", userHandler.GetAllAccounts)

	// Realtime board channel
	app.Use("/ws", websocket.Upgrade)
	app.Get("/ws", deps.Syncer.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
