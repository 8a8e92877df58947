package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"github.com/robfig/cron"

	config "linkpost/configs"
	"linkpost/internal/api/handlers"
	"linkpost/internal/api/middleware"
	job "linkpost/internal/jobs"
	"linkpost/internal/repository"
	"linkpost/internal/scheduler"
	"linkpost/internal/service"
	"linkpost/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	scheduledRepo, err := repository.NewScheduledPostRepository(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open scheduled posts store: %v", err)
	}
	historyRepo, err := repository.NewHistoryRepository(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}

	cipher := utils.NewTokenCipher(cfg.SecretKey)

	linkedInService := service.NewLinkedInService(*cfg)
	historyService := service.NewHistoryService(historyRepo, linkedInService)

	sched := scheduler.New(scheduledRepo, historyService, linkedInService, cipher)
	if err := sched.Restore(context.Background()); err != nil {
		log.Fatalf("Failed to restore scheduler state: %v", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Linkedin-Token",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	auth := handlers.NewAuthHandler(*cfg, linkedInService)
	app.Get("/auth/linkedin", auth.Login)
	app.Get("/auth/linkedin/callback", auth.LoginCallback)

	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	api := app.Group("/api")
	api.Use(middleware.LinkedInToken())

	schedule := handlers.NewScheduleHandler(sched)
	api.Post("/schedule", schedule.SchedulePost)
	api.Get("/scheduled", schedule.ListScheduled)
	api.Get("/scheduled/failed", schedule.ListFailed)
	api.Put("/scheduled/:id", schedule.UpdateScheduled)
	api.Delete("/scheduled/:id", schedule.CancelScheduled)

	linkedIn := handlers.NewLinkedInHandler(linkedInService, historyService)
	api.Post("/linkedin/publish", linkedIn.PublishNow)
	api.Get("/linkedin/profile", linkedIn.Profile)
	api.Get("/linkedin/verify-token", linkedIn.VerifyToken)

	history := handlers.NewHistoryHandler(historyService)
	api.Get("/history/posts", history.ListPosts)
	api.Get("/history/posts/:id/stats", history.PostStats)

	// cron jobs
	statsJob := job.NewStatsRefreshJob(*cfg, historyRepo, historyService, linkedInService)

	c := cron.New()
	c.AddFunc("@every 0h1m0s", sched.Sweep)
	c.AddFunc("@every 1h0m0s", statsJob.RefreshStats)
	c.Start()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, c, sched)
}

func gracefulShutdown(app *fiber.App, c *cron.Cron, sched *scheduler.Scheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	c.Stop()
	sched.Stop()

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	log.Println("Server shutdown complete.")
}
