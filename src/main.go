package main

import (
	"fmt"
	"log"
	"net/url"
	"os"

	"surveyhub-backend/src/database"
	"surveyhub-backend/src/jobs"
	"surveyhub-backend/src/routes"
	"surveyhub-backend/src/seeder"
	"surveyhub-backend/src/services/responses"
	"surveyhub-backend/src/services/surveys"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	"github.com/hibiken/asynq"
)

func main() {

	// Connect MongoDB
	err := database.ConnectMongoDB()
	if err != nil {
		log.Fatalf("Error connecting to the database: %v", err)
	}

	// Redis + Asynq (optional, delayed tasks degrade to the sweep without them)
	database.InitRedis()
	database.InitAsynq()

	// Wire the services
	surveys.Init()
	responses.Init()

	if os.Getenv("SEED_SAMPLE_DATA") == "true" {
		if err := seeder.SeedSampleSurveys(); err != nil {
			log.Println("⚠️ Seeding failed:", err)
		}
	}

	// Lifecycle sweep: the backstop behind the per-survey delayed close tasks
	scheduler := surveys.NewScheduler(surveys.Default())
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Error starting lifecycle sweep: %v", err)
	}
	defer scheduler.Stop()

	// Delayed-task worker
	if database.AsynqClient != nil {
		go startAsynqWorker()
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
	}))

	app.Get("/swagger/*", swagger.HandlerDefault)

	routes.InitRoutes(app)

	appURI := os.Getenv("APP_URI")
	if appURI == "" {
		appURI = "8888"
	}

	log.Println("Server is running on port " + appURI)
	err = app.Listen(fmt.Sprintf(":%s", url.PathEscape(appURI)))
	if err != nil {
		log.Fatal(err)
	}
}

func startAsynqWorker() {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: database.RedisURI},
		asynq.Config{Concurrency: 5},
	)

	mux := asynq.NewServeMux()
	jobs.RegisterSurveyHandlers(mux)
	responses.RegisterTaskHandlers(mux)

	log.Println("✅ Asynq worker started")
	if err := srv.Run(mux); err != nil {
		log.Fatalf("Asynq worker stopped: %v", err)
	}
}
