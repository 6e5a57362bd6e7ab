package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/database"
	"github.com/iliyamo/task-tracker/internal/handler"
	"github.com/iliyamo/task-tracker/internal/middleware"
	"github.com/iliyamo/task-tracker/internal/queue"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("ensure schema: %v", err)
	}
	cancel()

	users := repository.NewUserRepo(db)
	tasks := repository.NewTaskRepo(db)

	// Redis is optional: a nil client disables the task response cache.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis not reachable, task cache disabled")
	}
	cache := middleware.NewTaskCache(config.LoadCacheConfig(), rdb)

	authHandler := handler.NewAuthHandler(cfg, users)
	userHandler := handler.NewUserHandler()
	taskHandler := handler.NewTaskHandler(tasks, cache)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler)
	router.RegisterProtected(e, userHandler, taskHandler,
		middleware.JWTAuth(cfg.JWTSecret, users), cache.Middleware())

	// Background consumer that turns auth.activity events into audit
	// log lines. Runs its own reconnect loop.
	go func() {
		if err := queue.StartAuthActivityConsumer(); err != nil {
			log.Printf("auth activity consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
