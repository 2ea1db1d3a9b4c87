package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow/internal/config"
	"github.com/BuzzLyutic/taskflow/internal/handler"
	"github.com/BuzzLyutic/taskflow/internal/prefs"
	"github.com/BuzzLyutic/taskflow/internal/repo"
	"github.com/BuzzLyutic/taskflow/internal/service"
	"github.com/BuzzLyutic/taskflow/internal/worker"
)

func main() {
	configPath := pflag.StringP("config", "c", "taskflow.jsonc", "path to config file (JSON with comments)")
	port := pflag.StringP("port", "p", "", "HTTP port, overrides config and PORT")
	dsn := pflag.String("db", "", "SQLite path or postgres:// URL, overrides config and DATABASE_URL")
	pflag.Parse()

	// Подключаем логгер
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Загрузка конфигурации
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *dsn != "" {
		cfg.DatabaseURL = *dsn
	}

	// Живет до остановки процесса, сессии и фоновые задачи наследуют его
	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	// Подключаем БД
	taskRepo, err := repo.Open(appCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to open the Database", zap.Error(err))
	}
	logger.Info("Successfully connected to the Database!")

	store := repo.NewTaskStore(taskRepo, logger)
	prefStore := prefs.NewStore(cfg.PrefsPath, logger)

	pool := worker.NewPool(logger, cfg.WorkerCount, cfg.WorkerCount*4)
	pool.Start(appCtx)

	// Демо-данные только при первом запуске
	err = pool.Submit(appCtx, worker.Job{
		Name: "seed",
		Run: func(ctx context.Context) error {
			n, err := store.Seed(ctx)
			if n > 0 {
				logger.Info("Seeded demo tasks", zap.Int("count", n))
			}
			return err
		},
	})
	if err != nil {
		logger.Fatal("Failed to schedule seeding", zap.Error(err))
	}

	h := handler.NewTaskHandler(appCtx, store, prefStore,
		service.NewDeleteCompletedService(store, pool, logger),
		cfg.EventBuffer, logger)

	r := chi.NewRouter() // Создаем роутер
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	srv := http.Server{ // Создаем сервер
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		// WriteTimeout не задаем: SSE-потоки держат ответ открытым
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")

	// Сначала закрываем сессии, иначе открытые SSE-потоки держат Shutdown
	h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}

	// Пул дорабатывает уже принятые задачи, например удаление выполненных
	pool.Stop()
	stopApp()
	taskRepo.Close()

	logger.Info("Server stopped successfully!")
}
