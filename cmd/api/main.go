package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aidar/teamhub/internal/app"
	"github.com/aidar/teamhub/internal/config"
	"github.com/aidar/teamhub/internal/logger"
)

func main() {
	// Загружаем конфигурацию из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Не удалось создать логгер: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	// Создаем экземпляр приложения
	application, err := app.New(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to create application", zap.Error(err))
	}

	// Инициализируем приложение (хранилище, миграции, роутинг)
	ctx := context.Background()
	if err := application.Initialize(ctx); err != nil {
		zapLogger.Fatal("failed to initialize application", zap.Error(err))
	}

	// Настраиваем graceful shutdown для корректного завершения
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Запускаем HTTP сервер в отдельной горутине
	serverErr := make(chan error, 1)
	go func() {
		if err := application.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Ожидаем сигнал прерывания (Ctrl+C или SIGTERM) или падение сервера
	select {
	case <-sigChan:
		zapLogger.Info("shutdown signal received")
	case err := <-serverErr:
		zapLogger.Error("server error", zap.Error(err))
	}

	// Создаем контекст с таймаутом для graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Корректно останавливаем приложение
	if err := application.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("failed to shutdown gracefully", zap.Error(err))
		os.Exit(1)
	}
}
