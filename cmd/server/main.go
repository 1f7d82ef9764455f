package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/app"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/app/handlers"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/cache"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/config"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/jwt-new/jwtmiddleware"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/lib/logger"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/lib/logger/handlers/urllog"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/notify"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/pricing"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/service"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// слои по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	reportRepo := storage.NewReportRepository(application.DB)

	// кеш отчётов: Redis для нескольких экземпляров, иначе память процесса
	var reportCache cache.Cache
	if cfg.Reports.RedisAddress != "" {
		log.Info("using redis report cache", slog.String("address", cfg.Reports.RedisAddress))
		reportCache = cache.NewRedis(cfg.Reports.RedisAddress, cfg.Reports.CacheTTL)
	} else {
		reportCache = cache.NewMemory(cfg.Reports.CacheSize, cfg.Reports.CacheTTL)
	}

	// SMS-шлюз: при пустом адресе уведомления просто не уходят
	smsGateway := notify.NewSMSGateway(cfg.Notify.GatewayAddress, cfg.Notify.APIKey, cfg.Notify.Sender)

	pricingEngine := pricing.NewEngine(cfg.Delivery.Options)

	authService := service.NewAuthService(application.Logger, userRepo, time.Duration(cfg.JWT.TokenTTL)*time.Minute)
	orderService := service.NewOrderService(application.Logger, application.DB, orderRepo, productRepo, userRepo, pricingEngine, smsGateway)
	reportService := service.NewReportService(application.Logger, reportRepo, reportCache)

	// публичные эндпоинты
	router.Post("/api/auth", handlers.AuthHandler(application.Logger, authService))
	router.Post("/api/register", handlers.RegisterHandler(application.Logger, authService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)
		// заказы текущего покупателя
		r.Post("/api/orders", handlers.CreateOrderHandler(application.Logger, orderService))
		r.Get("/api/orders", handlers.ListOrdersHandler(application.Logger, orderService))
		r.Get("/api/orders/{id}", handlers.GetOrderHandler(application.Logger, orderService))
		// административные переходы статуса
		r.Post("/api/orders/{id}/pay", handlers.PayOrderHandler(application.Logger, orderService))
		r.Post("/api/orders/{id}/deliver", handlers.DeliverOrderHandler(application.Logger, orderService))
		r.Delete("/api/orders/{id}", handlers.DeleteOrderHandler(application.Logger, orderService))
		// сводный отчёт для дашборда
		r.Get("/api/reports/summary", handlers.OrderSummaryHandler(application.Logger, reportService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", slog.Any("error", err))
		return
	}
	log.Info("server gracefully stopped")
}
