package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/cache"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/domain/models"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/storage"
)

const (
	topSalesLimit     = 5
	latestOrdersLimit = 6
)

// ReportService строит сводные отчёты по заказам за период.
type ReportService interface {
	GetOrderSummary(ctx context.Context, from, to time.Time) (*models.OrderSummary, error)
}

type reportService struct {
	log        *slog.Logger
	reportRepo storage.ReportStorage
	cache      cache.Cache
}

func NewReportService(log *slog.Logger, reportRepo storage.ReportStorage, c cache.Cache) ReportService {
	return &reportService{
		log:        log,
		reportRepo: reportRepo,
		cache:      c,
	}
}

// GetOrderSummary возвращает сводку за период [from, to], включительно с обеих
// сторон. Результат кешируется по ключу периода; в пределах TTL агрегирующие
// запросы к БД не повторяются. Ошибки кеша не фатальны: сводка просто
// пересчитывается, а ошибки агрегации поднимаются наверх без частичного ответа.
func (s *reportService) GetOrderSummary(ctx context.Context, from, to time.Time) (*models.OrderSummary, error) {
	const op = "report.GetOrderSummary"
	logger := s.log.With(
		slog.String("op", op),
		slog.Time("from", from),
		slog.Time("to", to),
	)

	key := cacheKey(from, to)
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		logger.Warn("cache lookup failed", slog.Any("error", err))
	} else if ok {
		var summary models.OrderSummary
		if err := json.Unmarshal(cached, &summary); err != nil {
			logger.Warn("failed to decode cached summary", slog.Any("error", err))
		} else {
			logger.Info("summary served from cache")
			return &summary, nil
		}
	}

	summary, err := s.buildSummary(ctx, from, to)
	if err != nil {
		logger.Error("failed to build summary", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	encoded, err := json.Marshal(summary)
	if err != nil {
		logger.Warn("failed to encode summary for cache", slog.Any("error", err))
	} else if err := s.cache.Set(ctx, key, encoded); err != nil {
		logger.Warn("failed to cache summary", slog.Any("error", err))
	}

	logger.Info("summary computed", slog.Int64("ordersCount", summary.OrdersCount))
	return summary, nil
}

func (s *reportService) buildSummary(ctx context.Context, from, to time.Time) (*models.OrderSummary, error) {
	ordersCount, err := s.reportRepo.CountOrders(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	productsCount, err := s.reportRepo.CountProducts(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	usersCount, err := s.reportRepo.CountUsers(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	totalSales, err := s.reportRepo.TotalSales(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum sales: %w", err)
	}
	monthlySales, err := s.reportRepo.MonthlySales(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly sales: %w", err)
	}
	dailySales, err := s.reportRepo.DailySales(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily sales: %w", err)
	}
	topCategories, err := s.reportRepo.TopCategoriesByUnits(ctx, from, to, topSalesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top categories: %w", err)
	}
	topProducts, err := s.reportRepo.TopProductsByRevenue(ctx, from, to, topSalesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top products: %w", err)
	}
	latestOrders, err := s.reportRepo.LatestOrders(ctx, latestOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest orders: %w", err)
	}

	return &models.OrderSummary{
		OrdersCount:        ordersCount,
		ProductsCount:      productsCount,
		UsersCount:         usersCount,
		TotalSales:         totalSales,
		MonthlySales:       monthlySales,
		SalesChartData:     dailySales,
		TopSalesCategories: topCategories,
		TopSalesProducts:   topProducts,
		LatestOrders:       latestOrders,
	}, nil
}

// cacheKey нормализует период к UTC, чтобы один и тот же диапазон,
// запрошенный в разных зонах, попадал в одну запись кеша.
func cacheKey(from, to time.Time) string {
	return from.UTC().Format(time.RFC3339) + "|" + to.UTC().Format(time.RFC3339)
}
