package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/service"
)

// dateOnly — укороченный формат для запросов вида ?from=2026-08-01
const dateOnly = "2006-01-02"

// OrderSummaryHandler обрабатывает запрос GET /api/reports/summary?from=...&to=...
// Даты принимаются в RFC3339 или в виде YYYY-MM-DD. Только для администраторов.
func OrderSummaryHandler(log *slog.Logger, reportService service.ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderSummaryHandler"
		logger := log.With(slog.String("op", op))

		if !requireAdmin(logger, w, r) {
			return
		}

		from, err := parseDateParam(r.URL.Query().Get("from"), false)
		if err != nil {
			logger.Warn("invalid from parameter", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, "invalid from parameter")
			return
		}
		to, err := parseDateParam(r.URL.Query().Get("to"), true)
		if err != nil {
			logger.Warn("invalid to parameter", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, "invalid to parameter")
			return
		}
		if to.Before(from) {
			writeError(w, http.StatusBadRequest, "to must not be before from")
			return
		}

		summary, err := reportService.GetOrderSummary(r.Context(), from, to)
		if err != nil {
			logger.Error("failed to build summary", slog.Any("error", err))
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, summary)
	}
}

// parseDateParam разбирает границу периода. Для даты без времени верхняя
// граница расширяется до конца суток, чтобы период оставался включительным.
func parseDateParam(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
