package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/aggregate"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/service"
)

// budgetCard is an active budget as the dashboard draws it.
type budgetCard struct {
	domain.Budget
	Level aggregate.Level `json:"level"`
	Width float64         `json:"progressWidth"`
	Color string          `json:"progressColor"`
}

type dashboardResponse struct {
	domain.Dashboard
	Cards       []budgetCard    `json:"budgetCards"`
	HealthLevel aggregate.Level `json:"healthLevel"`
}

func dashboardHandler(dashSvc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /")
		defer span.End()

		d, err := dashSvc.Load(ctx)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		cards := make([]budgetCard, 0, len(d.ActiveBudgets))
		for _, b := range d.ActiveBudgets {
			cards = append(cards, budgetCard{
				Budget: b,
				Level:  aggregate.BudgetLevel(b),
				Width:  aggregate.ProgressWidth(b.ConsumedPercent),
				Color:  aggregate.ProgressColor(b.ConsumedPercent).String(),
			})
		}

		writeJSON(w, http.StatusOK, dashboardResponse{
			Dashboard:   d,
			Cards:       cards,
			HealthLevel: aggregate.HealthLevel(d.HealthScore),
		})
	}
}
