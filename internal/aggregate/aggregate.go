// Package aggregate derives the numbers shown on top of API data: balances,
// active budgets, global budget health and progress colours.
//
// Everything here is a pure function of its inputs.
package aggregate

import (
	"fmt"
	"math"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/shopspring/decimal"
)

// NetBalance sums +amount for income and -amount for expenses. The result does
// not depend on the order of txs.
func NetBalance(txs []domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Signed())
	}
	return total
}

// ActiveBudgets keeps the budgets whose inclusive period contains today.
// Dates are compared as YYYY-MM-DD strings.
func ActiveBudgets(budgets []domain.Budget, today string) []domain.Budget {
	today = domain.DayOf(today)
	active := make([]domain.Budget, 0, len(budgets))
	for _, b := range budgets {
		if domain.DayOf(b.PeriodStart) <= today && today <= domain.DayOf(b.PeriodEnd) {
			active = append(active, b)
		}
	}
	return active
}

// GlobalHealth is the mean of min(consumedPercent, 100) over budgets, or 0
// when there are none.
func GlobalHealth(budgets []domain.Budget) float64 {
	if len(budgets) == 0 {
		return 0
	}
	var sum float64
	for _, b := range budgets {
		sum += math.Min(b.ConsumedPercent, 100)
	}
	return sum / float64(len(budgets))
}

// HealthScore is the remaining headroom displayed on the dashboard:
// 100 minus the rounded global health.
func HealthScore(globalHealth float64) int {
	return 100 - int(roundHalfUp(globalHealth))
}

// HealthLevel buckets a HealthScore for display.
func HealthLevel(score int) Level {
	switch {
	case score >= 70:
		return LevelOK
	case score >= 40:
		return LevelWarning
	default:
		return LevelExceeded
	}
}

// ============================================================
// Progress bars
// ============================================================

// RGB is an 8-bit colour.
type RGB struct {
	R, G, B uint8
}

// Hex formats c as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

var (
	colorLow  = RGB{132, 204, 22}
	colorMid  = RGB{255, 218, 85}
	colorHigh = RGB{251, 113, 133}
)

// ProgressColor interpolates linearly from green (0%) to yellow (50%) to
// red (100%). pct is clamped to [0, 100] and channels are rounded half up.
func ProgressColor(pct float64) RGB {
	p := ProgressWidth(pct)
	if p <= 50 {
		return lerp(colorLow, colorMid, p/50)
	}
	return lerp(colorMid, colorHigh, (p-50)/50)
}

// ProgressWidth clamps pct to [0, 100]. NaN counts as 0.
func ProgressWidth(pct float64) float64 {
	if math.IsNaN(pct) {
		return 0
	}
	return math.Max(0, math.Min(pct, 100))
}

func lerp(a, b RGB, t float64) RGB {
	ch := func(x, y uint8) uint8 {
		return uint8(roundHalfUp(float64(x) + (float64(y)-float64(x))*t))
	}
	return RGB{R: ch(a.R, b.R), G: ch(a.G, b.G), B: ch(a.B, b.B)}
}

func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// Level is the severity of a budget's consumption.
type Level string

const (
	LevelOK       Level = "ok"
	LevelWarning  Level = "warning"
	LevelExceeded Level = "exceeded"
)

// BudgetLevel classifies b: exceeded at 100% or when the API flags it,
// warning from 75%.
func BudgetLevel(b domain.Budget) Level {
	switch {
	case b.IsExceeded || b.ConsumedPercent >= 100:
		return LevelExceeded
	case b.ConsumedPercent >= 75:
		return LevelWarning
	default:
		return LevelOK
	}
}

// ============================================================
// Dashboard timeline
// ============================================================

// SplitTimeline separates txs, as ordered by the API, around today. It
// returns the first `recent` transactions dated today or earlier, and the
// last `upcoming` future transactions in reverse order.
func SplitTimeline(txs []domain.Transaction, today string, recent, upcoming int) (past, future []domain.Transaction) {
	today = domain.DayOf(today)
	var allPast, allFuture []domain.Transaction
	for _, tx := range txs {
		if tx.Day() > today {
			allFuture = append(allFuture, tx)
		} else {
			allPast = append(allPast, tx)
		}
	}

	past = allPast[:min(recent, len(allPast))]

	tail := allFuture[len(allFuture)-min(upcoming, len(allFuture)):]
	future = make([]domain.Transaction, 0, len(tail))
	for i := len(tail) - 1; i >= 0; i-- {
		future = append(future, tail[i])
	}
	return past, future
}
