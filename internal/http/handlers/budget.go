package handlers

import (
	"net/http"

	"creativegen/internal/ledger"
)

type budgetResponse struct {
	Month       string  `json:"month"`
	Spent       float64 `json:"spent"`
	Budget      float64 `json:"budget"`
	Remaining   float64 `json:"remaining"`
	Utilization float64 `json:"utilization"`
	Warning     bool    `json:"warning"`
}

// BudgetGet reports month-to-date spend against the configured budget.
func (a *App) BudgetGet(w http.ResponseWriter, r *http.Request) {
	now := a.now()
	spent, err := a.Spend.MonthTotal(r.Context(), now)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	budget := a.Budget
	if budget <= 0 {
		budget = ledger.DefaultBudget
	}
	ratio := a.WarnRatio
	if ratio <= 0 {
		ratio = ledger.DefaultWarnRatio
	}
	utilization := spent / budget
	a.json(w, http.StatusOK, budgetResponse{
		Month:       ledger.MonthStart(now).Format("2006-01"),
		Spent:       spent,
		Budget:      budget,
		Remaining:   budget - spent,
		Utilization: utilization,
		Warning:     utilization >= ratio,
	})
}
