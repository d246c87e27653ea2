package models

import "time"

type Expense struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Date        Date      `json:"date"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ExpenseCategory is keyed by name. Expenses refer to it by name only.
type ExpenseCategory struct {
	Name          string  `json:"name"`
	IconName      string  `json:"iconName"`
	ColorHex      string  `json:"colorHex"`
	MonthlyBudget float64 `json:"monthlyBudget"`
}

type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// DefaultExpenseCategories are seeded into a freshly created database.
func DefaultExpenseCategories() []ExpenseCategory {
	return []ExpenseCategory{
		{Name: "Food", IconName: "Fastfood", ColorHex: "#FF6B6B", MonthlyBudget: 600.0},
		{Name: "Education", IconName: "School", ColorHex: "#4ECDC4", MonthlyBudget: 300.0},
		{Name: "Transport", IconName: "LocalGasStation", ColorHex: "#45B7D1", MonthlyBudget: 200.0},
		{Name: "Shopping", IconName: "ShoppingCart", ColorHex: "#96CEB4", MonthlyBudget: 250.0},
		{Name: "Entertainment", IconName: "Movie", ColorHex: "#FFA726", MonthlyBudget: 150.0},
		{Name: "Health", IconName: "LocalHospital", ColorHex: "#AB47BC", MonthlyBudget: 200.0},
	}
}
