package models

import "time"

// Order statuses as the back-office API reports them.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipping  = "shipping"
	OrderCompleted = "completed"
	OrderCanceled  = "canceled"
)

type Order struct {
	ID         string      `json:"id"`
	Code       string      `json:"code"` // human-facing order code
	CustomerID string      `json:"customer_id"`
	BranchID   string      `json:"branch_id"`
	Status     string      `json:"status"`
	Total      float64     `json:"total"`
	Lines      []OrderLine `json:"lines,omitempty"`
	PlacedAt   time.Time   `json:"placed_at"`
}

type OrderLine struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type Customer struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone,omitempty"`
	Email    string    `json:"email,omitempty"`
	Address  string    `json:"address,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}
