package domain

import "time"

type OrderStatus string

const (
	StatusCreated   OrderStatus = "created"
	StatusPaid      OrderStatus = "paid"
	StatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	Items      []OrderItem `json:"items"`
	TotalCents int64       `json:"total_cents"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type OrderItem struct {
	ProductID      string `json:"productId"`
	Qty            int64  `json:"qty"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

// NewOrder builds an order in the created state. The id is generated by the
// caller before any reservation call so it can anchor the whole saga.
func NewOrder(id, userID string, items []OrderItem) Order {
	var total int64
	for _, item := range items {
		total += item.Qty * item.UnitPriceCents
	}
	return Order{
		ID:         id,
		UserID:     userID,
		Items:      items,
		TotalCents: total,
		Status:     StatusCreated,
		CreatedAt:  time.Now().UTC(),
	}
}
