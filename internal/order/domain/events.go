package domain

type OrderCreated struct {
	OrderID    string      `json:"orderId"`
	UserID     string      `json:"userId"`
	TotalCents int64       `json:"total_cents"`
	Items      []OrderItem `json:"items"`
}
