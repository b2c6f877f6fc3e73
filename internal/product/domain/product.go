package domain

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	ImageURL    string `json:"image_url,omitempty"`
	// Meta is a free-form bag for catalog attributes the schema does not
	// model (sizes, tags, vendor fields).
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
