package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"miniecom/internal/product/domain"
)

var ErrInvalidRequest = errors.New("invalid request")

const defaultCurrency = "USD"

type ProductRepository interface {
	Create(ctx context.Context, p domain.Product) error
	Get(ctx context.Context, id string) (domain.Product, error)
	Update(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page, limit int) ([]domain.Product, error)
}

type Service struct {
	log  *slog.Logger
	repo ProductRepository
}

func NewService(log *slog.Logger, repo ProductRepository) *Service {
	return &Service{log: log, repo: repo}
}

func (s *Service) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.Name == "" || p.PriceCents <= 0 {
		return domain.Product{}, ErrInvalidRequest
	}
	if p.Currency == "" {
		p.Currency = defaultCurrency
	}
	if p.Meta == nil {
		p.Meta = map[string]any{}
	}
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt

	if err := s.repo.Create(ctx, p); err != nil {
		return domain.Product{}, err
	}
	s.log.Info("product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, update domain.Product) (domain.Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	if update.Name != "" {
		p.Name = update.Name
	}
	if update.Description != "" {
		p.Description = update.Description
	}
	if update.PriceCents > 0 {
		p.PriceCents = update.PriceCents
	}
	if update.Currency != "" {
		p.Currency = update.Currency
	}
	if update.ImageURL != "" {
		p.ImageURL = update.ImageURL
	}
	if update.Meta != nil {
		p.Meta = update.Meta
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, page, limit int) ([]domain.Product, error) {
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, page, limit)
}
