package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/catalog-backend/internal/obs"
)

// Routing keys of catalog change events.
const (
	EventProductCreated      = "product.created"
	EventProductStockUpdated = "product.stock_updated"
	EventProductDeleted      = "product.deleted"
)

// Publisher delivers catalog change events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// Event is the payload published after a successful write.
type Event struct {
	Type         string    `json:"type"`
	ProductID    string    `json:"product_id"`
	Product      *Product  `json:"product,omitempty"`
	VariantIndex *int      `json:"variant_index,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Service defines catalog business logic.
type Service interface {
	ListProducts(ctx context.Context) ([]*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	UpdateVariantStock(ctx context.Context, id string, index, stock int) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error
	Seed(ctx context.Context) (int, error)
	Health(ctx context.Context) error
}

// CreateProductRequest holds the already-parsed data for a new product.
type CreateProductRequest struct {
	Name     string
	Price    decimal.Decimal
	Category string
	Variants []Variant
}

type service struct {
	repo Repository
	pub  Publisher
	now  func() time.Time
}

// NewService wires the catalog service. Pass events.Nop{} when no broker is
// configured.
func NewService(repo Repository, pub Publisher) Service {
	return &service{repo: repo, pub: pub, now: time.Now}
}

func (s *service) ListProducts(ctx context.Context) ([]*Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []*Product{}
	}
	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	p := &Product{
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
		Variants: make([]Variant, 0, len(req.Variants)),
	}
	for _, v := range req.Variants {
		v.ID = uuid.NewString()
		p.Variants = append(p.Variants, v)
	}
	if err := ValidateProduct(p); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.publish(ctx, EventProductCreated, Event{ProductID: p.ID, Product: p})
	return p, nil
}

// UpdateVariantStock is a read-modify-write of one product document. Two
// concurrent updates of the same product race and the last write wins.
func (s *service) UpdateVariantStock(ctx context.Context, id string, index, stock int) (*Product, error) {
	if err := ValidateStock("stock", stock); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(p.Variants) {
		return nil, ErrInvalidVariantIndex
	}
	p.Variants[index].Stock = stock
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.publish(ctx, EventProductStockUpdated, Event{ProductID: p.ID, Product: p, VariantIndex: &index})
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, EventProductDeleted, Event{ProductID: id})
	return nil
}

func (s *service) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *service) publish(ctx context.Context, key string, ev Event) {
	ev.Type = key
	ev.OccurredAt = s.now().UTC()
	if err := s.pub.Publish(ctx, key, ev); err != nil {
		obs.Logger.Warn("event_publish_failed", "routing_key", key, "product_id", ev.ProductID, "error", err)
	}
}
