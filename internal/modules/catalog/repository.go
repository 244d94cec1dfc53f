package catalog

import "context"

// Repository defines the interface for product document storage. Every method
// touches at most one document; there are no multi-document transactions.
type Repository interface {
	// Create persists p and sets p.ID to the id assigned by the store.
	Create(ctx context.Context, p *Product) error
	// GetByID returns ErrProductNotFound for unknown or unparseable ids.
	GetByID(ctx context.Context, id string) (*Product, error)
	// List returns every product in storage-native order.
	List(ctx context.Context) ([]*Product, error)
	// Update replaces the whole stored product. ErrProductNotFound if absent.
	Update(ctx context.Context, p *Product) error
	// Delete removes the product. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
