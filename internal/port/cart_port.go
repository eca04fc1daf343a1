package port

import (
	"context"

	"github.com/agromercado/cartstate/internal/domain"
)

// Cart is the session cart state manager consumed by the storefront layer.
// Mutations report their outcome as a value, never as an error; see
// domain.MutationResult.
type Cart interface {
	AddItem(ctx context.Context, product domain.Product, opts domain.AddOptions) domain.MutationResult
	RemoveItem(ctx context.Context, itemID string) domain.MutationResult
	// UpdateQuantity with a quantity of zero or below removes the line.
	UpdateQuantity(ctx context.Context, itemID string, quantity int) domain.MutationResult
	Clear(ctx context.Context) domain.MutationResult
	UpdateConfig(ctx context.Context, patch domain.ConfigPatch) domain.MutationResult

	State() domain.CartState
	Config() domain.CartConfig

	Export() ([]byte, error)
	Import(ctx context.Context, data []byte) error

	// Subscribe delivers coalesced change events until ctx is cancelled.
	Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error)

	// Close flushes any pending snapshot write and stops the broadcaster.
	Close() error
}
