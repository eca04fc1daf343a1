package cart

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agromercado/cartstate/internal/domain"
	"github.com/agromercado/cartstate/internal/pricing"
)

// SchemaVersion tags exported snapshots. Imports of other versions are
// accepted with a logged warning.
const SchemaVersion = "1.0"

// Snapshot is the persisted record: line items, the config they were priced
// under and a metadata block. Derived totals are intentionally absent; they
// are recomputed from the items on import and never trusted from storage.
type Snapshot struct {
	Items    []domain.LineItem `json:"items"`
	Config   domain.CartConfig `json:"config"`
	Metadata Metadata          `json:"metadata"`
}

type Metadata struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"lastUpdated"`
	Client      string    `json:"userAgent,omitempty"`
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("json.Unmarshal: %w", err)
	}
	return snap, nil
}

// sanitizeItems drops malformed imported lines and recomputes every line
// total from quantity and unit price.
func sanitizeItems(items []domain.LineItem, fallback domain.Currency) []domain.LineItem {
	var out []domain.LineItem
	for _, item := range items {
		if item.ID == "" || item.Product.ID == "" || item.Quantity <= 0 {
			continue
		}

		if item.Currency.IsZero() {
			item.Currency = fallback
		}
		item.UnitPrice.Currency = item.Currency
		item.TotalPrice = domain.Money{
			Amount:   pricing.LineTotal(item.UnitPrice.Amount, item.Quantity),
			Currency: item.Currency,
		}

		out = append(out, item)
	}
	return out
}
