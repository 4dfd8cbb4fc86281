// Package cartstore holds each user's session cart. Carts are ephemeral:
// a JSON list of product/size selections keyed by user, replaced whole on
// every mutation and cleared at checkout. Nothing here touches the order
// ledger.
package cartstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kimthedrew/legit-collections/models"
)

// TTL matches the session lifetime of the storefront.
const TTL = 7 * 24 * time.Hour

const keyFormat = "cart:user:%d"

type Store interface {
	// Get returns the cart for a user; a missing cart is an empty cart.
	Get(ctx context.Context, userID uint) ([]models.CartItem, error)
	// Replace overwrites the whole cart.
	Replace(ctx context.Context, userID uint, items []models.CartItem) error
	// Clear discards the cart.
	Clear(ctx context.Context, userID uint) error
}

func key(userID uint) string {
	return fmt.Sprintf(keyFormat, userID)
}

// MigrateLegacy converts cart payloads from the historical format, where an
// item could be either a bare product id or a tagged object, into tagged
// CartItems. Bare ids carry no size selection and map to size "N/A".
func MigrateLegacy(raw []json.RawMessage) []models.CartItem {
	items := make([]models.CartItem, 0, len(raw))
	for _, r := range raw {
		var item models.CartItem
		if err := json.Unmarshal(r, &item); err == nil && item.ProductID != 0 {
			items = append(items, item)
			continue
		}
		var id uint
		if err := json.Unmarshal(r, &id); err == nil && id != 0 {
			items = append(items, models.CartItem{ProductID: id, Size: "N/A"})
		}
	}
	return items
}
