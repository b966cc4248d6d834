package shop

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceLookup resolves the current unit price of a product.
type PriceLookup func(ctx context.Context, productID string) (decimal.Decimal, error)

// ComputeTotal sums price * qty over the lines with prices taken from the
// lookup, so a total always reflects the ledger's pricing at the moment it
// is computed, never a cached value.
func ComputeTotal(ctx context.Context, items []CartItem, priceOf PriceLookup) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, it := range items {
		price, err := priceOf(ctx, it.ProductID)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return total, nil
}
