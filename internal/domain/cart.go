package domain

import (
	"github.com/shopspring/decimal"
)

// CartLine is what the client submits; prices are never taken from it.
type CartLine struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// Variant is the catalog's view of a purchasable variant.
type Variant struct {
	ProductID     string          `json:"product_id"`
	VariantID     string          `json:"variant_id"`
	ProductName   string          `json:"product_name"`
	VariantName   string          `json:"variant_name"`
	Weight        string          `json:"weight"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Active        bool            `json:"active"`
}

type PricedLine struct {
	Variant  Variant
	Quantity int
}

func (l PricedLine) Total() decimal.Decimal {
	return l.Variant.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l PricedLine) Snapshot() OrderItem {
	return OrderItem{
		ProductID:   l.Variant.ProductID,
		VariantID:   l.Variant.VariantID,
		ProductName: l.Variant.ProductName,
		VariantName: l.Variant.VariantName,
		Weight:      l.Variant.Weight,
		Price:       l.Variant.Price,
		Quantity:    l.Quantity,
	}
}

type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// MergeCartLines validates lines and folds repeated variants into one line,
// keeping first-seen order.
func MergeCartLines(lines []CartLine) ([]CartLine, error) {
	if len(lines) == 0 {
		return nil, NewError(KindInvalidInput, "cart is empty")
	}

	merged := make([]CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))

	for _, line := range lines {
		if line.ProductID == "" || line.VariantID == "" {
			return nil, NewError(KindInvalidInput, "cart line is missing product or variant id")
		}
		if line.Quantity < 1 {
			return nil, NewError(KindInvalidInput, "quantity for variant %s must be at least 1", line.VariantID)
		}

		key := line.ProductID + "/" + line.VariantID
		if i, ok := index[key]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, line)
	}

	return merged, nil
}
