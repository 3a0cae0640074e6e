package model

import "time"

// Product is the stock-bearing row shared by request and order items.
// Quantity only changes through the inventory movement writer.
type Product struct {
	ID        string    `db:"id" json:"id"`
	SKU       string    `db:"sku" json:"sku"`
	Name      string    `db:"name" json:"name"`
	Quantity  int64     `db:"quantity" json:"quantity"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
