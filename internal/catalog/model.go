// Package catalog holds the product catalog and the recipient registry.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNoProducts is the distinct "nothing to show" outcome of browsing an empty catalog.
var ErrNoProducts = errors.New("catalog: no products")

// Product is a committed catalog entry. It is never updated or deleted.
type Product struct {
	ID          int64
	Name        string
	Description string
	Category    string
	// Price is expressed in the smallest currency unit.
	Price     int64
	Photos    []string
	CreatedAt time.Time
}

// HasPhotos reports whether the product can be rendered as an album.
func (p Product) HasPhotos() bool {
	return len(p.Photos) > 0
}

// NewProduct is the payload committed by a finished conversation.
type NewProduct struct {
	Name        string   `validate:"required"`
	Description string
	Category    string
	Price       int64    `validate:"gte=0"`
	Photos      []string `validate:"dive,required"`
}

// Recipient is anybody who ever talked to the bot.
type Recipient struct {
	ID          int64
	Username    string
	FirstName   string
	FirstAction string
	FirstSeenAt time.Time
}

// Store is the persistence contract consumed by the storefront components.
type Store interface {
	InsertProduct(ctx context.Context, p NewProduct) (int64, error)
	// ListProducts returns every product in insertion order; never nil.
	ListProducts(ctx context.Context) ([]Product, error)
	// RegisterRecipient is idempotent: an existing id is left untouched.
	RegisterRecipient(ctx context.Context, r Recipient) error
	ListRecipientIDs(ctx context.Context) ([]int64, error)
}

// Browse lists the catalog and turns an empty result into ErrNoProducts.
func Browse(ctx context.Context, s Store) ([]Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}
	return products, nil
}
