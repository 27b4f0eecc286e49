package domain

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	catalog "github.com/fjod/snapeat/internal/catalog/domain"
)

var ErrInvalidCartKey = errors.New("invalid cart key")

// CartKey identifies a cart line. Two lines for the same product with
// different variations are different lines.
type CartKey struct {
	ProductID   int64
	VariationID string
}

func KeyFor(p catalog.Product) CartKey {
	return CartKey{ProductID: p.ID, VariationID: p.SelectedVariation}
}

func (k CartKey) String() string {
	if k.VariationID == "" {
		return strconv.FormatInt(k.ProductID, 10)
	}
	return fmt.Sprintf("%d:%s", k.ProductID, k.VariationID)
}

// ParseCartKey reads "id", "id:variation" or the legacy "id-variation".
// Only the first delimiter splits, so variation ids may contain either one.
func ParseCartKey(s string) (CartKey, error) {
	idPart, variation := s, ""
	if i := strings.IndexAny(s, ":-"); i >= 0 {
		idPart, variation = s[:i], s[i+1:]
		if variation == "" {
			return CartKey{}, fmt.Errorf("%w: %q has an empty variation", ErrInvalidCartKey, s)
		}
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return CartKey{}, fmt.Errorf("%w: %q", ErrInvalidCartKey, s)
	}
	return CartKey{ProductID: id, VariationID: variation}, nil
}

// CartLine is a product in the cart with its quantity (always >= 1).
type CartLine struct {
	catalog.Product `bson:",inline"`
	Quantity        int `json:"quantity" bson:"quantity"`
}

func (l CartLine) Key() CartKey {
	return KeyFor(l.Product)
}

// Snapshot is the persisted part of a session.
type Snapshot struct {
	CartProduct     []CartLine        `json:"cartProduct" bson:"cart_product"`
	FavoriteProduct []catalog.Product `json:"favoriteProduct" bson:"favorite_product"`
	CompareProducts []catalog.Product `json:"compareProducts" bson:"compare_products"`
}

func EmptySnapshot() Snapshot {
	return Snapshot{
		CartProduct:     []CartLine{},
		FavoriteProduct: []catalog.Product{},
		CompareProducts: []catalog.Product{},
	}
}

// Clone deep-copies the snapshot, product images and variations included, so
// the result can be read without holding the owning store's lock.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{
		CartProduct:     make([]CartLine, len(s.CartProduct)),
		FavoriteProduct: cloneProducts(s.FavoriteProduct),
		CompareProducts: cloneProducts(s.CompareProducts),
	}
	for i, l := range s.CartProduct {
		c.CartProduct[i] = CartLine{Product: cloneProduct(l.Product), Quantity: l.Quantity}
	}
	return c
}

func cloneProducts(in []catalog.Product) []catalog.Product {
	out := make([]catalog.Product, len(in))
	for i, p := range in {
		out[i] = cloneProduct(p)
	}
	return out
}

func cloneProduct(p catalog.Product) catalog.Product {
	p.Images = slices.Clone(p.Images)
	p.Variations = slices.Clone(p.Variations)
	return p
}

// Normalize replaces nil slices, which decode from older blobs.
func (s Snapshot) Normalize() Snapshot {
	if s.CartProduct == nil {
		s.CartProduct = []CartLine{}
	}
	if s.FavoriteProduct == nil {
		s.FavoriteProduct = []catalog.Product{}
	}
	if s.CompareProducts == nil {
		s.CompareProducts = []catalog.Product{}
	}
	return s
}
