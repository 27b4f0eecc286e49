package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDiscountAboveRegular = errors.New("discounted price exceeds regular price")
	ErrUnknownVariation     = errors.New("unknown variation")
)

type Variation struct {
	ID              string  `json:"id" bson:"id" yaml:"id"`
	Name            string  `json:"name" bson:"name" yaml:"name"`
	RegularPrice    float64 `json:"regularPrice" bson:"regular_price" yaml:"regularPrice"`
	DiscountedPrice float64 `json:"discountedPrice" bson:"discounted_price" yaml:"discountedPrice"`
	IsStock         bool    `json:"isStock" bson:"is_stock" yaml:"isStock"`
}

type Product struct {
	ID                int64       `json:"_id" bson:"product_id" yaml:"id"`
	Name              string      `json:"name" bson:"name" yaml:"name"`
	Description       string      `json:"description,omitempty" bson:"description,omitempty" yaml:"description"`
	Images            []string    `json:"images,omitempty" bson:"images,omitempty" yaml:"images"`
	RegularPrice      float64     `json:"regularPrice" bson:"regular_price" yaml:"regularPrice"`
	DiscountedPrice   float64     `json:"discountedPrice" bson:"discounted_price" yaml:"discountedPrice"`
	Category          string      `json:"category,omitempty" bson:"category,omitempty" yaml:"category"`
	Brand             string      `json:"brand,omitempty" bson:"brand,omitempty" yaml:"brand"`
	Base              string      `json:"_base" bson:"base" yaml:"base"`
	PageType          string      `json:"pageType,omitempty" bson:"page_type,omitempty" yaml:"pageType"`
	IsStock           bool        `json:"isStock" bson:"is_stock" yaml:"isStock"`
	IsNew             bool        `json:"isNew,omitempty" bson:"is_new,omitempty" yaml:"isNew"`
	IsKitchenOnly     bool        `json:"isKitchenOnly,omitempty" bson:"is_kitchen_only,omitempty" yaml:"isKitchenOnly"`
	Variations        []Variation `json:"variations,omitempty" bson:"variations,omitempty" yaml:"variations"`
	SelectedVariation string      `json:"selectedVariation,omitempty" bson:"selected_variation,omitempty" yaml:"-"`
}

// Validate checks the price invariant on the product and every variation.
func (p Product) Validate() error {
	if p.DiscountedPrice > p.RegularPrice {
		return fmt.Errorf("product %d: %w", p.ID, ErrDiscountAboveRegular)
	}
	for _, v := range p.Variations {
		if v.DiscountedPrice > v.RegularPrice {
			return fmt.Errorf("product %d variation %s: %w", p.ID, v.ID, ErrDiscountAboveRegular)
		}
	}
	return nil
}

func (p Product) Variation(id string) (Variation, bool) {
	for _, v := range p.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

// WithVariation returns p priced as variation id: its prices and stock flag
// replace the product's. An empty id returns p unchanged.
func (p Product) WithVariation(id string) (Product, error) {
	if id == "" {
		p.SelectedVariation = ""
		return p, nil
	}
	v, ok := p.Variation(id)
	if !ok {
		return Product{}, fmt.Errorf("product %d: %w %q", p.ID, ErrUnknownVariation, id)
	}
	p.RegularPrice = v.RegularPrice
	p.DiscountedPrice = v.DiscountedPrice
	p.IsStock = v.IsStock
	p.SelectedVariation = id
	return p, nil
}

// UnitPrice is what one unit costs at checkout: the discounted price, or the
// regular price when no discount is set.
func (p Product) UnitPrice() float64 {
	if p.DiscountedPrice > 0 {
		return p.DiscountedPrice
	}
	return p.RegularPrice
}

type Category struct {
	ID            int64  `json:"_id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Image         string `json:"image,omitempty" yaml:"image"`
	Description   string `json:"description,omitempty" yaml:"description"`
	Base          string `json:"_base" yaml:"base"`
	IsKitchenPage bool   `json:"isKitchenPage,omitempty" yaml:"isKitchenPage"`
}
