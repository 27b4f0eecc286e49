package service

import (
	"fmt"
	"strings"

	"github.com/fjod/snapeat/internal/catalog/domain"
)

var kitchenTags = []string{"kitchen", "food", "Kitchen", "Kitchen & Food"}

// MatchesCategory reports whether p belongs to the category addressed by token.
func MatchesCategory(p domain.Product, token string) bool {
	if p.Base == token || strings.EqualFold(p.Base, token) {
		return true
	}
	if name, ok := domain.AliasName(token); ok && p.Category == name {
		return true
	}
	if p.PageType != "" && strings.EqualFold(p.PageType, token) {
		return true
	}
	return false
}

// FilterByCategory keeps catalog order. An empty result is valid.
func FilterByCategory(products []domain.Product, token string) []domain.Product {
	matched := make([]domain.Product, 0)
	for _, p := range products {
		if MatchesCategory(p, token) {
			matched = append(matched, p)
		}
	}
	return matched
}

func IsKitchen(p domain.Product) bool {
	if p.IsKitchenOnly {
		return true
	}
	for _, tag := range kitchenTags {
		if p.Base == tag || p.PageType == tag || p.Category == tag {
			return true
		}
	}
	return false
}

func ExcludeKitchen(products []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if !IsKitchen(p) {
			out = append(out, p)
		}
	}
	return out
}

func OnlyKitchen(products []domain.Product) []domain.Product {
	out := make([]domain.Product, 0)
	for _, p := range products {
		if IsKitchen(p) {
			out = append(out, p)
		}
	}
	return out
}

// DetailPath is where the storefront renders a product.
func DetailPath(p domain.Product) string {
	if IsKitchen(p) {
		return fmt.Sprintf("/kitchen/%d", p.ID)
	}
	return fmt.Sprintf("/product/%d", p.ID)
}
