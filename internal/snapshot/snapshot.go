// Package snapshot encodes the persisted subset of a session. The document
// layout matches what the storefront front end has always written under the
// gameSyState key, so snapshots stay readable by both sides.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gamesy/storefront/internal/cart"
	"github.com/gamesy/storefront/internal/catalog"
	"github.com/gamesy/storefront/internal/engine"
)

var ErrCorrupt = errors.New("corrupt snapshot")

type Document struct {
	CurrentUser      string            `json:"currentUser"`
	Cart             []cart.Entry      `json:"cart"`
	View             string            `json:"view"`
	SelectedCategory *catalog.Category `json:"selectedCategory"`
	PlayerID         string            `json:"playerId"`
}

func Encode(s engine.State) ([]byte, error) {
	doc := Document{
		CurrentUser:      s.CurrentUser,
		Cart:             s.Cart,
		View:             string(s.View),
		SelectedCategory: s.SelectedCategory,
		PlayerID:         s.PlayerID,
	}
	if doc.Cart == nil {
		doc.Cart = []cart.Entry{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses and validates a stored snapshot. A document without a user
// decodes to the default state; anything malformed is ErrCorrupt.
func Decode(data []byte) (engine.State, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return engine.NewEmptyState(), fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if doc.CurrentUser == "" {
		return engine.NewEmptyState(), nil
	}

	s := engine.NewEmptyState()
	s.CurrentUser = doc.CurrentUser
	s.PlayerID = doc.PlayerID

	s.View = engine.View(doc.View)
	if doc.View == "" {
		s.View = engine.ViewCategories
	}
	if !s.View.Valid() {
		return engine.NewEmptyState(), fmt.Errorf("%w: unknown view %q", ErrCorrupt, doc.View)
	}
	// A logged-in user is never parked on the login screen.
	if s.View == engine.ViewLogin {
		s.View = engine.ViewCategories
	}

	if doc.SelectedCategory != nil {
		category, ok := catalog.Lookup(doc.SelectedCategory.ID)
		if !ok {
			return engine.NewEmptyState(), fmt.Errorf("%w: unknown category %q", ErrCorrupt, doc.SelectedCategory.ID)
		}
		s.SelectedCategory = category
	}
	if s.View == engine.ViewProducts && s.SelectedCategory == nil {
		return engine.NewEmptyState(), fmt.Errorf("%w: products view without category", ErrCorrupt)
	}

	seen := make(map[string]bool, len(doc.Cart))
	for _, e := range doc.Cart {
		if e.CartItemID == "" || seen[e.CartItemID] {
			return engine.NewEmptyState(), fmt.Errorf("%w: bad cart item id %q", ErrCorrupt, e.CartItemID)
		}
		if _, err := cart.ParsePrice(e.Price); err != nil {
			return engine.NewEmptyState(), fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		seen[e.CartItemID] = true
	}
	s.Cart = append(cart.Cart{}, doc.Cart...)

	// Checkout is only reachable with items; an emptied snapshot resumes at the cart.
	if s.View == engine.ViewCheckout && len(s.Cart) == 0 {
		s.View = engine.ViewCart
	}

	return s, nil
}
