package types

import (
	"errors"

	"github.com/gamesy/storefront/internal/assistant"
	"github.com/gamesy/storefront/internal/cart"
	"github.com/gamesy/storefront/internal/catalog"
	"github.com/gamesy/storefront/internal/engine"
)

type ClientMessage struct {
	Type       string `json:"type"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	ProductID  string `json:"product_id,omitempty"`
	CartItemID string `json:"cart_item_id,omitempty"`
	PlayerID   string `json:"player_id,omitempty"`
	Text       string `json:"text,omitempty"`
}

type ServerMessage struct {
	Type     string              `json:"type"` // "StateSnapshot" | "Error" | "OpenLink" | "Assistant"
	Version  int                 `json:"version,omitempty"`
	State    *StateView          `json:"state,omitempty"`
	Error    string              `json:"error,omitempty"`
	URL      string              `json:"url,omitempty"`
	Messages []assistant.Message `json:"messages,omitempty"`
	Loading  bool                `json:"loading,omitempty"`
}

// StateView is the session as the phone UI renders it.
type StateView struct {
	View             engine.View       `json:"view"`
	CurrentUser      string            `json:"current_user,omitempty"`
	LoginPending     bool              `json:"login_pending,omitempty"`
	SelectedCategory *catalog.Category `json:"selected_category,omitempty"`
	Cart             []cart.Entry      `json:"cart"`
	CartCount        int               `json:"cart_count"`
	Total            string            `json:"total"`
	PlayerID         string            `json:"player_id"`
}

func NewStateView(s engine.State) *StateView {
	entries := s.Cart
	if entries == nil {
		entries = cart.Cart{}
	}
	return &StateView{
		View:             s.View,
		CurrentUser:      s.CurrentUser,
		LoginPending:     s.LoginPending,
		SelectedCategory: s.SelectedCategory,
		Cart:             entries,
		CartCount:        len(entries),
		Total:            s.Cart.Total(),
		PlayerID:         s.PlayerID,
	}
}

// UserMessage is the text shown inline for a rejected command.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, engine.ErrEmptyCredentials):
		return "Please enter both username and password."
	case errors.Is(err, engine.ErrEmptyPlayerID):
		return "Please enter your Player ID."
	case errors.Is(err, engine.ErrEmptyCart):
		return "Your cart is empty."
	case errors.Is(err, engine.ErrNotLoggedIn):
		return "Please log in first."
	default:
		return err.Error()
	}
}
