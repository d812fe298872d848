package engine

import (
	"errors"
	"strings"

	"github.com/gamesy/storefront/internal/cart"
	"github.com/gamesy/storefront/internal/catalog"
	"github.com/gamesy/storefront/internal/order"
)

var ErrEmptyCredentials = errors.New("empty credentials")
var ErrEmptyPlayerID = errors.New("empty player id")
var ErrEmptyCart = errors.New("cart is empty")
var ErrNotLoggedIn = errors.New("not logged in")
var ErrLoginPending = errors.New("login already in progress")
var ErrInvalidTransition = errors.New("invalid transition")
var ErrUnknownCategory = errors.New("unknown category")
var ErrUnknownProduct = errors.New("unknown product")
var ErrUnsupportedCommand = errors.New("unsupported command")

type View string

const (
	ViewLogin        View = "login"
	ViewCategories   View = "categories"
	ViewProducts     View = "products"
	ViewCart         View = "cart"
	ViewCheckout     View = "checkout"
	ViewConfirmation View = "confirmation"
)

func (v View) Valid() bool {
	switch v {
	case ViewLogin, ViewCategories, ViewProducts, ViewCart, ViewCheckout, ViewConfirmation:
		return true
	}
	return false
}

type State struct {
	View             View
	CurrentUser      string
	SelectedCategory *catalog.Category
	Cart             cart.Cart
	PlayerID         string
	LoginPending     bool // transient, never persisted
}

func (s State) LoggedIn() bool { return s.CurrentUser != "" }

type CommandType string

const (
	CmdSubmitLogin    CommandType = "SubmitLogin"
	CmdCompleteLogin  CommandType = "CompleteLogin"
	CmdSelectCategory CommandType = "SelectCategory"
	CmdOpenCart       CommandType = "OpenCart"
	CmdBack           CommandType = "Back"
	CmdAddToCart      CommandType = "AddToCart"
	CmdRemoveFromCart CommandType = "RemoveFromCart"
	CmdCheckout       CommandType = "Checkout"
	CmdSetPlayerID    CommandType = "SetPlayerID"
	CmdConfirmOrder   CommandType = "ConfirmOrder"
	CmdNewOrder       CommandType = "NewOrder"
	CmdLogout         CommandType = "Logout"
)

/*
	CmdSubmitLogin   -> EvtLoginRequested (session arms the delay, then sends CmdCompleteLogin)
	CmdCompleteLogin -> EvtLoggedIn
	CmdConfirmOrder  -> EvtOrderPlaced (session hands the message to the order dispatcher)
	CmdLogout        -> EvtLoggedOut (session deletes the stored snapshot)
	everything else  -> EvtViewChanged and/or a cart event
*/

type Command struct {
	Type       CommandType
	Username   string
	Password   string
	CategoryID string
	ProductID  string
	CartItemID string
	PlayerID   string
}

type EventType string

const (
	EvtLoginRequested EventType = "LoginRequested"
	EvtLoggedIn       EventType = "LoggedIn"
	EvtViewChanged    EventType = "ViewChanged"
	EvtItemAdded      EventType = "ItemAdded"
	EvtItemRemoved    EventType = "ItemRemoved"
	EvtPlayerIDSet    EventType = "PlayerIDSet"
	EvtOrderPlaced    EventType = "OrderPlaced"
	EvtOrderReset     EventType = "OrderReset"
	EvtLoggedOut      EventType = "LoggedOut"
)

type Event struct {
	Type       EventType
	View       View
	Username   string
	CartItemID string
	Message    string
}

func NewEmptyState() State {
	return State{View: ViewLogin, Cart: cart.Cart{}}
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	if !s.LoggedIn() && cmd.Type != CmdSubmitLogin && cmd.Type != CmdCompleteLogin {
		if _, known := transitions[cmd.Type]; !known {
			return nil, s, ErrUnsupportedCommand
		}
		return nil, s, ErrNotLoggedIn
	}
	if !allowed(s.View, cmd.Type) {
		if _, known := transitions[cmd.Type]; !known {
			return nil, s, ErrUnsupportedCommand
		}
		return nil, s, ErrInvalidTransition
	}

	newState := s

	switch cmd.Type {
	case CmdSubmitLogin:
		if s.LoginPending {
			return nil, s, ErrLoginPending
		}
		if strings.TrimSpace(cmd.Username) == "" || strings.TrimSpace(cmd.Password) == "" {
			return nil, s, ErrEmptyCredentials
		}
		newState.LoginPending = true
		return []Event{{Type: EvtLoginRequested, Username: cmd.Username}}, newState, nil

	case CmdCompleteLogin:
		if !s.LoginPending || cmd.Username == "" {
			return nil, s, ErrInvalidTransition
		}
		newState.LoginPending = false
		newState.CurrentUser = cmd.Username
		newState.View = ViewCategories
		return []Event{
			{Type: EvtLoggedIn, Username: cmd.Username},
			{Type: EvtViewChanged, View: ViewCategories},
		}, newState, nil

	case CmdSelectCategory:
		category, ok := catalog.Lookup(cmd.CategoryID)
		if !ok {
			return nil, s, ErrUnknownCategory
		}
		newState.SelectedCategory = category
		newState.View = ViewProducts
		return []Event{{Type: EvtViewChanged, View: ViewProducts}}, newState, nil

	case CmdOpenCart:
		newState.View = ViewCart
		return []Event{{Type: EvtViewChanged, View: ViewCart}}, newState, nil

	case CmdBack:
		newState.View = backTarget(s)
		return []Event{{Type: EvtViewChanged, View: newState.View}}, newState, nil

	case CmdAddToCart:
		if s.SelectedCategory == nil {
			return nil, s, ErrInvalidTransition
		}
		product, ok := s.SelectedCategory.Product(cmd.ProductID)
		if !ok {
			return nil, s, ErrUnknownProduct
		}
		newState.Cart = s.Cart.Add(product)
		added := newState.Cart[len(newState.Cart)-1]
		return []Event{{Type: EvtItemAdded, CartItemID: added.CartItemID}}, newState, nil

	case CmdRemoveFromCart:
		if !s.Cart.Contains(cmd.CartItemID) {
			return nil, s, nil
		}
		newState.Cart = s.Cart.Remove(cmd.CartItemID)
		return []Event{{Type: EvtItemRemoved, CartItemID: cmd.CartItemID}}, newState, nil

	case CmdCheckout:
		if len(s.Cart) == 0 {
			return nil, s, ErrEmptyCart
		}
		newState.View = ViewCheckout
		return []Event{{Type: EvtViewChanged, View: ViewCheckout}}, newState, nil

	case CmdSetPlayerID:
		newState.PlayerID = cmd.PlayerID
		return []Event{{Type: EvtPlayerIDSet}}, newState, nil

	case CmdConfirmOrder:
		if strings.TrimSpace(s.PlayerID) == "" {
			return nil, s, ErrEmptyPlayerID
		}
		newState.View = ViewConfirmation
		return []Event{
			{Type: EvtOrderPlaced, Message: order.BuildMessage(s.Cart, s.PlayerID)},
			{Type: EvtViewChanged, View: ViewConfirmation},
		}, newState, nil

	case CmdNewOrder:
		newState.Cart = cart.Cart{}
		newState.PlayerID = ""
		newState.SelectedCategory = nil
		newState.View = ViewCategories
		return []Event{
			{Type: EvtOrderReset},
			{Type: EvtViewChanged, View: ViewCategories},
		}, newState, nil

	case CmdLogout:
		return []Event{{Type: EvtLoggedOut}}, NewEmptyState(), nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func backTarget(s State) View {
	switch s.View {
	case ViewProducts:
		return ViewCategories
	case ViewCart:
		if s.SelectedCategory != nil {
			return ViewProducts
		}
		return ViewCategories
	case ViewCheckout:
		return ViewCart
	}
	return s.View
}
