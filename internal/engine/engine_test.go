package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/gamesy/storefront/internal/cart"
	"github.com/gamesy/storefront/internal/catalog"
)

func loggedIn(view View) State {
	s := NewEmptyState()
	s.CurrentUser = "abc"
	s.View = view
	return s
}

func mustCategory(t *testing.T, id string) *catalog.Category {
	t.Helper()
	c, ok := catalog.Lookup(id)
	if !ok {
		t.Fatalf("category %q missing", id)
	}
	return c
}

func TestLogin_EmptyFieldsRejected(t *testing.T) {
	cases := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "", password: "xyz"},
		{name: "empty password", username: "abc", password: ""},
		{name: "both empty", username: "", password: ""},
		{name: "whitespace only", username: "  ", password: "xyz"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewEmptyState()
			_, next, err := Apply(s, Command{Type: CmdSubmitLogin, Username: tc.username, Password: tc.password})
			if !errors.Is(err, ErrEmptyCredentials) {
				t.Fatalf("want ErrEmptyCredentials, got %v", err)
			}
			if next.View != ViewLogin || next.LoginPending || next.CurrentUser != "" {
				t.Fatalf("state changed on validation error: %+v", next)
			}
		})
	}
}

func TestLogin_SubmitThenComplete(t *testing.T) {
	s := NewEmptyState()

	events, s, err := Apply(s, Command{Type: CmdSubmitLogin, Username: "abc", Password: "xyz"})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !s.LoginPending || s.View != ViewLogin {
		t.Fatalf("want pending login, got %+v", s)
	}
	ev, ok := FindEvent(events, EvtLoginRequested)
	if !ok || ev.Username != "abc" {
		t.Fatalf("expected EvtLoginRequested for abc, got %+v", events)
	}

	if _, _, err := Apply(s, Command{Type: CmdSubmitLogin, Username: "abc", Password: "xyz"}); !errors.Is(err, ErrLoginPending) {
		t.Fatalf("want ErrLoginPending, got %v", err)
	}

	events, s, err = Apply(s, Command{Type: CmdCompleteLogin, Username: "abc"})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if s.CurrentUser != "abc" || s.View != ViewCategories || s.LoginPending {
		t.Fatalf("after login: %+v", s)
	}
	if !ContainsEvent(events, EvtLoggedIn) {
		t.Fatalf("expected EvtLoggedIn")
	}
}

func TestCompleteLogin_WithoutSubmitRejected(t *testing.T) {
	_, _, err := Apply(NewEmptyState(), Command{Type: CmdCompleteLogin, Username: "abc"})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func TestLoggedOut_CommandsRejected(t *testing.T) {
	for _, ct := range []CommandType{CmdSelectCategory, CmdOpenCart, CmdBack, CmdLogout, CmdConfirmOrder} {
		t.Run(string(ct), func(t *testing.T) {
			_, _, err := Apply(NewEmptyState(), Command{Type: ct})
			if !errors.Is(err, ErrNotLoggedIn) {
				t.Fatalf("want ErrNotLoggedIn, got %v", err)
			}
		})
	}

	if _, _, err := Apply(loggedIn(ViewCart), Command{Type: "Dance"}); !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}

func TestTransitions(t *testing.T) {
	pubg := mustCategory(t, "pubg-uc")
	withCategory := func(view View) State {
		s := loggedIn(view)
		s.SelectedCategory = pubg
		return s
	}
	withItem := func(view View) State {
		s := withCategory(view)
		s.Cart = cart.Cart{{Product: pubg.Products[1], CartItemID: "pubg-2-1"}}
		return s
	}

	cases := []struct {
		name     string
		setup    State
		cmd      Command
		wantView View
		wantErr  error
	}{
		{name: "select category", setup: loggedIn(ViewCategories), cmd: Command{Type: CmdSelectCategory, CategoryID: "pubg-uc"}, wantView: ViewProducts},
		{name: "select unknown category", setup: loggedIn(ViewCategories), cmd: Command{Type: CmdSelectCategory, CategoryID: "zzz"}, wantView: ViewCategories, wantErr: ErrUnknownCategory},
		{name: "categories open cart", setup: loggedIn(ViewCategories), cmd: Command{Type: CmdOpenCart}, wantView: ViewCart},
		{name: "categories back invalid", setup: loggedIn(ViewCategories), cmd: Command{Type: CmdBack}, wantView: ViewCategories, wantErr: ErrInvalidTransition},
		{name: "products back", setup: withCategory(ViewProducts), cmd: Command{Type: CmdBack}, wantView: ViewCategories},
		{name: "products open cart", setup: withCategory(ViewProducts), cmd: Command{Type: CmdOpenCart}, wantView: ViewCart},
		{name: "cart back with category", setup: withCategory(ViewCart), cmd: Command{Type: CmdBack}, wantView: ViewProducts},
		{name: "cart back without category", setup: loggedIn(ViewCart), cmd: Command{Type: CmdBack}, wantView: ViewCategories},
		{name: "checkout empty cart", setup: loggedIn(ViewCart), cmd: Command{Type: CmdCheckout}, wantView: ViewCart, wantErr: ErrEmptyCart},
		{name: "checkout", setup: withItem(ViewCart), cmd: Command{Type: CmdCheckout}, wantView: ViewCheckout},
		{name: "checkout back", setup: withItem(ViewCheckout), cmd: Command{Type: CmdBack}, wantView: ViewCart},
		{name: "confirm without player id", setup: withItem(ViewCheckout), cmd: Command{Type: CmdConfirmOrder}, wantView: ViewCheckout, wantErr: ErrEmptyPlayerID},
		{name: "add outside products", setup: withCategory(ViewCart), cmd: Command{Type: CmdAddToCart, ProductID: "pubg-1"}, wantView: ViewCart, wantErr: ErrInvalidTransition},
		{name: "add foreign product", setup: withCategory(ViewProducts), cmd: Command{Type: CmdAddToCart, ProductID: "ff-1"}, wantView: ViewProducts, wantErr: ErrUnknownProduct},
		{name: "confirmation back invalid", setup: loggedIn(ViewConfirmation), cmd: Command{Type: CmdBack}, wantView: ViewConfirmation, wantErr: ErrInvalidTransition},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, next, err := Apply(tc.setup, tc.cmd)
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if next.View != tc.wantView {
				t.Fatalf("view: got %s, want %s", next.View, tc.wantView)
			}
			if next.View == ViewProducts && next.SelectedCategory == nil {
				t.Fatalf("products view without category")
			}
		})
	}
}

func TestBack_FromProductsKeepsCategory(t *testing.T) {
	s := loggedIn(ViewCategories)
	_, s, _ = Apply(s, Command{Type: CmdSelectCategory, CategoryID: "fifa-coins"})
	_, s, err := Apply(s, Command{Type: CmdBack})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if s.SelectedCategory == nil || s.SelectedCategory.ID != "fifa-coins" {
		t.Fatalf("selected category dropped: %+v", s.SelectedCategory)
	}
}

func TestCart_AddRemoveKeepsIDsDistinct(t *testing.T) {
	s := loggedIn(ViewCategories)
	_, s, _ = Apply(s, Command{Type: CmdSelectCategory, CategoryID: "pubg-uc"})

	for i := 0; i < 5; i++ {
		var err error
		_, s, err = Apply(s, Command{Type: CmdAddToCart, ProductID: "pubg-1"})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	_, s, _ = Apply(s, Command{Type: CmdOpenCart})

	victim := s.Cart[2].CartItemID
	events, s, err := Apply(s, Command{Type: CmdRemoveFromCart, CartItemID: victim})
	if err != nil || !ContainsEvent(events, EvtItemRemoved) {
		t.Fatalf("remove: err=%v events=%+v", err, events)
	}
	if len(s.Cart) != 4 || s.Cart.Contains(victim) {
		t.Fatalf("remove did not drop %s: %+v", victim, s.Cart)
	}

	events, same, err := Apply(s, Command{Type: CmdRemoveFromCart, CartItemID: "missing"})
	if err != nil || len(events) != 0 || len(same.Cart) != 4 {
		t.Fatalf("unknown id should be a no-op: err=%v events=%+v", err, events)
	}

	seen := map[string]bool{}
	for _, e := range s.Cart {
		if seen[e.CartItemID] {
			t.Fatalf("duplicate id %s", e.CartItemID)
		}
		seen[e.CartItemID] = true
	}
}

func TestConfirmOrder_BuildsMessage(t *testing.T) {
	pubg := mustCategory(t, "pubg-uc")
	s := loggedIn(ViewCheckout)
	s.SelectedCategory = pubg
	s.Cart = cart.Cart{{Product: pubg.Products[1], CartItemID: "pubg-2-1"}}

	_, s, err := Apply(s, Command{Type: CmdSetPlayerID, PlayerID: "12345"})
	if err != nil {
		t.Fatalf("set player id: %v", err)
	}

	events, s, err := Apply(s, Command{Type: CmdConfirmOrder})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if s.View != ViewConfirmation {
		t.Fatalf("want confirmation, got %s", s.View)
	}
	ev, ok := FindEvent(events, EvtOrderPlaced)
	if !ok {
		t.Fatalf("expected EvtOrderPlaced")
	}
	for _, want := range []string{"325 UC", "$4.99", "4.99", "12345"} {
		if !strings.Contains(ev.Message, want) {
			t.Fatalf("message missing %q:\n%s", want, ev.Message)
		}
	}
}

func TestNewOrder_Resets(t *testing.T) {
	s := loggedIn(ViewConfirmation)
	s.SelectedCategory = mustCategory(t, "store-cards")
	s.Cart = cart.Cart{{Product: s.SelectedCategory.Products[0], CartItemID: "sc-1-1"}}
	s.PlayerID = "p"

	_, s, err := Apply(s, Command{Type: CmdNewOrder})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if s.View != ViewCategories || len(s.Cart) != 0 || s.PlayerID != "" || s.SelectedCategory != nil {
		t.Fatalf("new order did not reset: %+v", s)
	}
	if s.CurrentUser != "abc" {
		t.Fatalf("new order must keep the user")
	}
}

func TestLogout_ResetsFromEveryView(t *testing.T) {
	for _, v := range []View{ViewCategories, ViewProducts, ViewCart, ViewCheckout, ViewConfirmation} {
		t.Run(string(v), func(t *testing.T) {
			s := loggedIn(v)
			s.SelectedCategory = mustCategory(t, "pubg-uc")
			s.PlayerID = "p"
			s.Cart = cart.Cart{{Product: s.SelectedCategory.Products[0], CartItemID: "x"}}

			events, next, err := Apply(s, Command{Type: CmdLogout})
			if err != nil {
				t.Fatalf("unexpected err %v", err)
			}
			if !ContainsEvent(events, EvtLoggedOut) {
				t.Fatalf("expected EvtLoggedOut")
			}
			if next.View != ViewLogin || next.CurrentUser != "" || len(next.Cart) != 0 || next.PlayerID != "" || next.SelectedCategory != nil {
				t.Fatalf("logout left state behind: %+v", next)
			}
		})
	}
}
