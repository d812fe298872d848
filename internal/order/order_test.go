package order

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/gamesy/storefront/internal/cart"
	"github.com/gamesy/storefront/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleItemCart() cart.Cart {
	return cart.Cart{{
		Product:    catalog.Product{ID: "pubg-2", Name: "325 UC", Price: "$4.99"},
		CartItemID: "pubg-2-1",
	}}
}

func TestBuildMessage(t *testing.T) {
	msg := BuildMessage(singleItemCart(), "12345")

	want := "Hello Game SY, I would like to place an order:\n\n" +
		"*Items:*\n- 325 UC ($4.99)\n\n" +
		"*Total Price:* $4.99\n\n" +
		"*Player ID:* 12345\n\n" +
		"Thank you!"
	assert.Equal(t, want, msg)
}

func TestBuildMessage_ListsEveryEntry(t *testing.T) {
	c := singleItemCart()
	c = append(c, cart.Entry{
		Product:    catalog.Product{ID: "ff-1", Name: "100 Diamonds", Price: "$0.99"},
		CartItemID: "ff-1-1",
	})

	msg := BuildMessage(c, "p1")
	assert.Contains(t, msg, "- 325 UC ($4.99)\n- 100 Diamonds ($0.99)")
	assert.Contains(t, msg, "*Total Price:* $5.98")
}

func TestLink_EncodesLikeURIComponent(t *testing.T) {
	cases := []struct {
		msg  string
		want string
	}{
		{msg: "a b&c\n*d*", want: "a%20b%26c%0A*d*"},
		{msg: "Thank you!", want: "Thank%20you!"},
		{msg: "(it's) ~50% off", want: "(it's)%20~50%25%20off"},
		{msg: "literal %21 and +", want: "literal%20%2521%20and%20%2B"},
	}
	for _, tc := range cases {
		link := Link("https://wa.me/", "963945328146", tc.msg)
		assert.Equal(t, "https://wa.me/963945328146?text="+tc.want, link)

		u, err := url.Parse(link)
		require.NoError(t, err)
		assert.Equal(t, tc.msg, u.Query().Get("text"))
	}
}

func TestDispatch_OpensLinkAndSwallowsErrors(t *testing.T) {
	d := NewDispatcher("", "", nil)

	var opened string
	link := d.Dispatch(context.Background(), OpenerFunc(func(_ context.Context, l string) error {
		opened = l
		return errors.New("popup blocked")
	}), "hi there")

	assert.Equal(t, link, opened)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/963945328146?text="))
	assert.True(t, strings.HasSuffix(link, "hi%20there"))
}
