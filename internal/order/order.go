package order

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gamesy/storefront/internal/cart"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL     = "https://wa.me"
	DefaultDestination = "963945328146"
)

// BuildMessage formats the order summary sent to the shop over WhatsApp.
func BuildMessage(c cart.Cart, playerID string) string {
	lines := make([]string, 0, len(c))
	for _, e := range c {
		lines = append(lines, fmt.Sprintf("- %s (%s)", e.Name, e.Price))
	}

	var b strings.Builder
	b.WriteString("Hello Game SY, I would like to place an order:\n\n")
	b.WriteString("*Items:*\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n*Total Price:* $")
	b.WriteString(c.Total())
	b.WriteString("\n\n*Player ID:* ")
	b.WriteString(playerID)
	b.WriteString("\n\nThank you!")
	return b.String()
}

// uriComponent turns query escaping into encodeURIComponent output: space is
// %20 and !'()* stay literal.
var uriComponent = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// Link builds baseURL/destination?text=... with the message encoded the way
// browsers encode a URI component.
func Link(baseURL, destination, message string) string {
	text := uriComponent.Replace(url.QueryEscape(message))
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(destination) + "?text=" + text
}

type Opener interface {
	Open(ctx context.Context, link string) error
}

type OpenerFunc func(ctx context.Context, link string) error

func (f OpenerFunc) Open(ctx context.Context, link string) error { return f(ctx, link) }

// Dispatcher hands an order to the messaging service. Delivery is never
// observed: an opener error is logged and the order still counts as placed.
type Dispatcher struct {
	BaseURL     string
	Destination string
	Logger      *zap.Logger
}

func NewDispatcher(baseURL, destination string, logger *zap.Logger) *Dispatcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if destination == "" {
		destination = DefaultDestination
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{BaseURL: baseURL, Destination: destination, Logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, opener Opener, message string) string {
	link := Link(d.BaseURL, d.Destination, message)
	if opener == nil {
		return link
	}
	if err := opener.Open(ctx, link); err != nil {
		d.Logger.Warn("order handoff failed", zap.Error(err))
	}
	return link
}
