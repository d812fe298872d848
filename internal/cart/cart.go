package cart

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gamesy/storefront/internal/catalog"
	"github.com/oklog/ulid/v2"
)

var ErrInvalidPrice = errors.New("invalid price")

type Entry struct {
	catalog.Product
	CartItemID string `json:"cartItemId"`
}

// Cart is ordered by insertion. Add and Remove return a new slice and never
// touch the receiver's backing array, so older states stay valid.
type Cart []Entry

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewItemID is swapped out in tests.
var NewItemID = func(productID string) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return productID + "-" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func (c Cart) Add(p catalog.Product) Cart {
	id := NewItemID(p.ID)
	for c.Contains(id) {
		id = NewItemID(p.ID)
	}
	next := make(Cart, 0, len(c)+1)
	next = append(next, c...)
	return append(next, Entry{Product: p, CartItemID: id})
}

func (c Cart) Remove(cartItemID string) Cart {
	for i, e := range c {
		if e.CartItemID == cartItemID {
			next := make(Cart, 0, len(c)-1)
			next = append(next, c[:i]...)
			return append(next, c[i+1:]...)
		}
	}
	return c
}

func (c Cart) Contains(cartItemID string) bool {
	for _, e := range c {
		if e.CartItemID == cartItemID {
			return true
		}
	}
	return false
}

// TotalCents skips entries whose price does not parse; catalog prices and
// decoded snapshots are validated before they get here.
func (c Cart) TotalCents() int64 {
	var total int64
	for _, e := range c {
		cents, err := ParsePrice(e.Price)
		if err != nil {
			continue
		}
		total += cents
	}
	return total
}

// Total is the sum of all entry prices with two decimals, "0.00" when empty.
func (c Cart) Total() string { return FormatCents(c.TotalCents()) }

// ParsePrice turns "$4.99" into 499. Any non-numeric prefix is treated as a
// currency symbol.
func ParsePrice(price string) (int64, error) {
	s := strings.TrimSpace(price)
	s = strings.TrimLeftFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, price)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, price)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, price)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, price)
	}
	return w*100 + f, nil
}

func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
