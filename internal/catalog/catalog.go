package catalog

type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"` // currency-prefixed, e.g. "$4.99"
}

type Category struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Icon     string    `json:"icon"`
	Products []Product `json:"products"`
}

var categories = []Category{
	{
		ID:   "pubg-uc",
		Name: "PUBG UC",
		Icon: "pubg-coin",
		Products: []Product{
			{ID: "pubg-1", Name: "60 UC", Price: "$0.99"},
			{ID: "pubg-2", Name: "325 UC", Price: "$4.99"},
			{ID: "pubg-3", Name: "660 UC", Price: "$9.99"},
			{ID: "pubg-4", Name: "1800 UC", Price: "$24.99"},
			{ID: "pubg-5", Name: "3850 UC", Price: "$49.99"},
			{ID: "pubg-6", Name: "8100 UC", Price: "$99.99"},
		},
	},
	{
		ID:   "freefire-gems",
		Name: "FREE FIRE GEMS",
		Icon: "freefire-diamond",
		Products: []Product{
			{ID: "ff-1", Name: "100 Diamonds", Price: "$0.99"},
			{ID: "ff-2", Name: "310 Diamonds", Price: "$2.99"},
			{ID: "ff-3", Name: "520 Diamonds", Price: "$4.99"},
			{ID: "ff-4", Name: "1060 Diamonds", Price: "$9.99"},
			{ID: "ff-5", Name: "2180 Diamonds", Price: "$19.99"},
			{ID: "ff-6", Name: "5600 Diamonds", Price: "$49.99"},
		},
	},
	{
		ID:   "fifa-coins",
		Name: "FIFA COINS",
		Icon: "fifa-coin",
		Products: []Product{
			{ID: "fifa-1", Name: "1050 Points", Price: "$9.99"},
			{ID: "fifa-2", Name: "2200 Points", Price: "$19.99"},
			{ID: "fifa-3", Name: "4600 Points", Price: "$39.99"},
			{ID: "fifa-4", Name: "12000 Points", Price: "$99.99"},
		},
	},
	{
		ID:   "store-cards",
		Name: "STORE CARDS",
		Icon: "store-card",
		Products: []Product{
			{ID: "sc-1", Name: "Google Play $10", Price: "$10.00"},
			{ID: "sc-2", Name: "iTunes $10", Price: "$10.00"},
			{ID: "sc-3", Name: "PlayStation $20", Price: "$20.00"},
			{ID: "sc-4", Name: "Xbox $20", Price: "$20.00"},
			{ID: "sc-5", Name: "Steam $50", Price: "$50.00"},
		},
	},
}

// Categories returns the catalog in display order. Callers must not mutate it.
func Categories() []Category { return categories }

// Lookup returns a pointer into the static catalog, so two lookups of the same
// id compare equal.
func Lookup(id string) (*Category, bool) {
	for i := range categories {
		if categories[i].ID == id {
			return &categories[i], true
		}
	}
	return nil, false
}

func (c *Category) Product(id string) (Product, bool) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
