package models

import "time"

// Client-side projections of the catalog resources. These mirror what the
// back-office API returns; nothing here is persisted locally.

type Product struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	CategoryID  string    `json:"category_id"`
	BrandID     string    `json:"brand_id"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"image_url,omitempty"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug,omitempty"`
	Active bool   `json:"active"`
}

type Brand struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	Active  bool   `json:"active"`
}

type Supplier struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Active  bool   `json:"active"`
}

type Branch struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Active  bool   `json:"active"`
}

// Promotion is a discount campaign with an activity window.
type Promotion struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Percent   float64   `json:"percent"` // discount percentage, 0-100
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ActiveAt reports whether the promotion window covers t.
func (p *Promotion) ActiveAt(t time.Time) bool {
	return p.Active && !t.Before(p.StartsAt) && !t.After(p.EndsAt)
}
