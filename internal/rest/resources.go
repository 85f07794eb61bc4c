package rest

// resources.go = paginated list endpoints for the back-office CRUD screens.
// These feed both the console tables and the dashboard aggregation.

import (
	"context"
	"net/http"

	"shophub/internal/models"
)

func listResource[T any](ctx context.Context, c *Client, path string, p ListParams) (*Paginated[T], error) {
	var result Paginated[T]
	if err := c.do(ctx, http.MethodGet, path+p.query(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Products(ctx context.Context, p ListParams) (*Paginated[models.Product], error) {
	return listResource[models.Product](ctx, c, "/products", p)
}

func (c *Client) Categories(ctx context.Context, p ListParams) (*Paginated[models.Category], error) {
	return listResource[models.Category](ctx, c, "/categories", p)
}

func (c *Client) Brands(ctx context.Context, p ListParams) (*Paginated[models.Brand], error) {
	return listResource[models.Brand](ctx, c, "/brands", p)
}

func (c *Client) Orders(ctx context.Context, p ListParams) (*Paginated[models.Order], error) {
	return listResource[models.Order](ctx, c, "/orders", p)
}

func (c *Client) Suppliers(ctx context.Context, p ListParams) (*Paginated[models.Supplier], error) {
	return listResource[models.Supplier](ctx, c, "/suppliers", p)
}

func (c *Client) Branches(ctx context.Context, p ListParams) (*Paginated[models.Branch], error) {
	return listResource[models.Branch](ctx, c, "/branches", p)
}

func (c *Client) Promotions(ctx context.Context, p ListParams) (*Paginated[models.Promotion], error) {
	return listResource[models.Promotion](ctx, c, "/promotions", p)
}

func (c *Client) Customers(ctx context.Context, p ListParams) (*Paginated[models.Customer], error) {
	return listResource[models.Customer](ctx, c, "/customers", p)
}
