package domain

import (
	"context"

	"github.com/google/uuid"
)

var ErrClientNotFound = &Error{Code: ENOTFOUND, Message: "Client not found"}

// Client is a registered customer. Attaching a client to a sale is optional
// and never affects pricing.
type Client struct {
	ID          uuid.UUID
	Type        string // "individual" or "business"
	FirstName   string
	LastName    string
	CompanyName string
	Phone       string
	Email       string
}

// DisplayName returns the name shown on receipts and sale listings.
func (c Client) DisplayName() string {
	if c.Type == "business" && c.CompanyName != "" {
		return c.CompanyName
	}
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ClientService provides the customer registry backing sale attribution.
type ClientService interface {
	Get(ctx context.Context, id uuid.UUID) (*Client, error)
	Search(ctx context.Context, term string, limit int) ([]Client, error)
	Create(ctx context.Context, client Client) (*Client, error)
}
