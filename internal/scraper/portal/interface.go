// Package portal defines the common structs and logic used throughout
// portal pipeline implementations.
package portal

import "context"

type PortalScraper interface {
	// Login authenticates with the portal and establishes a session
	Login(ctx context.Context, username, password string) (*Session, error)
}

type Category string

const (
	CategoryPayment Category = "PAYMENT"
	CategoryFreight Category = "FREIGHT"
	CategoryUnpaid  Category = "UNPAID"
)
