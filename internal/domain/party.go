package domain

import (
	"fmt"
)

// PartyType distinguishes customers from suppliers
type PartyType string

const (
	PartyTypeCustomer PartyType = "customer"
	PartyTypeSupplier PartyType = "supplier"
)

// Valid reports whether the party type is known
func (p PartyType) Valid() bool {
	return p == PartyTypeCustomer || p == PartyTypeSupplier
}

// Party identifies the trading counterparty of a transaction.
// It is a tagged union: Type selects the party table, ID the row within it.
type Party struct {
	Type PartyType
	ID   int64
}

// Customer returns the Party reference for customer id
func Customer(id int64) Party {
	return Party{Type: PartyTypeCustomer, ID: id}
}

// Supplier returns the Party reference for supplier id
func Supplier(id int64) Party {
	return Party{Type: PartyTypeSupplier, ID: id}
}

// Validate ensures the party reference is complete
func (p Party) Validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown party type %q", ErrInvalidInput, p.Type)
	}
	if p.ID <= 0 {
		return fmt.Errorf("%w: party id must be positive", ErrInvalidInput)
	}
	return nil
}

// String renders the party as "customer:42"
func (p Party) String() string {
	return fmt.Sprintf("%s:%d", p.Type, p.ID)
}

// PartyInfo is the display data resolved for a Party
type PartyInfo struct {
	Party Party
	Name  string
}
