package domain

import "time"

type Customer struct {
	ID         uint
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	Region     string
	PostalCode string
	CreatedAt  time.Time
}

// DefaultShipping returns the profile's stored address as shipping fields.
func (c Customer) DefaultShipping() Shipping {
	return Shipping{
		Address:    c.Address,
		City:       c.City,
		Region:     c.Region,
		PostalCode: c.PostalCode,
	}
}
