package models

import (
	"errors"
	"strings"
	"time"
)

// Component defines a lendable lab component based on the 'components' table.
// AvailableQuantity is the single contended value in the system; it never
// drops below zero and never exceeds TotalQuantity.
type Component struct {
	ID                int64     `json:"id" db:"id" example:"1"`
	Name              string    `json:"name" db:"name" example:"Arduino Uno R3"`
	Description       string    `json:"description" db:"description" example:"Microcontroller board, 5V logic"`
	TotalQuantity     int       `json:"totalQuantity" db:"total_quantity" example:"10"`
	AvailableQuantity int       `json:"availableQuantity" db:"available_quantity" example:"7"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// Validate checks component fields before persistence
func (c *Component) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	if c.TotalQuantity < 0 {
		return errors.New("total quantity cannot be negative")
	}
	if c.AvailableQuantity < 0 || c.AvailableQuantity > c.TotalQuantity {
		return errors.New("available quantity must be between 0 and total quantity")
	}
	return nil
}

// OutstandingUnits is the number of units currently checked out
func (c *Component) OutstandingUnits() int {
	return c.TotalQuantity - c.AvailableQuantity
}
