package dto

import "time"

// CreateRequest is the payload for submitting a borrow request
type CreateRequest struct {
	ComponentID int64      `json:"componentId" binding:"required,gt=0" example:"2"`
	Quantity    int        `json:"quantity" binding:"required,gt=0" example:"3"`
	Reason      string     `json:"reason" binding:"max=2000" example:"Robotics club final project"`
	ReturnDate  *time.Time `json:"returnDate,omitempty"`
}
