package models

import (
	"time"
)

// Request defines a borrow request based on the 'requests' table.
// A request is created in StatusRequested and only mutated through the
// lifecycle service; it is never deleted through the API.
type Request struct {
	ID          int64         `json:"id" db:"id" example:"1"`
	StudentID   int64         `json:"studentId" db:"student_id" example:"4"`
	ComponentID int64         `json:"componentId" db:"component_id" example:"2"`
	Quantity    int           `json:"quantity" db:"quantity" example:"3"`
	Status      RequestStatus `json:"status" db:"status" example:"Requested"`
	Reason      string        `json:"reason" db:"reason" example:"Robotics club final project"`
	RequestDate time.Time     `json:"requestDate" db:"request_date"`
	ReturnDate  *time.Time    `json:"returnDate,omitempty" db:"return_date"` // Target or actual return date (nullable)
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`

	Student   *User      `json:"student,omitempty"`   // Relation, no db tag
	Component *Component `json:"component,omitempty"` // Relation, no db tag
}
