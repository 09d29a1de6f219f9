package dto

// CreateComponentRequest is the payload for adding a component to the catalog.
// Available quantity starts equal to the total.
type CreateComponentRequest struct {
	Name          string `json:"name" binding:"required,min=2,max=200" example:"Arduino Uno R3"`
	Description   string `json:"description" binding:"max=2000" example:"Microcontroller board, 5V logic"`
	TotalQuantity int    `json:"totalQuantity" binding:"min=0" example:"10"`
}

// UpdateComponentRequest is the payload for editing a component. Changing
// TotalQuantity recomputes availability against outstanding loans.
type UpdateComponentRequest struct {
	Name          string `json:"name" binding:"required,min=2,max=200"`
	Description   string `json:"description" binding:"max=2000"`
	TotalQuantity int    `json:"totalQuantity" binding:"min=0"`
}
