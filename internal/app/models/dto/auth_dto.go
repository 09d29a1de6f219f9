package dto

// RegisterRequest is the payload for user registration
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100" example:"Jane Doe"`
	Email    string `json:"email" binding:"required,email" example:"jane@lab.edu"`
	Password string `json:"password" binding:"required,min=8" example:"s3cret-pass"`
	Role     string `json:"role" binding:"required,oneof=student mentor" example:"student"`
}

// LoginRequest is the payload for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"jane@lab.edu"`
	Password string `json:"password" binding:"required" example:"s3cret-pass"`
}

// RefreshTokenRequest is the payload for refreshing an access token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenResponse carries an issued token pair
type TokenResponse struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresIn        int    `json:"expiresIn"`
	RefreshExpiresIn int    `json:"refreshExpiresIn"`
	TokenType        string `json:"tokenType" example:"Bearer"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
