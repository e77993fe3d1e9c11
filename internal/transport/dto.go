package transport

import (
	"github.com/shopspring/decimal"
)

type SignUpRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Username string  `json:"username"`
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdatePasswordRequest struct {
	Password string `json:"password"`
}

// UnitPrice accepts both "12.50" and 12.5.
type CreateCampaignRequest struct {
	ProductName     string          `json:"product_name"`
	ProductImage    *string         `json:"product_image"`
	ProductLink     *string         `json:"product_link"`
	Description     *string         `json:"description"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	MOQ             int             `json:"moq"`
	InitialQuantity int             `json:"initial_quantity"`
}

type PatchCampaignRequest struct {
	ProductName  *string          `json:"product_name"`
	ProductImage *string          `json:"product_image"`
	ProductLink  *string          `json:"product_link"`
	Description  *string          `json:"description"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	MOQ          *int             `json:"moq"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type PatchProfileRequest struct {
	Username  *string `json:"username"`
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	Phone     *string `json:"phone"`
}

type ErrorResponse struct {
	Field string `json:"field,omitempty"`
	Error string `json:"error"`
}
