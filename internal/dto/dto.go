package dto

import "github.com/shopspring/decimal"

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type CreateOrderRequest struct {
	OrderItems      []*OrderItemRequest `json:"orderItems"`
	ShippingAddress ShippingAddress     `json:"shippingAddress"`
	PaymentMethod   string              `json:"paymentMethod"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

type CheckoutSessionRequest struct {
	OrderID string `json:"orderId"`
}

type CheckoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ProductRequest is used for both create and update. Update replaces every field.
type ProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"images"`
	CategoryID  *string         `json:"categoryId"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
