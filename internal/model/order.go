package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusPaid:      1,
	OrderStatusShipped:   2,
	OrderStatusDelivered: 3,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok
}

// CanTransitionTo allows staying put or moving exactly one step forward
// along pending -> paid -> shipped -> delivered.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	if !ok {
		return false
	}
	return to == from || to == from+1
}

// Reached reports whether s is at or past target.
func (s OrderStatus) Reached(target OrderStatus) bool {
	return orderStatusRank[s] >= orderStatusRank[target]
}

type ShippingAddress struct {
	Address    string `gorm:"size:255" json:"address"`
	City       string `gorm:"size:100" json:"city"`
	PostalCode string `gorm:"size:32" json:"postalCode"`
	Country    string `gorm:"size:100" json:"country"`
}

type Order struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	UserID           string          `gorm:"size:36;index;not null" json:"userId"`
	User             *User           `json:"user,omitempty"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Total            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Status           OrderStatus     `gorm:"size:16;index;not null;default:pending" json:"status"`
	ShippingAddress  ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	PaymentMethod    string          `gorm:"size:32" json:"paymentMethod"`
	PaymentSessionID string          `gorm:"size:255;index" json:"paymentSessionId,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	return nil
}

// OwnedBy reports whether user placed the order.
func (o *Order) OwnedBy(user *User) bool {
	return user != nil && o.UserID == user.ID
}

type OrderItem struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// FK -> orders.id
	OrderID string `gorm:"size:36;index;not null" json:"orderId"`
	// FK -> products.id
	ProductID string          `gorm:"size:36;index;not null" json:"productId"`
	Product   *Product        `json:"product,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

// UnitAmount is the snapshotted price in minor currency units.
func (i *OrderItem) UnitAmount() int64 {
	return MinorUnits(i.Price)
}
