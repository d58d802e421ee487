package models

import (
	"time"
)

const (
	RoleAdmin    = "Admin"
	RoleSeller   = "Seller"
	RoleCustomer = "Customer"
)

const (
	OrderStatusNew        = "New"
	OrderStatusProcessing = "Processing"
	OrderStatusCompleted  = "Completed"
	OrderStatusCancelled  = "Cancelled"
)

type Category struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string `gorm:"not null"                  json:"name"`
	Description string `json:"description"`
	IsActive    bool   `gorm:"default:true"              json:"is_active"`
}

type Product struct {
	ID            uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name          string  `gorm:"not null"                  json:"name"`
	Description   string  `json:"description"`
	Price         float64 `gorm:"not null"                  json:"price"`
	CategoryID    uint    `gorm:"index;not null"            json:"category_id"`
	StockQuantity uint    `gorm:"not null;default:0"        json:"stock_quantity"`
	IsAvailable   bool    `gorm:"default:true"              json:"is_available"`
	ImageURL      string  `json:"image_url"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type Customer struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           uint      `gorm:"uniqueIndex;not null"     json:"user_id"`
	Phone            string    `json:"phone"`
	Address          string    `json:"address"`
	RegistrationDate time.Time `gorm:"autoCreateTime"           json:"registration_date"`
}

type Order struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID  uint        `gorm:"index;not null"           json:"customer_id"`
	OrderDate   time.Time   `gorm:"autoCreateTime"           json:"order_date"`
	TotalAmount float64     `gorm:"not null;default:0"       json:"total_amount"`
	Status      string      `gorm:"not null"                 json:"status"`
	Notes       string      `json:"notes"`
	Items       []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem rows are written once during order placement and never touched
// again: UnitPrice is the product price at that instant, so later catalog
// price changes do not affect historical orders.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID   uint    `gorm:"index;not null"              json:"order_id"`
	ProductID uint    `gorm:"not null"                    json:"product_id"`
	Product   Product `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Quantity  uint    `gorm:"check:quantity>0"            json:"quantity"`
	UnitPrice float64 `gorm:"not null"                    json:"unit_price"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}
