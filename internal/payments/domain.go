package payments

import (
	"time"

	"github.com/google/uuid"
)

// Payment kinds.
const (
	KindSale   = "sale"
	KindReturn = "return"
)

// Payment methods.
const (
	MethodCash   = "Cash"
	MethodCard   = "Card"
	MethodRefund = "Refund"
)

// Item is one sold or returned product line.
type Item struct {
	ProductID   uuid.UUID `json:"productId" validate:"required"`
	ItemName    string    `json:"itemName"`
	Quantity    int64     `json:"quantity" validate:"gt=0"`
	Price       float64   `json:"price" validate:"gte=0"`
	Discount    float64   `json:"discount" validate:"gte=0"`
	BuyingPrice float64   `json:"buyingPrice"`
}

// Payment is a recorded sale or return.
type Payment struct {
	ID              uuid.UUID `json:"id"`
	InvoiceNumber   string    `json:"invoiceNumber"`
	Kind            string    `json:"kind"`
	Items           []Item    `json:"items"`
	TotalAmount     float64   `json:"totalAmount"`
	DiscountApplied float64   `json:"discountApplied"`
	PaymentMethod   string    `json:"paymentMethod"`
	CashierID       string    `json:"cashierId"`
	CashierName     string    `json:"cashierName"`
	CustomerName    string    `json:"customerName"`
	ContactNumber   string    `json:"contactNumber"`
	Address         string    `json:"address"`
	Date            time.Time `json:"date"`
	CreatedAt       time.Time `json:"createdAt"`
}

// SaleInput is the body of a payment create call.
type SaleInput struct {
	Items           []Item  `json:"items" validate:"required,min=1,dive"`
	TotalAmount     float64 `json:"totalAmount" validate:"gt=0"`
	DiscountApplied float64 `json:"discountApplied" validate:"gte=0"`
	PaymentMethod   string  `json:"paymentMethod" validate:"required,oneof=Cash Card Refund"`
	CashierID       string  `json:"cashierId" validate:"required"`
	CashierName     string  `json:"cashierName" validate:"required"`
	CustomerName    string  `json:"customerName"`
	ContactNumber   string  `json:"contactNumber"`
	Address         string  `json:"address"`
}

// ReturnInput is the body of a return call.
type ReturnInput struct {
	Items         []Item  `json:"items" validate:"required,min=1,dive"`
	TotalRefund   float64 `json:"totalRefund" validate:"gt=0"`
	CashierID     string  `json:"cashierId" validate:"required"`
	CashierName   string  `json:"cashierName" validate:"required"`
	CustomerName  string  `json:"customerName"`
	ContactNumber string  `json:"contactNumber"`
	Address       string  `json:"address"`
}

// ListFilter narrows payment listings. Zero times are unbounded.
type ListFilter struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}
