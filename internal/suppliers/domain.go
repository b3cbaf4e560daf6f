package suppliers

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
)

// CartItem is one line in a supplier's cart.
type CartItem struct {
	ItemCode     string  `json:"itemCode" validate:"required"`
	ItemName     string  `json:"itemName" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	Quantity     int64   `json:"quantity" validate:"gte=0"`
	BuyingPrice  float64 `json:"buyingPrice" validate:"gte=0"`
	SellingPrice float64 `json:"sellingPrice" validate:"gte=0"`
	SupplierName string  `json:"supplierName" validate:"required"`
	GRNNumber    string  `json:"grnNumber"`
}

// Supplier holds the business fields of a supplier account.
type Supplier struct {
	Date          string     `json:"date" validate:"required"`
	Time          string     `json:"time" validate:"required"`
	BusinessName  string     `json:"businessName"`
	SupplierName  string     `json:"supplierName" validate:"required"`
	PhoneNumber   string     `json:"phoneNumber"`
	Address       string     `json:"address"`
	ReceiptNumber string     `json:"receiptNumber"`
	TotalPayments float64    `json:"totalPayments" validate:"gte=0"`
	Items         []CartItem `json:"items" validate:"dive"`
}

// BusinessKey implements lifecycle.Entity.
func (s Supplier) BusinessKey() string { return s.SupplierName }

// Total is the cart value at buying price.
func (s Supplier) Total() float64 {
	var total float64
	for _, it := range s.Items {
		total += it.BuyingPrice * float64(it.Quantity)
	}
	return total
}

// Schema is the lifecycle schema for suppliers.
var Schema = lifecycle.Schema{
	Entity:   "supplier",
	KeyField: "supplierName",
}

// ItemPatch carries the cart fields a caller wants to change.
type ItemPatch struct {
	ItemCode     *string  `json:"itemCode"`
	ItemName     *string  `json:"itemName"`
	Category     *string  `json:"category"`
	Quantity     *int64   `json:"quantity"`
	BuyingPrice  *float64 `json:"buyingPrice"`
	SellingPrice *float64 `json:"sellingPrice"`
	SupplierName *string  `json:"supplierName"`
	GRNNumber    *string  `json:"grnNumber"`
}

func (p ItemPatch) apply(it *CartItem) {
	if p.ItemCode != nil {
		it.ItemCode = *p.ItemCode
	}
	if p.ItemName != nil {
		it.ItemName = *p.ItemName
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.BuyingPrice != nil {
		it.BuyingPrice = *p.BuyingPrice
	}
	if p.SellingPrice != nil {
		it.SellingPrice = *p.SellingPrice
	}
	if p.SupplierName != nil {
		it.SupplierName = *p.SupplierName
	}
	if p.GRNNumber != nil {
		it.GRNNumber = *p.GRNNumber
	}
}

// PaymentInput records money paid to a supplier.
type PaymentInput struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}

// Balance summarises what is owed to a supplier.
type Balance struct {
	Total float64 `json:"total"`
	Paid  float64 `json:"paid"`
	Due   float64 `json:"due"`
}

// GRNItem is one received line on a goods received note.
type GRNItem struct {
	ItemCode     string  `json:"itemCode" validate:"required"`
	ItemName     string  `json:"itemName" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	Quantity     int64   `json:"quantity" validate:"gte=0"`
	BuyingPrice  float64 `json:"buyingPrice" validate:"gte=0"`
	SellingPrice float64 `json:"sellingPrice" validate:"gte=0"`
}

// GRN is a goods received note against a supplier.
type GRN struct {
	ID          uuid.UUID `json:"id"`
	GRNNumber   string    `json:"grnNumber"`
	SupplierID  uuid.UUID `json:"supplierId"`
	Date        time.Time `json:"date"`
	Items       []GRNItem `json:"items"`
	TotalAmount float64   `json:"totalAmount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GRNInput is the body of a GRN create call.
type GRNInput struct {
	GRNNumber   string    `json:"grnNumber" validate:"required"`
	Items       []GRNItem `json:"items" validate:"required,min=1,dive"`
	TotalAmount float64   `json:"totalAmount" validate:"gte=0"`
}
