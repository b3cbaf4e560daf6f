package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
)

// DefaultSupplier is assigned when a product arrives without a supplier.
const DefaultSupplier = "Default Supplier"

// DefaultCategory is assigned to imported rows without a category.
const DefaultCategory = "Uncategorized"

// Product holds the business fields of a stock item.
type Product struct {
	ItemCode        string     `json:"itemCode" validate:"required"`
	ItemName        string     `json:"itemName" validate:"required"`
	Category        string     `json:"category" validate:"required"`
	BuyingPrice     float64    `json:"buyingPrice" validate:"gte=0"`
	SellingPrice    float64    `json:"sellingPrice" validate:"gte=0"`
	Stock           int64      `json:"stock" validate:"gte=0"`
	SupplierName    string     `json:"supplierName"`
	NewBuyingPrice  *float64   `json:"newBuyingPrice" validate:"omitempty,gte=0"`
	NewSellingPrice *float64   `json:"newSellingPrice" validate:"omitempty,gte=0"`
	NewStock        int64      `json:"newStock" validate:"gte=0"`
	OldStock        *int64     `json:"oldStock"`
	OldBuyingPrice  *float64   `json:"oldBuyingPrice"`
	OldSellingPrice *float64   `json:"oldSellingPrice"`
	ClickedForAdd   bool       `json:"clickedForAdd"`
	ClickedAt       *time.Time `json:"clickedAt"`
	ClickedBy       string     `json:"clickedBy"`
}

// BusinessKey implements lifecycle.Entity.
func (p Product) BusinessKey() string { return p.ItemCode }

// Schema is the lifecycle schema for products.
var Schema = lifecycle.Schema{
	Entity:        "product",
	KeyField:      "itemCode",
	QuantityField: "stock",
	Immutable:     []string{"clickedForAdd", "clickedAt", "clickedBy"},
}

// RestockInput is the body of an update-stock call.
type RestockInput struct {
	ItemName        string  `json:"itemName" validate:"required"`
	Category        string  `json:"category" validate:"required"`
	SupplierName    string  `json:"supplierName" validate:"required"`
	NewStock        int64   `json:"newStock" validate:"gte=0"`
	NewBuyingPrice  float64 `json:"newBuyingPrice" validate:"gte=0"`
	NewSellingPrice float64 `json:"newSellingPrice" validate:"gte=0"`
}

// ReturnOutStock is the only return type that moves stock.
const ReturnOutStock = "out-stock"

// ReturnInput describes a product return.
type ReturnInput struct {
	ReturnType string `json:"returnType" validate:"required"`
	Quantity   int64  `json:"quantity" validate:"gt=0"`
}

// AdjustInput is a generic stock adjustment.
type AdjustInput struct {
	Delta  int64  `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,oneof=sale return restock refund adjustment"`
}

// UploadAction is one product touched by an import.
type UploadAction struct {
	ItemCode string `json:"itemCode"`
	ItemName string `json:"itemName"`
	Action   string `json:"action"`
}

// UploadLog records a spreadsheet import.
type UploadLog struct {
	ID         uuid.UUID      `json:"id"`
	Filename   string         `json:"filename" validate:"required"`
	UploadedBy string         `json:"uploadedBy" validate:"required"`
	UploadedAt time.Time      `json:"uploadedAt"`
	Products   []UploadAction `json:"products"`
}

// ImportError describes a rejected import row.
type ImportError struct {
	Row      int    `json:"row"`
	ItemCode string `json:"itemCode,omitempty"`
	Message  string `json:"message"`
}

// ImportReport summarises an import run.
type ImportReport struct {
	Filename string         `json:"filename"`
	Created  []UploadAction `json:"created"`
	Updated  []UploadAction `json:"updated"`
	Errors   []ImportError  `json:"errors"`
}

// Click snapshot statuses.
const (
	ClickActive    = "active"
	ClickProcessed = "processed"
	ClickArchived  = "archived"
)

// ClickedProduct is the snapshot taken when a product is picked for Add
// Product.
type ClickedProduct struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"productId"`
	ItemCode     string    `json:"itemCode"`
	ItemName     string    `json:"itemName"`
	Category     string    `json:"category"`
	BuyingPrice  float64   `json:"buyingPrice"`
	SellingPrice float64   `json:"sellingPrice"`
	Stock        int64     `json:"stock"`
	SupplierName string    `json:"supplierName"`
	ClickedAt    time.Time `json:"clickedAt"`
	ClickedBy    string    `json:"clickedBy"`
	Status       string    `json:"status"`
}

// ClickInput is the optional body of a click call.
type ClickInput struct {
	ClickedBy string `json:"clickedBy"`
}
