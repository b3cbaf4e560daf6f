// Package ledger keeps the shop's auxiliary books: extra income, maintenance
// spend, the device catalogs used by repair intake, and credit or wholesale
// customer accounts.
package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExtraIncome is revenue outside the till, such as commissions.
type ExtraIncome struct {
	ID          uuid.UUID `json:"id"`
	Date        time.Time `json:"date"`
	IncomeType  string    `json:"incomeType"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ExtraIncomeInput is the body of extra income create and replace. A nil
// date means now.
type ExtraIncomeInput struct {
	Date        *time.Time `json:"date"`
	IncomeType  string     `json:"incomeType" validate:"required"`
	Amount      float64    `json:"amount" validate:"gte=0"`
	Description string     `json:"description"`
}

// Maintenance is a numbered shop maintenance expense.
type Maintenance struct {
	ID          uuid.UUID `json:"id"`
	No          int64     `json:"no"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	ServiceType string    `json:"serviceType"`
	Price       float64   `json:"price"`
	Remarks     string    `json:"remarks"`
}

// MaintenanceInput is the body of maintenance create and replace. Number,
// date and time are assigned on create.
type MaintenanceInput struct {
	ServiceType string  `json:"serviceType" validate:"required"`
	Price       float64 `json:"price" validate:"gt=0"`
	Remarks     string  `json:"remarks"`
}

// Catalog names a device lookup list.
type Catalog string

const (
	DeviceTypes  Catalog = "device_types"
	DeviceIssues Catalog = "device_issues"
)

// CatalogEntry is one name in a device catalog.
type CatalogEntry struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// CatalogInput accepts the name under "name", or under the older "type" and
// "issue" keys the intake form still sends.
type CatalogInput struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Issue string `json:"issue"`
}

func (in CatalogInput) value() string {
	for _, v := range []string{in.Name, in.Type, in.Issue} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Payment types a customer account can carry.
const (
	PaymentCredit    = "Credit"
	PaymentWholesale = "Wholesale"
)

// CustomerItem is one line of a credit or wholesale account.
type CustomerItem struct {
	ItemName string  `json:"itemName" validate:"required"`
	Quantity int64   `json:"quantity" validate:"gt=0"`
	Price    float64 `json:"price" validate:"gte=0"`
	Discount float64 `json:"discount" validate:"gte=0"`
}

// Customer is a credit or wholesale account.
type Customer struct {
	ID           uuid.UUID      `json:"id"`
	NIC          string         `json:"nic"`
	CustomerName string         `json:"customerName"`
	Mobile       string         `json:"mobile"`
	Address      string         `json:"address"`
	TotalAmount  float64        `json:"totalAmount"`
	PaymentType  string         `json:"paymentType"`
	Items        []CustomerItem `json:"items"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// CustomerInput is the body of POST /customers.
type CustomerInput struct {
	NIC          string         `json:"nic" validate:"required"`
	CustomerName string         `json:"customerName" validate:"required"`
	Mobile       string         `json:"mobile" validate:"required"`
	Address      string         `json:"address" validate:"required"`
	TotalAmount  float64        `json:"totalAmount" validate:"gte=0"`
	PaymentType  string         `json:"paymentType" validate:"required,oneof=Credit Wholesale"`
	Items        []CustomerItem `json:"items" validate:"dive"`
}
