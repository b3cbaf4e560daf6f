package repairs

import (
	"math"
	"time"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
)

// Repair statuses.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"
)

// CartLine is a product consumed by a repair job.
type CartLine struct {
	ItemCode string  `json:"itemCode" validate:"required"`
	ItemName string  `json:"itemName"`
	Quantity int64   `json:"quantity" validate:"gt=0"`
	Cost     float64 `json:"cost" validate:"gte=0"`
}

// ServiceLine is a discount granted against the repair.
type ServiceLine struct {
	ServiceName    string  `json:"serviceName" validate:"required"`
	DiscountAmount float64 `json:"discountAmount" validate:"gte=0"`
	Description    string  `json:"description"`
}

// AdditionalService is work billed on top of the repair.
type AdditionalService struct {
	ServiceName   string    `json:"serviceName" validate:"required"`
	ServiceAmount float64   `json:"serviceAmount" validate:"gte=0"`
	Description   string    `json:"description"`
	DateAdded     time.Time `json:"dateAdded"`
	IsPaid        bool      `json:"isPaid"`
}

// Job holds the business fields of a repair job.
type Job struct {
	CustomerType    string `json:"customerType"`
	CustomerName    string `json:"customerName" validate:"required"`
	CustomerPhone   string `json:"customerPhone" validate:"required"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerNIC     string `json:"customerNIC"`
	CustomerAddress string `json:"customerAddress"`

	RepairInvoice    string  `json:"repairInvoice"`
	RepairCode       string  `json:"repairCode"`
	DeviceType       string  `json:"deviceType" validate:"required"`
	ItemName         string  `json:"itemName"`
	SerialNumber     string  `json:"serialNumber"`
	EstimationValue  float64 `json:"estimationValue" validate:"gte=0"`
	CheckingCharge   float64 `json:"checkingCharge" validate:"gte=0"`
	IssueDescription string  `json:"issueDescription" validate:"required"`
	AdditionalNotes  string  `json:"additionalNotes"`
	RepairCost       float64 `json:"repairCost" validate:"gte=0"`
	RepairStatus     string  `json:"repairStatus" validate:"required,oneof='Pending' 'In Progress' 'Completed' 'Cancelled'"`
	TechnicianReview string  `json:"technicianReview"`

	RepairCart         []CartLine          `json:"repairCart" validate:"dive"`
	Services           []ServiceLine       `json:"services" validate:"dive"`
	AdditionalServices []AdditionalService `json:"additionalServices" validate:"dive"`

	TotalRepairCost               float64 `json:"totalRepairCost"`
	TotalDiscountAmount           float64 `json:"totalDiscountAmount"`
	TotalAdditionalServicesAmount float64 `json:"totalAdditionalServicesAmount"`
	FinalAmount                   float64 `json:"finalAmount"`
}

// BusinessKey implements lifecycle.Entity.
func (j Job) BusinessKey() string { return j.RepairInvoice }

// Recalculate refreshes the derived totals.
func Recalculate(j *Job) {
	var cart, discount, extra float64
	for _, line := range j.RepairCart {
		cart += line.Cost
	}
	for _, s := range j.Services {
		discount += s.DiscountAmount
	}
	for _, s := range j.AdditionalServices {
		extra += s.ServiceAmount
	}
	j.TotalDiscountAmount = round2(discount)
	j.TotalRepairCost = round2(math.Max(0, cart+j.RepairCost-discount))
	j.TotalAdditionalServicesAmount = round2(extra)
	j.FinalAmount = round2(j.TotalRepairCost + j.TotalAdditionalServicesAmount)
}

// Schema is the lifecycle schema for repair jobs. Identifiers and totals are
// owned by the service.
var Schema = lifecycle.Schema{
	Entity:   "repair",
	KeyField: "repairInvoice",
	Immutable: []string{
		"repairInvoice", "repairCode", "repairCart",
		"totalRepairCost", "totalDiscountAmount", "totalAdditionalServicesAmount", "finalAmount",
	},
}

// Selection names a product and quantity to move into or out of the cart.
type Selection struct {
	ItemCode string `json:"itemCode" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
}

// SelectionInput is the body of cart select and return calls.
type SelectionInput struct {
	Products []Selection `json:"products" validate:"required,min=1,dive"`
}

// AdditionalServiceInput is the body of an add-service call.
type AdditionalServiceInput struct {
	ServiceName   string  `json:"serviceName" validate:"required"`
	ServiceAmount float64 `json:"serviceAmount" validate:"gte=0"`
	Description   string  `json:"description"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
