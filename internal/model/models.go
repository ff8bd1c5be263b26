package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Tenant struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Timezone  string    `db:"timezone" json:"timezone"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPaused   SubscriptionStatus = "paused"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
	SubscriptionStatusTrial    SubscriptionStatus = "trial"
)

type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "monthly"
	BillingCycleQuarterly BillingCycle = "quarterly"
	BillingCycleYearly    BillingCycle = "yearly"
)

// Subscription is a tracked vendor contract. Owner and department names are
// joined in by the repository; the alert engine never writes this table.
type Subscription struct {
	ID              uuid.UUID          `db:"id" json:"id"`
	TenantID        uuid.UUID          `db:"tenant_id" json:"tenantId"`
	VendorName      string             `db:"vendor_name" json:"vendorName"`
	ServiceName     string             `db:"service_name" json:"serviceName"`
	Status          SubscriptionStatus `db:"status" json:"status"`
	Amount          decimal.Decimal    `db:"amount" json:"amount"`
	Currency        string             `db:"currency" json:"currency"`
	BillingCycle    BillingCycle       `db:"billing_cycle" json:"billingCycle"`
	NextRenewalDate time.Time          `db:"next_renewal_date" json:"nextRenewalDate"`
	OwnerID         *uuid.UUID         `db:"owner_id" json:"ownerId,omitempty"`
	OwnerName       *string            `db:"owner_name" json:"ownerName,omitempty"`
	DepartmentID    *uuid.UUID         `db:"department_id" json:"departmentId,omitempty"`
	DepartmentName  *string            `db:"department_name" json:"departmentName,omitempty"`
	CostCenter      *string            `db:"cost_center" json:"costCenter,omitempty"`
}

// DisplayName is "Vendor - Service", or just the vendor when both match.
func (s Subscription) DisplayName() string {
	if s.ServiceName == "" || s.ServiceName == s.VendorName {
		return s.VendorName
	}
	return s.VendorName + " - " + s.ServiceName
}

// MissingFields lists the ownership fields a data-quality alert reports.
func (s Subscription) MissingFields() []string {
	var missing []string
	if s.OwnerID == nil {
		missing = append(missing, "owner")
	}
	if s.DepartmentID == nil {
		missing = append(missing, "department")
	}
	if s.CostCenter == nil || *s.CostCenter == "" {
		missing = append(missing, "cost center")
	}
	return missing
}

// MonthlyAggregate is supplied by the reporting layer for the monthly summary.
type MonthlyAggregate struct {
	ActiveCount        int             `db:"active_count" json:"activeCount"`
	TotalMonthlyAmount decimal.Decimal `db:"total_monthly_amount" json:"totalMonthlyAmount"`
	UpcomingCount      int             `db:"upcoming_count" json:"upcomingCount"`
	Currency           string          `db:"currency" json:"currency"`
}
