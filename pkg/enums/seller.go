package enums

import "fmt"

// SellerStatus represents the canonical seller_status enum in Postgres.
type SellerStatus string

const (
	SellerStatusPending   SellerStatus = "pending"
	SellerStatusActive    SellerStatus = "active"
	SellerStatusSuspended SellerStatus = "suspended"
	SellerStatusRejected  SellerStatus = "rejected"
)

var validSellerStatuses = []SellerStatus{
	SellerStatusPending,
	SellerStatusActive,
	SellerStatusSuspended,
	SellerStatusRejected,
}

// String implements fmt.Stringer.
func (s SellerStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SellerStatus.
func (s SellerStatus) IsValid() bool {
	for _, candidate := range validSellerStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSellerStatus converts raw input into a SellerStatus.
func ParseSellerStatus(value string) (SellerStatus, error) {
	for _, candidate := range validSellerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid seller status %q", value)
}

// CanTransitionTo encodes the pending→active→suspended/rejected lifecycle.
func (s SellerStatus) CanTransitionTo(next SellerStatus) bool {
	switch s {
	case SellerStatusPending:
		return next == SellerStatusActive || next == SellerStatusRejected
	case SellerStatusActive:
		return next == SellerStatusSuspended
	case SellerStatusSuspended:
		return next == SellerStatusActive
	default:
		return false
	}
}
