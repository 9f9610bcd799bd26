package enums

import "fmt"

// SubscriptionTier maps to the subscription_tier enum in Postgres.
type SubscriptionTier string

const (
	SubscriptionTierBasic      SubscriptionTier = "basic"
	SubscriptionTierPremium    SubscriptionTier = "premium"
	SubscriptionTierEnterprise SubscriptionTier = "enterprise"
)

var validSubscriptionTiers = []SubscriptionTier{
	SubscriptionTierBasic,
	SubscriptionTierPremium,
	SubscriptionTierEnterprise,
}

// String implements fmt.Stringer.
func (t SubscriptionTier) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical enum.
func (t SubscriptionTier) IsValid() bool {
	for _, candidate := range validSubscriptionTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseSubscriptionTier converts raw input into a SubscriptionTier.
func ParseSubscriptionTier(value string) (SubscriptionTier, error) {
	for _, candidate := range validSubscriptionTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription tier %q", value)
}

// SubSellerLimit returns the number of direct sub-sellers the tier allows.
// An unset or unknown tier allows a single sub-seller.
func (t SubscriptionTier) SubSellerLimit() int {
	switch t {
	case SubscriptionTierBasic:
		return 3
	case SubscriptionTierPremium:
		return 10
	case SubscriptionTierEnterprise:
		return 50
	default:
		return 1
	}
}
