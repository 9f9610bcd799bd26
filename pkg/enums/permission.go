package enums

import "fmt"

// Permission is the closed set of rights a parent seller can delegate.
type Permission string

const (
	PermissionManagePrices     Permission = "manage_prices"
	PermissionManageProducts   Permission = "manage_products"
	PermissionManageSubSellers Permission = "manage_sub_sellers"
	PermissionViewReports      Permission = "view_reports"
	PermissionManageOrders     Permission = "manage_orders"
)

var validPermissions = []Permission{
	PermissionManagePrices,
	PermissionManageProducts,
	PermissionManageSubSellers,
	PermissionViewReports,
	PermissionManageOrders,
}

// String implements fmt.Stringer.
func (p Permission) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Permission.
func (p Permission) IsValid() bool {
	for _, candidate := range validPermissions {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePermission converts raw input into a Permission.
func ParsePermission(value string) (Permission, error) {
	for _, candidate := range validPermissions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid permission %q", value)
}

// AllPermissions returns the full permission set, the implicit grant of a
// root seller.
func AllPermissions() PermissionSet {
	set := make(PermissionSet, len(validPermissions))
	copy(set, validPermissions)
	return set
}

// PermissionSet is a value-type collection of permissions.
type PermissionSet []Permission

// Contains reports whether the set holds the permission.
func (s PermissionSet) Contains(p Permission) bool {
	for _, candidate := range s {
		if candidate == p {
			return true
		}
	}
	return false
}

// SubsetOf reports whether every member of s also appears in other.
func (s PermissionSet) SubsetOf(other PermissionSet) bool {
	for _, p := range s {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// Strings converts the set to its raw string form for persistence.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, p := range s {
		out = append(out, string(p))
	}
	return out
}

// ParsePermissionSet validates and converts raw values into a PermissionSet.
func ParsePermissionSet(values []string) (PermissionSet, error) {
	set := make(PermissionSet, 0, len(values))
	for _, value := range values {
		p, err := ParsePermission(value)
		if err != nil {
			return nil, err
		}
		if set.Contains(p) {
			continue
		}
		set = append(set, p)
	}
	return set, nil
}
