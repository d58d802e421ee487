// Package authz is the single source of truth for role based access
// control. Every entry point goes through Allowed; nothing else in the
// codebase compares roles by hand.
package authz

import (
	"fmt"

	"github.com/Skotchmaster/ecommerce_backend/internal/models"
)

type Role string

const (
	RoleAdmin    Role = models.RoleAdmin
	RoleSeller   Role = models.RoleSeller
	RoleCustomer Role = models.RoleCustomer
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleSeller, RoleCustomer:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type Action int

const (
	ActionManageCategories Action = iota
	ActionReadCatalog
	ActionManageProducts
	ActionCreateOrder
	ActionReadOrders
	ActionUpdateOrderStatus
	ActionViewStatistics
)

var table = map[Action][]Role{
	ActionManageCategories:  {RoleAdmin},
	ActionReadCatalog:       {RoleAdmin, RoleSeller, RoleCustomer},
	ActionManageProducts:    {RoleAdmin, RoleSeller},
	ActionCreateOrder:       {RoleCustomer},
	ActionReadOrders:        {RoleAdmin, RoleSeller, RoleCustomer},
	ActionUpdateOrderStatus: {RoleAdmin, RoleSeller},
	ActionViewStatistics:    {RoleAdmin},
}

func Allowed(role Role, action Action) bool {
	for _, r := range table[action] {
		if r == role {
			return true
		}
	}
	return false
}

// SeesAllOrders reports whether the role may read orders of every
// customer. Customers only ever see their own.
func SeesAllOrders(role Role) bool {
	return role == RoleAdmin || role == RoleSeller
}
