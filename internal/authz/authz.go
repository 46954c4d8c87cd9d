// Package authz is the access gate between the application surface and the
// financial core. It maps roles to a static capability table; the core
// services themselves perform no authorization.
package authz

import (
	"context"
	"fmt"

	"github.com/schoolfin/backend/internal/auth"
	"github.com/schoolfin/backend/internal/domain"
)

type Module string

const (
	ModuleDashboard  Module = "dashboard"
	ModuleBilling    Module = "billing"
	ModuleAccounting Module = "accounting"
	ModuleReports    Module = "reports"
	ModuleSchools    Module = "schools"
)

type AccessLevel string

const (
	AccessView AccessLevel = "view"
	AccessFull AccessLevel = "full"
)

// rolePermissions is the fixed role→capability table. Full access implies view.
var rolePermissions = map[domain.Role]map[Module]AccessLevel{
	domain.RoleAdmin: {
		ModuleDashboard:  AccessFull,
		ModuleBilling:    AccessFull,
		ModuleAccounting: AccessFull,
		ModuleReports:    AccessFull,
		ModuleSchools:    AccessFull,
	},
	domain.RoleAccountant: {
		ModuleDashboard:  AccessView,
		ModuleBilling:    AccessFull,
		ModuleAccounting: AccessFull,
		ModuleReports:    AccessFull,
	},
	domain.RoleStaff: {
		ModuleDashboard: AccessView,
		ModuleBilling:   AccessView,
	},
	domain.RoleTeacher: {
		ModuleDashboard: AccessView,
		ModuleReports:   AccessView,
	},
	domain.RoleHR: {
		ModuleDashboard: AccessView,
		ModuleSchools:   AccessView,
	},
}

// Allowed reports whether the role grants at least the requested level on
// the module.
func Allowed(role domain.Role, module Module, level AccessLevel) bool {
	granted, ok := rolePermissions[role][module]
	if !ok {
		return false
	}
	if level == AccessView {
		return true
	}
	return granted == AccessFull
}

// Gate checks the caller claims on a context before core operations run.
type Gate struct{}

func NewGate() *Gate {
	return &Gate{}
}

func (g *Gate) Require(ctx context.Context, module Module, level AccessLevel) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return fmt.Errorf("Require: no caller claims: %w", domain.ErrPermissionDenied)
	}
	if !Allowed(claims.Role, module, level) {
		return fmt.Errorf("Require: role %s lacks %s on %s: %w", claims.Role, level, module, domain.ErrPermissionDenied)
	}
	return nil
}
