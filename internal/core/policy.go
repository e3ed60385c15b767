package core

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Module is a functional area guarded by the policy.
type Module string

const (
	ModuleCatalog      Module = "catalog"
	ModuleStock        Module = "stock"
	ModuleVendors      Module = "vendors"
	ModuleRequisitions Module = "requisitions"
	ModuleReceiving    Module = "receiving"
	ModulePurchasing   Module = "purchasing"
	ModuleCounts       Module = "counts"
	ModuleReports      Module = "reports"
	ModuleSettings     Module = "settings"
	ModuleUsers        Module = "users"
)

// Action is an operation on a module.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
)

var (
	allModules = []Module{ModuleCatalog, ModuleStock, ModuleVendors, ModuleRequisitions,
		ModuleReceiving, ModulePurchasing, ModuleCounts, ModuleReports, ModuleSettings, ModuleUsers}
	allActions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionApprove}

	// operationalModules are the day-to-day modules a supervisor works in.
	operationalModules = []Module{ModuleCatalog, ModuleStock, ModuleVendors,
		ModuleRequisitions, ModuleReceiving, ModulePurchasing, ModuleCounts}
)

// Capability is one module.action pair, encoded as "module.action".
type Capability struct {
	Module Module
	Action Action
}

func (c Capability) String() string { return string(c.Module) + "." + string(c.Action) }

// MarshalText encodes the capability as "module.action".
func (c Capability) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText parses "module.action".
func (c *Capability) UnmarshalText(b []byte) error {
	parsed, err := ParseCapability(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCapability parses "module.action" and checks both halves are known.
func ParseCapability(s string) (Capability, error) {
	mod, act, ok := strings.Cut(s, ".")
	if !ok {
		return Capability{}, fmt.Errorf("%w: capability %q must be module.action", ErrInvalidInput, s)
	}
	c := Capability{Module: Module(mod), Action: Action(act)}
	if !slices.Contains(allModules, c.Module) || !slices.Contains(allActions, c.Action) {
		return Capability{}, fmt.Errorf("%w: unknown capability %q", ErrInvalidInput, s)
	}
	return c, nil
}

// Policy maps each capability to the roles that hold it. Per-user grants on a
// Principal extend its role's capabilities.
type Policy struct {
	table map[Capability]map[Role]bool
}

// DefaultPolicy is the standard role table:
//
//	ADMIN       everything
//	MANAGER     everything outside the users module
//	SUPERVISOR  view/create/edit on operational modules, view on reports
//
// Count approval and requisition or purchase approval/denial are manager-level.
func DefaultPolicy() *Policy {
	p := &Policy{table: make(map[Capability]map[Role]bool)}
	for _, m := range allModules {
		for _, a := range allActions {
			p.allow(Capability{m, a}, RoleAdmin)
			if m != ModuleUsers {
				p.allow(Capability{m, a}, RoleManager)
			}
		}
	}
	for _, m := range operationalModules {
		for _, a := range []Action{ActionView, ActionCreate, ActionEdit} {
			p.allow(Capability{m, a}, RoleSupervisor)
		}
	}
	p.allow(Capability{ModuleReports, ActionView}, RoleSupervisor)
	return p
}

func (p *Policy) allow(c Capability, r Role) {
	if p.table[c] == nil {
		p.table[c] = make(map[Role]bool)
	}
	p.table[c][r] = true
}

// Can reports whether the principal holds module.action through its role or a grant.
func (p *Policy) Can(who Principal, m Module, a Action) bool {
	c := Capability{m, a}
	if p.table[c][who.Role] {
		return true
	}
	return slices.Contains(who.Grants, c)
}

// Require returns ErrPermissionDenied unless the principal can perform module.action.
func (p *Policy) Require(who Principal, m Module, a Action) error {
	if !p.Can(who, m, a) {
		return fmt.Errorf("%w: %s (%s) cannot %s", ErrPermissionDenied, who.Username, who.Role, Capability{m, a})
	}
	return nil
}

// Effective lists every capability the principal holds, sorted.
func (p *Policy) Effective(who Principal) []string {
	var out []string
	for _, m := range allModules {
		for _, a := range allActions {
			if p.Can(who, m, a) {
				out = append(out, Capability{m, a}.String())
			}
		}
	}
	sort.Strings(out)
	return out
}

// AllCapabilities lists every known "module.action", sorted.
func AllCapabilities() []string {
	out := make([]string, 0, len(allModules)*len(allActions))
	for _, m := range allModules {
		for _, a := range allActions {
			out = append(out, Capability{m, a}.String())
		}
	}
	sort.Strings(out)
	return out
}
