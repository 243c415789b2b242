// Package authz holds the permission matrix: which relation to a record (or
// to the system) allows which action on which object. The service layer
// works out the caller's relations; this package only answers whether any of
// them grants the request.
package authz

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	stringadapter "github.com/casbin/casbin/v3/persist/string-adapter"
)

// Relations a caller can hold. Record relations come from ownership and the
// team roster; Admin and User come from the user's account role.
const (
	Owner    = "owner"
	Leader   = "leader"
	CoLeader = "coleader"
	Member   = "member"
	Creator  = "creator" // created the competition entry being acted on
	Admin    = "admin"
	User     = "user"
)

// Objects.
const (
	Innovation  = "innovation"
	Roster      = "roster"
	Competition = "competition"
	Staff       = "staff"
)

// Actions.
const (
	View   = "view"
	Update = "update"
	Delete = "delete"
	Manage = "manage"
	Add    = "add"
)

//go:embed model.conf
var modelConf string

//go:embed policy.csv
var policyCSV string

// Enforcer answers permission questions against the embedded matrix. The
// policy is read once through casbin's string adapter and never modified.
type Enforcer struct {
	e *casbin.Enforcer
}

// NewEnforcer builds the enforcer from the embedded model and policy.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return nil, fmt.Errorf("authz: parsing model: %w", err)
	}
	e, err := casbin.NewEnforcer(m, stringadapter.NewAdapter(policyCSV))
	if err != nil {
		return nil, fmt.Errorf("authz: creating enforcer: %w", err)
	}

	return &Enforcer{e: e}, nil
}

// Allowed reports whether any of relations may perform action on object.
func (e *Enforcer) Allowed(relations []string, object, action string) (bool, error) {
	for _, rel := range relations {
		ok, err := e.e.Enforce(rel, object, action)
		if err != nil {
			return false, fmt.Errorf("authz: enforcing %s/%s/%s: %w", rel, object, action, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
