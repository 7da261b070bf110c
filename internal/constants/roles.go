package constants

import (
	"database/sql/driver"
	"fmt"
)

// Role is the closed set of actors the API distinguishes. It mirrors the
// Postgres ENUM 'campaign_role'.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleChamberAdmin Role = "chamber_admin"
	RoleVolunteer    Role = "volunteer"
	RolePublic       Role = "public"
)

func (r Role) String() string { return string(r) }

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleChamberAdmin, RoleVolunteer, RolePublic:
		return true
	}
	return false
}

/* ---------- DB adapters so sqlx (or database/sql) scans/values cleanly ---------- */

// Scan implements the sql.Scanner interface
func (r *Role) Scan(src interface{}) error {
	if src == nil {
		*r = ""
		return nil
	}
	switch v := src.(type) {
	case string:
		*r = Role(v)
	case []byte:
		*r = Role(v)
	default:
		return fmt.Errorf("Role: cannot scan type %T", src)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (r Role) Value() (driver.Value, error) { return string(r), nil }
