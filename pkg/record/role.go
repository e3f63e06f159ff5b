package record

import (
	"fmt"
	"strings"
)

// Role is the operator's authority level. Ordinals are stored on-chain and
// ordered: Employee < Supervisor < Admin.
type Role uint8

const (
	RoleEmployee Role = iota
	RoleSupervisor
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleEmployee:
		return "employee"
	case RoleSupervisor:
		return "supervisor"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

func (r Role) Valid() bool {
	return r <= RoleAdmin
}

// AtLeast reports whether r has at least the authority of min.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "employee":
		return RoleEmployee, nil
	case "supervisor":
		return RoleSupervisor, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
