package model

import (
	"fmt"
	"strings"
)

// Permission is a bitmask of grants on a profile.
type Permission uint8

const (
	PermRead  Permission = 1 << iota // view profile, campaigns and orders
	PermWrite                        // create and change campaigns and orders
	PermOwner                        // owner-only operations; never stored on a share

	// PermShareable is the set of bits a share or invite may carry.
	PermShareable = PermRead | PermWrite
)

// Normalize makes write imply read and strips bits a share may not hold.
func (p Permission) Normalize() Permission {
	p &= PermShareable
	if p&PermWrite != 0 {
		p |= PermRead
	}
	return p
}

// Covers reports whether p satisfies required.
func (p Permission) Covers(required Permission) bool {
	if p&PermOwner != 0 {
		return true
	}
	return p.Normalize()&required == required
}

// Union merges two grants.
func (p Permission) Union(o Permission) Permission { return (p | o).Normalize() }

// String renders a grant as "read", "read,write" or "owner".
func (p Permission) String() string {
	if p&PermOwner != 0 {
		return "owner"
	}
	var parts []string
	if p&PermRead != 0 {
		parts = append(parts, "read")
	}
	if p&PermWrite != 0 {
		parts = append(parts, "write")
	}
	return strings.Join(parts, ",")
}

// ParsePermissions parses names like "read", "write" into a normalized grant.
func ParsePermissions(names []string) (Permission, error) {
	var p Permission
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "read":
			p |= PermRead
		case "write":
			p |= PermWrite
		case "":
		default:
			return 0, fmt.Errorf("unknown permission %q", n)
		}
	}
	return p.Normalize(), nil
}

// Names lists the grant as permission names.
func (p Permission) Names() []string {
	s := p.String()
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
