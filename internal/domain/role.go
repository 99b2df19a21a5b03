package domain

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin        Role = "Admin"
	RoleMerchandiser Role = "Merchandiser"
	RoleViewer       Role = "Viewer"
)

// Roles lists every role the system knows, in display order.
var Roles = []Role{RoleAdmin, RoleMerchandiser, RoleViewer}

// ParseRole matches s against the known roles ignoring case and returns the
// canonical spelling.
func ParseRole(s string) (Role, error) {
	for _, role := range Roles {
		if strings.EqualFold(strings.TrimSpace(s), string(role)) {
			return role, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) IsMerchandiser() bool {
	return r == RoleMerchandiser
}

type RoleEntity struct {
	ID        int64     `json:"id"`
	Name      Role      `json:"name"`
	UserCount int64     `json:"userCount"`
	CreatedAt time.Time `json:"createdAt"`
}
