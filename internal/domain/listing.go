package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOrderBy is returned for order_by fields outside the allowlist.
var ErrInvalidOrderBy = errors.New("invalid order_by")

// SortField is one ordering term. Desc is set by a leading "-".
type SortField struct {
	Field string
	Desc  bool
}

// OrderBy is an ordered list of sort terms.
type OrderBy []SortField

// Sortable fields per listing. Keys are the public names; values are columns.
var (
	UserSortFields        = map[string]string{"id": "id", "username": "username", "is_admin": "is_admin", "created_at": "created_at"}
	PlatformSortFields    = map[string]string{"id": "id", "name": "name", "created_at": "created_at"}
	IntegrationSortFields = map[string]string{"id": "id", "platform_id": "platform_id", "is_active": "is_active", "created_at": "created_at"}
	CredentialSortFields  = map[string]string{"id": "id", "key": "key", "created_at": "created_at"}
)

// ParseOrderBy parses terms like "name", "-created_at" or "name,-id".
// Every field must appear in allowed.
func ParseOrderBy(raw []string, allowed map[string]string) (OrderBy, error) {
	var out OrderBy
	for _, item := range raw {
		for _, term := range strings.Split(item, ",") {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			f := SortField{Field: term}
			switch term[0] {
			case '-':
				f.Desc = true
				f.Field = term[1:]
			case '+':
				f.Field = term[1:]
			}
			if _, ok := allowed[f.Field]; !ok {
				return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidOrderBy, f.Field)
			}
			out = append(out, f)
		}
	}
	return out, nil
}

// SQL renders an ORDER BY clause body using the column mapping in allowed.
// Terms are always suffixed with id so pagination-free listings stay stable.
func (o OrderBy) SQL(allowed map[string]string) string {
	parts := make([]string, 0, len(o)+1)
	hasID := false
	for _, f := range o {
		col, ok := allowed[f.Field]
		if !ok {
			continue
		}
		if col == "id" {
			hasID = true
		}
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if !hasID {
		parts = append(parts, "id ASC")
	}
	return strings.Join(parts, ", ")
}

// UserListParams filters the admin user listing.
type UserListParams struct {
	// Username matches case-insensitively anywhere in the name.
	Username *string
	IsAdmin  *bool
	OrderBy  OrderBy
}

// PlatformListParams filters platform listings.
type PlatformListParams struct {
	Name        *string
	Description *string
	OrderBy     OrderBy
}

// IntegrationListParams filters a user's integrations.
type IntegrationListParams struct {
	IsActive   *bool
	PlatformID *int64
	OrderBy    OrderBy
}

// CredentialListParams filters credentials of one user on one platform.
type CredentialListParams struct {
	UserID     int64
	PlatformID int64
	Key        *string
	OrderBy    OrderBy
}
