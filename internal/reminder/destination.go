package reminder

import (
	"context"
	"strings"
)

type Kind int

const (
	KindMember Kind = iota
	KindRole
)

type Member struct {
	ID          string
	DisplayName string
}

type Role struct {
	ID   string
	Name string
}

// Destination is a resolved notification target.
type Destination struct {
	Kind Kind
	ID   string
	Name string
}

func (d Destination) Mention() string {
	if d.Kind == KindRole {
		return "<@&" + d.ID + ">"
	}
	return "<@" + d.ID + ">"
}

// Directory lists the members and roles of a tenant.
type Directory interface {
	Members(ctx context.Context, tenant string) ([]Member, error)
	Roles(ctx context.Context, tenant string) ([]Role, error)
}

// Resolve matches assignee against member display names first and then
// against role names with a leading "@" removed. Matching is exact and the
// first hit wins, so members sharing a display name resolve to the first.
func Resolve(assignee string, members []Member, roles []Role) (Destination, bool) {
	for _, m := range members {
		if m.DisplayName == assignee {
			return Destination{Kind: KindMember, ID: m.ID, Name: m.DisplayName}, true
		}
	}
	name := strings.TrimPrefix(assignee, "@")
	for _, r := range roles {
		if r.Name == name {
			return Destination{Kind: KindRole, ID: r.ID, Name: r.Name}, true
		}
	}
	return Destination{}, false
}
