// Package service implements the bot's commands on top of the store,
// independently of Discord. Errors are either *ValidationError or wrap
// ErrNotFound; both mean nothing was changed.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"adabot/internal/db"
	"adabot/internal/reminder"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrRoleNotFound   = errors.New("role not found")
)

// ValidationError reports bad user input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IdentityResolver turns free text (mention, id or name) into a member or a
// role of the tenant, returning ErrMemberNotFound / ErrRoleNotFound.
type IdentityResolver interface {
	ResolveMember(ctx context.Context, tenant, text string) (reminder.Member, error)
	ResolveRole(ctx context.Context, tenant, text string) (reminder.Role, error)
}

type Options struct {
	Store    db.Store
	Identity IdentityResolver
	Location *time.Location
	Log      zerolog.Logger
	Now      func() time.Time
}

type Service struct {
	store db.Store
	ids   IdentityResolver
	loc   *time.Location
	now   func() time.Time
	log   zerolog.Logger
}

func New(opts Options) *Service {
	s := &Service{
		store: opts.Store,
		ids:   opts.Identity,
		loc:   opts.Location,
		now:   opts.Now,
		log:   opts.Log.With().Str("component", "service").Logger(),
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Location is the timezone user dates are read and shown in.
func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) currentTime() time.Time {
	return s.now().In(s.loc).Truncate(time.Second)
}

// ParseDate reads a DD/MM/YYYY HH:MM date in the service timezone.
func (s *Service) ParseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(reminder.DateLayout, strings.TrimSpace(raw), s.loc)
}

// resolveAssignee tries a role first, then a member, and returns the label
// stored in tasks.assigned_to.
func (s *Service) resolveAssignee(ctx context.Context, tenant, text string) (string, error) {
	role, err := s.ids.ResolveRole(ctx, tenant, text)
	if err == nil {
		return "@" + role.Name, nil
	}
	if !errors.Is(err, ErrRoleNotFound) {
		return "", err
	}

	member, err := s.ids.ResolveMember(ctx, tenant, text)
	if err == nil {
		return member.DisplayName, nil
	}
	if errors.Is(err, ErrMemberNotFound) {
		return "", invalid("could not find a member or role named '%s'", text)
	}
	return "", err
}
