package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"adabot/internal/reminder"
	"adabot/internal/service"

	"github.com/bwmarrin/discordgo"
)

const membersPageSize = 1000

var (
	memberMentionRe = regexp.MustCompile(`^<@!?(\d+)>$`)
	roleMentionRe   = regexp.MustCompile(`^<@&(\d+)>$`)
	snowflakeRe     = regexp.MustCompile(`^\d{15,21}$`)
	mentionsRe      = regexp.MustCompile(`<@!?(\d+)>`)
)

// Directory answers member and role questions about guilds. It serves the
// reminder scheduler (reminder.Directory) and the command service
// (service.IdentityResolver).
type Directory struct {
	session *discordgo.Session
}

var (
	_ reminder.Directory       = (*Directory)(nil)
	_ service.IdentityResolver = (*Directory)(nil)
)

func NewDirectory(s *discordgo.Session) *Directory {
	return &Directory{session: s}
}

// Members pages through the whole member list of the guild.
func (d *Directory) Members(ctx context.Context, guildID string) ([]reminder.Member, error) {
	var (
		out   []reminder.Member
		after string
	)
	for {
		page, err := d.session.GuildMembers(guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("error listing members: %w", err)
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			out = append(out, reminder.Member{ID: m.User.ID, DisplayName: displayName(m)})
		}
		if len(page) < membersPageSize {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (d *Directory) Roles(ctx context.Context, guildID string) ([]reminder.Role, error) {
	roles, err := d.guildRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	out := make([]reminder.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, reminder.Role{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

// ResolveMember accepts a mention, a raw id, or an exact display name or
// username.
func (d *Directory) ResolveMember(ctx context.Context, guildID, text string) (reminder.Member, error) {
	text = strings.TrimSpace(text)
	id := text
	if m := memberMentionRe.FindStringSubmatch(text); m != nil {
		id = m[1]
	}
	if snowflakeRe.MatchString(id) {
		member, err := d.member(ctx, guildID, id)
		if err != nil {
			return reminder.Member{}, err
		}
		return reminder.Member{ID: member.User.ID, DisplayName: displayName(member)}, nil
	}

	name := strings.TrimPrefix(text, "@")
	members, err := d.session.GuildMembersSearch(guildID, name, membersPageSize, discordgo.WithContext(ctx))
	if err != nil {
		return reminder.Member{}, fmt.Errorf("error searching members: %w", err)
	}
	for _, m := range members {
		if m.User != nil && displayName(m) == name {
			return reminder.Member{ID: m.User.ID, DisplayName: displayName(m)}, nil
		}
	}
	for _, m := range members {
		if m.User != nil && m.User.Username == name {
			return reminder.Member{ID: m.User.ID, DisplayName: displayName(m)}, nil
		}
	}
	return reminder.Member{}, service.ErrMemberNotFound
}

// ResolveRole accepts a role mention, a raw id or the role name.
func (d *Directory) ResolveRole(ctx context.Context, guildID, text string) (reminder.Role, error) {
	text = strings.TrimSpace(text)
	roles, err := d.guildRoles(ctx, guildID)
	if err != nil {
		return reminder.Role{}, err
	}

	id := text
	if m := roleMentionRe.FindStringSubmatch(text); m != nil {
		id = m[1]
	}
	name := strings.TrimPrefix(text, "@")
	for _, r := range roles {
		if r.ID == id || r.Name == name {
			return reminder.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, name) {
			return reminder.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return reminder.Role{}, service.ErrRoleNotFound
}

// DisplayName returns the member's display name, or the id when the member
// cannot be found.
func (d *Directory) DisplayName(ctx context.Context, guildID, userID string) string {
	m, err := d.member(ctx, guildID, userID)
	if err != nil {
		return userID
	}
	return displayName(m)
}

func (d *Directory) member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, err := d.session.State.Member(guildID, userID); err == nil && m.User != nil {
		return m, nil
	}
	m, err := d.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, service.ErrMemberNotFound
		}
		return nil, fmt.Errorf("error getting member: %w", err)
	}
	if m.User == nil {
		return nil, service.ErrMemberNotFound
	}
	return m, nil
}

func (d *Directory) guildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	if g, err := d.session.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
		return g.Roles, nil
	}
	roles, err := d.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error listing roles: %w", err)
	}
	return roles, nil
}

func displayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.User.Username
}

func isNotFound(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}

// mentionedUsers extracts user ids from mentions in text, in order.
func mentionedUsers(text string) []string {
	var ids []string
	for _, m := range mentionsRe.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

// guildTenants lists the guilds the bot is in, falling back to the guilds
// that own tasks while the gateway state is still empty.
type guildTenants struct {
	session  *discordgo.Session
	fallback reminder.TenantSource
}

func (g guildTenants) Tenants(ctx context.Context) ([]string, error) {
	g.session.State.RLock()
	ids := make([]string, 0, len(g.session.State.Guilds))
	for _, guild := range g.session.State.Guilds {
		ids = append(ids, guild.ID)
	}
	g.session.State.RUnlock()

	if len(ids) == 0 && g.fallback != nil {
		return g.fallback.Tenants(ctx)
	}
	return ids, nil
}
