package bot

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"adabot/internal/reminder"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const maxMessageLength = 2000

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func (b *Bot) formatTime(t time.Time) string {
	return t.In(b.cfg.Location).Format(reminder.DateLayout)
}

// rejectInteraction answers an interaction that has not been deferred yet.
func rejectInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, errMsg string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Error: " + errMsg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// respondWithError replaces the deferred response with an error message
func respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, errMsg string) {
	respondWithSuccess(s, i, "Error: "+errMsg)
}

// respondWithSuccess replaces the deferred response with msg
func respondWithSuccess(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	msg = truncateMessage(msg)
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &msg,
	})
}

func respondWithEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
}

func truncateMessage(msg string) string {
	if len(msg) <= maxMessageLength {
		return msg
	}
	cut := maxMessageLength - len("\n…```")
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	msg = msg[:cut]
	if strings.Count(msg, "```")%2 == 1 {
		return msg + "\n…```"
	}
	return msg + "…"
}

// interactionUser returns the invoking user in guilds and DMs.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func serverName(s *discordgo.Session, guildID string) string {
	if guildID == "" {
		return "DM"
	}
	if g, err := s.State.Guild(guildID); err == nil {
		return g.Name
	}
	return guildID
}

// guildLog returns a logger tagged with the guild id and name.
func (b *Bot) guildLog(guildID string) *zerolog.Logger {
	l := b.log.With().
		Str("guild_id", guildID).
		Str("guild", serverName(b.session, guildID)).
		Logger()
	return &l
}

// logCommand logs command execution with its options
func (b *Bot) logCommand(i *discordgo.InteractionCreate, commandName string) {
	username := "unknown"
	if u := interactionUser(i); u != nil {
		username = u.Username
	}

	var params []string
	for _, opt := range i.ApplicationCommandData().Options {
		params = append(params, fmt.Sprintf("%s:%v", opt.Name, opt.Value))
	}

	b.guildLog(i.GuildID).Info().
		Str("user", username).
		Str("command", commandName).
		Strs("params", params).
		Msg("command executed")
}

// formatTable creates a Discord-friendly table with fixed-width columns
func formatTable(headers []string, rows [][]string) string {
	// Find the maximum width for each column
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = utf8.RuneCountInString(header)
	}

	for _, row := range rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var result strings.Builder

	result.WriteString("```\n")
	for i, header := range headers {
		result.WriteString(pad(header, widths[i]+2))
	}
	result.WriteString("\n")

	for _, width := range widths {
		result.WriteString(strings.Repeat("-", width+2))
	}
	result.WriteString("\n")

	for _, row := range rows {
		for i, cell := range row {
			result.WriteString(pad(cell, widths[i]+2))
		}
		result.WriteString("\n")
	}
	result.WriteString("```")

	return result.String()
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// truncateString cuts s to maxLen runes
func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}

// Helper function to check if a user is an admin
func isAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return false
	}
	if i.Member.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0 {
		return true
	}
	if g, err := s.State.Guild(i.GuildID); err == nil && g.OwnerID == i.Member.User.ID {
		return true
	}
	perms, err := s.State.UserChannelPermissions(i.Member.User.ID, i.ChannelID)
	if err != nil {
		return false
	}
	return perms&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0
}
