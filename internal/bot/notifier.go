package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"adabot/internal/reminder"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var ErrNoWritableChannel = errors.New("no text channel the bot can post in")

// Notifier posts reminders to the first text channel of a guild, by
// position, where the bot may send messages.
type Notifier struct {
	session *discordgo.Session
	limiter *rate.Limiter
	log     zerolog.Logger
}

var _ reminder.Notifier = (*Notifier)(nil)

func NewNotifier(s *discordgo.Session, log zerolog.Logger) *Notifier {
	return &Notifier{
		session: s,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		log:     log.With().Str("component", "notifier").Logger(),
	}
}

func (n *Notifier) Notify(ctx context.Context, guildID string, dest reminder.Destination, text string) error {
	channelID, err := n.channelFor(ctx, guildID)
	if err != nil {
		return err
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err = n.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         text,
		AllowedMentions: allowedMentions(dest),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error sending reminder to channel %s: %w", channelID, err)
	}
	n.log.Debug().Str("guild_id", guildID).Str("channel_id", channelID).Str("destination", dest.Name).Msg("reminder delivered")
	return nil
}

func (n *Notifier) channelFor(ctx context.Context, guildID string) (string, error) {
	channels, err := n.guildChannels(ctx, guildID)
	if err != nil {
		return "", err
	}
	sort.SliceStable(channels, func(i, j int) bool { return channels[i].Position < channels[j].Position })

	botID := n.session.State.User.ID
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		perms, err := n.session.State.UserChannelPermissions(botID, ch.ID)
		if err != nil {
			continue
		}
		if perms&discordgo.PermissionViewChannel != 0 && perms&discordgo.PermissionSendMessages != 0 {
			return ch.ID, nil
		}
	}
	return "", fmt.Errorf("guild %s: %w", guildID, ErrNoWritableChannel)
}

func (n *Notifier) guildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	if g, err := n.session.State.Guild(guildID); err == nil && len(g.Channels) > 0 {
		n.session.State.RLock()
		channels := append([]*discordgo.Channel(nil), g.Channels...)
		n.session.State.RUnlock()
		return channels, nil
	}
	channels, err := n.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error listing channels: %w", err)
	}
	return channels, nil
}

func allowedMentions(dest reminder.Destination) *discordgo.MessageAllowedMentions {
	if dest.Kind == reminder.KindRole {
		return &discordgo.MessageAllowedMentions{Roles: []string{dest.ID}}
	}
	return &discordgo.MessageAllowedMentions{Users: []string{dest.ID}}
}
