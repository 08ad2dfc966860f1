package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"adabot/internal/config"
	"adabot/internal/db"
	"adabot/internal/reminder"
	"adabot/internal/service"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const commandTimeout = 30 * time.Second

var (
	dmAllowedCommands = map[string]bool{
		"help": true, // Keep only essential commands in DMs
	}
)

type Bot struct {
	cfg        *config.Config
	store      db.Store
	svc        *service.Service
	session    *discordgo.Session
	directory  *Directory
	notifier   *Notifier
	log        zerolog.Logger
	shutdownCh chan struct{}
	isShutdown bool
	mu         sync.Mutex
	wg         sync.WaitGroup
}

func New(cfg *config.Config, store db.Store, log zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages

	log = log.With().Str("component", "bot").Logger()
	log.Info().Int("intents", int(session.Identify.Intents)).Msg("bot configured")

	directory := NewDirectory(session)
	b := &Bot{
		cfg:        cfg,
		store:      store,
		session:    session,
		directory:  directory,
		notifier:   NewNotifier(session, log),
		log:        log,
		shutdownCh: make(chan struct{}),
	}
	b.svc = service.New(service.Options{
		Store:    store,
		Identity: directory,
		Location: cfg.Location,
		Log:      log,
	})
	return b, nil
}

// Directory resolves members and roles for the reminder scheduler.
func (b *Bot) Directory() reminder.Directory { return b.directory }

// Notifier delivers reminders to guild channels.
func (b *Bot) Notifier() reminder.Notifier { return b.notifier }

// Tenants lists the guilds to sweep.
func (b *Bot) Tenants() reminder.TenantSource {
	return guildTenants{session: b.session, fallback: b.store}
}

// Helper function to register commands for a guild
func (b *Bot) registerGuildCommands(guildID string) error {
	maxRetries := 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := b.registerGuildCommandsOnce(guildID)
		if err == nil {
			return nil
		}
		lastErr = err
		b.guildLog(guildID).Warn().Err(err).Int("attempt", i+1).Msg("registering commands failed")
		select {
		case <-b.shutdownCh:
			return fmt.Errorf("shutting down: %w", lastErr)
		case <-time.After(time.Second * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed to register commands after %d attempts: %w", maxRetries, lastErr)
}

func (b *Bot) registerGuildCommandsOnce(guildID string) error {
	log := b.guildLog(guildID)
	log.Info().Msg("registering commands")

	appID := b.appID()
	existing, err := b.session.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("error getting existing commands: %w", err)
	}

	// Delete all existing commands first
	for _, v := range existing {
		if err := b.session.ApplicationCommandDelete(appID, guildID, v.ID); err != nil {
			log.Warn().Err(err).Str("command", v.Name).Msg("failed to delete command")
		} else {
			log.Debug().Str("command", v.Name).Msg("removed command")
		}
	}

	// Wait a moment to ensure all deletions are processed
	time.Sleep(time.Second)

	for _, v := range commands {
		if _, err := b.session.ApplicationCommandCreate(appID, guildID, v); err != nil {
			return fmt.Errorf("error creating command %s: %w", v.Name, err)
		}
		log.Debug().Str("command", v.Name).Msg("registered command")
	}
	return nil
}

func (b *Bot) appID() string {
	if b.cfg.Discord.ClientID != "" {
		return b.cfg.Discord.ClientID
	}
	if b.session.State.User != nil {
		return b.session.State.User.ID
	}
	return ""
}

// Start connects to Discord and registers commands in every guild. It returns
// once the session is open; Shutdown closes it.
func (b *Bot) Start(ctx context.Context) error {
	b.log.Info().Msg("starting bot")

	// Keep trying to connect until successful
	for {
		_, err := b.session.User("@me")
		if err == nil {
			break
		}
		b.log.Warn().Err(err).Msg("failed to connect to Discord API, retrying in 5 seconds")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}

	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type == discordgo.InteractionApplicationCommand {
			b.handleCommand(s, i)
		}
	})

	for {
		err := b.session.Open()
		if err == nil {
			break
		}
		b.log.Warn().Err(err).Msg("error opening Discord session, retrying in 5 seconds")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	b.log.Info().Str("session_id", b.session.State.SessionID).Msg("session opened")

	// Force re-register commands for all guilds
	for _, guild := range b.session.State.Guilds {
		if err := b.registerGuildCommands(guild.ID); err != nil {
			b.guildLog(guild.ID).Error().Err(err).Msg("error registering commands")
		}
	}

	// Now add the guild create handler for future guilds
	b.session.AddHandler(b.handleGuildCreate)

	b.log.Info().Int("guilds", len(b.session.State.Guilds)).Msg("bot is now running")
	return nil
}

// Shutdown performs a graceful shutdown of the bot
func (b *Bot) Shutdown() error {
	b.mu.Lock()
	if b.isShutdown {
		b.mu.Unlock()
		return nil
	}
	b.isShutdown = true
	close(b.shutdownCh)
	b.mu.Unlock()

	b.log.Info().Msg("waiting for active handlers to complete")
	b.wg.Wait()

	appID := b.appID()
	for _, guild := range b.session.State.Guilds {
		log := b.guildLog(guild.ID)
		registered, err := b.session.ApplicationCommands(appID, guild.ID)
		if err != nil {
			log.Warn().Err(err).Msg("error getting commands")
			continue
		}
		for _, cmd := range registered {
			if err := b.session.ApplicationCommandDelete(appID, guild.ID, cmd.ID); err != nil {
				log.Warn().Err(err).Str("command", cmd.Name).Msg("failed to remove command")
			}
		}
	}

	b.log.Info().Msg("closing Discord session")
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("error closing Discord session: %w", err)
	}
	return nil
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().Int("guilds", len(r.Guilds)).Str("user", r.User.Username).Msg("bot is ready")
}

func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log := b.log.With().Str("guild_id", g.ID).Str("guild", g.Name).Logger()
	log.Info().Msg("bot joined guild")

	if err := b.registerGuildCommands(g.ID); err != nil {
		log.Error().Err(err).Msg("error registering commands")
		return
	}
	log.Info().Msg("registered all commands")
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.mu.Lock()
	if b.isShutdown {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()
	defer b.wg.Done()

	// Add defer to catch panics with stack trace
	defer func() {
		if r := recover(); r != nil {
			username := "unknown"
			if u := interactionUser(i); u != nil {
				username = u.Username
			}
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			b.guildLog(i.GuildID).Error().
				Str("user", username).
				Interface("panic", r).
				Str("stack", string(buf[:n])).
				Msg("panic in command handler")

			respondWithError(s, i, "An internal error occurred")
		}
	}()

	commandName := i.ApplicationCommandData().Name

	// Strict DM check
	if i.GuildID == "" && !dmAllowedCommands[commandName] {
		rejectInteraction(s, i, fmt.Sprintf("The `/%s` command can only be used in a server", commandName))
		return
	}
	if adminCommands[commandName] && !isAdmin(s, i) {
		rejectInteraction(s, i, "Only server administrators can use this command")
		return
	}

	// Add initial acknowledgment for long-running commands
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.guildLog(i.GuildID).Error().Err(err).Msg("error acknowledging interaction")
		return
	}

	b.logCommand(i, commandName)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	handler, ok := handlers[commandName]
	if !ok {
		b.guildLog(i.GuildID).Warn().Str("command", commandName).Msg("unknown command")
		respondWithError(s, i, "Unknown command")
		return
	}
	handler(b, ctx, s, i)
}

// fail reports err to the user. Validation and not-found errors are shown
// as they are; anything else is logged and hidden behind a generic message.
func (b *Bot) fail(s *discordgo.Session, i *discordgo.InteractionCreate, op string, err error) {
	if service.IsValidation(err) || errors.Is(err, service.ErrNotFound) {
		respondWithError(s, i, err.Error())
		return
	}
	b.guildLog(i.GuildID).Error().Err(err).Str("op", op).Msg("command failed")
	respondWithError(s, i, "An internal error occurred, please try again later")
}
