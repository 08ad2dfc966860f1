package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"adabot/internal/report"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) handleReport(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	kind, err := report.ParseKind(stringOption(options(i), "kind"))
	if err != nil {
		respondWithError(s, i, "Invalid report kind, use tasks, clock, meetings or all")
		return
	}

	path, err := report.Generate(ctx, b.store, i.GuildID, kind, b.namer(ctx, i.GuildID), b.cfg.Reports.Dir, b.cfg.Location)
	if err != nil {
		b.fail(s, i, "report", err)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			b.guildLog(i.GuildID).Warn().Err(err).Str("path", path).Msg("error removing report file")
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		b.fail(s, i, "report", err)
		return
	}
	defer f.Close()

	file := &discordgo.File{
		Name:        filepath.Base(path),
		ContentType: "application/pdf",
		Reader:      f,
	}
	msg := fmt.Sprintf("Report: %s", kind)
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &msg,
		Files:   []*discordgo.File{file},
	})
	if err != nil {
		b.guildLog(i.GuildID).Error().Err(err).Msg("error sending report")
		respondWithError(s, i, "Could not upload the report")
	}
}
