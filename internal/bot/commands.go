package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"adabot/internal/db/models"
	"adabot/internal/report"

	"github.com/bwmarrin/discordgo"
)

type commandHandler func(b *Bot, ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate)

var (
	commands = []*discordgo.ApplicationCommand{
		{
			Name:        "help",
			Description: "Show all available commands",
		},
		{
			Name:        "addtask",
			Description: "Create a task for a member or a role",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "args",
					Description: "title | usuario/cargo | @target | [start DD/MM/YYYY HH:MM] | due | interval",
					Required:    true,
				},
			},
		},
		{
			Name:        "tasks",
			Description: "List tasks, optionally for a member or a role",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "filter",
					Description: "@member or @role",
					Required:    false,
				},
			},
		},
		{
			Name:        "taskstatus",
			Description: "Update the status of a task",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "id",
					Description: "Task ID",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "target",
					Description: "@member or @role the task is assigned to",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "status",
					Description: "New task status",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "To Do", Value: string(models.StatusToDo)},
						{Name: "In Progress", Value: string(models.StatusInProgress)},
						{Name: "Done", Value: string(models.StatusDone)},
					},
				},
			},
		},
		{
			Name:                     "deletetask",
			Description:              "Delete a task (admin only)",
			DefaultMemberPermissions: &adminPermission,
			Options:                  []*discordgo.ApplicationCommandOption{idOption("Task ID")},
		},
		{
			Name:        "checkin",
			Description: "Start the time clock",
		},
		{
			Name:        "checkout",
			Description: "Stop the time clock",
		},
		{
			Name:        "clock",
			Description: "List time clock entries",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Only entries of this member",
					Required:    false,
				},
			},
		},
		{
			Name:        "editclock",
			Description: "Edit the check-in or check-out of one of your entries",
			Options: []*discordgo.ApplicationCommandOption{
				idOption("Entry ID"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "Which time to change",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Check-in", Value: "check_in"},
						{Name: "Check-out", Value: "check_out"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "time",
					Description: "New time (DD/MM/YYYY HH:MM)",
					Required:    true,
				},
			},
		},
		{
			Name:                     "deleteclock",
			Description:              "Delete a time clock entry (admin only)",
			DefaultMemberPermissions: &adminPermission,
			Options:                  []*discordgo.ApplicationCommandOption{idOption("Entry ID")},
		},
		{
			Name:        "meetingstart",
			Description: "Start a meeting",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "participants",
					Description: "Mention the other participants",
					Required:    false,
				},
			},
		},
		{
			Name:        "meetingtopic",
			Description: "Add topics to your current meeting",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "topics",
					Description: "Topics discussed",
					Required:    true,
				},
			},
		},
		{
			Name:        "meetingend",
			Description: "End your current meeting",
		},
		{
			Name:        "meetings",
			Description: "List meetings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Only meetings of this member",
					Required:    false,
				},
			},
		},
		{
			Name:                     "deletemeeting",
			Description:              "Delete a meeting (admin only)",
			DefaultMemberPermissions: &adminPermission,
			Options:                  []*discordgo.ApplicationCommandOption{idOption("Meeting ID")},
		},
		{
			Name:        "report",
			Description: "Generate a PDF report",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "What to include",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Tasks", Value: string(report.KindTasks)},
						{Name: "Time clock", Value: string(report.KindClock)},
						{Name: "Meetings", Value: string(report.KindMeetings)},
						{Name: "Everything", Value: string(report.KindAll)},
					},
				},
			},
		},
	}

	handlers = map[string]commandHandler{
		"help":          (*Bot).handleHelp,
		"addtask":       (*Bot).handleAddTask,
		"tasks":         (*Bot).handleTasks,
		"taskstatus":    (*Bot).handleTaskStatus,
		"deletetask":    (*Bot).handleDeleteTask,
		"checkin":       (*Bot).handleCheckin,
		"checkout":      (*Bot).handleCheckout,
		"clock":         (*Bot).handleClock,
		"editclock":     (*Bot).handleEditClock,
		"deleteclock":   (*Bot).handleDeleteClock,
		"meetingstart":  (*Bot).handleMeetingStart,
		"meetingtopic":  (*Bot).handleMeetingTopic,
		"meetingend":    (*Bot).handleMeetingEnd,
		"meetings":      (*Bot).handleMeetings,
		"deletemeeting": (*Bot).handleDeleteMeeting,
		"report":        (*Bot).handleReport,
	}

	adminCommands = map[string]bool{
		"deletetask":    true,
		"deleteclock":   true,
		"deletemeeting": true,
	}

	// Permission for admin commands (Manage Server permission)
	adminPermission = int64(discordgo.PermissionManageServer)
)

func idOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "id",
		Description: description,
		Required:    true,
	}
}

func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range i.ApplicationCommandData().Options {
		opts[opt.Name] = opt
	}
	return opts
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

func userOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.UserValue(nil).ID
	}
	return ""
}

// namer caches display names for the duration of one command.
func (b *Bot) namer(ctx context.Context, guildID string) report.Namer {
	cache := make(map[string]string)
	return func(userID string) string {
		if name, ok := cache[userID]; ok {
			return name
		}
		name := b.directory.DisplayName(ctx, guildID, userID)
		cache[userID] = name
		return name
	}
}

func (b *Bot) handleHelp(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	embed := &discordgo.MessageEmbed{
		Title:       "Available commands",
		Description: "Dates use DD/MM/YYYY HH:MM. Intervals accept e.g. `2 semanas`, `3 dias`, `1 mes`, `12 horas`, `30 minutos`.",
		Color:       0x5865F2,
	}
	for _, cmd := range commands {
		usage := "/" + cmd.Name
		for _, opt := range cmd.Options {
			if opt.Required {
				usage += " <" + opt.Name + ">"
			} else {
				usage += " [" + opt.Name + "]"
			}
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  usage,
			Value: cmd.Description,
		})
	}
	respondWithEmbed(s, i, embed)
}

func (b *Bot) handleAddTask(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	args := stringOption(options(i), "args")
	task, err := b.svc.AddTask(ctx, i.GuildID, args)
	if err != nil {
		b.fail(s, i, "addtask", err)
		return
	}
	respondWithSuccess(s, i, fmt.Sprintf(
		"Task **%s** created (ID %d)\n**Assignee:** %s\n**Start:** %s\n**Due:** %s\n**Reminders every:** %s",
		task.Title, task.ID, task.AssignedTo,
		b.formatTime(task.AnchorTime), b.formatTime(task.DueTime), formatDuration(task.Interval()),
	))
}

func (b *Bot) handleTasks(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	tasks, assignee, err := b.svc.ListTasks(ctx, i.GuildID, stringOption(options(i), "filter"))
	if err != nil {
		b.fail(s, i, "tasks", err)
		return
	}
	if len(tasks) == 0 {
		respondWithSuccess(s, i, "No tasks found.")
		return
	}

	title := "Tasks"
	if assignee != "" {
		title = "Tasks assigned to " + assignee
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			truncateString(t.Title, 30),
			truncateString(t.AssignedTo, 20),
			b.formatTime(t.DueTime),
			string(t.Status),
		})
	}
	respondWithSuccess(s, i, fmt.Sprintf("**%s**\n%s", title,
		formatTable([]string{"ID", "TITLE", "ASSIGNEE", "DUE", "STATUS"}, rows)))
}

func (b *Bot) handleTaskStatus(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := options(i)
	id := opts["id"].IntValue()
	task, err := b.svc.UpdateStatus(ctx, i.GuildID, id, stringOption(opts, "target"), stringOption(opts, "status"))
	if err != nil {
		b.fail(s, i, "taskstatus", err)
		return
	}
	respondWithSuccess(s, i, fmt.Sprintf("Task **%s** (ID %d) is now **%s**", task.Title, task.ID, task.Status))
}

func (b *Bot) handleDeleteTask(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := options(i)["id"].IntValue()
	if err := b.svc.DeleteTask(ctx, i.GuildID, id); err != nil {
		b.fail(s, i, "deletetask", err)
		return
	}
	respondWithSuccess(s, i, fmt.Sprintf("Task %d deleted", id))
}

func (b *Bot) handleCheckin(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	entry, err := b.svc.CheckIn(ctx, i.GuildID, interactionUser(i).ID)
	if err != nil {
		b.fail(s, i, "checkin", err)
		return
	}
	respondWithSuccess(s, i, fmt.Sprintf("Checked in at %s (entry %d)", b.formatTime(entry.CheckIn), entry.ID))
}

func (b *Bot) handleCheckout(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	entry, err := b.svc.CheckOut(ctx, i.GuildID, interactionUser(i).ID)
	if err != nil {
		b.fail(s, i, "checkout", err)
		return
	}
	respondWithSuccess(s, i, fmt.Sprintf("Checked out at %s\nTime worked: %s",
		b.formatTime(*entry.CheckOut), formatDuration(entry.Duration(time.Now()))))
}

func (b *Bot) handleClock(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := userOption(options(i), "user")
	entries, err := b.svc.ListClock(ctx, i.GuildID, userID)
	if err != nil {
		b.fail(s, i, "clock", err)
		return
	}
	if len(entries) == 0 {
		respondWithSuccess(s, i, "No time clock entries found.")
		return
	}

	name := b.namer(ctx, i.GuildID)
	now := time.Now()
	totals := make(map[string]time.Duration)
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		out := "active"
		if e.CheckOut != nil {
			out = b.formatTime(*e.CheckOut)
		}
		totals[e.UserID] += e.Duration(now)
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			truncateString(name(e.UserID), 20),
			b.formatTime(e.CheckIn),
			out,
			formatDuration(e.Duration(now)),
		})
	}

	var summary strings.Builder
	users := make([]string, 0, len(totals))
	for id := range totals {
		users = append(users, id)
	}
	sort.Slice(users, func(a, c int) bool { return name(users[a]) < name(users[c]) })
	for _, id := range users {
		fmt.Fprintf(&summary, "\n**%s:** %s", name(id), formatDuration(totals[id]))
	}

	respondWithSuccess(s, i, formatTable([]string{"ID", "USER", "CHECK-IN", "CHECK-OUT", "DURATION"}, rows)+
		"\n**Total worked**"+summary.String())
}

func (b *Bot) handleEditClock(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := options(i)
	entry, err := b.svc.EditClock(ctx, i.GuildID, interactionUser(i).ID,
		opts["id"].IntValue(), stringOption(opts, "kind"), stringOption(opts, "time"))
	if err != nil {
		b.fail(s, i, "editclock", err)
		return
	}
	out := "active"
	if entry.CheckOut != nil {
		out = b.formatTime(*entry.CheckOut)
	}
	respondWithSuccess(s, i, fmt.Sprintf("Entry %d updated\n**Check-in:** %s\n**Check-out:** %s",
		entry.ID, b.formatTime(entry.CheckIn), out))
}

func (b *Bot) handleDeleteClock(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := options(i)["id"].IntValue()
	if err := b.svc.DeleteClock(ctx, i.GuildID, id); err != nil {
		b.fail(s, i, "deleteclock", err)
		return
	}
	respondWithSuccess(s, i, fmt.Sprintf("Time clock entry %d deleted", id))
}

func (b *Bot) handleMeetingStart(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	raw := stringOption(options(i), "participants")
	participants := mentionedUsers(raw)
	if raw != "" && len(participants) == 0 {
		respondWithError(s, i, "Mention the participants with @, e.g. `@Ana @Bruno`")
		return
	}

	m, err := b.svc.StartMeeting(ctx, i.GuildID, interactionUser(i).ID, participants)
	if err != nil {
		b.fail(s, i, "meetingstart", err)
		return
	}
	respondWithSuccess(s, i, fmt.Sprintf("Meeting #%d started at %s\n**Participants:** %s",
		m.ID, b.formatTime(m.CheckIn), mentions(m.Participants)))
}

func (b *Bot) handleMeetingTopic(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	m, err := b.svc.AddTopics(ctx, i.GuildID, interactionUser(i).ID, stringOption(options(i), "topics"))
	if err != nil {
		b.fail(s, i, "meetingtopic", err)
		return
	}
	respondWithSuccess(s, i, fmt.Sprintf("Topics of meeting #%d: %s", m.ID, m.Topics))
}

func (b *Bot) handleMeetingEnd(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	m, err := b.svc.EndMeeting(ctx, i.GuildID, interactionUser(i).ID)
	if err != nil {
		b.fail(s, i, "meetingend", err)
		return
	}
	topics := m.Topics
	if topics == "" {
		topics = "none"
	}
	respondWithSuccess(s, i, fmt.Sprintf("Meeting #%d ended\n**Duration:** %s\n**Participants:** %s\n**Topics:** %s",
		m.ID, formatDuration(m.Duration(time.Now())), mentions(m.Participants), topics))
}

func (b *Bot) handleMeetings(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	meetings, err := b.svc.ListMeetings(ctx, i.GuildID, userOption(options(i), "user"))
	if err != nil {
		b.fail(s, i, "meetings", err)
		return
	}
	if len(meetings) == 0 {
		respondWithSuccess(s, i, "No meetings found.")
		return
	}

	name := b.namer(ctx, i.GuildID)
	now := time.Now()
	rows := make([][]string, 0, len(meetings))
	for _, m := range meetings {
		names := make([]string, 0, len(m.Participants))
		for _, p := range m.Participants {
			names = append(names, name(p))
		}
		duration := "active"
		if !m.Active() {
			duration = formatDuration(m.Duration(now))
		}
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			truncateString(strings.Join(names, ", "), 30),
			truncateString(m.Topics, 30),
			b.formatTime(m.CheckIn),
			duration,
		})
	}
	respondWithSuccess(s, i, formatTable([]string{"ID", "PARTICIPANTS", "TOPICS", "START", "DURATION"}, rows))
}

func (b *Bot) handleDeleteMeeting(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := options(i)["id"].IntValue()
	if err := b.svc.DeleteMeeting(ctx, i.GuildID, id); err != nil {
		b.fail(s, i, "deletemeeting", err)
		return
	}
	respondWithSuccess(s, i, fmt.Sprintf("Meeting %d deleted", id))
}

func mentions(ids []string) string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, "<@"+id+">")
	}
	return strings.Join(out, " ")
}
