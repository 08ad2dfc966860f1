package reminder

import (
	"fmt"
	"time"

	"adabot/internal/db/models"
)

// DateLayout is the user facing date format, DD/MM/YYYY HH:MM.
const DateLayout = "02/01/2006 15:04"

// Compose builds the reminder text for task, mentioning dest.
func Compose(task *models.Task, dest Destination, overdue bool, loc *time.Location) string {
	due := task.DueTime.In(loc).Format(DateLayout)
	if overdue {
		return fmt.Sprintf("%s\n🚨 **TAREFA ATRASADA!** 🚨\n"+
			"A tarefa **'%s'** venceu em %s.\n"+
			"**Responsável:** %s\n"+
			"Este é um lembrete periódico de atraso.",
			dest.Mention(), task.Title, due, task.AssignedTo)
	}
	return fmt.Sprintf("%s\n🔔 **Lembrete de Tarefa** 🔔\n"+
		"**Título:** %s\n"+
		"**Vencimento:** %s\n"+
		"**Responsável:** %s",
		dest.Mention(), task.Title, due, task.AssignedTo)
}
