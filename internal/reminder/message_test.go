package reminder

import (
	"strings"
	"testing"
	"time"

	"adabot/internal/db/models"
)

func TestCompose(t *testing.T) {
	due := time.Date(2026, 3, 10, 21, 30, 0, 0, time.UTC)
	task := &models.Task{Title: "Deploy", AssignedTo: "Ana", DueTime: due}
	dest := Destination{Kind: KindMember, ID: "100", Name: "Ana"}

	standard := Compose(task, dest, false, testLoc)
	for _, want := range []string{"<@100>\n", "Lembrete de Tarefa", "**Título:** Deploy", "**Vencimento:** 10/03/2026 18:30", "**Responsável:** Ana"} {
		if !strings.Contains(standard, want) {
			t.Fatalf("reminder %q does not contain %q", standard, want)
		}
	}

	overdue := Compose(task, Destination{Kind: KindRole, ID: "900", Name: "Backend"}, true, testLoc)
	if !strings.HasPrefix(overdue, "<@&900>\n🚨 **TAREFA ATRASADA!** 🚨") || !strings.Contains(overdue, "venceu em 10/03/2026 18:30") {
		t.Fatalf("unexpected overdue reminder %q", overdue)
	}
}
