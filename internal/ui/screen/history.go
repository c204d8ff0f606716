package screen

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Sonia-Koppisetti/SolStake/internal/journal"
	"github.com/Sonia-Koppisetti/SolStake/internal/ui/component"
	"github.com/Sonia-Koppisetti/SolStake/internal/ui/style"
)

// History renders journal entries, newest first.
func History(entries []journal.Entry) string {
	if len(entries) == 0 {
		return style.MutedStyle.Render("no operations recorded")
	}
	t := component.NewTable().
		AddColumn("#", 0, lipgloss.Right).
		AddColumn("Time", 0, lipgloss.Left).
		AddColumn("Operation", 0, lipgloss.Left).
		AddColumn("Signer", 0, lipgloss.Left).
		AddColumn("Amount", 0, lipgloss.Right).
		AddColumn("Outcome", 0, lipgloss.Left)

	for _, e := range entries {
		outcome, s := e.Outcome, style.SuccessStyle
		switch e.Outcome {
		case journal.OutcomeRejected:
			outcome, s = fmt.Sprintf("rejected (%d): %s", e.Code, e.Error), style.ErrorStyle
		case journal.OutcomeUnconfirmed:
			outcome, s = "unconfirmed, reconcile: "+e.Error, style.WarningStyle
		}
		t.AddStyledRow(s,
			fmt.Sprintf("%d", e.ID),
			e.Time.Local().Format(time.DateTime),
			e.Operation,
			e.Signer.String(),
			fmt.Sprintf("%d", e.Amount),
			outcome,
		)
	}
	return t.View()
}
