package screen

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Sonia-Koppisetti/SolStake/internal/monitor"
	"github.com/Sonia-Koppisetti/SolStake/internal/ui/component"
	"github.com/Sonia-Koppisetti/SolStake/internal/ui/style"
)

// Audit renders an audit report: one row per pool, then every alert.
func Audit(report monitor.Report) string {
	header := fmt.Sprintf("Audit: %d pools, %d shortfalls, %d failures (%s)",
		len(report.Findings), report.Shortfalls, report.Failures, report.Duration.Round(time.Millisecond))

	pools := component.NewTable().
		AddColumn("Pool", 0, lipgloss.Left).
		AddColumn("ID", 0, lipgloss.Left).
		AddColumn("Stakers", 0, lipgloss.Right).
		AddColumn("Staked", 0, lipgloss.Right).
		AddColumn("Liquidity", 0, lipgloss.Right).
		AddColumn("Reserve", 0, lipgloss.Right).
		AddColumn("Outstanding", 0, lipgloss.Right).
		AddColumn("Status", 0, lipgloss.Left)

	alerts := component.NewTable().
		AddColumn("Pool", 0, lipgloss.Left).
		AddColumn("Severity", 0, lipgloss.Left).
		AddColumn("Type", 0, lipgloss.Left).
		AddColumn("Message", 0, lipgloss.Left)

	for _, f := range report.Findings {
		status, rowStyle := "ok", style.SuccessStyle
		if !f.Healthy() {
			status, rowStyle = fmt.Sprintf("%d alert(s)", len(f.Alerts)), style.Severity(worst(f.Alerts))
		}
		reserve := fmt.Sprintf("%d", f.AvailableRewards)
		if f.ReserveBalance != nil {
			reserve = fmt.Sprintf("%d / %d", f.AvailableRewards, *f.ReserveBalance)
		}
		pools.AddStyledRow(rowStyle,
			f.Address.String(),
			f.PoolID,
			fmt.Sprintf("%d", f.Stakers),
			fmt.Sprintf("%d", f.StakedLiquidity),
			fmt.Sprintf("%d", f.TotalLiquidity),
			reserve,
			fmt.Sprintf("%d", f.Liability),
			status,
		)
		for _, a := range f.Alerts {
			alerts.AddStyledRow(style.Severity(a.Severity), f.Address.String(), a.Severity, string(a.Type), a.Message)
		}
	}

	parts := []string{style.TitleStyle.Render(header)}
	if pools.RowCount() == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, append(parts, style.MutedStyle.Render("no pools stored"))...)
	}
	parts = append(parts, pools.View())
	if alerts.RowCount() > 0 {
		parts = append(parts, style.SubHeaderStyle.Render("Alerts"), alerts.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func worst(alerts []monitor.Alert) string {
	for _, a := range alerts {
		if a.Severity == "critical" {
			return a.Severity
		}
	}
	return "warning"
}
