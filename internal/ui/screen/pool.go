package screen

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gagliardetto/solana-go"

	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
	"github.com/Sonia-Koppisetti/SolStake/internal/ui/component"
	"github.com/Sonia-Koppisetti/SolStake/internal/ui/style"
)

// Pool renders the summary of one pool slot with its reward schedule and stakes.
func Pool(address solana.PublicKey, pool staking.Pool) string {
	if !pool.Initialized() {
		return style.WarningStyle.Render(fmt.Sprintf("Pool %s is not initialized", address))
	}

	staked, err := pool.StakedLiquidity()
	stakedText := fmt.Sprintf("%d", staked)
	if err != nil {
		stakedText = style.ErrorStyle.Render(err.Error())
	}
	liability, err := staking.Liability(pool)
	liabilityText := fmt.Sprintf("%d", liability)
	switch {
	case err != nil:
		liabilityText = style.ErrorStyle.Render(err.Error())
	case liability > pool.AvailableRewards:
		liabilityText = style.WarningStyle.Render(liabilityText + " (reserve short)")
	}

	summary := strings.Join([]string{
		style.KeyValue("Address", address.String()),
		style.KeyValue("Owner", pool.Owner.String()),
		style.KeyValue("Asset", pool.Asset.String()),
		style.KeyValue("Total liquidity", fmt.Sprintf("%d", pool.TotalLiquidity)),
		style.KeyValue("Staked", stakedText),
		style.KeyValue("Available rewards", fmt.Sprintf("%d", pool.AvailableRewards)),
		style.KeyValue("Outstanding", liabilityText),
	}, "\n")

	schedule := component.NewTable().
		AddColumn("Tier", 0, lipgloss.Right).
		AddColumn("After", 0, lipgloss.Right).
		AddColumn("Reward %", 0, lipgloss.Right)
	for i, threshold := range pool.RewardTimelines {
		pct := "-"
		if i < len(pool.RewardPercentages) {
			pct = fmt.Sprintf("%d", pool.RewardPercentages[i])
		}
		schedule.AddRow(fmt.Sprintf("%d", i), fmt.Sprintf("%d", threshold), pct)
	}

	parts := []string{
		style.TitleStyle.Render("Pool " + pool.ID),
		style.PanelStyle.Render(summary),
		style.SubHeaderStyle.Render("Reward schedule"),
		schedule.View(),
		style.SubHeaderStyle.Render(fmt.Sprintf("Stakes (%d)", pool.Stakes.Len())),
	}
	if pool.Stakes.Len() == 0 {
		parts = append(parts, style.MutedStyle.Render("no active positions"))
	} else {
		parts = append(parts, stakesTable(pool).View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func stakesTable(pool staking.Pool) *component.Table {
	t := component.NewTable().
		AddColumn("Participant", 0, lipgloss.Left).
		AddColumn("Amount", 0, lipgloss.Right).
		AddColumn("Started", 0, lipgloss.Left).
		AddColumn("Claimed up to", 0, lipgloss.Right)
	for _, rec := range pool.Stakes.Records() {
		claimed := "-"
		if rec.RewardsClaimedUpTo != staking.NoTierClaimed {
			claimed = fmt.Sprintf("%d", rec.RewardsClaimedUpTo)
		}
		t.AddRow(
			rec.Participant.String(),
			fmt.Sprintf("%d", rec.Amount),
			rec.Started().Format(time.RFC3339),
			claimed,
		)
	}
	return t
}

// Quote renders a reward preview.
func Quote(q staking.RewardQuote) string {
	status := style.SuccessStyle.Render("claimable")
	if !q.Claimable {
		status = style.WarningStyle.Render("not claimable")
		if q.Reason != nil {
			status += " " + style.MutedStyle.Render(q.Reason.Error())
		}
	}
	return style.PanelStyle.Render(strings.Join([]string{
		style.KeyValue("Participant", q.Participant.String()),
		style.KeyValue("Elapsed", fmt.Sprintf("%d", q.Elapsed)),
		style.KeyValue("Tier", fmt.Sprintf("%d (%d%%)", q.Tier, q.Percentage)),
		style.KeyValue("Reward", fmt.Sprintf("%d", q.Amount)),
		style.KeyValue("Status", status),
	}, "\n"))
}
