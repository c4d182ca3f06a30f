package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"

	"github.com/adsmith-io/adsmith/internal/core"
)

// CampaignMarkdown builds a markdown summary of a finished run from
// its typed agent payloads. Agents whose payloads are missing or
// undecodable simply contribute no section.
func CampaignMarkdown(res *core.RunResult) string {
	var b strings.Builder

	campaign := decodedCampaign(res)
	if campaign != nil && campaign.Name != "" {
		fmt.Fprintf(&b, "# %s\n\n", campaign.Name)
	} else {
		fmt.Fprintf(&b, "# Campaign run %s\n\n", res.RunID)
	}

	fmt.Fprintf(&b, "Status: %s | Duration: %s\n\n", res.Status, res.Duration().Round(10*time.Millisecond))
	if res.Input != "" {
		fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(res.Input, "\n", " "))
	}

	if profile, ok := decodedResult(res, core.AgentBusinessAnalyst).(core.BusinessProfile); ok {
		b.WriteString("## Business Profile\n\n")
		fmt.Fprintf(&b, "- Type: %s\n", profile.BusinessType)
		if profile.Name != "" {
			fmt.Fprintf(&b, "- Name: %s\n", profile.Name)
		}
		if profile.Location != "" {
			fmt.Fprintf(&b, "- Location: %s\n", profile.Location)
		}
		b.WriteString("\n")
		if profile.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", profile.Summary)
		}
	}

	if report, ok := decodedResult(res, core.AgentMarketScout).(core.MarketReport); ok {
		b.WriteString("## Market Snapshot\n\n")
		fmt.Fprintf(&b, "- Competitor ads observed: %d\n", report.AdCount)
		if len(report.Competitors) > 0 {
			fmt.Fprintf(&b, "- Competitors: %s\n", strings.Join(report.Competitors, ", "))
		}
		if len(report.Keywords) > 0 {
			fmt.Fprintf(&b, "- Keywords: %s\n", strings.Join(report.Keywords, ", "))
		}
		b.WriteString("\n")
	}

	writeAds(&b, campaignAds(res, campaign))

	audience := campaignAudience(res, campaign)
	if len(audience.Segments) > 0 {
		b.WriteString("## Audience\n\n")
		for _, seg := range audience.Segments {
			line := "- **" + seg.Name + "**"
			if seg.AgeRange != "" {
				line += " (" + seg.AgeRange + ")"
			}
			if len(seg.Interests) > 0 {
				line += ": " + strings.Join(seg.Interests, ", ")
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	writeBudget(&b, campaignBudget(res, campaign))

	if brief, ok := decodedResult(res, core.AgentCreativeDirector).(core.CreativeBrief); ok {
		b.WriteString("## Creative Direction\n\n")
		if len(brief.Themes) > 0 {
			fmt.Fprintf(&b, "- Themes: %s\n", strings.Join(brief.Themes, ", "))
		}
		if len(brief.Palette) > 0 {
			fmt.Fprintf(&b, "- Palette: %s\n", strings.Join(brief.Palette, ", "))
		}
		b.WriteString("\n")
		if brief.Notes != "" {
			fmt.Fprintf(&b, "%s\n\n", brief.Notes)
		}
	}

	if len(res.Failed) > 0 {
		b.WriteString("## Incomplete\n\n")
		b.WriteString("These agents failed; their sections are missing or partial:\n\n")
		for _, id := range res.Failed {
			fmt.Fprintf(&b, "- %s\n", agentDisplayName(id))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeAds(b *strings.Builder, ads []core.Ad) {
	if len(ads) == 0 {
		return
	}
	b.WriteString("## Ads\n\n")
	for i, ad := range ads {
		fmt.Fprintf(b, "### %d. %s\n\n", i+1, ad.Headline)
		if ad.Body != "" {
			fmt.Fprintf(b, "%s\n\n", ad.Body)
		}
		if ad.CallToAction != "" {
			fmt.Fprintf(b, "**CTA:** %s\n\n", ad.CallToAction)
		}
	}
}

func writeBudget(b *strings.Builder, budget core.BudgetPlan) {
	if budget.Total == 0 && len(budget.Channels) == 0 {
		return
	}
	currency := budget.Currency
	if currency == "" {
		currency = "USD"
	}

	b.WriteString("## Budget\n\n")
	if len(budget.Channels) > 0 {
		b.WriteString("| Channel | Amount |\n|---|---|\n")
		for _, ch := range budget.Channels {
			fmt.Fprintf(b, "| %s | %s %.2f |\n", ch.Channel, currency, ch.Amount)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "**Total:** %s %.2f\n\n", currency, budget.Total)
}

// decodedResult decodes one agent's payload, returning nil if absent
// or undecodable.
func decodedResult(res *core.RunResult, agentID string) core.AgentResult {
	raw, ok := res.Results[agentID]
	if !ok {
		return nil
	}
	decoded, err := core.DecodeAgentResult(agentID, raw)
	if err != nil {
		return nil
	}
	return decoded
}

func decodedCampaign(res *core.RunResult) *core.Campaign {
	if c, ok := decodedResult(res, core.AgentCampaignAssembler).(core.Campaign); ok {
		return &c
	}
	return nil
}

// campaignAds prefers the assembled campaign's ads and falls back to
// the copywriter's raw variants if assembly failed.
func campaignAds(res *core.RunResult, campaign *core.Campaign) []core.Ad {
	if campaign != nil && len(campaign.Ads) > 0 {
		return campaign.Ads
	}
	if ac, ok := decodedResult(res, core.AgentCopywriter).(core.AdCopy); ok {
		return ac.Ads
	}
	return nil
}

func campaignAudience(res *core.RunResult, campaign *core.Campaign) core.AudiencePlan {
	if campaign != nil && len(campaign.Audience.Segments) > 0 {
		return campaign.Audience
	}
	if plan, ok := decodedResult(res, core.AgentAudiencePlanner).(core.AudiencePlan); ok {
		return plan
	}
	return core.AudiencePlan{}
}

func campaignBudget(res *core.RunResult, campaign *core.Campaign) core.BudgetPlan {
	if campaign != nil && (campaign.Budget.Total != 0 || len(campaign.Budget.Channels) > 0) {
		return campaign.Budget
	}
	if plan, ok := decodedResult(res, core.AgentBudgetPlanner).(core.BudgetPlan); ok {
		return plan
	}
	return core.BudgetPlan{}
}

// RenderMarkdown renders markdown for the terminal at the given wrap
// width.
func RenderMarkdown(markdown string, width int) (string, error) {
	if width < 40 {
		width = 40
	}
	if width > 120 {
		width = 120 // Maximum reasonable for readability
	}

	customStyle := styles.DraculaStyleConfig
	customStyle.Code = ansi.StyleBlock{
		StylePrimitive: ansi.StylePrimitive{
			Color:           stringPtr("229"), // Light yellow
			BackgroundColor: stringPtr(""),    // No background
		},
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(customStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(markdown)
}

// RenderCampaign renders the campaign summary, falling back to raw
// markdown if the terminal renderer cannot be built.
func RenderCampaign(res *core.RunResult, width int) string {
	md := CampaignMarkdown(res)
	out, err := RenderMarkdown(md, width)
	if err != nil {
		return md
	}
	return out
}

// stringPtr returns a pointer to a string (helper for glamour style config)
func stringPtr(s string) *string {
	return &s
}
