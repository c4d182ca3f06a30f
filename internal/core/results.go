package core

import "encoding/json"

// AgentResult is the decoded form of an agent's final payload. Payloads
// are decoded once, at the boundary where they enter the run; downstream
// code switches on the concrete type instead of re-parsing raw JSON.
// A payload whose shape matches no known variant becomes UnknownResult
// with the raw bytes preserved, never a zero-valued typed struct.
type AgentResult interface {
	Kind() string
}

// BusinessProfile is the business-analyst payload.
type BusinessProfile struct {
	BusinessType string `json:"business_type"`
	Name         string `json:"name,omitempty"`
	Summary      string `json:"summary,omitempty"`
	Location     string `json:"location,omitempty"`
}

func (BusinessProfile) Kind() string { return "business_profile" }

// MarketReport is the market-scout payload.
type MarketReport struct {
	AdCount     int      `json:"ad_count"`
	Competitors []string `json:"competitors,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

func (MarketReport) Kind() string { return "market_report" }

// Ad is a single ad variant.
type Ad struct {
	Headline     string `json:"headline"`
	Body         string `json:"body,omitempty"`
	CallToAction string `json:"call_to_action,omitempty"`
}

// AdCopy is the copywriter payload.
type AdCopy struct {
	Ads []Ad `json:"ads"`
}

func (AdCopy) Kind() string { return "ad_copy" }

// Segment describes one audience segment.
type Segment struct {
	Name      string   `json:"name"`
	AgeRange  string   `json:"age_range,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

// AudiencePlan is the audience-planner payload.
type AudiencePlan struct {
	Segments []Segment `json:"segments"`
}

func (AudiencePlan) Kind() string { return "audience_plan" }

// ChannelBudget allocates spend to one channel.
type ChannelBudget struct {
	Channel string  `json:"channel"`
	Amount  float64 `json:"amount"`
}

// BudgetPlan is the budget-planner payload.
type BudgetPlan struct {
	Currency string          `json:"currency,omitempty"`
	Total    float64         `json:"total"`
	Channels []ChannelBudget `json:"channels,omitempty"`
}

func (BudgetPlan) Kind() string { return "budget_plan" }

// CreativeBrief is the creative-director payload.
type CreativeBrief struct {
	Themes  []string `json:"themes"`
	Palette []string `json:"palette,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

func (CreativeBrief) Kind() string { return "creative_brief" }

// Campaign is the campaign-assembler payload: the assembled deliverable.
type Campaign struct {
	Name     string       `json:"name"`
	Ads      []Ad         `json:"ads"`
	Audience AudiencePlan `json:"audience,omitempty"`
	Budget   BudgetPlan   `json:"budget,omitempty"`
}

func (Campaign) Kind() string { return "campaign" }

// UnknownResult preserves a payload whose shape matched no known variant.
type UnknownResult struct {
	AgentID string
	Raw     json.RawMessage
}

func (UnknownResult) Kind() string { return "unknown" }

// resultKeys lists, per agent, the top-level JSON keys that identify its
// payload shape. A payload carrying none of them decodes to UnknownResult.
var resultKeys = map[string][]string{
	AgentBusinessAnalyst:   {"business_type", "name", "summary"},
	AgentMarketScout:       {"ad_count", "competitors", "keywords"},
	AgentCopywriter:        {"ads"},
	AgentAudiencePlanner:   {"segments"},
	AgentBudgetPlanner:     {"total", "channels", "currency"},
	AgentCreativeDirector:  {"themes", "palette", "notes"},
	AgentCampaignAssembler: {"campaign", "name", "ads"},
}

// DecodeAgentResult decodes a final payload into its typed variant.
// Unrecognized agents and unrecognized shapes come back as UnknownResult;
// the only error is payload bytes that are not a JSON object at all.
func DecodeAgentResult(agentID string, raw json.RawMessage) (AgentResult, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, ErrProtocol(CodeResultUndecodable, "agent payload is not a JSON object").
			WithCause(err).
			WithDetail("agent", agentID)
	}

	keys, ok := resultKeys[agentID]
	if !ok || !hasAnyKey(probe, keys) {
		return UnknownResult{AgentID: agentID, Raw: raw}, nil
	}

	var (
		res AgentResult
		err error
	)
	switch agentID {
	case AgentBusinessAnalyst:
		var v BusinessProfile
		err = json.Unmarshal(raw, &v)
		res = v
	case AgentMarketScout:
		var v MarketReport
		err = json.Unmarshal(raw, &v)
		res = v
	case AgentCopywriter:
		var v AdCopy
		err = json.Unmarshal(raw, &v)
		res = v
	case AgentAudiencePlanner:
		var v AudiencePlan
		err = json.Unmarshal(raw, &v)
		res = v
	case AgentBudgetPlanner:
		var v BudgetPlan
		err = json.Unmarshal(raw, &v)
		res = v
	case AgentCreativeDirector:
		var v CreativeBrief
		err = json.Unmarshal(raw, &v)
		res = v
	case AgentCampaignAssembler:
		res, err = decodeCampaign(raw, probe)
	}
	if err != nil {
		// Keys matched but field types did not. Keep the raw payload.
		return UnknownResult{AgentID: agentID, Raw: raw}, nil
	}
	return res, nil
}

// decodeCampaign accepts both the flat shape {name, ads, ...} and the
// wrapped shape {campaign: {...}} some assemblers produce.
func decodeCampaign(raw json.RawMessage, probe map[string]json.RawMessage) (AgentResult, error) {
	if inner, ok := probe["campaign"]; ok {
		var v Campaign
		if err := json.Unmarshal(inner, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	var v Campaign
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func hasAnyKey(probe map[string]json.RawMessage, keys []string) bool {
	for _, k := range keys {
		if _, ok := probe[k]; ok {
			return true
		}
	}
	return false
}
