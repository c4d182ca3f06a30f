package core

import "fmt"

// AgentKind distinguishes how an agent's task service is called.
type AgentKind string

const (
	// KindUnary is a single request/response call with a deadline.
	KindUnary AgentKind = "unary"

	// KindStreaming is a long-lived call that emits progress events
	// before delivering its final payload.
	KindStreaming AgentKind = "streaming"
)

// AgentDef describes one agent in the pipeline table.
type AgentDef struct {
	// ID is the stable identifier used in state, logs, and persistence.
	ID string

	// Name is the human-readable label shown in the TUI and web UI.
	Name string

	// Kind selects the unary or streaming client for this agent.
	Kind AgentKind

	// Phase is the 1-based phase this agent runs in.
	Phase int

	// Role is a short description of what the agent produces.
	Role string
}

// PhaseDef is one row of the pipeline table: a named phase and the
// agents that run concurrently inside it.
type PhaseDef struct {
	Number int
	Name   string
	Agents []AgentDef
}

// Well-known agent IDs. The pipeline table is fixed at compile time;
// there is no runtime agent discovery.
const (
	AgentBusinessAnalyst   = "business-analyst"
	AgentMarketScout       = "market-scout"
	AgentCopywriter        = "copywriter"
	AgentAudiencePlanner   = "audience-planner"
	AgentBudgetPlanner     = "budget-planner"
	AgentCreativeDirector  = "creative-director"
	AgentCampaignAssembler = "campaign-assembler"
)

// Phase names in execution order.
const (
	PhaseResearch = "research"
	PhaseIdeation = "ideation"
	PhaseAssembly = "assembly"
)

// Pipeline returns the declarative phase table driving every run.
//
// Phase 1 profiles the business from the seed input. Phase 2 runs market
// research and first-draft copy concurrently against that profile. Phase 3
// fans out to four agents that plan audience, budget, and creative
// direction and assemble the final campaign.
func Pipeline() []PhaseDef {
	return []PhaseDef{
		{
			Number: 1,
			Name:   PhaseResearch,
			Agents: []AgentDef{
				{ID: AgentBusinessAnalyst, Name: "Business Analyst", Kind: KindUnary, Phase: 1, Role: "business profile"},
			},
		},
		{
			Number: 2,
			Name:   PhaseIdeation,
			Agents: []AgentDef{
				{ID: AgentMarketScout, Name: "Market Scout", Kind: KindStreaming, Phase: 2, Role: "market report"},
				{ID: AgentCopywriter, Name: "Copywriter", Kind: KindUnary, Phase: 2, Role: "ad copy"},
			},
		},
		{
			Number: 3,
			Name:   PhaseAssembly,
			Agents: []AgentDef{
				{ID: AgentAudiencePlanner, Name: "Audience Planner", Kind: KindUnary, Phase: 3, Role: "audience plan"},
				{ID: AgentBudgetPlanner, Name: "Budget Planner", Kind: KindUnary, Phase: 3, Role: "budget plan"},
				{ID: AgentCreativeDirector, Name: "Creative Director", Kind: KindStreaming, Phase: 3, Role: "creative brief"},
				{ID: AgentCampaignAssembler, Name: "Campaign Assembler", Kind: KindUnary, Phase: 3, Role: "campaign"},
			},
		},
	}
}

// PipelineAgents returns every agent in phase order.
func PipelineAgents() []AgentDef {
	var agents []AgentDef
	for _, ph := range Pipeline() {
		agents = append(agents, ph.Agents...)
	}
	return agents
}

// AgentByID looks up an agent definition in the pipeline table.
func AgentByID(id string) (AgentDef, bool) {
	for _, a := range PipelineAgents() {
		if a.ID == id {
			return a, true
		}
	}
	return AgentDef{}, false
}

// ValidateTable checks structural invariants of a phase table: phases
// numbered 1..N in order, at least one agent per phase, unique agent IDs,
// and each agent's Phase matching its row.
func ValidateTable(table []PhaseDef) error {
	if len(table) == 0 {
		return ErrValidation(CodeInvalidTable, "pipeline table is empty")
	}
	seen := make(map[string]bool)
	for i, ph := range table {
		if ph.Number != i+1 {
			return ErrValidation(CodeInvalidTable, fmt.Sprintf("phase %q numbered %d, want %d", ph.Name, ph.Number, i+1))
		}
		if len(ph.Agents) == 0 {
			return ErrValidation(CodeInvalidTable, fmt.Sprintf("phase %q has no agents", ph.Name))
		}
		for _, a := range ph.Agents {
			if a.ID == "" {
				return ErrValidation(CodeInvalidTable, fmt.Sprintf("phase %q has an agent with empty ID", ph.Name))
			}
			if seen[a.ID] {
				return ErrValidation(CodeInvalidTable, fmt.Sprintf("duplicate agent ID %q", a.ID))
			}
			seen[a.ID] = true
			if a.Phase != ph.Number {
				return ErrValidation(CodeInvalidTable, fmt.Sprintf("agent %q declares phase %d but sits in phase %d", a.ID, a.Phase, ph.Number))
			}
			if a.Kind != KindUnary && a.Kind != KindStreaming {
				return ErrValidation(CodeInvalidTable, fmt.Sprintf("agent %q has unknown kind %q", a.ID, a.Kind))
			}
		}
	}
	return nil
}
