package catalog

import "github.com/polisai/omnis/pkg/domain"

// Agent IDs of the built-in roster.
const (
	AgentDemo       = "agent-demo"
	AgentHealth     = "agent-health"
	AgentBorder     = "agent-border"
	AgentESG        = "agent-esg"
	AgentCrisis     = "agent-crisis"
	AgentOctaPharma = "agent-octapharma"

	AgentESGInternalData = "agent-esg-internal-data"
	AgentESGExternalData = "agent-esg-external-data"
	AgentESGQuality      = "agent-esg-quality"
	AgentESGImputation   = "agent-esg-imputation"
	AgentESGAssurance    = "agent-esg-assurance"
	AgentESGPCAF         = "agent-esg-pcaf"
	AgentESGEvidence     = "agent-esg-evidence"
	AgentESGReport       = "agent-esg-report"
)

// DefaultAgents returns the built-in roster in registry order.
func DefaultAgents() []domain.Agent {
	return []domain.Agent{
		{
			ID:           AgentDemo,
			DisplayName:  "Demo Assistant",
			Description:  "A general-purpose assistant for demonstration purposes.",
			Capabilities: []string{"General Inquiry", "Platform Navigation"},
		},
		{
			ID:           AgentHealth,
			DisplayName:  "Health & Safety Agent",
			Description:  "Specialized in health data analysis, outbreak patterns, and autonomous vehicle safety metrics.",
			Capabilities: []string{"Health Metrics", "Safety Analysis", "Autonomous Systems"},
		},
		{
			ID:           AgentBorder,
			DisplayName:  "Border Security Agent",
			Description:  "Monitors border crossings, security alerts, and compliance metrics.",
			Capabilities: []string{"Security Monitoring", "Compliance", "Risk Assessment"},
		},
		{
			ID:           AgentESG,
			DisplayName:  "ESG Analyst",
			Description:  "Expert in Environmental, Social, and Governance investment analysis and carbon footprint calculation.",
			Capabilities: []string{"Carbon Footprint", "Investment Analysis", "PCAF Standards"},
		},
		{
			ID:           AgentCrisis,
			DisplayName:  "Crisis Response Agent",
			Description:  "Handles natural disaster data, emergency response planning, and resource allocation.",
			Capabilities: []string{"Emergency Response", "Disaster Management", "Resource Allocation"},
		},
		{
			ID:           AgentOctaPharma,
			DisplayName:  "OctaPharma Specialist",
			Description:  "Specialized in pharmaceutical manufacturing, deviation management, and R&D processes.",
			Capabilities: []string{"Pharma Manufacturing", "Quality Control", "R&D Analysis"},
		},
		{
			ID:           AgentESGInternalData,
			DisplayName:  "Internal Data Acquisition Agent",
			Description:  "Fetches portfolio holdings and activity data from uploaded spreadsheets and internal systems.",
			Capabilities: []string{"Data Acquisition", "Spreadsheet Parsing"},
		},
		{
			ID:           AgentESGExternalData,
			DisplayName:  "External Data Acquisition Agent",
			Description:  "Fetches issuer emissions, sector averages, and benchmark datasets from external providers.",
			Capabilities: []string{"Data Acquisition", "Benchmark Data"},
		},
		{
			ID:           AgentESGQuality,
			DisplayName:  "Data Quality Agent",
			Description:  "Validates acquired data and flags anomalies, gaps, and inconsistent units.",
			Capabilities: []string{"Data Validation", "Anomaly Detection"},
		},
		{
			ID:           AgentESGImputation,
			DisplayName:  "Imputation Agent",
			Description:  "Fills identified data gaps from internal and external proxy datasets.",
			Capabilities: []string{"Data Imputation", "Proxy Estimation"},
		},
		{
			ID:           AgentESGAssurance,
			DisplayName:  "Assurance Worker Agent",
			Description:  "Independently reviews validation and imputation work before calculation starts.",
			Capabilities: []string{"Independent Review", "Quality Assurance"},
		},
		{
			ID:           AgentESGPCAF,
			DisplayName:  "PCAF Calculation Agent",
			Description:  "Converts activity data into financed emissions per the PCAF attribution method.",
			Capabilities: []string{"Emissions Calculation", "PCAF Standards"},
		},
		{
			ID:           AgentESGEvidence,
			DisplayName:  "Evidence Collation Agent",
			Description:  "Collates calculation evidence, assumptions, and data-quality scores.",
			Capabilities: []string{"Evidence Collation", "Audit Trail"},
		},
		{
			ID:           AgentESGReport,
			DisplayName:  "Report Production Agent",
			Description:  "Produces the final financed emissions report and benchmark comparison.",
			Capabilities: []string{"Report Production", "Benchmark Comparison"},
		},
	}
}

// Default returns a catalog seeded with DefaultAgents.
func Default() *Catalog {
	c, err := New(DefaultAgents())
	if err != nil {
		panic("catalog: built-in roster is invalid: " + err.Error())
	}
	return c
}
