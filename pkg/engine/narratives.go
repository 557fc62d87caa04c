package engine

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/polisai/omnis/pkg/domain"
)

// DefaultFrameworkName is the name the narratives use for the orchestrating framework.
const DefaultFrameworkName = "Omnis Agentic Framework"

const (
	reasoningHeader = `**{{.Framework}} is reasoning….**`
	analysisText    = `**{{.Framework}} is performing the analysis….**`
	completedText   = `**{{.Framework}} has completed the analysis**`
)

const esgReasoning = `Please help me calculate my (Scope 3 Category 15) financed emissions for the new set of investments I am considering. The portfolio consists of bonds, infrastructure (project finance) and real estate equity which I have uploaded via the Excel spreadsheet. I need to calculate these financed emissions in line with the PCAF standard as well as our internal guidance. Finally, I need to understand how these 'green' investments compare to internal and external benchmarks.
{{- if .Attachments}}

Files received:{{range .Attachments}}
• {{.FileName}} ({{.MimeType}}, {{.SizeBytes}} bytes)
{{- end}}
{{- end}}

I will read the files you have uploaded and then dynamically create the required workflow to perform this task. At a high level I will perform the work using a number of agents logically grouped into distinctive categories (which can be inspected in the Directed Acyclic Graph (DAG) tab).

• Data acquisition agents will fetch internal and external data
• Data validation, quality, imputation and review agents will validate and assess the data quality, fetch the (internal and external) datasets to address the identified data quality issues (e.g. anomalies, gaps etc), and use agentic worker agents to independently assure the work performance
• Emission calculation agents will convert the activity data into financed emissions per the PCAF method
• Evidence collation and report production agents will produce the final output

The full workflow breakdown can be inspected in the Directed Acyclic Graph (DAG) tab

**Benchmark Comparison**

As a comparison, I will contrast my Scope 3 calculations for the new investments against the existing portfolio and external benchmarks.

The existing portfolio will be taken from the latest sustainability report unless otherwise stated.

**Analysis Execution**`

const fleetReasoning = `I'm analyzing today's autonomous truck performance data from Gatik, NVIDIA, and Applied Intuition. The dashboard shows comprehensive metrics including fleet efficiency, safety scores, and operational insights. Key highlights include 98.5% route completion rate, zero safety incidents, and 15% improvement in fuel efficiency compared to last quarter.`

const healthReasoning = `I'm processing health data and generating insights. The system shows current health metrics, outbreak patterns, and preventive measures. Based on the latest data, I can provide detailed analysis of health trends and recommendations.`

const borderReasoning = `Analyzing border control and security data. The system shows real-time monitoring of border crossings, security alerts, and compliance metrics. Current status indicates normal operations with enhanced screening protocols in place.`

const crisisReasoning = `Processing natural disaster and emergency response data. The system provides real-time alerts, risk assessments, and resource allocation recommendations. Current monitoring shows stable conditions with preventive measures activated.`

const genericStatusReasoning = `I have received your request: "{{.Prompt}}".

As a boilerplate template, I am configured to demonstrate the agentic workflow structure. To implement specific logic for this prompt, you would:

1.  **Define Intent**: Add a keyword rule under ` + "`intent.extra_rules`" + ` in the service configuration.
2.  **Create Agents**: Add the agents to the catalog file referenced by ` + "`catalog.agents_file`" + `.
3.  **Design Workflow**: Register a workflow template that groups those agents into stages.
4.  **Build Dashboard**: Attach a dashboard view that visualizes the results.

**Current Workflow Status:**

• **Input Received**: Validated and processed.
• **Agent Routing**: Routed to the Demo Assistant.
• **Execution**: Simulating analysis...`

const genericBlankReasoning = `I am processing your input: "{{.Prompt}}".

This is a blank template response. To customize this behavior, review the following:

*   ` + "`omnis classify`" + `: Shows which rule a prompt matches.
*   ` + "`omnis agents`" + `: Lists the agent catalog and its capabilities.
*   ` + "`/v1/session`" + `: Shows the prompt and attachments recorded for your session.`

// narrative is a parsed set of templates, one per emitted phase.
type narrative struct {
	name      string
	reasoning *template.Template
}

type narrativeData struct {
	Framework   string
	Prompt      string
	Attachments []domain.Attachment
}

var (
	analysisTemplate  = template.Must(template.New("analysis").Parse(analysisText))
	completedTemplate = template.Must(template.New("completed").Parse(completedText))

	categoryNarratives = map[domain.Category]narrative{
		domain.CategoryESGInvestment:  mustNarrative("esg", esgReasoning),
		domain.CategoryHealth:         mustNarrative("health", healthReasoning),
		domain.CategoryBorderSecurity: mustNarrative("border", borderReasoning),
		domain.CategoryCrisisResponse: mustNarrative("crisis", crisisReasoning),
	}

	variantNarratives = map[domain.Variant]narrative{
		domain.VariantAutonomousFleet: mustNarrative("autonomous-fleet", fleetReasoning),
	}

	// Default and General pick one of these per execution.
	genericNarratives = []narrative{
		mustNarrative("generic-status", genericStatusReasoning),
		mustNarrative("generic-blank", genericBlankReasoning),
	}
)

func mustNarrative(name, body string) narrative {
	return narrative{
		name:      name,
		reasoning: template.Must(template.New(name).Parse(reasoningHeader + "\n\n" + body)),
	}
}

// selectNarrative resolves the narrative for a routed request. Only the generic
// categories consume a value from sel.
func selectNarrative(category domain.Category, variant domain.Variant, sel Selector) narrative {
	if n, ok := variantNarratives[variant]; ok {
		return n
	}
	if n, ok := categoryNarratives[category]; ok {
		return n
	}
	return genericNarratives[sel.IntN(len(genericNarratives))]
}

// render produces the ordered narrative segments.
func (n narrative) render(data narrativeData) ([]domain.Segment, error) {
	steps := []struct {
		phase domain.Phase
		tmpl  *template.Template
	}{
		{domain.PhaseReasoning, n.reasoning},
		{domain.PhaseAnalysis, analysisTemplate},
		{domain.PhaseCompleted, completedTemplate},
	}

	segments := make([]domain.Segment, 0, len(steps))
	for _, step := range steps {
		var buf strings.Builder
		if err := step.tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render %s narrative %s: %w", n.name, step.phase, err)
		}
		segments = append(segments, domain.Segment{Phase: step.phase, Text: buf.String()})
	}
	return segments, nil
}
