package workflow

import (
	"github.com/polisai/omnis/pkg/catalog"
	"github.com/polisai/omnis/pkg/domain"
)

// ESG pipeline stage names, in dependency order.
const (
	StageAcquisition = "acquisition"
	StageValidation  = "validation"
	StageCalculation = "calculation"
	StageReporting   = "reporting"
)

func stage(name string, agents []string, dependsOn ...string) domain.Stage {
	return domain.Stage{Name: name, AgentIDs: agents, DependsOn: dependsOn}
}

// templates holds one DAG per category. Never hand out these values directly;
// Compose returns clones.
var templates = map[domain.Category]domain.DAG{
	domain.CategoryESGInvestment: {
		Category: domain.CategoryESGInvestment,
		Stages: []domain.Stage{
			stage(StageAcquisition, []string{catalog.AgentESGInternalData, catalog.AgentESGExternalData}),
			stage(StageValidation, []string{catalog.AgentESGQuality, catalog.AgentESGImputation, catalog.AgentESGAssurance}, StageAcquisition),
			stage(StageCalculation, []string{catalog.AgentESGPCAF, catalog.AgentESG}, StageValidation),
			stage(StageReporting, []string{catalog.AgentESGEvidence, catalog.AgentESGReport}, StageCalculation),
		},
	},
	domain.CategoryHealth: {
		Category: domain.CategoryHealth,
		Stages: []domain.Stage{
			stage("ingestion", []string{catalog.AgentHealth}),
			stage("pattern-analysis", []string{catalog.AgentHealth, catalog.AgentOctaPharma}, "ingestion"),
			stage("recommendations", []string{catalog.AgentHealth}, "pattern-analysis"),
		},
	},
	domain.CategoryBorderSecurity: {
		Category: domain.CategoryBorderSecurity,
		Stages: []domain.Stage{
			stage("monitoring", []string{catalog.AgentBorder}),
			stage("risk-assessment", []string{catalog.AgentBorder}, "monitoring"),
			stage("compliance", []string{catalog.AgentBorder}, "monitoring"),
			stage("briefing", []string{catalog.AgentBorder, catalog.AgentDemo}, "risk-assessment", "compliance"),
		},
	},
	domain.CategoryCrisisResponse: {
		Category: domain.CategoryCrisisResponse,
		Stages: []domain.Stage{
			stage("alert-intake", []string{catalog.AgentCrisis}),
			stage("risk-assessment", []string{catalog.AgentCrisis}, "alert-intake"),
			stage("resource-allocation", []string{catalog.AgentCrisis}, "alert-intake"),
			stage("response-plan", []string{catalog.AgentCrisis, catalog.AgentDemo}, "risk-assessment", "resource-allocation"),
		},
	},
	domain.CategoryGeneral: {
		Category: domain.CategoryGeneral,
		Stages: []domain.Stage{
			stage("intake", []string{catalog.AgentDemo}),
			stage("response", []string{catalog.AgentDemo}, "intake"),
		},
	},
	domain.CategoryDefault: {
		Category: domain.CategoryDefault,
		Stages: []domain.Stage{
			stage("intake", []string{catalog.AgentDemo}),
			stage("routing", []string{catalog.AgentDemo}, "intake"),
			stage("execution", []string{catalog.AgentDemo}, "routing"),
		},
	},
}
