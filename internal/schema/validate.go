package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"designengine/internal/util/jsonutil"
)

// ValidateQuestions decodes and validates a canonical question-set payload.
// The decode failure itself is reported as a validation error so the
// orchestrator's retry predicate treats both the same way.
func ValidateQuestions(raw json.RawMessage) (*QuestionSet, error) {
	qs := NewQuestionSet()
	if err := jsonutil.Unmarshal(raw, qs); err != nil {
		v := &ValidationError{}
		v.Add("questions", err.Error())
		return nil, v
	}
	if err := ValidateQuestionSet(qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// ValidateDesign decodes a raw phase-3 payload with strict semantics and
// checks the no-missing/no-empty contract plus the minimum-content
// thresholds. Unknown fields, missing fields, nulls, empty strings, empty
// lists, and empty objects all fail.
func ValidateDesign(raw json.RawMessage) (*Phase3SystemDesign, error) {
	var doc Phase3SystemDesign
	if err := jsonutil.UnmarshalStrict(raw, &doc); err != nil {
		v := &ValidationError{}
		v.Add("phase_3_system_design", err.Error())
		return nil, v
	}
	if err := CheckDesign(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CheckDesign validates an already-decoded document. Thresholds mirror the
// generation contract: the orchestrator never re-checks them.
func CheckDesign(doc *Phase3SystemDesign) error {
	v := &ValidationError{}

	es := doc.ExecutiveSummary
	str(v, "executive_summary.title", es.Title)
	str(v, "executive_summary.project_type", es.ProjectType)
	str(v, "executive_summary.purpose", es.Purpose)
	list(v, "executive_summary.core_features", es.CoreFeatures, 3)
	list(v, "executive_summary.constraints", es.Constraints, 3)
	str(v, "executive_summary.user_scale.expected_active_users", es.UserScale.ExpectedActiveUsers)
	if es.UserScale.ConcurrentUsers <= 0 {
		v.Add("executive_summary.user_scale.concurrent_users", "must be positive")
	}

	so := doc.SystemOverview
	list(v, "system_overview.functional_goals", so.FunctionalGoals, 3)
	list(v, "system_overview.non_functional_requirements", so.NonFunctionalRequirements, 3)
	list(v, "system_overview.primary_user_personas", so.PrimaryUserPersonas, 2)
	if len(so.UserFlows) < 2 {
		v.Addf("system_overview.user_flows", "need at least 2 flows, got %d", len(so.UserFlows))
	}
	for i, f := range so.UserFlows {
		p := fmt.Sprintf("system_overview.user_flows[%d]", i)
		str(v, p+".name", f.Name)
		str(v, p+".description", f.Description)
		list(v, p+".entry_points", f.EntryPoints, 1)
		str(v, p+".success_criteria", f.SuccessCriteria)
	}
	list(v, "system_overview.assumptions", so.Assumptions, 3)

	ad := doc.ArchitectureDesign
	str(v, "architecture_design.overview", ad.Overview)
	if len(ad.Components) < 2 {
		v.Addf("architecture_design.components", "need at least 2 components, got %d", len(ad.Components))
	}
	for i, c := range ad.Components {
		p := fmt.Sprintf("architecture_design.components[%d]", i)
		str(v, p+".name", c.Name)
		str(v, p+".responsibility", c.Responsibility)
		list(v, p+".technologies", c.Technologies, 2)
		list(v, p+".interfaces", c.Interfaces, 1)
		str(v, p+".notes", c.Notes)
	}
	list(v, "architecture_design.data_flow_diagram_refs", ad.DataFlowDiagramRefs, 1)
	list(v, "architecture_design.critical_interactions", ad.CriticalInteractions, 3)
	list(v, "architecture_design.rationale", ad.Rationale, 3)

	db := doc.DatabaseDesign
	str(v, "database_design.db_type", db.DBType)
	str(v, "database_design.storage_characteristics", db.StorageCharacteristics)
	if len(db.Schemas) < 2 {
		v.Addf("database_design.schemas", "need at least 2 tables, got %d", len(db.Schemas))
	}
	for i, t := range db.Schemas {
		p := fmt.Sprintf("database_design.schemas[%d]", i)
		str(v, p+".table_name", t.TableName)
		str(v, p+".description", t.Description)
		if len(t.Columns) < 4 {
			v.Addf(p+".columns", "need at least 4 columns, got %d", len(t.Columns))
		}
		for j, c := range t.Columns {
			cp := fmt.Sprintf("%s.columns[%d]", p, j)
			str(v, cp+".name", c.Name)
			str(v, cp+".type", c.Type)
			str(v, cp+".description", c.Description)
		}
		list(v, p+".indexes", t.Indexes, 1)
	}
	list(v, "database_design.relationships", db.Relationships, 1)
	str(v, "database_design.transactions_and_consistency", db.TransactionsAndConsistency)
	list(v, "database_design.backup_and_replication", db.BackupAndReplication, 2)

	sec := doc.SecurityAndCompliance
	str(v, "security_and_compliance.authentication.method", sec.Authentication.Method)
	str(v, "security_and_compliance.authentication.identity_provider", sec.Authentication.IdentityProvider)
	str(v, "security_and_compliance.authentication.session_management", sec.Authentication.SessionManagement)
	list(v, "security_and_compliance.authorization", sec.Authorization, 2)
	list(v, "security_and_compliance.encryption", sec.Encryption, 2)
	list(v, "security_and_compliance.compliance", sec.Compliance, 1)
	list(v, "security_and_compliance.monitoring_and_alerting", sec.MonitoringAndAlerting, 1)
	str(v, "security_and_compliance.incident_response", sec.IncidentResponse)

	dep := doc.DeploymentStrategy
	str(v, "deployment_strategy.model", dep.Model)
	list(v, "deployment_strategy.containerization", dep.Containerization, 1)
	str(v, "deployment_strategy.orchestration", dep.Orchestration)
	list(v, "deployment_strategy.ci_cd", dep.CICD, 2)
	list(v, "deployment_strategy.rollout_strategy", dep.RolloutStrategy, 1)
	str(v, "deployment_strategy.infra_as_code", dep.InfraAsCode)

	sr := doc.ScalabilityAndReliability
	list(v, "scalability_and_reliability.load_balancing", sr.LoadBalancing, 1)
	list(v, "scalability_and_reliability.autoscaling", sr.Autoscaling, 1)
	list(v, "scalability_and_reliability.caching_strategy", sr.CachingStrategy, 1)
	list(v, "scalability_and_reliability.failover_and_dr", sr.FailoverAndDR, 1)
	list(v, "scalability_and_reliability.monitoring_metrics", sr.MonitoringMetrics, 3)
	if len(sr.SloSlaTargets) < 2 {
		v.Addf("scalability_and_reliability.slo_sla_targets", "need at least 2 targets, got %d", len(sr.SloSlaTargets))
	}
	for i, t := range sr.SloSlaTargets {
		p := fmt.Sprintf("scalability_and_reliability.slo_sla_targets[%d]", i)
		str(v, p+".metric", t.Metric)
		str(v, p+".target", t.Target)
		str(v, p+".measurement_window", t.MeasurementWindow)
		str(v, p+".notes", t.Notes)
	}

	cost := doc.CostAndResourceEstimation
	costItems(v, "cost_and_resource_estimation.cost_items", cost.CostItems, 3)
	costItems(v, "cost_and_resource_estimation.one_time_costs", cost.OneTimeCosts, 2)
	list(v, "cost_and_resource_estimation.assumptions", cost.Assumptions, 1)
	list(v, "cost_and_resource_estimation.licensing", cost.Licensing, 1)

	qa := doc.TestingAndQAStrategy
	testPlan(v, "testing_and_qa_strategy.unit_testing", qa.UnitTesting)
	testPlan(v, "testing_and_qa_strategy.integration_testing", qa.IntegrationTesting)
	testPlan(v, "testing_and_qa_strategy.e2e_testing", qa.E2ETesting)
	testPlan(v, "testing_and_qa_strategy.load_and_stress", qa.LoadAndStress)
	testPlan(v, "testing_and_qa_strategy.security_testing", qa.SecurityTesting)
	list(v, "testing_and_qa_strategy.acceptance_criteria", qa.AcceptanceCriteria, 1)

	app := doc.Appendices
	if len(app.Glossary) < 3 {
		v.Addf("appendices.glossary", "need at least 3 terms, got %d", len(app.Glossary))
	}
	for i, g := range app.Glossary {
		p := fmt.Sprintf("appendices.glossary[%d]", i)
		str(v, p+".term", g.Term)
		str(v, p+".definition", g.Definition)
	}
	list(v, "appendices.references", app.References, 3)
	str(v, "appendices.additional_notes", app.AdditionalNotes)

	str(v, "mermaid_diagrams.system_architecture", doc.MermaidDiagrams.SystemArchitecture)
	str(v, "mermaid_diagrams.user_flows", doc.MermaidDiagrams.UserFlows)
	str(v, "mermaid_diagrams.database_er", doc.MermaidDiagrams.DatabaseER)

	return v.OrNil()
}

func str(v *ValidationError, path, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(path, "must not be empty")
	}
}

func list(v *ValidationError, path string, items []string, min int) {
	if len(items) < min {
		v.Addf(path, "need at least %d items, got %d", min, len(items))
		return
	}
	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			v.Addf(path, "item %d is empty", i)
		}
	}
}

func costItems(v *ValidationError, path string, items []CostItem, min int) {
	if len(items) < min {
		v.Addf(path, "need at least %d items, got %d", min, len(items))
		return
	}
	for i, c := range items {
		p := fmt.Sprintf("%s[%d]", path, i)
		str(v, p+".name", c.Name)
		str(v, p+".rationale", c.Rationale)
		if c.MonthlyEstimateUSD < 0 {
			v.Add(p+".monthly_estimate_usd", "must not be negative")
		}
	}
}

func testPlan(v *ValidationError, path string, p TestPlan) {
	str(v, path+".name", p.Name)
	str(v, path+".scope", p.Scope)
	list(v, path+".tools", p.Tools, 1)
	str(v, path+".success_criteria", p.SuccessCriteria)
}

// CheckDiagramConsistency reports component, flow, and table names that the
// structured sections declare but the diagram sources never mention. The
// contract is best-effort: generation is only instructed via prompt text, so
// consumers treat the result as advisory and never fail the pipeline on it.
func CheckDiagramConsistency(doc *Phase3SystemDesign) []string {
	var missing []string
	for _, c := range doc.ArchitectureDesign.Components {
		if !strings.Contains(doc.MermaidDiagrams.SystemArchitecture, c.Name) {
			missing = append(missing, "system_architecture: component "+c.Name)
		}
	}
	for _, f := range doc.SystemOverview.UserFlows {
		if !strings.Contains(doc.MermaidDiagrams.UserFlows, f.Name) {
			missing = append(missing, "user_flows: flow "+f.Name)
		}
	}
	for _, t := range doc.DatabaseDesign.Schemas {
		if !strings.Contains(doc.MermaidDiagrams.DatabaseER, t.TableName) {
			missing = append(missing, "database_er: table "+t.TableName)
		}
	}
	return missing
}
