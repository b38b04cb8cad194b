package schema

// Phase3SystemDesign is the fully structured phase-3 output. The shape is
// intentionally strict so the model must produce rich, render-ready data;
// ValidateDesign enforces the no-missing/no-empty contract.
type Phase3SystemDesign struct {
	ExecutiveSummary          ExecutiveSummary          `json:"executive_summary"`
	SystemOverview            SystemOverview            `json:"system_overview"`
	ArchitectureDesign        ArchitectureDesign        `json:"architecture_design"`
	DatabaseDesign            DatabaseDesign            `json:"database_design"`
	SecurityAndCompliance     SecurityAndCompliance     `json:"security_and_compliance"`
	DeploymentStrategy        DeploymentStrategy        `json:"deployment_strategy"`
	ScalabilityAndReliability ScalabilityAndReliability `json:"scalability_and_reliability"`
	CostAndResourceEstimation CostAndResourceEstimation `json:"cost_and_resource_estimation"`
	TestingAndQAStrategy      TestingAndQAStrategy      `json:"testing_and_qa_strategy"`
	Appendices                Appendices                `json:"appendices"`
	MermaidDiagrams           MermaidDiagrams           `json:"mermaid_diagrams"`
}

type UserScale struct {
	ExpectedActiveUsers string `json:"expected_active_users"`
	ConcurrentUsers     int    `json:"concurrent_users"`
}

type ExecutiveSummary struct {
	Title        string    `json:"title"`
	ProjectType  string    `json:"project_type"`
	Purpose      string    `json:"purpose"`
	CoreFeatures []string  `json:"core_features"`
	Constraints  []string  `json:"constraints"`
	UserScale    UserScale `json:"user_scale"`
}

type UserFlowStep struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	EntryPoints     []string `json:"entry_points"`
	SuccessCriteria string   `json:"success_criteria"`
}

type SystemOverview struct {
	FunctionalGoals           []string       `json:"functional_goals"`
	NonFunctionalRequirements []string       `json:"non_functional_requirements"`
	PrimaryUserPersonas       []string       `json:"primary_user_personas"`
	UserFlows                 []UserFlowStep `json:"user_flows"`
	Assumptions               []string       `json:"assumptions"`
}

type Component struct {
	Name           string   `json:"name"`
	Responsibility string   `json:"responsibility"`
	Technologies   []string `json:"technologies"`
	Interfaces     []string `json:"interfaces"`
	Notes          string   `json:"notes"`
}

type ArchitectureDesign struct {
	Overview             string      `json:"overview"`
	Components           []Component `json:"components"`
	DataFlowDiagramRefs  []string    `json:"data_flow_diagram_refs"`
	CriticalInteractions []string    `json:"critical_interactions"`
	Rationale            []string    `json:"rationale"`
}

type TableColumn struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Nullable    bool   `json:"nullable"`
	Description string `json:"description"`
}

type TableSchema struct {
	TableName   string        `json:"table_name"`
	Description string        `json:"description"`
	Columns     []TableColumn `json:"columns"`
	Indexes     []string      `json:"indexes"`
}

type DatabaseDesign struct {
	DBType                     string        `json:"db_type"`
	StorageCharacteristics     string        `json:"storage_characteristics"`
	Schemas                    []TableSchema `json:"schemas"`
	Relationships              []string      `json:"relationships"`
	TransactionsAndConsistency string        `json:"transactions_and_consistency"`
	BackupAndReplication       []string      `json:"backup_and_replication"`
}

type AuthStrategy struct {
	Method            string `json:"method"`
	IdentityProvider  string `json:"identity_provider"`
	SessionManagement string `json:"session_management"`
}

type SecurityAndCompliance struct {
	Authentication        AuthStrategy `json:"authentication"`
	Authorization         []string     `json:"authorization"`
	Encryption            []string     `json:"encryption"`
	Compliance            []string     `json:"compliance"`
	MonitoringAndAlerting []string     `json:"monitoring_and_alerting"`
	IncidentResponse      string       `json:"incident_response"`
}

type DeploymentStrategy struct {
	Model            string   `json:"model"`
	Containerization []string `json:"containerization"`
	Orchestration    string   `json:"orchestration"`
	CICD             []string `json:"ci_cd"`
	RolloutStrategy  []string `json:"rollout_strategy"`
	InfraAsCode      string   `json:"infra_as_code"`
}

type SloSlaTarget struct {
	Metric            string `json:"metric"`
	Target            string `json:"target"`
	MeasurementWindow string `json:"measurement_window"`
	Notes             string `json:"notes"`
}

type ScalabilityAndReliability struct {
	LoadBalancing     []string       `json:"load_balancing"`
	Autoscaling       []string       `json:"autoscaling"`
	CachingStrategy   []string       `json:"caching_strategy"`
	FailoverAndDR     []string       `json:"failover_and_dr"`
	MonitoringMetrics []string       `json:"monitoring_metrics"`
	SloSlaTargets     []SloSlaTarget `json:"slo_sla_targets"`
}

type CostItem struct {
	Name               string  `json:"name"`
	MonthlyEstimateUSD float64 `json:"monthly_estimate_usd"`
	Rationale          string  `json:"rationale"`
}

type CostAndResourceEstimation struct {
	CostItems    []CostItem `json:"cost_items"`
	OneTimeCosts []CostItem `json:"one_time_costs"`
	Assumptions  []string   `json:"assumptions"`
	Licensing    []string   `json:"licensing"`
}

type TestPlan struct {
	Name            string   `json:"name"`
	Scope           string   `json:"scope"`
	Tools           []string `json:"tools"`
	SuccessCriteria string   `json:"success_criteria"`
}

type TestingAndQAStrategy struct {
	UnitTesting        TestPlan `json:"unit_testing"`
	IntegrationTesting TestPlan `json:"integration_testing"`
	E2ETesting         TestPlan `json:"e2e_testing"`
	LoadAndStress      TestPlan `json:"load_and_stress"`
	SecurityTesting    TestPlan `json:"security_testing"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

type GlossaryItem struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

type Appendices struct {
	Glossary        []GlossaryItem `json:"glossary"`
	References      []string       `json:"references"`
	AdditionalNotes string         `json:"additional_notes"`
}

// MermaidDiagrams holds the three diagram-source strings. Node names inside
// them should match the declared components, flows, and tables; see
// CheckDiagramConsistency for the best-effort check.
type MermaidDiagrams struct {
	SystemArchitecture string `json:"system_architecture"`
	UserFlows          string `json:"user_flows"`
	DatabaseER         string `json:"database_er"`
}
