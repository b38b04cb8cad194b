package prompt

var phase2Spec = Spec{
	Purpose: "Generate clarification questions that finalize the system design for the project described in the input.",
	Background: "The input JSON holds phase_1_inputs: the initial project definition " +
		"(name, type, platform, description, core features, user scale, constraints).",
	Rules: []string{
		"Output ONLY multi_choice questions.",
		"Each question must be a standalone, human-readable string.",
		"Each question must have exactly 6 options.",
		`The last option MUST be "Other".`,
		"Options must be clear, mutually exclusive, and realistic.",
		"Do NOT repeat or restate inputs from phase_1_inputs.",
	},
	OutputFormat: `JSON only, matching:
{
  "questions": [
    {
      "question_text": "Question text here",
      "type": "multi_choice",
      "options": ["Option 1", "Option 2", "Option 3", "Option 4", "Option 5", "Other"]
    }
  ]
}
No explanations. No markdown. No extra text.`,
}

var phase3Spec = Spec{
	Purpose: "Generate a COMPLETE, production-grade system design document as structured JSON, " +
		"ready for schema validation and direct rendering into a word-processor document.",
	Background: "The input JSON holds phase_1_inputs (initial project definition) and " +
		"phase_2_answers (clarified requirements and architectural preferences). " +
		"Write like a senior system architect addressing both executives and engineers.",
	Rules: []string{
		"EVERY field is required: no missing keys, no null values, no empty strings, no empty arrays, no empty objects.",
		"If information is missing or ambiguous, infer reasonable industry-standard defaults; never leave a field empty.",
		"executive_summary: title, project_type, purpose, core_features (min 3), constraints (min 3), user_scale with expected_active_users and concurrent_users.",
		"system_overview: functional_goals (min 3), non_functional_requirements (min 3), primary_user_personas (min 2), user_flows (min 2 complete flows), assumptions (min 3).",
		"architecture_design: overview, components (min 2, each with name, responsibility, technologies min 2, interfaces min 1, notes), data_flow_diagram_refs (min 1), critical_interactions (min 3), rationale (min 3).",
		"database_design: db_type, storage_characteristics, schemas (min 2 tables, each with table_name, description, columns min 4 with name/type/nullable/description, indexes min 1), relationships (min 1), transactions_and_consistency, backup_and_replication (min 2).",
		"security_and_compliance: authentication (method, identity_provider, session_management), authorization (min 2), encryption (min 2), compliance (min 1), monitoring_and_alerting (min 1), incident_response.",
		"deployment_strategy: model, containerization (min 1), orchestration, ci_cd (min 2), rollout_strategy (min 1), infra_as_code.",
		"scalability_and_reliability: load_balancing, autoscaling, caching_strategy, failover_and_dr (min 1 each), monitoring_metrics (min 3), slo_sla_targets (min 2 with metric, target, measurement_window, notes).",
		"cost_and_resource_estimation: cost_items (min 3), one_time_costs (min 2), assumptions (min 1), licensing (min 1); estimates must be numerically plausible.",
		"testing_and_qa_strategy: one complete plan each for unit_testing, integration_testing, e2e_testing, load_and_stress, security_testing (name, scope, tools min 1, success_criteria), plus acceptance_criteria (min 1).",
		"appendices: glossary (min 3 terms), references (min 3), additional_notes.",
		"mermaid_diagrams: non-empty Mermaid sources for system_architecture, user_flows, database_er.",
		"Every node name used in the diagrams MUST match a declared component, user flow, or table name exactly.",
	},
	Constraints: []string{
		`Avoid vague phrases like "as needed", "TBD", or "future consideration".`,
		"Database schemas must look production-realistic.",
		"Security and compliance must be concrete and enforceable.",
		"Architecture decisions must be justified in the rationale.",
	},
	OutputFormat: "JSON only, strictly matching the Phase3SystemDesign schema. No markdown. No comments. No extra keys.",
}

var refineSpec = Spec{
	Purpose: "Produce an UPDATED system design document that applies the reviewer feedback " +
		"while preserving correctness, structure, and architectural intent.",
	Background: "The input JSON holds phase_3_system_design (the current document, the source of truth) " +
		"and latest_feedback (free-text change requests from a human reviewer). " +
		"The output replaces the stored document wholesale.",
	Rules: []string{
		"Modify ONLY the sections impacted by the feedback; preserve all correct and unaffected sections.",
		"NEVER delete valid information unless it is clearly incorrect; never reduce the level of detail.",
		"If feedback is vague, infer minimal, industry-standard improvements.",
		"The updated document must satisfy the same schema and minimum-content rules as the original: no missing, null, or empty fields; min 2 architecture components; min 2 database tables with min 4 columns; min 3 cost items; one complete plan per test category; min 3 glossary terms; min 3 references; min 2 user flows.",
		"Keep diagram node names consistent with the declared components, flows, and tables.",
	},
	OutputFormat: "JSON only, strictly matching the Phase3SystemDesign schema. The output fully replaces phase_3_system_design.",
}

// Phase2 renders the clarification-question prompt.
func Phase2(attempt int, lastErr error) string { return phase2Spec.Build(attempt, lastErr) }

// Phase3 renders the system-design prompt.
func Phase3(attempt int, lastErr error) string { return phase3Spec.Build(attempt, lastErr) }

// Refine renders the feedback-refinement prompt.
func Refine(attempt int, lastErr error) string { return refineSpec.Build(attempt, lastErr) }
