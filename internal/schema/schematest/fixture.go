// Package schematest provides shared document fixtures for tests.
package schematest

import "designengine/internal/schema"

// ValidDesign returns a document for a small inventory system that satisfies
// every content threshold in schema.CheckDesign. Tests mutate copies of it to
// produce targeted violations.
func ValidDesign() *schema.Phase3SystemDesign {
	return &schema.Phase3SystemDesign{
		ExecutiveSummary: schema.ExecutiveSummary{
			Title:        "Inventory System Design",
			ProjectType:  "Web Application",
			Purpose:      "Track stock levels and purchase orders for a mid-size retailer.",
			CoreFeatures: []string{"Stock tracking", "Purchase orders", "Low-stock alerts"},
			Constraints:  []string{"Cost", "Security", "Time-to-market"},
			UserScale: schema.UserScale{
				ExpectedActiveUsers: "Up to 10k users",
				ConcurrentUsers:     500,
			},
		},
		SystemOverview: schema.SystemOverview{
			FunctionalGoals:           []string{"Record stock movements", "Automate reordering", "Expose reporting APIs"},
			NonFunctionalRequirements: []string{"99.9% availability", "P95 latency under 300ms", "Audit trail for all mutations"},
			PrimaryUserPersonas:       []string{"Warehouse operator", "Purchasing manager"},
			UserFlows: []schema.UserFlowStep{
				{
					Name:            "Receive Shipment",
					Description:     "Operator scans incoming goods and stock levels update.",
					EntryPoints:     []string{"Mobile scanner app"},
					SuccessCriteria: "Stock count reflects shipment within seconds.",
				},
				{
					Name:            "Create Purchase Order",
					Description:     "Manager raises an order when stock falls below threshold.",
					EntryPoints:     []string{"Web dashboard"},
					SuccessCriteria: "Order is persisted and supplier notified.",
				},
			},
			Assumptions: []string{"Single warehouse initially", "Suppliers accept email orders", "Barcode coverage is complete"},
		},
		ArchitectureDesign: schema.ArchitectureDesign{
			Overview: "A modular monolith fronted by an API gateway, with async workers for notifications.",
			Components: []schema.Component{
				{
					Name:           "InventoryService",
					Responsibility: "Owns stock levels and movement history.",
					Technologies:   []string{"Go", "PostgreSQL"},
					Interfaces:     []string{"REST /v1/stock"},
					Notes:          "Single writer per SKU to keep counts consistent.",
				},
				{
					Name:           "OrderService",
					Responsibility: "Manages purchase order lifecycle.",
					Technologies:   []string{"Go", "PostgreSQL"},
					Interfaces:     []string{"REST /v1/orders"},
					Notes:          "Emits events consumed by the notifier.",
				},
			},
			DataFlowDiagramRefs:  []string{"system_architecture"},
			CriticalInteractions: []string{"Scan updates stock", "Threshold breach raises order", "Order event triggers email"},
			Rationale:            []string{"Monolith keeps ops simple at this scale", "Postgres covers relational needs", "Async workers isolate slow I/O"},
		},
		DatabaseDesign: schema.DatabaseDesign{
			DBType:                 "PostgreSQL",
			StorageCharacteristics: "Row-oriented OLTP, modest volume, strong consistency.",
			Schemas: []schema.TableSchema{
				{
					TableName:   "stock_items",
					Description: "Current stock level per SKU.",
					Columns: []schema.TableColumn{
						{Name: "sku", Type: "text", Nullable: false, Description: "Stock keeping unit."},
						{Name: "quantity", Type: "integer", Nullable: false, Description: "Units on hand."},
						{Name: "reorder_threshold", Type: "integer", Nullable: false, Description: "Reorder trigger level."},
						{Name: "updated_at", Type: "timestamptz", Nullable: false, Description: "Last movement time."},
					},
					Indexes: []string{"PRIMARY KEY (sku)"},
				},
				{
					TableName:   "purchase_orders",
					Description: "Orders raised against suppliers.",
					Columns: []schema.TableColumn{
						{Name: "id", Type: "uuid", Nullable: false, Description: "Order id."},
						{Name: "sku", Type: "text", Nullable: false, Description: "Ordered SKU."},
						{Name: "quantity", Type: "integer", Nullable: false, Description: "Ordered units."},
						{Name: "status", Type: "text", Nullable: false, Description: "Lifecycle state."},
					},
					Indexes: []string{"PRIMARY KEY (id)", "INDEX (sku)"},
				},
			},
			Relationships:              []string{"purchase_orders.sku references stock_items.sku"},
			TransactionsAndConsistency: "Serializable transactions for stock mutations.",
			BackupAndReplication:       []string{"Daily snapshots", "Streaming replica in second AZ"},
		},
		SecurityAndCompliance: schema.SecurityAndCompliance{
			Authentication: schema.AuthStrategy{
				Method:            "OIDC",
				IdentityProvider:  "Company SSO",
				SessionManagement: "Short-lived JWTs with refresh tokens.",
			},
			Authorization:         []string{"Role-based access control", "Per-warehouse scoping"},
			Encryption:            []string{"TLS in transit", "AES-256 at rest"},
			Compliance:            []string{"SOC 2"},
			MonitoringAndAlerting: []string{"Auth failure alerting"},
			IncidentResponse:      "On-call rotation with a documented runbook.",
		},
		DeploymentStrategy: schema.DeploymentStrategy{
			Model:            "Managed Kubernetes",
			Containerization: []string{"Docker multi-stage builds"},
			Orchestration:    "Kubernetes with one deployment per service.",
			CICD:             []string{"Tests on every merge", "Tagged releases deploy automatically"},
			RolloutStrategy:  []string{"Rolling update with health gates"},
			InfraAsCode:      "Terraform for cluster and database.",
		},
		ScalabilityAndReliability: schema.ScalabilityAndReliability{
			LoadBalancing:     []string{"Ingress round-robin"},
			Autoscaling:       []string{"HPA on CPU and queue depth"},
			CachingStrategy:   []string{"Read-through cache for stock lookups"},
			FailoverAndDR:     []string{"Replica promotion within 5 minutes"},
			MonitoringMetrics: []string{"Request latency", "Error rate", "Queue depth"},
			SloSlaTargets: []schema.SloSlaTarget{
				{Metric: "Availability", Target: "99.9%", MeasurementWindow: "30 days", Notes: "Excludes planned maintenance."},
				{Metric: "P95 latency", Target: "300ms", MeasurementWindow: "7 days", Notes: "Read endpoints only."},
			},
		},
		CostAndResourceEstimation: schema.CostAndResourceEstimation{
			CostItems: []schema.CostItem{
				{Name: "Kubernetes cluster", MonthlyEstimateUSD: 450, Rationale: "Three small nodes."},
				{Name: "Managed PostgreSQL", MonthlyEstimateUSD: 200, Rationale: "Primary plus replica."},
				{Name: "Object storage", MonthlyEstimateUSD: 20, Rationale: "Reports and backups."},
			},
			OneTimeCosts: []schema.CostItem{
				{Name: "Barcode scanners", MonthlyEstimateUSD: 1200, Rationale: "Ten handheld units."},
				{Name: "Initial data migration", MonthlyEstimateUSD: 800, Rationale: "Contractor time."},
			},
			Assumptions: []string{"Traffic grows 20% per year"},
			Licensing:   []string{"All components open source"},
		},
		TestingAndQAStrategy: schema.TestingAndQAStrategy{
			UnitTesting: schema.TestPlan{
				Name: "Unit", Scope: "Domain logic and validators.",
				Tools: []string{"go test"}, SuccessCriteria: "All packages pass.",
			},
			IntegrationTesting: schema.TestPlan{
				Name: "Integration", Scope: "Service against a real database.",
				Tools: []string{"docker compose"}, SuccessCriteria: "CRUD flows succeed end to end.",
			},
			E2ETesting: schema.TestPlan{
				Name: "E2E", Scope: "Scanner to dashboard flows.",
				Tools: []string{"Playwright"}, SuccessCriteria: "Critical journeys green.",
			},
			LoadAndStress: schema.TestPlan{
				Name: "Load", Scope: "Peak receiving hours.",
				Tools: []string{"k6"}, SuccessCriteria: "P95 under target at 2x load.",
			},
			SecurityTesting: schema.TestPlan{
				Name: "Security", Scope: "Auth and injection surfaces.",
				Tools: []string{"OWASP ZAP"}, SuccessCriteria: "No high findings.",
			},
			AcceptanceCriteria: []string{"Stock accuracy above 99.5% in pilot"},
		},
		Appendices: schema.Appendices{
			Glossary: []schema.GlossaryItem{
				{Term: "SKU", Definition: "Stock keeping unit."},
				{Term: "PO", Definition: "Purchase order."},
				{Term: "HPA", Definition: "Horizontal pod autoscaler."},
			},
			References:      []string{"PostgreSQL docs", "Kubernetes docs", "OWASP ASVS"},
			AdditionalNotes: "Second warehouse support is deferred to a later phase.",
		},
		MermaidDiagrams: schema.MermaidDiagrams{
			SystemArchitecture: "graph TD\n  Gateway --> InventoryService\n  Gateway --> OrderService",
			UserFlows:          "graph LR\n  A[Receive Shipment] --> B[Create Purchase Order]",
			DatabaseER:         "erDiagram\n  stock_items ||--o{ purchase_orders : sku",
		},
	}
}
