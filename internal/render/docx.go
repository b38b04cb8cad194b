package render

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"designengine/internal/schema"
)

// fallback replaces empty strings so a degraded document still renders.
const fallback = "Not specified"

// DocxRenderer writes the document as minimal OOXML (a zip archive with a
// single word/document.xml part). No third-party docx dependency exists in
// this stack, and the fixed schema needs only headings, paragraphs, bullet
// text, and plain tables, so the part is emitted directly.
type DocxRenderer struct{}

func NewDocxRenderer() *DocxRenderer { return &DocxRenderer{} }

func (r *DocxRenderer) Render(doc *schema.Phase3SystemDesign, dest string) error {
	if doc == nil {
		return &RenderError{Dest: dest, Err: fmt.Errorf("document is nil")}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &RenderError{Dest: dest, Err: err}
	}
	f, err := os.Create(dest)
	if err != nil {
		return &RenderError{Dest: dest, Err: err}
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	parts := map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels":         relsXML,
		"word/document.xml":   buildDocumentXML(doc),
	}
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		w, err := zw.Create(name)
		if err != nil {
			_ = zw.Close()
			return &RenderError{Dest: dest, Err: err}
		}
		if _, err := w.Write([]byte(parts[name])); err != nil {
			_ = zw.Close()
			return &RenderError{Dest: dest, Err: err}
		}
	}
	if err := zw.Close(); err != nil {
		return &RenderError{Dest: dest, Err: err}
	}
	return nil
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

type docBuilder struct {
	sb strings.Builder
}

func buildDocumentXML(doc *schema.Phase3SystemDesign) string {
	b := &docBuilder{}
	b.sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.sb.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	b.title(orFallback(doc.ExecutiveSummary.Title))

	b.heading("Executive Summary")
	es := doc.ExecutiveSummary
	b.labeled("Project Type", es.ProjectType)
	b.labeled("Purpose", es.Purpose)
	b.bulletList("Core Features", es.CoreFeatures)
	b.bulletList("Constraints", es.Constraints)
	b.labeled("Expected Active Users", es.UserScale.ExpectedActiveUsers)
	b.labeled("Peak Concurrent Users", fmt.Sprintf("%d", es.UserScale.ConcurrentUsers))

	b.heading("System Overview")
	so := doc.SystemOverview
	b.bulletList("Functional Goals", so.FunctionalGoals)
	b.bulletList("Non-Functional Requirements", so.NonFunctionalRequirements)
	b.bulletList("Primary User Personas", so.PrimaryUserPersonas)
	b.subheading("User Flows")
	for _, f := range so.UserFlows {
		b.labeled(orFallback(f.Name), f.Description)
		b.bulletList("Entry Points", f.EntryPoints)
		b.labeled("Success Criteria", f.SuccessCriteria)
	}
	b.bulletList("Assumptions", so.Assumptions)

	b.heading("Architecture Design")
	ad := doc.ArchitectureDesign
	b.paragraph(orFallback(ad.Overview))
	for _, c := range ad.Components {
		b.subheading("Component: " + orFallback(c.Name))
		b.labeled("Responsibility", c.Responsibility)
		b.bulletList("Technologies", c.Technologies)
		b.bulletList("Interfaces", c.Interfaces)
		b.labeled("Notes", c.Notes)
	}
	b.bulletList("Data Flow Diagram Refs", ad.DataFlowDiagramRefs)
	b.bulletList("Critical Interactions", ad.CriticalInteractions)
	b.bulletList("Rationale", ad.Rationale)

	b.heading("Database Design")
	db := doc.DatabaseDesign
	b.labeled("Database Type", db.DBType)
	b.labeled("Storage Characteristics", db.StorageCharacteristics)
	for _, t := range db.Schemas {
		b.subheading("Table: " + orFallback(t.TableName))
		b.paragraph(orFallback(t.Description))
		b.columnTable(t.Columns)
		b.bulletList("Indexes", t.Indexes)
	}
	b.bulletList("Relationships", db.Relationships)
	b.labeled("Transactions & Consistency", db.TransactionsAndConsistency)
	b.bulletList("Backup & Replication", db.BackupAndReplication)

	b.heading("Security & Compliance")
	sec := doc.SecurityAndCompliance
	b.labeled("Authentication Method", sec.Authentication.Method)
	b.labeled("Identity Provider", sec.Authentication.IdentityProvider)
	b.labeled("Session Management", sec.Authentication.SessionManagement)
	b.bulletList("Authorization", sec.Authorization)
	b.bulletList("Encryption", sec.Encryption)
	b.bulletList("Compliance", sec.Compliance)
	b.bulletList("Monitoring & Alerting", sec.MonitoringAndAlerting)
	b.labeled("Incident Response", sec.IncidentResponse)

	b.heading("Deployment Strategy")
	dep := doc.DeploymentStrategy
	b.labeled("Model", dep.Model)
	b.bulletList("Containerization", dep.Containerization)
	b.labeled("Orchestration", dep.Orchestration)
	b.bulletList("CI/CD", dep.CICD)
	b.bulletList("Rollout Strategy", dep.RolloutStrategy)
	b.labeled("Infrastructure as Code", dep.InfraAsCode)

	b.heading("Scalability & Reliability")
	sr := doc.ScalabilityAndReliability
	b.bulletList("Load Balancing", sr.LoadBalancing)
	b.bulletList("Autoscaling", sr.Autoscaling)
	b.bulletList("Caching Strategy", sr.CachingStrategy)
	b.bulletList("Failover & DR", sr.FailoverAndDR)
	b.bulletList("Monitoring Metrics", sr.MonitoringMetrics)
	b.subheading("SLO / SLA Targets")
	for _, t := range sr.SloSlaTargets {
		b.bullet(fmt.Sprintf("%s: %s over %s (%s)",
			orFallback(t.Metric), orFallback(t.Target), orFallback(t.MeasurementWindow), orFallback(t.Notes)))
	}

	b.heading("Cost & Resource Estimation")
	cost := doc.CostAndResourceEstimation
	b.subheading("Monthly Costs")
	b.costTable(cost.CostItems)
	b.subheading("One-Time Costs")
	b.costTable(cost.OneTimeCosts)
	b.bulletList("Assumptions", cost.Assumptions)
	b.bulletList("Licensing", cost.Licensing)

	b.heading("Testing & QA Strategy")
	qa := doc.TestingAndQAStrategy
	b.testPlan("Unit Testing", qa.UnitTesting)
	b.testPlan("Integration Testing", qa.IntegrationTesting)
	b.testPlan("End-to-End Testing", qa.E2ETesting)
	b.testPlan("Load & Stress Testing", qa.LoadAndStress)
	b.testPlan("Security Testing", qa.SecurityTesting)
	b.bulletList("Acceptance Criteria", qa.AcceptanceCriteria)

	b.heading("Appendices")
	app := doc.Appendices
	b.subheading("Glossary")
	for _, g := range app.Glossary {
		b.bullet(orFallback(g.Term) + ": " + orFallback(g.Definition))
	}
	b.bulletList("References", app.References)
	b.labeled("Additional Notes", app.AdditionalNotes)

	b.heading("Diagrams")
	b.subheading("System Architecture")
	b.codeBlock(doc.MermaidDiagrams.SystemArchitecture)
	b.subheading("User Flows")
	b.codeBlock(doc.MermaidDiagrams.UserFlows)
	b.subheading("Database ER")
	b.codeBlock(doc.MermaidDiagrams.DatabaseER)

	b.sb.WriteString(`</w:body></w:document>`)
	return b.sb.String()
}

func orFallback(s string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func (b *docBuilder) run(text string, bold bool, size int) string {
	var props strings.Builder
	props.WriteString("<w:rPr>")
	if bold {
		props.WriteString("<w:b/>")
	}
	if size > 0 {
		fmt.Fprintf(&props, `<w:sz w:val="%d"/>`, size)
	}
	props.WriteString("</w:rPr>")
	return `<w:r>` + props.String() + `<w:t xml:space="preserve">` + escape(text) + `</w:t></w:r>`
}

func (b *docBuilder) title(text string) {
	b.sb.WriteString(`<w:p>` + b.run(text, true, 48) + `</w:p>`)
}

func (b *docBuilder) heading(text string) {
	b.sb.WriteString(`<w:p>` + b.run(text, true, 32) + `</w:p>`)
}

func (b *docBuilder) subheading(text string) {
	b.sb.WriteString(`<w:p>` + b.run(text, true, 26) + `</w:p>`)
}

func (b *docBuilder) paragraph(text string) {
	b.sb.WriteString(`<w:p>` + b.run(text, false, 0) + `</w:p>`)
}

func (b *docBuilder) labeled(label, value string) {
	b.sb.WriteString(`<w:p>` + b.run(label+": ", true, 0) + b.run(orFallback(value), false, 0) + `</w:p>`)
}

func (b *docBuilder) bullet(text string) {
	b.paragraph("• " + text)
}

func (b *docBuilder) bulletList(label string, items []string) {
	b.sb.WriteString(`<w:p>` + b.run(label, true, 0) + `</w:p>`)
	if len(items) == 0 {
		b.bullet(fallback)
		return
	}
	for _, item := range items {
		b.bullet(orFallback(item))
	}
}

func (b *docBuilder) codeBlock(src string) {
	if strings.TrimSpace(src) == "" {
		b.paragraph(fallback)
		return
	}
	for _, line := range strings.Split(src, "\n") {
		b.paragraph(line)
	}
}

func (b *docBuilder) tableRow(cells []string, bold bool) {
	b.sb.WriteString("<w:tr>")
	for _, c := range cells {
		b.sb.WriteString(`<w:tc><w:p>` + b.run(c, bold, 0) + `</w:p></w:tc>`)
	}
	b.sb.WriteString("</w:tr>")
}

func (b *docBuilder) columnTable(columns []schema.TableColumn) {
	b.sb.WriteString("<w:tbl>")
	b.tableRow([]string{"Column", "Type", "Nullable", "Description"}, true)
	for _, c := range columns {
		b.tableRow([]string{
			orFallback(c.Name), orFallback(c.Type), fmt.Sprintf("%t", c.Nullable), orFallback(c.Description),
		}, false)
	}
	b.sb.WriteString("</w:tbl>")
}

func (b *docBuilder) costTable(items []schema.CostItem) {
	b.sb.WriteString("<w:tbl>")
	b.tableRow([]string{"Item", "Estimate (USD)", "Rationale"}, true)
	for _, c := range items {
		b.tableRow([]string{
			orFallback(c.Name), fmt.Sprintf("%.2f", c.MonthlyEstimateUSD), orFallback(c.Rationale),
		}, false)
	}
	b.sb.WriteString("</w:tbl>")
}

func (b *docBuilder) testPlan(label string, p schema.TestPlan) {
	b.subheading(label)
	b.labeled("Name", p.Name)
	b.labeled("Scope", p.Scope)
	b.bulletList("Tools", p.Tools)
	b.labeled("Success Criteria", p.SuccessCriteria)
}
