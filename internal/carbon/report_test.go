package carbon

import (
	"fmt"
	"testing"
	"time"
)

var reportTime = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func assemble(product Product, comps []Component) ReportDocument {
	agg := Aggregate(comps)
	return AssembleReport(product, comps, agg, ScoreAuditReadiness(comps), reportTime)
}

func TestGoalScopeCradleToGateExcludesUseAndEOL(t *testing.T) {
	comps := sampleComponents()
	comps = append(comps,
		Component{ID: "U", Name: "Use", Quantity: 1, EmissionFactor: Float(4), LifecycleStage: StageUsage, NodeType: NodeEnergy},
		Component{ID: "X", Name: "Landfill", Quantity: 1, EmissionFactor: Float(1), LifecycleStage: StageEndOfLife, NodeType: NodeProcess},
	)
	doc := assemble(sampleProduct(), comps)

	for _, s := range doc.GoalScope.IncludedStages {
		if s == StageUsage || s == StageEndOfLife {
			t.Errorf("Expected %s excluded under cradle_to_gate", s)
		}
	}
	if len(doc.GoalScope.ExcludedStages) != 2 {
		t.Errorf("Expected 2 excluded stages, got %v", doc.GoalScope.ExcludedStages)
	}

	for _, sr := range doc.Results.StageBreakdown {
		if sr.Stage == StageUsage || sr.Stage == StageEndOfLife {
			if sr.InScope || sr.PctOfTotal != 0 {
				t.Errorf("Expected %s out of scope, got %+v", sr.Stage, sr)
			}
			if sr.Co2eKg == 0 {
				t.Errorf("Expected %s data to still be reported", sr.Stage)
			}
		}
	}
	if !approx(doc.Results.InScopeCo2eKg, 11.2) {
		t.Errorf("Expected in-scope 11.2, got %v", doc.Results.InScopeCo2eKg)
	}
	if !approx(doc.Results.TotalCo2eKg, 16.2) {
		t.Errorf("Expected total 16.2, got %v", doc.Results.TotalCo2eKg)
	}
	if doc.GoalScope.FunctionalUnit != "1 piece" {
		t.Errorf("Expected functional unit '1 piece', got %q", doc.GoalScope.FunctionalUnit)
	}
}

func TestGoalScopeOtherBoundaries(t *testing.T) {
	p := sampleProduct()
	p.SystemBoundary = BoundaryCradleToGrave
	if gs := BuildGoalScope(p); len(gs.IncludedStages) != 5 || len(gs.ExcludedStages) != 0 {
		t.Errorf("Expected all stages for cradle_to_grave, got %v", gs.IncludedStages)
	}
	p.SystemBoundary = BoundaryGateToGate
	if gs := BuildGoalScope(p); len(gs.IncludedStages) != 1 || gs.IncludedStages[0] != StageProduction {
		t.Errorf("Expected production only for gate_to_gate, got %v", gs.IncludedStages)
	}
}

func TestInventorySection(t *testing.T) {
	doc := assemble(sampleProduct(), sampleComponents())
	inv := doc.Inventory
	if inv.TotalItems != 3 || len(inv.Items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(inv.Items))
	}
	want := map[NodeType]int{NodeComponent: 1, NodeTransport: 1, NodeProcess: 1, NodeEnergy: 0}
	for nt, n := range want {
		if inv.CountsByNodeType[nt] != n {
			t.Errorf("Expected %d %s, got %d", n, nt, inv.CountsByNodeType[nt])
		}
	}
	if inv.Items[0].ID != "A" || !approx(inv.Items[0].Co2eKg, 5) {
		t.Errorf("Expected A first with 5 kg, got %+v", inv.Items[0])
	}
	if !inv.Items[2].Pending {
		t.Errorf("Expected C pending")
	}
}

func TestResultsSection(t *testing.T) {
	p := sampleProduct()
	p.QuantityAmount = 4
	doc := assemble(p, sampleComponents())
	r := doc.Results

	if !approx(r.PerFunctionalUnit, 11.2/4) {
		t.Errorf("Expected per unit 2.8, got %v", r.PerFunctionalUnit)
	}
	if !r.GHGApproximation || len(r.GHGBreakdown) != 4 {
		t.Fatalf("Expected labelled 4-gas approximation, got %+v", r.GHGBreakdown)
	}
	var shareSum, kgSum float64
	for _, g := range r.GHGBreakdown {
		shareSum += g.Share
		kgSum += g.Co2eKg
	}
	if !approx(shareSum, 1) || !approx(kgSum, r.TotalCo2eKg) {
		t.Errorf("Expected split to cover the total, got share %v kg %v", shareSum, kgSum)
	}
	if r.GHGBreakdown[0].Gas != "CO2" || !approx(r.GHGBreakdown[0].Co2eKg, 11.2*0.85) {
		t.Errorf("Expected CO2 at 85%%, got %+v", r.GHGBreakdown[0])
	}

	// ratings 3, 2, 2 → average 2.33 → 35%
	if !approx(r.AverageDQR, 7.0/3.0) || r.UncertaintyPct != 35 {
		t.Errorf("Expected avg 2.33 and 35%%, got %v and %v", r.AverageDQR, r.UncertaintyPct)
	}
	if !approx(r.ConfidenceLower, 11.2*0.65) || !approx(r.ConfidenceUpper, 11.2*1.35) {
		t.Errorf("Expected interval [7.28, 15.12], got [%v, %v]", r.ConfidenceLower, r.ConfidenceUpper)
	}
}

func TestResultsZeroQuantity(t *testing.T) {
	p := sampleProduct()
	p.QuantityAmount = 0
	if r := assemble(p, sampleComponents()).Results; r.PerFunctionalUnit != 0 {
		t.Errorf("Expected 0 per unit for zero quantity, got %v", r.PerFunctionalUnit)
	}
	p.QuantityAmount = -2
	if r := assemble(p, sampleComponents()).Results; r.PerFunctionalUnit != 0 {
		t.Errorf("Expected 0 per unit for negative quantity, got %v", r.PerFunctionalUnit)
	}
}

func TestUncertaintyThresholds(t *testing.T) {
	cases := map[float64]float64{5: 10, 4: 10, 3.99: 20, 3: 20, 2.99: 35, 0: 35}
	for avg, want := range cases {
		if got := UncertaintyPct(avg); got != want {
			t.Errorf("avg %v: expected %v, got %v", avg, want, got)
		}
	}
}

func TestDataQualitySection(t *testing.T) {
	comps := sampleComponents()
	comps[0].VerificationStatus = VerificationVerified
	comps[0].DataQualityRating = 5
	comps[1].DataQualityRating = 4
	dq := assemble(sampleProduct(), comps).DataQuality

	if !approx(dq.VerifiedShare, 1.0/3) || !approx(dq.PrimaryDataShare, 2.0/3) {
		t.Errorf("Expected shares 1/3 and 2/3, got %v and %v", dq.VerifiedShare, dq.PrimaryDataShare)
	}
	if !approx(dq.OverallScore, 50) {
		t.Errorf("Expected overall 50, got %v", dq.OverallScore)
	}
	if len(dq.DataGaps) != 1 || dq.DataGaps[0].ComponentID != "C" {
		t.Errorf("Expected C as the only gap, got %v", dq.DataGaps)
	}
}

func TestInterpretationHotspots(t *testing.T) {
	var comps []Component
	for i := 0; i < 8; i++ {
		comps = append(comps, Component{
			ID:             fmt.Sprintf("c%d", i),
			Name:           fmt.Sprintf("part %d", i),
			Quantity:       float64(i + 1),
			EmissionFactor: Float(1),
			LifecycleStage: StageProduction,
			NodeType:       NodeComponent,
		})
	}
	comps = append(comps, Component{ID: "pending", Name: "no data", Quantity: 1000, LifecycleStage: StageProduction})

	doc := assemble(sampleProduct(), comps)
	hs := doc.Interpretation.Hotspots
	if len(hs) != HotspotLimit {
		t.Fatalf("Expected %d hotspots, got %d", HotspotLimit, len(hs))
	}
	if hs[0].ComponentID != "c7" || hs[4].ComponentID != "c3" {
		t.Errorf("Expected c7..c3, got %s..%s", hs[0].ComponentID, hs[4].ComponentID)
	}
	if !approx(hs[0].PctOfTotal, 8.0/36.0*100) {
		t.Errorf("Expected c7 share %v, got %v", 8.0/36.0*100, hs[0].PctOfTotal)
	}
	for _, h := range hs {
		if h.ComponentID == "pending" {
			t.Errorf("Expected pending component to be excluded from hotspots")
		}
	}
}

func TestComplianceSection(t *testing.T) {
	if c := BuildCompliance(80); c.Status != ComplianceFull {
		t.Errorf("Expected full compliance at 80, got %s", c.Status)
	}
	if c := BuildCompliance(79.99); c.Status != CompliancePartial {
		t.Errorf("Expected partial compliance below 80, got %s", c.Status)
	}
}

func TestAssembleReportEmpty(t *testing.T) {
	doc := assemble(sampleProduct(), nil)
	if doc.Results.TotalCo2eKg != 0 || doc.DataQuality.OverallScore != 0 || len(doc.Interpretation.Hotspots) != 0 {
		t.Errorf("Expected empty report to be all zeroes, got %+v", doc)
	}
	if doc.Compliance.Status != CompliancePartial {
		t.Errorf("Expected partial compliance for empty product")
	}
	if !doc.GeneratedAt.Equal(reportTime) {
		t.Errorf("Expected generated_at to be the supplied time")
	}
}
