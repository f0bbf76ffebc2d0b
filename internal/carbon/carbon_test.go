package carbon

import (
	"math"
	"testing"
	"time"
)

const eps = 1e-9

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func approx(a, b float64) bool {
	return math.Abs(a-b) < eps
}

// sampleComponents is the three-component set used across the engine tests:
// A raw material with a factor, B a transport leg, C a production step still pending data.
func sampleComponents() []Component {
	return []Component{
		{
			ID: "A", ProductID: "p1", Name: "Steel sheet", Quantity: 10, Unit: "kg",
			EmissionFactor: Float(0.5), LifecycleStage: StageRawMaterialAcquisition,
			NodeType: NodeComponent, DataQualityRating: 3, VerificationStatus: VerificationUnverified,
			CreatedAt: baseTime,
		},
		{
			ID: "B", ProductID: "p1", Name: "Truck to DC", Quantity: 100, Unit: "tkm",
			EmissionFactor: Float(0.062), LifecycleStage: StageDistribution,
			NodeType: NodeTransport, DataQualityRating: 2, VerificationStatus: VerificationUnverified,
			CreatedAt: baseTime.Add(time.Minute),
		},
		{
			ID: "C", ProductID: "p1", Name: "Stamping", Quantity: 1, Unit: "h",
			LifecycleStage: StageProduction, NodeType: NodeProcess, DataQualityRating: 2,
			VerificationStatus: VerificationUnverified, CreatedAt: baseTime.Add(2 * time.Minute),
		},
	}
}

func sampleProduct() Product {
	return Product{ID: "p1", Name: "Bracket", QuantityAmount: 1, Unit: "piece", SystemBoundary: BoundaryCradleToGate}
}

func TestComponentImpact(t *testing.T) {
	for _, c := range sampleComponents() {
		if !c.HasEmissionFactor() {
			if c.Impact() != 0 {
				t.Errorf("Expected 0 impact for pending %s, got %v", c.ID, c.Impact())
			}
			continue
		}
		if c.Impact() != c.Quantity**c.EmissionFactor {
			t.Errorf("Expected impact quantity*factor for %s, got %v", c.ID, c.Impact())
		}
	}
}

func TestNormalizeAndValidateComponent(t *testing.T) {
	c := NormalizeComponent(Component{ID: "x", Name: "Bolt", Quantity: 4, EmissionFactor: Float(1.5)})
	if c.LifecycleStage != StageProduction {
		t.Errorf("Expected default stage production, got %s", c.LifecycleStage)
	}
	if c.NodeType != NodeComponent {
		t.Errorf("Expected default node type component, got %s", c.NodeType)
	}
	if c.DataQualityRating != DefaultDataQualityRating {
		t.Errorf("Expected default rating %d, got %d", DefaultDataQualityRating, c.DataQualityRating)
	}
	if c.Co2eKg != 6 {
		t.Errorf("Expected co2e 6, got %v", c.Co2eKg)
	}
	if err := ValidateComponent(c); err != nil {
		t.Fatalf("Expected valid component, got %v", err)
	}

	bad := []Component{
		func() Component { b := c; b.Quantity = -1; return b }(),
		func() Component { b := c; b.EmissionFactor = Float(-0.1); return b }(),
		func() Component { b := c; b.DataQualityRating = 6; return b }(),
		func() Component { b := c; b.LifecycleStage = "orbit"; return b }(),
		func() Component { b := c; b.NodeType = "robot"; return b }(),
		func() Component { b := c; b.VerificationStatus = "maybe"; return b }(),
		func() Component { b := c; b.ParentComponentID = b.ID; return b }(),
		func() Component { b := c; b.Name = ""; return b }(),
	}
	for i, b := range bad {
		if err := ValidateComponent(b); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestBoundaryIncludesStage(t *testing.T) {
	cases := []struct {
		boundary SystemBoundary
		included []LifecycleStage
	}{
		{BoundaryCradleToGate, []LifecycleStage{StageRawMaterialAcquisition, StageProduction, StageDistribution}},
		{BoundaryCradleToGrave, Stages()},
		{BoundaryGateToGate, []LifecycleStage{StageProduction}},
	}
	for _, tc := range cases {
		var got []LifecycleStage
		for _, s := range Stages() {
			if tc.boundary.IncludesStage(s) {
				got = append(got, s)
			}
		}
		if len(got) != len(tc.included) {
			t.Fatalf("%s: expected %v, got %v", tc.boundary, tc.included, got)
		}
		for i := range got {
			if got[i] != tc.included[i] {
				t.Errorf("%s: expected %v, got %v", tc.boundary, tc.included, got)
			}
		}
	}
}
