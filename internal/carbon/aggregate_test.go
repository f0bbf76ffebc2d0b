package carbon

import (
	"reflect"
	"testing"
	"time"
)

func TestAggregateSampleSet(t *testing.T) {
	agg := Aggregate(sampleComponents())

	if !approx(agg.GrandTotal, 11.2) {
		t.Errorf("Expected grand total 11.2, got %v", agg.GrandTotal)
	}
	want := map[LifecycleStage]float64{
		StageRawMaterialAcquisition: 5.0,
		StageDistribution:           6.2,
		StageProduction:             0,
		StageUsage:                  0,
		StageEndOfLife:              0,
	}
	for stage, v := range want {
		if !approx(agg.PerStageTotal[stage], v) {
			t.Errorf("Expected %s total %v, got %v", stage, v, agg.PerStageTotal[stage])
		}
	}
	if agg.MissingCount != 1 || len(agg.MissingIDs) != 1 || agg.MissingIDs[0] != "C" {
		t.Errorf("Expected C missing, got %d %v", agg.MissingCount, agg.MissingIDs)
	}
	if agg.WithFactorCount != 2 || agg.ComponentCount != 3 {
		t.Errorf("Expected 2 of 3 with factor, got %d of %d", agg.WithFactorCount, agg.ComponentCount)
	}
	if agg.Status() != StatusInProgress {
		t.Errorf("Expected in_progress with pending data, got %s", agg.Status())
	}
}

func TestAggregateDerivationInvariant(t *testing.T) {
	comps := sampleComponents()
	agg := Aggregate(comps)
	for _, c := range comps {
		if !c.HasEmissionFactor() {
			continue
		}
		if agg.PerComponentImpact[c.ID] != c.Quantity**c.EmissionFactor {
			t.Errorf("Expected %s impact %v, got %v", c.ID, c.Quantity**c.EmissionFactor, agg.PerComponentImpact[c.ID])
		}
	}
}

func TestAggregateStageSumEqualsTotal(t *testing.T) {
	comps := []Component{}
	for i := 0; i < 40; i++ {
		comps = append(comps, Component{
			ID:             string(rune('a'+i%26)) + string(rune('A'+i/26)),
			Quantity:       float64(i) * 1.37,
			EmissionFactor: Float(0.1 + float64(i%7)*0.013),
			LifecycleStage: Stages()[i%5],
			NodeType:       NodeTypes()[i%4],
		})
	}
	agg := Aggregate(comps)
	var sum float64
	for _, v := range agg.PerStageTotal {
		sum += v
	}
	if diff := sum - agg.GrandTotal; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected stage totals to sum to %v, got %v", agg.GrandTotal, sum)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	comps := sampleComponents()
	first := Aggregate(comps)
	second := Aggregate(comps)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical output on repeat, got %+v vs %+v", first, second)
	}

	// Order of input must not change the floating point result.
	shuffled := []Component{comps[2], comps[0], comps[1]}
	third := Aggregate(shuffled)
	if third.GrandTotal != first.GrandTotal {
		t.Errorf("Expected bit-identical totals regardless of input order, got %v vs %v", third.GrandTotal, first.GrandTotal)
	}
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil)
	if agg.GrandTotal != 0 || agg.MissingCount != 0 {
		t.Errorf("Expected zeroes, got %+v", agg)
	}
	if agg.DataCompletenessPct() != 0 {
		t.Errorf("Expected 0 completeness, got %v", agg.DataCompletenessPct())
	}
	if agg.Status() != StatusInProgress {
		t.Errorf("Expected in_progress for empty product, got %s", agg.Status())
	}
}

func TestDeriveTotals(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	comps := sampleComponents()
	comps[2].EmissionFactor = Float(2)

	totals, agg := DeriveTotals(comps, now)
	if totals.Status != StatusCompleted {
		t.Errorf("Expected completed when every factor is present, got %s", totals.Status)
	}
	stageSum := totals.RawMaterialCo2e + totals.ProductionCo2e + totals.DistributionCo2e + totals.UsageCo2e + totals.EolCo2e
	if !approx(stageSum, totals.TotalCo2eKg) {
		t.Errorf("Expected stage fields to sum to total, got %v vs %v", stageSum, totals.TotalCo2eKg)
	}
	if totals.TotalCo2eKg != agg.GrandTotal {
		t.Errorf("Expected total to equal aggregation")
	}

	var p Product
	totals.Apply(&p)
	if p.LastCalculatedDate == nil || !p.LastCalculatedDate.Equal(now) {
		t.Errorf("Expected last calculated date to be set")
	}
	if p.AuditReadinessScore != 70 {
		t.Errorf("Expected score 70, got %v", p.AuditReadinessScore)
	}
}

func TestStaleComponents(t *testing.T) {
	comps := sampleComponents()
	comps[0].Co2eKg = 5
	comps[1].Co2eKg = 1 // stale, should be 6.2
	stale := StaleComponents(comps)
	if len(stale) != 1 {
		t.Fatalf("Expected one stale component, got %v", stale)
	}
	if v, ok := stale["B"]; !ok || !approx(v, 6.2) {
		t.Errorf("Expected B corrected to 6.2, got %v", stale)
	}
}
