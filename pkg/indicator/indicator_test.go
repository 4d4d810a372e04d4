package indicator

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/measure"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name          string
		formation     float64
		participation float64
		equity        float64
		expected      float64
	}{
		{"All ones", 1, 1, 1, 1},
		{"All zeros", 0, 0, 0, 0},
		{"Formation only", 1, 0, 0, 0.70},
		{"Participation only", 0, 1, 0, 0.15},
		{"Equity only", 0, 0, 1, 0.15},
		{"Mixed", 0.8, 0.9, 0.6, 0.785},
		{"Out of range is not clamped", 1.2, -0.1, 0.5, 0.84 - 0.015 + 0.075},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Aggregate(tt.formation, tt.participation, tt.equity)
			if !v.Defined() {
				t.Fatalf("Aggregate() undefined: %v", v)
			}
			if math.Abs(v.Number-tt.expected) > 1e-9 {
				t.Errorf("Aggregate(%v, %v, %v) = %v, expected %v", tt.formation, tt.participation, tt.equity, v.Number, tt.expected)
			}
			if v.Unit != measure.UnitIndex {
				t.Errorf("Aggregate() unit = %v, expected %v", v.Unit, measure.UnitIndex)
			}
		})
	}
}

func TestAggregateWeightsOverUnitCube(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		f, p, e := rng.Float64(), rng.Float64(), rng.Float64()
		v := Aggregate(f, p, e)
		expected := 0.70*f + 0.15*p + 0.15*e
		if math.Abs(v.Float()-expected) > 1e-9 {
			t.Fatalf("Aggregate(%v, %v, %v) = %v, expected %v", f, p, e, v.Float(), expected)
		}
	}
}

func TestAggregateUndefined(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		f    float64
		p    float64
		e    float64
	}{
		{"Formation missing", nan, 0.5, 0.5},
		{"Participation missing", 0.5, nan, 0.5},
		{"Equity missing", 0.5, 0.5, nan},
		{"All missing", nan, nan, nan},
		{"Infinite input", math.Inf(1), 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Aggregate(tt.f, tt.p, tt.e)
			if v.Defined() {
				t.Errorf("Aggregate() = %v, expected undefined", v)
			}
			if v.Reason != measure.UndefinedValue {
				t.Errorf("Aggregate() reason = %v, expected %v", v.Reason, measure.UndefinedValue)
			}
		})
	}
}

func TestComponentsOfRecord(t *testing.T) {
	r := dataset.NewRecord("Serra", 2024)
	r.Formation, r.Participation, r.Equity = 0.5, 1, 0
	c := ComponentsOf(r)
	if math.Abs(c.Index().Float()-0.5) > 1e-9 {
		t.Errorf("Index() = %v, expected 0.5", c.Index().Float())
	}
	if !c.InRange() {
		t.Error("InRange() = false for values in [0,1]")
	}
	if (Components{Formation: 1.1}).InRange() {
		t.Error("InRange() = true for formation 1.1")
	}
}

func TestAggregateDelta(t *testing.T) {
	base := Components{Formation: 0.6, Participation: 0.8, Equity: 0.5}
	changed := Components{Formation: 0.7, Participation: 0.8, Equity: 0.7}

	delta := AggregateDelta(changed.Sub(base))
	direct := changed.Index().Float() - base.Index().Float()
	if math.Abs(delta.Float()-direct) > 1e-9 {
		t.Errorf("AggregateDelta() = %v, expected %v", delta.Float(), direct)
	}
	if math.Abs(delta.Float()-0.10) > 1e-9 {
		t.Errorf("AggregateDelta() = %v, expected 0.10", delta.Float())
	}
}

func TestComponentsMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Components{Formation: 0.5, Participation: math.NaN(), Equity: 1})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	expected := `{"formation":0.5,"participation":null,"equity":1}`
	if string(data) != expected {
		t.Errorf("Marshal() = %s, expected %s", data, expected)
	}
}
