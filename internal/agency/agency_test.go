package agency_test

import (
	"testing"

	"github.com/anima-project/anima/internal/agency"
)

func TestUpdateMovesValueTowardSatisfaction(t *testing.T) {
	a := agency.New(agency.DefaultActions)
	for i := 0; i < 50; i++ {
		a.Update("explore", 0.9)
	}
	if a.Values["explore"] < 0.8 {
		t.Errorf("Values[explore] = %v, want close to 0.9", a.Values["explore"])
	}
}

func TestSelectActionPrefersHighestDiscountedValue(t *testing.T) {
	a := agency.New(agency.DefaultActions)
	a.Values["explore"] = 0.9
	a.Values["rest"] = 0.5
	a.Values["focus_attention"] = 0.5

	got := a.SelectAction(map[string]float64{})
	if got != "explore" {
		t.Errorf("SelectAction() = %q, want explore", got)
	}
}

func TestSelectActionDiscountsConflictedActions(t *testing.T) {
	a := agency.New(agency.DefaultActions)
	a.Values["explore"] = 0.9
	a.Values["rest"] = 0.6

	// explore has a heavy conflict rate, dragging its effective score below rest's.
	got := a.SelectAction(map[string]float64{"explore": 5})
	if got != "rest" {
		t.Errorf("SelectAction() = %q, want rest once explore is heavily discounted", got)
	}
}

func TestSelectActionTieBreaksLexicographically(t *testing.T) {
	a := agency.New([]string{"zeta", "alpha"})
	a.Values["zeta"] = 0.5
	a.Values["alpha"] = 0.5
	got := a.SelectAction(map[string]float64{})
	if got != "alpha" {
		t.Errorf("SelectAction() = %q, want alpha on a tie", got)
	}
}

func TestSatisfactionWeightedAverage(t *testing.T) {
	s := agency.Satisfaction(map[string]agency.PreferenceSatisfaction{
		"warmth":  {Weight: 1, Satisfaction: 1},
		"clarity": {Weight: 1, Satisfaction: 0},
	})
	if s != 0.5 {
		t.Errorf("Satisfaction() = %v, want 0.5", s)
	}
}
