package simulation

import (
	"testing"

	"oceandepths/internal/domain/city"

	"github.com/google/go-cmp/cmp"
)

func commandShipRates(t *testing.T) RateReport {
	t.Helper()
	grid := gridWith(t, map[city.Position]city.Building{
		{X: 0, Y: 0}: {Type: "command_ship", Operational: true},
	})
	return newSimulator().CalculateRates(grid, startingResources())
}

func TestTolerance_ScalesWithNetRate(t *testing.T) {
	got := Tolerance(commandShipRates(t), 5)
	want := city.Resources{
		city.Population: 1,
		city.Food:       4,
		city.Oxygen:     4,
		city.Water:      5,
		city.Energy:     5,
		city.Minerals:   5,
		city.TechPoints: 5,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tolerance mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectDrift_WithinToleranceIsClean(t *testing.T) {
	expected := startingResources()
	client := expected.Clone()
	client[city.Food] += 4
	client[city.Population] -= 1

	report := DetectDrift(client, expected, commandShipRates(t), 5)
	if report.Detected || len(report.Details) != 0 {
		t.Fatalf("expected no drift, got %+v", report)
	}
}

func TestDetectDrift_FlagsChannelsBeyondTolerance(t *testing.T) {
	expected := startingResources()
	client := expected.Clone()
	client[city.Food] += 5
	delete(client, city.Minerals)

	report := DetectDrift(client, expected, commandShipRates(t), 5)
	if !report.Detected {
		t.Fatalf("expected drift")
	}
	if diff := cmp.Diff([]city.Channel{city.Food, city.Minerals}, report.Channels()); diff != "" {
		t.Fatalf("drift channels mismatch (-want +got):\n%s", diff)
	}
	want := ChannelDrift{Client: 105, Expected: 100, Difference: 5, Tolerance: 4}
	if got := report.Details[city.Food]; got != want {
		t.Fatalf("food drift=%+v want %+v", got, want)
	}
	if got := report.Details[city.Minerals]; got.Client != 0 || got.Difference != 50 {
		t.Fatalf("missing client channel should count as zero, got %+v", got)
	}
}
