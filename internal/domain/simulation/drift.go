package simulation

import (
	"math"

	"oceandepths/internal/domain/city"
)

type ChannelDrift struct {
	Client     int `json:"client"`
	Expected   int `json:"expected"`
	Difference int `json:"difference"`
	Tolerance  int `json:"tolerance"`
}

type DriftReport struct {
	Detected bool                          `json:"drift_detected"`
	Details  map[city.Channel]ChannelDrift `json:"drift_details,omitempty"`
}

// Tolerance is toleranceSeconds worth of net production per channel, plus
// one unit for rounding.
func Tolerance(rates RateReport, toleranceSeconds int) city.Resources {
	out := make(city.Resources, len(city.Channels()))
	for _, c := range city.Channels() {
		perSecond := math.Abs(rates.Net[c]) / 60
		out[c] = int(perSecond*float64(toleranceSeconds)) + 1
	}
	return out
}

// DetectDrift compares a client vector against the expected one. Channels
// the client omits count as zero. The report is diagnostic only.
func DetectDrift(client, expected city.Resources, rates RateReport, toleranceSeconds int) DriftReport {
	tolerance := Tolerance(rates, toleranceSeconds)
	report := DriftReport{}
	for _, c := range city.Channels() {
		diff := client.Get(c) - expected.Get(c)
		if diff < 0 {
			diff = -diff
		}
		if diff <= tolerance[c] {
			continue
		}
		if report.Details == nil {
			report.Details = map[city.Channel]ChannelDrift{}
		}
		report.Detected = true
		report.Details[c] = ChannelDrift{
			Client:     client.Get(c),
			Expected:   expected.Get(c),
			Difference: diff,
			Tolerance:  tolerance[c],
		}
	}
	return report
}

// Channels lists drifting channels in canonical order.
func (r DriftReport) Channels() []city.Channel {
	out := make([]city.Channel, 0, len(r.Details))
	for _, c := range city.Channels() {
		if _, ok := r.Details[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
