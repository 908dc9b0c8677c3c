package simulation

// Tuning holds the per-capita and population constants. The server-side
// values are authoritative; client prediction must mirror them.
type Tuning struct {
	FoodPerCapita   float64 `yaml:"food_per_capita"`
	OxygenPerCapita float64 `yaml:"oxygen_per_capita"`
	WaterPerCapita  float64 `yaml:"water_per_capita"`

	// Growth requires food > P*FoodThreshold, oxygen > P*OxygenThreshold
	// and water > P*WaterThreshold.
	FoodThreshold   float64 `yaml:"food_threshold"`
	OxygenThreshold float64 `yaml:"oxygen_threshold"`
	WaterThreshold  float64 `yaml:"water_threshold"`

	GrowthPerMinute  float64 `yaml:"growth_per_minute"`
	DeclinePerMinute float64 `yaml:"decline_per_minute"`
	PopulationFloor  int     `yaml:"population_floor"`
}

func DefaultTuning() Tuning {
	return Tuning{
		FoodPerCapita:    0.5,
		OxygenPerCapita:  0.3,
		WaterPerCapita:   0.2,
		FoodThreshold:    1,
		OxygenThreshold:  0.5,
		WaterThreshold:   0.3,
		GrowthPerMinute:  0.01,
		DeclinePerMinute: 0.05,
		PopulationFloor:  1,
	}
}
