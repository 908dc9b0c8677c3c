package city

type Channel string

const (
	Population Channel = "population"
	Food       Channel = "food"
	Oxygen     Channel = "oxygen"
	Water      Channel = "water"
	Energy     Channel = "energy"
	Minerals   Channel = "minerals"
	TechPoints Channel = "tech_points"
)

// Channels is the closed, ordered set of resource channels.
func Channels() []Channel {
	return []Channel{Population, Food, Oxygen, Water, Energy, Minerals, TechPoints}
}

func IsChannel(c Channel) bool {
	for _, known := range Channels() {
		if c == known {
			return true
		}
	}
	return false
}

// Resources is a per-channel integer vector. It is used both for quantities
// and for capacity ceilings.
type Resources map[Channel]int

func (r Resources) Get(c Channel) int {
	if r == nil {
		return 0
	}
	return r[c]
}

func (r Resources) Clone() Resources {
	out := make(Resources, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Covers reports whether every channel in cost is met, returning the first
// channel in canonical order that is short.
func (r Resources) Covers(cost Resources) (Channel, bool) {
	for _, c := range Channels() {
		need := cost.Get(c)
		if need <= 0 {
			continue
		}
		if r.Get(c) < need {
			return c, false
		}
	}
	return "", true
}

func (r Resources) Deduct(cost Resources) Resources {
	out := r.Clone()
	for c, need := range cost {
		if need <= 0 {
			continue
		}
		out[c] = out.Get(c) - need
	}
	return out
}

// AddCapped adds amounts channel by channel without exceeding capacity.
func (r Resources) AddCapped(amounts, capacity Resources) Resources {
	out := r.Clone()
	for c, amount := range amounts {
		if amount <= 0 {
			continue
		}
		v := out.Get(c) + amount
		if limit, ok := capacity[c]; ok && v > limit {
			v = limit
		}
		out[c] = v
	}
	return out
}

// Normalize returns a vector holding every channel, filling gaps from fallback.
func (r Resources) Normalize(fallback Resources) Resources {
	out := make(Resources, len(Channels()))
	for _, c := range Channels() {
		if v, ok := r[c]; ok {
			out[c] = v
			continue
		}
		out[c] = fallback.Get(c)
	}
	return out
}
