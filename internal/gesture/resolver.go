package gesture

// NoGesture is shown in a slot whose hand is absent or unrecognised.
const NoGesture = "no gesture"

// Candidate is one ranked guess for a hand.
type Candidate struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Observation lists, per detected hand in engine order, the candidates for
// that hand in descending confidence.
type Observation [][]Candidate

// Slots are the two positional gesture outputs. Primary follows hand 0 and
// Secondary hand 1; neither implies left or right.
type Slots struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// EmptySlots returns both slots set to NoGesture.
func EmptySlots() Slots {
	return Slots{Primary: NoGesture, Secondary: NoGesture}
}

// Resolve maps an observation onto the slots. It keeps no state: a hand that
// is not reported this time resets its slot.
func Resolve(obs Observation) Slots {
	return Slots{
		Primary:   topLabel(obs, 0),
		Secondary: topLabel(obs, 1),
	}
}

func topLabel(obs Observation, hand int) string {
	if hand >= len(obs) || len(obs[hand]) == 0 {
		return NoGesture
	}
	if label := obs[hand][0].Label; label != "" {
		return label
	}
	return NoGesture
}
