package entities

// Urgency of irrigation, ordered from NONE to CRITICAL.
type Urgency string

const (
	UrgencyNone     Urgency = "NONE"
	UrgencyLow      Urgency = "LOW"
	UrgencyModerate Urgency = "MODERATE"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyCritical Urgency = "CRITICAL"
)

var urgencyLadder = []Urgency{UrgencyNone, UrgencyLow, UrgencyModerate, UrgencyHigh, UrgencyCritical}

func (u Urgency) level() int {
	for i, v := range urgencyLadder {
		if v == u {
			return i
		}
	}
	return 0
}

// Score maps the urgency onto 0..100 in steps of 25.
func (u Urgency) Score() int { return u.level() * 25 }

// Downgrade lowers the urgency by one step. CRITICAL and NONE are returned unchanged.
func (u Urgency) Downgrade() Urgency {
	if u == UrgencyCritical || u == UrgencyNone {
		return u
	}
	return urgencyLadder[u.level()-1]
}

type Decision string

const (
	DecisionIrrigateNow  Decision = "irrigate_now"
	DecisionIrrigateSoon Decision = "irrigate_soon"
	DecisionDoNot        Decision = "do_not_irrigate"
)

func (d Decision) Irrigates() bool { return d == DecisionIrrigateNow || d == DecisionIrrigateSoon }

type StressLevel string

const (
	StressNone     StressLevel = "none"
	StressMild     StressLevel = "mild"
	StressModerate StressLevel = "moderate"
	StressSevere   StressLevel = "severe"
)
