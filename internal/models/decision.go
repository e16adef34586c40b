package models

// DecisionAction is the driving action recommended by the AI provider.
type DecisionAction string

const (
	ActionContinue  DecisionAction = "continue"
	ActionReroute   DecisionAction = "reroute"
	ActionRefuel    DecisionAction = "refuel"
	ActionSlowDown  DecisionAction = "slow_down"
	ActionSpeedUp   DecisionAction = "speed_up"
	ActionRestBreak DecisionAction = "rest_break"
)

// AIDecision is one driving decision for one vehicle. The provider may
// return nothing at all while a vehicle is inside its decision cooldown.
type AIDecision struct {
	Action         DecisionAction `json:"action"`
	Reasoning      string         `json:"reasoning"`
	TargetSpeedKmh float64        `json:"target_speed_kmh,omitempty"`
	Priority       int            `json:"priority"`   // 1 (low) .. 5 (urgent)
	Confidence     float64        `json:"confidence"` // [0,1]
}

// SpeedAdjustment maps the decision to the multiplier the engine applies
// this tick. Actions without a speed effect map to 1.
func (d *AIDecision) SpeedAdjustment() float64 {
	switch d.Action {
	case ActionSlowDown:
		return 0.7
	case ActionSpeedUp:
		return 1.2
	default:
		return 1.0
	}
}
