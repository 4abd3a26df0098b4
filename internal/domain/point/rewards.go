package point

// EventKey names a configured reward event.
type EventKey string

const (
	EventSignup         EventKey = "signup"
	EventPostCreated    EventKey = "post_created"
	EventCommentCreated EventKey = "comment_created"
	EventScamReport     EventKey = "scam_report_accepted"
)

// RewardTable maps reward events to point amounts.
type RewardTable map[EventKey]int

// DefaultRewardTable returns the built-in reward amounts. Overridable via
// config for per-environment tuning.
func DefaultRewardTable() RewardTable {
	return RewardTable{
		EventSignup:         1000,
		EventPostCreated:    50,
		EventCommentCreated: 10,
		EventScamReport:     300,
	}
}

// RewardAmount is a tagged variant: either a fixed, configured reward looked up
// by event key, or an explicit override supplied by the caller when the amount
// is data-driven (e.g. a gifticon's point price). The two policies are distinct
// at the type level rather than an untyped optional parameter.
type RewardAmount struct {
	key        EventKey
	override   int
	isOverride bool
}

// Fixed resolves the amount from the configured reward table.
func Fixed(key EventKey) RewardAmount {
	return RewardAmount{key: key}
}

// Override uses the given signed amount directly (negative for debits).
func Override(points int) RewardAmount {
	return RewardAmount{override: points, isOverride: true}
}

// Resolve returns the signed point amount for this reward.
func (a RewardAmount) Resolve(table RewardTable) (int, error) {
	if a.isOverride {
		if a.override == 0 {
			return 0, ErrInvalidAmount
		}
		return a.override, nil
	}

	amount, ok := table[a.key]
	if !ok || amount == 0 {
		return 0, ErrUnknownRewardEvent
	}
	return amount, nil
}
