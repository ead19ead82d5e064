package enums

type DecisionKind string

const (
	DecisionLike      DecisionKind = "LIKE"
	DecisionSuperLike DecisionKind = "SUPERLIKE"
	DecisionPass      DecisionKind = "PASS"
	DecisionUnmatched DecisionKind = "UNMATCHED"
)

func (k DecisionKind) Positive() bool {
	return k == DecisionLike || k == DecisionSuperLike
}

func (k DecisionKind) Valid() bool {
	switch k {
	case DecisionLike, DecisionSuperLike, DecisionPass, DecisionUnmatched:
		return true
	default:
		return false
	}
}
