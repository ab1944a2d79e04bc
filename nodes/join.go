package nodes

// JoinKind represents the type of SQL JOIN.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	CrossJoin
	CrossApply
)

// String returns the SQL keyword for this join kind.
func (k JoinKind) String() string {
	switch k {
	case InnerJoin:
		return "INNER JOIN"
	case CrossJoin:
		return "CROSS JOIN"
	case CrossApply:
		return "CROSS APPLY"
	default:
		return "JOIN"
	}
}

// Join combines two sources. On is nil for CROSS JOIN and CROSS APPLY.
type Join struct {
	Kind  JoinKind
	Left  Node
	Right Node
	On    Node
}

func (n *Join) Accept(v Visitor) string { return v.VisitJoin(n) }
