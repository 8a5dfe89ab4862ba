package loan

// Transition is one edge of the loan state graph.
type Transition struct {
	From  Status
	To    Status
	Guard string // message reported when the loan is not in From
}

var (
	Review  = Transition{From: StatusPending, To: StatusReviewed, Guard: "loan already processed"}
	Approve = Transition{From: StatusReviewed, To: StatusApproved, Guard: "loan not reviewed yet"}
)

// Check returns a *TransitionError when l cannot take t.
func (t Transition) Check(l *Loan) error {
	if !CanTransition(l.Status, t.To) {
		return &TransitionError{LoanID: l.LoanID, From: l.Status, To: t.To, Guard: t.Guard}
	}
	return nil
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to Status) bool {
	for _, t := range []Transition{Review, Approve} {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}
