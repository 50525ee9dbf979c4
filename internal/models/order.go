package models

// OrderResult is the terminal state of one order workflow.
type OrderResult int

const (
	Ordered OrderResult = iota
	Skipped
	Failed
)

func (r OrderResult) String() string {
	switch r {
	case Ordered:
		return "ordered"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// OrderOutcome carries the result and, for failures, a human readable reason.
type OrderOutcome struct {
	Result OrderResult
	Reason string
}
