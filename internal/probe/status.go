package probe

// Status classifies the outcome of a single probe.
type Status string

const (
	StatusSkipped Status = "skipped"
	StatusMissing Status = "missing"
	StatusPassed  Status = "passed"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)

// Severity gives the total reporting order:
// Skipped < Missing < Passed < Warning < Failed.
func (s Status) Severity() int {
	switch s {
	case StatusSkipped:
		return 0
	case StatusMissing:
		return 1
	case StatusPassed:
		return 2
	case StatusWarning:
		return 3
	case StatusFailed:
		return 4
	default:
		return -1
	}
}

// Result is one probe outcome. Details is set only for passed or warning
// results, Error only for failed ones; every probe yields exactly one
// Result.
type Result struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Details any    `json:"details,omitempty"`
	Error   string `json:"error,omitempty"`
}
