package assign

// ResultStatus is the per-item status reported by the server
type ResultStatus string

const (
	StatusSuccess ResultStatus = "SUCCESS"
	StatusSkipped ResultStatus = "SKIPPED"
	StatusFailed  ResultStatus = "FAILED"
)

// Summary holds the aggregate counts of a bulk response
type Summary struct {
	TotalRequested int `json:"total_requested"`
	Successful     int `json:"successful"`
	Skipped        int `json:"skipped"`
	Failed         int `json:"failed"`
}

// ItemResult is the outcome for one user / package-session pair
type ItemResult struct {
	UserID           string       `json:"user_id,omitempty"`
	PackageSessionID string       `json:"package_session_id"`
	Status           ResultStatus `json:"status"`
	ActionTaken      string       `json:"action_taken"`
	Message          string       `json:"message,omitempty"`
	Warning          string       `json:"warning,omitempty"`
	EnrollmentID     string       `json:"enrollment_id,omitempty"`
}

// BulkResponse is returned by both bulk endpoints, dry run or not
type BulkResponse struct {
	DryRun  bool         `json:"dry_run"`
	Summary Summary      `json:"summary"`
	Results []ItemResult `json:"results"`
}

// Outcome classifies a bulk response by its summary counts
type Outcome int

const (
	// OutcomeEmpty means the server processed nothing
	OutcomeEmpty Outcome = iota
	// OutcomeSuccess means every item succeeded
	OutcomeSuccess
	// OutcomePartial means a mix of succeeded, skipped and failed items
	OutcomePartial
	// OutcomeNoop means nothing succeeded and nothing failed
	OutcomeNoop
	// OutcomeFailed means nothing succeeded and at least one item failed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartial:
		return "partial"
	case OutcomeNoop:
		return "noop"
	case OutcomeFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Outcome derives the overall outcome from the summary only
func (r *BulkResponse) Outcome() Outcome {
	s := r.Summary
	switch {
	case s.Successful == 0 && s.Skipped == 0 && s.Failed == 0:
		return OutcomeEmpty
	case s.Successful > 0 && s.Skipped == 0 && s.Failed == 0:
		return OutcomeSuccess
	case s.Successful == 0 && s.Failed > 0:
		return OutcomeFailed
	case s.Successful == 0:
		return OutcomeNoop
	default:
		return OutcomePartial
	}
}

// ByStatus returns the results with the given status
func (r *BulkResponse) ByStatus(status ResultStatus) []ItemResult {
	var out []ItemResult
	for _, res := range r.Results {
		if res.Status == status {
			out = append(out, res)
		}
	}
	return out
}
