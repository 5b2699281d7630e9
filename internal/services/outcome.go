package services

// Outcome classifies a finished pass. Hard failures are returned as errors instead.
type Outcome string

const (
	// OutcomeSkipped means there was nothing to do (no data rows).
	OutcomeSkipped Outcome = "skipped"
	// OutcomeSuccess means every row was handled.
	OutcomeSuccess Outcome = "success"
	// OutcomePartial means the pass completed but some rows were left unresolved.
	OutcomePartial Outcome = "partial"
)
