package models

// ComparisonSummary holds aggregate counts for a run.
// Total always equals Passed + Failed + New + Missing.
type ComparisonSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	New     int `json:"new"`
	Missing int `json:"missing"`
}

// Compared returns the number of screenshots that had a baseline to compare against
func (s ComparisonSummary) Compared() int {
	return s.Total - s.New
}

// ComparisonReport is the record produced once per run and handed to
// renderers and persistence. It is read-only after construction.
type ComparisonReport struct {
	Timestamp         string             `json:"timestamp"`
	BaselineAlias     string             `json:"baselineAlias"`
	BaselineCommitSHA string             `json:"baselineCommitSha"`
	BaselineIsPublic  bool               `json:"baselineIsPublic"`
	CurrentCommitSHA  string             `json:"currentCommitSha"`
	Threshold         float64            `json:"threshold"`
	Results           []ComparisonResult `json:"results"`
	Summary           ComparisonSummary  `json:"summary"`
}

// Failures returns the results classified as failed
func (r *ComparisonReport) Failures() []ComparisonResult {
	var failed []ComparisonResult
	for _, res := range r.Results {
		if res.Status == StatusFail {
			failed = append(failed, res)
		}
	}
	return failed
}

// HasFailedDiffs reports whether at least one failed result produced a diff artifact
func (r *ComparisonReport) HasFailedDiffs() bool {
	for _, res := range r.Results {
		if res.Status == StatusFail && res.HasDiffArtifact() {
			return true
		}
	}
	return false
}

// Verdict represents the overall result of a run
type Verdict string

const (
	// VerdictPass indicates no failed or missing screenshots
	VerdictPass Verdict = "pass"
	// VerdictFail indicates at least one failed or missing screenshot
	VerdictFail Verdict = "fail"
	// VerdictError indicates the run could not complete
	VerdictError Verdict = "error"
)

// ExitCode returns the appropriate exit code for the verdict
func (v Verdict) ExitCode() int {
	switch v {
	case VerdictPass:
		return 0
	case VerdictFail:
		return 1
	default:
		return 2
	}
}
