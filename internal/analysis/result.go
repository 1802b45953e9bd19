package analysis

import "strings"

// Decision is the apply/do-not-apply verdict of the analysis service.
type Decision string

const (
	DecisionYes Decision = "Yes"
	DecisionNo  Decision = "No"
)

const (
	// MinCoverLetterScore is the lowest score that still allows a cover letter.
	MinCoverLetterScore = 60
	MinScore            = 0
	MaxScore            = 100
)

// ParseDecision accepts "yes"/"no" in any letter case.
func ParseDecision(s string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return DecisionYes, true
	case "no":
		return DecisionNo, true
	default:
		return "", false
	}
}

// Request is the input of a single analysis pipeline run.
type Request struct {
	JobTitle       string
	JobDescription string
	ResumeFileName string
	Resume         []byte
}

// ExtractedResumeText is the output of the text extraction stage.
type ExtractedResumeText struct {
	Text string `json:"text"`
}

// Result is the consolidated outcome of an analysis.
type Result struct {
	Decision           Decision `json:"decision"`
	Reason             string   `json:"reason"`
	Score              int      `json:"score"`
	CoverLetter        string   `json:"coverLetter"`
	ResumeEnhancements string   `json:"resumeEnhancements"`
}

// Violation names a broken property of a Result.
type Violation string

const (
	ViolationScoreOutOfRange       Violation = "score_out_of_range"
	ViolationCoverLetterNotAllowed Violation = "cover_letter_not_allowed"
)

// CoverLetterAllowed reports whether the decision and score permit a cover letter.
func (r *Result) CoverLetterAllowed() bool {
	return r.Decision == DecisionYes && r.Score >= MinCoverLetterScore
}

// Violations lists the properties the result breaks. Scores outside [0,100]
// are reported here and never clamped.
func (r *Result) Violations() []Violation {
	var violations []Violation

	if r.Score < MinScore || r.Score > MaxScore {
		violations = append(violations, ViolationScoreOutOfRange)
	}

	if r.CoverLetter != "" && !r.CoverLetterAllowed() {
		violations = append(violations, ViolationCoverLetterNotAllowed)
	}

	return violations
}

// EnforceCoverLetter clears a cover letter that the decision or score does not
// allow. It returns true when the result was changed.
func (r *Result) EnforceCoverLetter() bool {
	if r.CoverLetter == "" || r.CoverLetterAllowed() {
		return false
	}

	r.CoverLetter = ""
	return true
}
