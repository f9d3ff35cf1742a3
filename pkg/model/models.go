package model

// CoughType classifies the acoustic character of a cough.
type CoughType string

const (
	CoughTypeDry        CoughType = "dry"
	CoughTypeWet        CoughType = "wet"
	CoughTypeProductive CoughType = "productive"
	CoughTypeBarking    CoughType = "barking"
	CoughTypeWhooping   CoughType = "whooping"
	CoughTypeUnknown    CoughType = "unknown"
	CoughTypeNone       CoughType = "none"
)

// Severity grades how serious a cough sounds. "none" is reserved for
// recordings where no cough was detected.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityNone     Severity = "none"
)

// Likelihood expresses how probable a potential cause is.
type Likelihood string

const (
	LikelihoodLow    Likelihood = "low"
	LikelihoodMedium Likelihood = "medium"
	LikelihoodHigh   Likelihood = "high"
)

// Urgency indicates how quickly medical follow-up is advisable.
type Urgency string

const (
	UrgencyRoutine Urgency = "routine"
	UrgencySoon    Urgency = "soon"
	UrgencyUrgent  Urgency = "urgent"
	UrgencyNone    Urgency = "none"
)

// Documented defaults. Two independently built mobile clients render the
// payload, so absent or malformed fields are always resolved to these values
// rather than surfaced as nulls.
const (
	DefaultCoughType  = CoughTypeUnknown
	DefaultSeverity   = SeverityMild
	DefaultLikelihood = LikelihoodLow
	DefaultUrgency    = UrgencyRoutine
	DefaultConfidence = 0.5
)

// PotentialCause is one condition that could explain the analyzed cough.
type PotentialCause struct {
	Condition   string     `json:"condition"`
	Likelihood  Likelihood `json:"likelihood"`
	Description string     `json:"description"`
}

// Results holds the classification portion of an analysis.
type Results struct {
	CoughType            CoughType        `json:"coughType"`
	Severity             Severity         `json:"severity"`
	Characteristics      []string         `json:"characteristics"`
	PotentialCauses      []PotentialCause `json:"potentialCauses"`
	ManagementApproaches []string         `json:"managementApproaches"`
	Urgency              Urgency          `json:"urgency"`
	Confidence           float64          `json:"confidence"`
}

// Insights holds the descriptive portion of an analysis.
type Insights struct {
	SoundPattern    string   `json:"soundPattern"`
	Frequency       string   `json:"frequency"`
	Duration        string   `json:"duration"`
	AdditionalNotes []string `json:"additionalNotes"`
}

// AnalysisResult is the canonical analysis payload returned to clients and
// persisted server-side. Every field always carries a value.
type AnalysisResult struct {
	AnalysisID string   `json:"analysisId"`
	Timestamp  int64    `json:"timestamp"`
	Results    Results  `json:"results"`
	Insights   Insights `json:"insights"`
}

// StoredAnalysis is an AnalysisResult as persisted under a caller's namespace,
// together with the free-form metadata supplied at analysis time. Records are
// immutable once written.
type StoredAnalysis struct {
	ID string `json:"id"`
	AnalysisResult
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ValidCoughType reports whether v is a documented cough type.
func ValidCoughType(v string) bool {
	switch CoughType(v) {
	case CoughTypeDry, CoughTypeWet, CoughTypeProductive, CoughTypeBarking,
		CoughTypeWhooping, CoughTypeUnknown, CoughTypeNone:
		return true
	}
	return false
}

// ValidSeverity reports whether v is a documented severity.
func ValidSeverity(v string) bool {
	switch Severity(v) {
	case SeverityMild, SeverityModerate, SeveritySevere, SeverityNone:
		return true
	}
	return false
}

// ValidLikelihood reports whether v is a documented likelihood.
func ValidLikelihood(v string) bool {
	switch Likelihood(v) {
	case LikelihoodLow, LikelihoodMedium, LikelihoodHigh:
		return true
	}
	return false
}

// ValidUrgency reports whether v is a documented urgency.
func ValidUrgency(v string) bool {
	switch Urgency(v) {
	case UrgencyRoutine, UrgencySoon, UrgencyUrgent, UrgencyNone:
		return true
	}
	return false
}
