package service

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/twintipsolutions/cough-backend/internal/observability"
	"github.com/twintipsolutions/cough-backend/pkg/model"
)

// Normalizer converts arbitrary model text into the canonical result shape.
// It is total: it can degrade confidence but it cannot fail the request, so
// no raw model text ever leaks to a client.
type Normalizer struct {
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(metrics *observability.Metrics, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		metrics: metrics,
		logger:  logger,
	}
}

var (
	coughTypePattern = regexp.MustCompile(`(?i)dry|wet|productive|barking|whooping`)
	severityPattern  = regexp.MustCompile(`(?i)mild|moderate|severe`)
)

// Normalize extracts a structured result from raw model text, in priority
// order: embedded JSON object, no-cough signal, then keyword matching.
func (n *Normalizer) Normalize(text string, durationSeconds float64) model.AnalysisResult {
	if obj := extractJSONObject(text); obj != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(obj), &m); err == nil {
			if isNoCoughSignal(m) {
				n.metrics.IncNormalizerDegraded("no_cough")
				message, _ := m["message"].(string)
				return NoCoughResult(durationSeconds, message)
			}
			if _, ok := m["results"]; ok {
				return model.DecodeAnalysisResult(m)
			}
			n.logger.Warn("model JSON lacks results object, using keyword extraction")
		} else {
			n.logger.Warn("failed to parse extracted JSON", zap.Error(err))
		}
	}

	n.metrics.IncNormalizerDegraded("keyword")
	return n.keywordFallback(text, durationSeconds)
}

func isNoCoughSignal(m map[string]any) bool {
	v, ok := m["noCoughDetected"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// NoCoughResult is the canonical result for a recording without an
// analyzable cough. This is a valid analysis outcome, not a failure.
func NoCoughResult(durationSeconds float64, reason string) model.AnalysisResult {
	if reason == "" {
		reason = "No cough detected in this recording"
	}
	return model.AnalysisResult{
		Results: model.Results{
			CoughType:            model.CoughTypeNone,
			Severity:             model.SeverityNone,
			Characteristics:      []string{"No cough detected"},
			PotentialCauses:      []model.PotentialCause{},
			ManagementApproaches: []string{"Please record a clear cough sound for analysis"},
			Urgency:              model.UrgencyNone,
			Confidence:           1.0,
		},
		Insights: model.Insights{
			SoundPattern:    "No cough pattern detected",
			Frequency:       "N/A",
			Duration:        formatSeconds(durationSeconds) + " seconds",
			AdditionalNotes: []string{reason},
		},
	}
}

// keywordFallback synthesizes a low-confidence result from cough-type and
// severity vocabulary found in the raw text.
func (n *Normalizer) keywordFallback(text string, durationSeconds float64) model.AnalysisResult {
	coughType := model.DefaultCoughType
	if match := coughTypePattern.FindString(text); match != "" {
		coughType = model.CoughType(strings.ToLower(match))
	}
	severity := model.DefaultSeverity
	if match := severityPattern.FindString(text); match != "" {
		severity = model.Severity(strings.ToLower(match))
	}

	return model.AnalysisResult{
		Results: model.Results{
			CoughType: coughType,
			Severity:  severity,
			Characteristics: []string{
				"Unable to determine specific characteristics",
				"Duration: " + formatSeconds(durationSeconds) + " seconds",
			},
			PotentialCauses: genericCauses(coughType),
			ManagementApproaches: []string{
				"Recording quality may affect analysis accuracy",
				"Quiet environments are generally preferred for audio clarity",
				"Healthcare consultation is commonly advised for persistent symptoms",
			},
			Urgency:    model.UrgencyRoutine,
			Confidence: 0.3,
		},
		Insights: model.Insights{
			SoundPattern: "Unable to analyze pattern clearly",
			Frequency:    "Single recording",
			Duration:     formatSeconds(durationSeconds) + " seconds",
			AdditionalNotes: []string{
				"Analysis was incomplete",
				"Try recording again for better results",
			},
		},
	}
}

// genericCauses returns canned potential causes keyed off the coarse type
// category detected by the fallback extractor.
func genericCauses(coughType model.CoughType) []model.PotentialCause {
	switch coughType {
	case model.CoughTypeDry:
		return []model.PotentialCause{
			{Condition: "Post-viral Cough", Likelihood: model.LikelihoodMedium, Description: "Common after respiratory infections"},
			{Condition: "Allergies", Likelihood: model.LikelihoodMedium, Description: "Environmental triggers may be present"},
			{Condition: "GERD", Likelihood: model.LikelihoodLow, Description: "Acid reflux can cause chronic dry cough"},
		}
	case model.CoughTypeWet, model.CoughTypeProductive:
		return []model.PotentialCause{
			{Condition: "Common Cold", Likelihood: model.LikelihoodHigh, Description: "Most frequent cause of acute cough"},
			{Condition: "Bronchitis", Likelihood: model.LikelihoodMedium, Description: "Inflammation of bronchial tubes"},
			{Condition: "Sinusitis", Likelihood: model.LikelihoodLow, Description: "Post-nasal drip causing cough"},
		}
	default:
		return []model.PotentialCause{
			{Condition: "Various Conditions", Likelihood: model.LikelihoodMedium, Description: "Unable to determine specific cause from recording"},
			{Condition: "Environmental Factors", Likelihood: model.LikelihoodMedium, Description: "Consider air quality and allergens"},
		}
	}
}

// extractJSONObject returns the first balanced top-level JSON object in text,
// or "" when none exists. Braces inside string literals are ignored. Markdown
// code fences are tolerated since models frequently wrap replies in them.
func extractJSONObject(text string) string {
	text = stripCodeFences(text)

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
