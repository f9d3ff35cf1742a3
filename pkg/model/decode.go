package model

import (
	"encoding/json"
	"math"
)

// Decoding in this file is the single trust boundary between untyped JSON
// (an AI model's reply, a stored record from an older schema revision, a
// server response on a client) and the typed AnalysisResult. It is total:
// any input, including nil, yields a fully populated result with documented
// defaults in place of absent or mistyped fields. The same rules apply on
// every boundary so that independent consumers render identical payloads.

// DecodeAnalysisResult decodes an untyped map into an AnalysisResult,
// resolving every absent or malformed field to its documented default.
func DecodeAnalysisResult(m map[string]any) AnalysisResult {
	return AnalysisResult{
		AnalysisID: asString(m["analysisId"], ""),
		Timestamp:  asInt64(m["timestamp"], 0),
		Results:    DecodeResults(asMap(m["results"])),
		Insights:   DecodeInsights(asMap(m["insights"])),
	}
}

// DecodeResults decodes the classification portion of an analysis.
func DecodeResults(m map[string]any) Results {
	return Results{
		CoughType:            decodeCoughType(m["coughType"]),
		Severity:             decodeSeverity(m["severity"]),
		Characteristics:      asStringSlice(m["characteristics"]),
		PotentialCauses:      decodeCauses(m["potentialCauses"]),
		ManagementApproaches: asStringSlice(m["managementApproaches"]),
		Urgency:              decodeUrgency(m["urgency"]),
		Confidence:           clampConfidence(asFloat(m["confidence"], DefaultConfidence)),
	}
}

// DecodeInsights decodes the descriptive portion of an analysis.
func DecodeInsights(m map[string]any) Insights {
	return Insights{
		SoundPattern:    asString(m["soundPattern"], ""),
		Frequency:       asString(m["frequency"], ""),
		Duration:        asString(m["duration"], ""),
		AdditionalNotes: asStringSlice(m["additionalNotes"]),
	}
}

func decodeCauses(v any) []PotentialCause {
	items, ok := v.([]any)
	if !ok {
		return []PotentialCause{}
	}
	causes := make([]PotentialCause, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		causes = append(causes, PotentialCause{
			Condition:   asString(m["condition"], ""),
			Likelihood:  decodeLikelihood(m["likelihood"]),
			Description: asString(m["description"], ""),
		})
	}
	return causes
}

func decodeCoughType(v any) CoughType {
	if s, ok := v.(string); ok && ValidCoughType(s) {
		return CoughType(s)
	}
	return DefaultCoughType
}

func decodeSeverity(v any) Severity {
	if s, ok := v.(string); ok && ValidSeverity(s) {
		return Severity(s)
	}
	return DefaultSeverity
}

func decodeLikelihood(v any) Likelihood {
	if s, ok := v.(string); ok && ValidLikelihood(s) {
		return Likelihood(s)
	}
	return DefaultLikelihood
}

func decodeUrgency(v any) Urgency {
	if s, ok := v.(string); ok && ValidUrgency(s) {
		return Urgency(s)
	}
	return DefaultUrgency
}

func clampConfidence(f float64) float64 {
	if math.IsNaN(f) {
		return DefaultConfidence
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func asFloat(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return def
}

func asInt64(v any, def int64) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	return def
}

// asStringSlice keeps string elements and drops everything else, always
// returning a non-nil slice.
func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
