package model

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAnalysisResult_EmptyInput(t *testing.T) {
	for _, input := range []map[string]any{nil, {}} {
		got := DecodeAnalysisResult(input)

		assert.Equal(t, "", got.AnalysisID)
		assert.Equal(t, int64(0), got.Timestamp)
		assert.Equal(t, DefaultCoughType, got.Results.CoughType)
		assert.Equal(t, DefaultSeverity, got.Results.Severity)
		assert.Equal(t, DefaultUrgency, got.Results.Urgency)
		assert.Equal(t, DefaultConfidence, got.Results.Confidence)
		assert.NotNil(t, got.Results.Characteristics)
		assert.Empty(t, got.Results.Characteristics)
		assert.NotNil(t, got.Results.PotentialCauses)
		assert.NotNil(t, got.Results.ManagementApproaches)
		assert.Equal(t, "", got.Insights.SoundPattern)
		assert.NotNil(t, got.Insights.AdditionalNotes)
	}
}

func TestDecodeResults_MistypedFields(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		check func(t *testing.T, r Results)
	}{
		{
			name:  "coughType outside enum falls back to unknown",
			input: map[string]any{"coughType": "sneeze"},
			check: func(t *testing.T, r Results) {
				assert.Equal(t, CoughTypeUnknown, r.CoughType)
			},
		},
		{
			name:  "severity as number falls back to mild",
			input: map[string]any{"severity": 3.0},
			check: func(t *testing.T, r Results) {
				assert.Equal(t, SeverityMild, r.Severity)
			},
		},
		{
			name:  "confidence above range is clamped",
			input: map[string]any{"confidence": 4.2},
			check: func(t *testing.T, r Results) {
				assert.Equal(t, 1.0, r.Confidence)
			},
		},
		{
			name:  "confidence below range is clamped",
			input: map[string]any{"confidence": -0.5},
			check: func(t *testing.T, r Results) {
				assert.Equal(t, 0.0, r.Confidence)
			},
		},
		{
			name:  "confidence as integer is accepted",
			input: map[string]any{"confidence": 1},
			check: func(t *testing.T, r Results) {
				assert.Equal(t, 1.0, r.Confidence)
			},
		},
		{
			name:  "non-string list elements are dropped",
			input: map[string]any{"characteristics": []any{"dry sound", 7, nil, "short bursts"}},
			check: func(t *testing.T, r Results) {
				assert.Equal(t, []string{"dry sound", "short bursts"}, r.Characteristics)
			},
		},
		{
			name: "cause with missing likelihood gets default",
			input: map[string]any{"potentialCauses": []any{
				map[string]any{"condition": "Common Cold", "description": "Frequent cause"},
				"not an object",
			}},
			check: func(t *testing.T, r Results) {
				require.Len(t, r.PotentialCauses, 1)
				assert.Equal(t, "Common Cold", r.PotentialCauses[0].Condition)
				assert.Equal(t, LikelihoodLow, r.PotentialCauses[0].Likelihood)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, DecodeResults(tt.input))
		})
	}
}

func TestDecodeAnalysisResult_ValidPayloadPassesThrough(t *testing.T) {
	raw := `{
		"analysisId": "a-1",
		"timestamp": 1712345678901,
		"results": {
			"coughType": "wet",
			"severity": "moderate",
			"characteristics": ["productive sound"],
			"potentialCauses": [{"condition": "Bronchitis", "likelihood": "medium", "description": "Inflammation of bronchial tubes"}],
			"managementApproaches": ["Stay hydrated"],
			"urgency": "soon",
			"confidence": 0.85
		},
		"insights": {
			"soundPattern": "wet rattling",
			"frequency": "repeated",
			"duration": "3.0 seconds",
			"additionalNotes": ["note"]
		}
	}`

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	got := DecodeAnalysisResult(m)
	assert.Equal(t, "a-1", got.AnalysisID)
	assert.Equal(t, int64(1712345678901), got.Timestamp)
	assert.Equal(t, CoughTypeWet, got.Results.CoughType)
	assert.Equal(t, SeverityModerate, got.Results.Severity)
	assert.Equal(t, UrgencySoon, got.Results.Urgency)
	assert.Equal(t, 0.85, got.Results.Confidence)
	assert.Equal(t, "wet rattling", got.Insights.SoundPattern)
	assert.Equal(t, "3.0 seconds", got.Insights.Duration)
}

func genCoughType() gopter.Gen {
	return gen.OneConstOf(CoughTypeDry, CoughTypeWet, CoughTypeProductive,
		CoughTypeBarking, CoughTypeWhooping, CoughTypeUnknown, CoughTypeNone)
}

func genSeverity() gopter.Gen {
	return gen.OneConstOf(SeverityMild, SeverityModerate, SeveritySevere, SeverityNone)
}

func genUrgency() gopter.Gen {
	return gen.OneConstOf(UrgencyRoutine, UrgencySoon, UrgencyUrgent, UrgencyNone)
}

func genLikelihood() gopter.Gen {
	return gen.OneConstOf(LikelihoodLow, LikelihoodMedium, LikelihoodHigh)
}

func genCause() gopter.Gen {
	return gopter.CombineGens(
		gen.AlphaString(),
		genLikelihood(),
		gen.AlphaString(),
	).Map(func(vs []any) PotentialCause {
		return PotentialCause{
			Condition:   vs[0].(string),
			Likelihood:  vs[1].(Likelihood),
			Description: vs[2].(string),
		}
	})
}

func genStrings() gopter.Gen {
	return gen.SliceOf(gen.AlphaString()).Map(func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return s
	})
}

func genAnalysisResult() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.Int64Range(0, 1<<52),
		genCoughType(),
		genSeverity(),
		genStrings(),
		gen.SliceOf(genCause()).Map(func(cs []PotentialCause) []PotentialCause {
			if cs == nil {
				return []PotentialCause{}
			}
			return cs
		}),
		genStrings(),
		genUrgency(),
		gen.Float64Range(0, 1),
		genStrings(),
	).Map(func(vs []any) AnalysisResult {
		return AnalysisResult{
			AnalysisID: vs[0].(string),
			Timestamp:  vs[1].(int64),
			Results: Results{
				CoughType:            vs[2].(CoughType),
				Severity:             vs[3].(Severity),
				Characteristics:      vs[4].([]string),
				PotentialCauses:      vs[5].([]PotentialCause),
				ManagementApproaches: vs[6].([]string),
				Urgency:              vs[7].(Urgency),
				Confidence:           vs[8].(float64),
			},
			Insights: Insights{
				SoundPattern:    "pattern",
				Frequency:       "single",
				Duration:        "1.0 seconds",
				AdditionalNotes: vs[9].([]string),
			},
		}
	})
}

// Any result whose fields are within their documented ranges must survive an
// encode/decode round trip unchanged.
func TestProperty_DecodeRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(x)) == x", prop.ForAll(
		func(r AnalysisResult) bool {
			data, err := json.Marshal(r)
			if err != nil {
				return false
			}
			var m map[string]any
			if err := json.Unmarshal(data, &m); err != nil {
				return false
			}
			decoded := DecodeAnalysisResult(m)
			redata, err := json.Marshal(decoded)
			if err != nil {
				return false
			}
			return string(data) == string(redata)
		},
		genAnalysisResult(),
	))

	properties.TestingRun(t)
}

// Decoding never panics and always yields in-range enum values, whatever the
// input shape.
func TestProperty_DecodeIsTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("arbitrary maps decode to valid results", prop.ForAll(
		func(coughType, severity string, confidence float64) bool {
			r := DecodeResults(map[string]any{
				"coughType":  coughType,
				"severity":   severity,
				"confidence": confidence,
			})
			return ValidCoughType(string(r.CoughType)) &&
				ValidSeverity(string(r.Severity)) &&
				r.Confidence >= 0 && r.Confidence <= 1
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.Float64(),
	))

	properties.TestingRun(t)
}
