package service

import (
	"fmt"
	"math"
	"strconv"
)

// The prompt is the primary correctness control of the pipeline: the model's
// output is free text, so the exact target JSON shape is embedded in the
// instructions. The normalizer is a safety net, not the contract.

// systemInstruction pins the model to cough-vs-non-cough discrimination
// before any grading happens.
const systemInstruction = `You are a medical cough detector. Your PRIMARY job is to distinguish between ACTUAL COUGHS and other sounds. A cough is an explosive expulsion from lungs with a distinct sound. Speech, talking, singing, humming, breathing, or other vocalizations are NOT coughs. If unsure, report "no cough detected". NEVER analyze speech as a cough.`

// analysisPromptTemplate carries the task constraints: the three no-cough
// reply shapes, the deliberately conservative severity distribution, and the
// output schema inlined as an example. The %s verb takes the formatted clip
// duration.
const analysisPromptTemplate = `CRITICAL: You must determine if this audio contains an ACTUAL COUGH.

A COUGH is:
- An explosive expulsion of air from lungs
- Has a distinct "cough" sound pattern
- NOT talking, singing, humming, or other vocalizations
- NOT breathing, sighing, or clearing throat gently

If you hear:
- SILENCE: return {"noCoughDetected":true,"message":"No sound detected"}
- SPEECH/TALKING: return {"noCoughDetected":true,"message":"Speech detected, not a cough"}
- OTHER SOUNDS: return {"noCoughDetected":true,"message":"Non-cough sound detected"}

ONLY if you hear an ACTUAL MEDICAL COUGH, analyze it:

Severity (be conservative - err on the side of lower severity):
- MILD (60%% of coughs): Light cough, voluntary cough, single coughs, throat clearing
- MODERATE (35%% of coughs): Typical sick person cough, multiple coughs, productive cough, mild wheeze
- SEVERE (5%% of coughs): RARE - only for extreme distress, uncontrollable coughing fits, gasping for air, stridor

Type (based on sound quality):
- DRY: No mucus, scratchy sound
- WET: Mucus/fluid sounds
- PRODUCTIVE: Clearing mucus
- BARKING: Seal-like sound

If cough detected, return (default to routine urgency unless severe):
{"results":{"coughType":"[actual type]","severity":"[actual severity]","characteristics":["[trait 1]","[trait 2]"],"potentialCauses":[{"condition":"[condition]","likelihood":"high|medium|low","description":"[description]"}],"managementApproaches":["[approach 1]","[approach 2]"],"urgency":"routine|soon|urgent","confidence":0.5},"insights":{"soundPattern":"[what you hear]","frequency":"single","duration":"%ss","additionalNotes":["[note]"]}}

Urgency guide:
- routine: Most coughs (can wait for regular appointment)
- soon: Persistent cough with concerning features
- urgent: ONLY if severe distress, difficulty breathing, or choking`

// BuildAnalysisPrompt renders the per-call task prompt for a clip of the
// given duration.
func BuildAnalysisPrompt(durationSeconds float64) string {
	return fmt.Sprintf(analysisPromptTemplate, formatSeconds(durationSeconds))
}

// formatSeconds renders a duration to one decimal. Halves round away from
// zero, so 3.25 becomes "3.3" rather than the "3.2" of %.1f.
func formatSeconds(d float64) string {
	return strconv.FormatFloat(math.Round(d*10)/10, 'f', 1, 64)
}

// SystemInstruction returns the fixed system instruction.
func SystemInstruction() string {
	return systemInstruction
}
