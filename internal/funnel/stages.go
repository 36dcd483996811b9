package funnel

// Stage is a contact's position in the AIDA sales pipeline.
// Values are stable; they are stored in Postgres and embedded in automation recipes.
type Stage string

const (
	StageAwareness Stage = "AWARENESS"
	StageInterest  Stage = "INTEREST"
	StageDesire    Stage = "DESIRE"
	StageAction    Stage = "ACTION"
)

// Stages lists all stages in pipeline order.
var Stages = []Stage{StageAwareness, StageInterest, StageDesire, StageAction}

// Labels maps stages to display names.
var Labels = map[Stage]string{
	StageAwareness: "Awareness",
	StageInterest:  "Interest",
	StageDesire:    "Desire",
	StageAction:    "Action",
}

// ConversionPair is a from->to transition tracked for conversion reporting.
type ConversionPair struct {
	From Stage
	To   Stage
}

// ConversionPairs are the adjacent transitions reported as conversions.
var ConversionPairs = []ConversionPair{
	{From: StageAwareness, To: StageInterest},
	{From: StageInterest, To: StageDesire},
	{From: StageDesire, To: StageAction},
}

func (s Stage) IsValid() bool {
	switch s {
	case StageAwareness, StageInterest, StageDesire, StageAction:
		return true
	default:
		return false
	}
}
