package analysis

import (
	"github.com/shopspring/decimal"

	"taxtrail/internal/fetcher"
)

// Gini thresholds and the program count under which high inequality is a policy gap.
// Each tier's lower bound is inclusive.
const (
	HighInequalityThreshold     = 45
	ModerateInequalityThreshold = 35
	PolicyGapProgramCount       = 3
)

// SDGAlignment tags every inequality analysis.
const SDGAlignment = "SDG 10 - Reduced Inequalities"

const (
	msgPolicyGap = "High inequality detected but limited social programs found. Policy gap identified."
	msgHigh      = "High income inequality detected. Strong redistribution policies and expanded social welfare programs may be required."
	msgModerate  = "Moderate income inequality observed. Social programs play an important role in wealth redistribution and poverty mitigation."
	msgLow       = "Lower income inequality observed. Current social welfare initiatives appear relatively balanced."
)

// inequalityRule matches when gini >= floor (if bounded) and programs < programsBelow (if set).
type inequalityRule struct {
	floor         decimal.Decimal
	bounded       bool
	programsBelow int
	tier          Classification
	message       string
}

func (r inequalityRule) matches(gini decimal.Decimal, programs int) bool {
	if r.bounded && gini.LessThan(r.floor) {
		return false
	}
	if r.programsBelow > 0 && programs >= r.programsBelow {
		return false
	}
	return true
}

// inequalityTable is evaluated top to bottom; the last row matches everything.
var inequalityTable = []inequalityRule{
	{floor: decimal.NewFromInt(HighInequalityThreshold), bounded: true, programsBelow: PolicyGapProgramCount, tier: HighInequalityPolicyGap, message: msgPolicyGap},
	{floor: decimal.NewFromInt(HighInequalityThreshold), bounded: true, tier: HighInequality, message: msgHigh},
	{floor: decimal.NewFromInt(ModerateInequalityThreshold), bounded: true, tier: ModerateInequality, message: msgModerate},
	{tier: LowInequality, message: msgLow},
}

// InequalityVerdict is the tier and narrative for a Gini index and program count.
type InequalityVerdict struct {
	Tier    Classification
	Message string
}

// ClassifyInequality evaluates the inequality decision table.
func ClassifyInequality(gini decimal.Decimal, totalPrograms int) InequalityVerdict {
	for _, rule := range inequalityTable {
		if rule.matches(gini, totalPrograms) {
			return InequalityVerdict{Tier: rule.tier, Message: rule.message}
		}
	}
	last := inequalityTable[len(inequalityTable)-1]
	return InequalityVerdict{Tier: last.tier, Message: last.message}
}

// ProgramTotals summarises the recorded social programs.
type ProgramTotals struct {
	Count         int
	Budget        decimal.Decimal
	Beneficiaries int64
}

// InequalityAnalysis is the country-wide inequality vs. program coverage report.
type InequalityAnalysis struct {
	Country            string          `json:"country"`
	GiniYear           string          `json:"giniYear"`
	GiniIndex          decimal.Decimal `json:"giniIndex"`
	TotalPrograms      int             `json:"totalPrograms"`
	TotalBudgetUsed    decimal.Decimal `json:"totalBudgetUsed"`
	TotalBeneficiaries int64           `json:"totalBeneficiaries"`
	Classification     Classification  `json:"classification"`
	Analysis           string          `json:"analysis"`
	SDGAlignment       string          `json:"sdgAlignment"`
}

// AnalyzeInequality combines the latest Gini reading with program totals.
func AnalyzeInequality(country string, gini fetcher.IndicatorReading, totals ProgramTotals) InequalityAnalysis {
	verdict := ClassifyInequality(gini.Value, totals.Count)
	return InequalityAnalysis{
		Country:            country,
		GiniYear:           gini.Year,
		GiniIndex:          gini.Value,
		TotalPrograms:      totals.Count,
		TotalBudgetUsed:    totals.Budget,
		TotalBeneficiaries: totals.Beneficiaries,
		Classification:     verdict.Tier,
		Analysis:           verdict.Message,
		SDGAlignment:       SDGAlignment,
	}
}
