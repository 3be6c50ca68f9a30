package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxtrail/internal/apperr"
	"taxtrail/internal/storage"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
}

func validProgram() storage.SocialProgram {
	return storage.SocialProgram{
		ProgramName:        "Samurdhi Relief",
		Sector:             "Welfare",
		TargetGroup:        "Low Income",
		BeneficiariesCount: 1000,
		BudgetUsed:         decimal.NewFromInt(5_000_000),
		Year:               2024,
		RegionID:           uuid.NewString(),
	}
}

func details(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, apperr.Validation)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	return appErr.Details
}

func TestProgramValid(t *testing.T) {
	assert.NoError(t, New(fixedClock()).Program(validProgram()))
}

func TestProgramBusinessRules(t *testing.T) {
	v := New(fixedClock())

	p := validProgram()
	p.BeneficiariesCount = 0
	assert.Contains(t, details(t, v.Program(p)), "Beneficiaries count must be greater than zero for Low Income target group")

	p = validProgram()
	p.Year = 2026
	assert.Contains(t, details(t, v.Program(p)), "Program year cannot exceed current year (2025)")

	p = validProgram()
	p.BeneficiariesCount = 2
	p.BudgetUsed = decimal.NewFromInt(2_000_001)
	assert.Contains(t, details(t, v.Program(p)), "Budget per beneficiary exceeds threshold (1,000,000 per person)")

	p = validProgram()
	p.BeneficiariesCount = 2
	p.BudgetUsed = decimal.NewFromInt(2_000_000)
	assert.NoError(t, v.Program(p), "exactly the per-person limit is allowed")

	p = validProgram()
	p.BudgetUsed = decimal.NewFromInt(1_000_000_001)
	p.BeneficiariesCount = 100_000
	assert.Contains(t, details(t, v.Program(p)), "Budget cannot exceed 1 billion")
}

func TestProgramCollectsEveryViolation(t *testing.T) {
	p := storage.SocialProgram{
		ProgramName: strings.Repeat("x", 101),
		Sector:      "Space",
		TargetGroup: "Everyone",
		BudgetUsed:  decimal.NewFromInt(-1),
		Year:        1800,
		RegionID:    "not-a-uuid",
	}
	got := details(t, New(fixedClock()).Program(p))
	assert.Len(t, got, 6)
	assert.Contains(t, got, "Program name must not exceed 100 characters")
	assert.Contains(t, got, "Invalid region ID format")
}

func TestTax(t *testing.T) {
	v := New(nil)
	ok := storage.TaxContribution{PayerType: "Individual", IncomeBracket: "Low", TaxType: "VAT", Amount: decimal.NewFromInt(10), Year: 2024, RegionID: uuid.NewString()}
	assert.NoError(t, v.Tax(ok))

	bad := ok
	bad.PayerType = "Robot"
	bad.Amount = decimal.NewFromInt(-5)
	bad.Year = 1999
	bad.RegionID = ""
	assert.ElementsMatch(t, []string{"Invalid payer type", "Amount must be positive", "Invalid year", "Region is required"}, details(t, v.Tax(bad)))
}

func TestBudget(t *testing.T) {
	v := New(nil)
	ok := storage.BudgetAllocation{Sector: "Health", AllocatedAmount: decimal.NewFromInt(100), TargetIncomeGroup: "Middle", Year: 2023, RegionID: uuid.NewString()}
	assert.NoError(t, v.Budget(ok))

	bad := ok
	bad.Sector = "Welfare State"
	bad.TargetIncomeGroup = "Medium"
	got := details(t, v.Budget(bad))
	assert.Len(t, got, 2)
}

func TestDevelopmentDefaultsAccessIndex(t *testing.T) {
	d := storage.RegionalDevelopment{RegionName: " Uva ", Year: 2024, PovertyRate: decimal.NewFromFloat(12.5)}
	require.NoError(t, New(nil).Development(&d))
	assert.Equal(t, "Uva", d.RegionName)
	assert.True(t, d.AccessToServicesIndex.Equal(decimal.NewFromInt(50)))

	d = storage.RegionalDevelopment{RegionName: "Atlantis", Year: 2031, AccessToServicesIndex: decimal.NewFromInt(101)}
	assert.Len(t, details(t, New(nil).Development(&d)), 3)
}

func TestIncomeBracketFilter(t *testing.T) {
	v := New(nil)
	assert.NoError(t, v.IncomeBracket(""))
	assert.NoError(t, v.IncomeBracket("High"))
	assert.ErrorIs(t, v.IncomeBracket("Rich"), apperr.Validation)
}

func TestParseYear(t *testing.T) {
	y, err := ParseYear("2024")
	require.NoError(t, err)
	assert.Equal(t, 2024, y)

	for _, raw := range []string{"", "abc", "2024abc", "-1"} {
		_, err := ParseYear(raw)
		assert.ErrorIs(t, err, apperr.Validation, raw)
	}
}

func TestDevelopmentRateRanges(t *testing.T) {
	d := storage.RegionalDevelopment{
		RegionName:       "Western",
		Year:             2024,
		AverageIncome:    decimal.NewFromInt(-1),
		UnemploymentRate: decimal.RequireFromString("100.5"),
		PovertyRate:      decimal.RequireFromString("12345"),
	}
	got := details(t, New(nil).Development(&d))
	assert.ElementsMatch(t, []string{
		"Average income must be a positive number",
		"Unemployment rate must be between 0 and 100",
		"Poverty rate must be between 0 and 100",
	}, got)

	d = storage.RegionalDevelopment{RegionName: "Western", Year: 2024, UnemploymentRate: decimal.NewFromInt(100), PovertyRate: decimal.Zero}
	assert.NoError(t, New(nil).Development(&d))
}

func TestUser(t *testing.T) {
	v := New(nil)
	assert.NoError(t, v.User(storage.User{Name: "Nimal", Email: "nimal@gov.lk"}, "secret1"))

	got := details(t, v.User(storage.User{Email: "not-an-email"}, "123"))
	assert.Len(t, got, 3)
	assert.True(t, strings.HasPrefix(got[2], "Password must be at least"))
}
