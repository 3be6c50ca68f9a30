// Package validation checks incoming records before they reach storage.
// Every violation is collected into a single Validation error.
package validation

import (
	"fmt"
	"net/mail"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"taxtrail/internal/apperr"
	"taxtrail/internal/storage"
)

// Program limits.
const (
	MaxProgramNameLength   = 100
	MinProgramYear         = 1900
	BudgetPerPersonLimit   = 1_000_000
	ProgramBudgetCeiling   = 1_000_000_000
	DefaultAccessIndex     = 50
	MinRecordYear          = 2000
	MaxDevelopmentYear     = 2030
	MinPasswordLength      = 6
	lowIncomeTargetGroup   = "Low Income"
	validationErrorMessage = "validation failed"
)

// Enumerations accepted by the API.
var (
	ProgramSectors       = []string{"Welfare", "Education", "Health", "Housing", "Food Assistance"}
	ProgramTargetGroups  = []string{"Low Income", "Middle Income", "Rural", "Urban Poor", "Disabled"}
	PayerTypes           = []string{"Individual", "Corporate"}
	IncomeBrackets       = []string{"Low", "Medium", "High"}
	TaxTypes             = []string{"Income", "VAT", "Corporate"}
	BudgetSectors        = []string{"Health", "Education", "Welfare", "Infrastructure"}
	TargetIncomeGroups   = []string{"Low", "Middle", "High"}
	Provinces            = []string{"Western", "Central", "Southern", "Northern", "Eastern", "North Western", "North Central", "Uva", "Sabaragamuwa"}
	budgetPerPersonLimit = decimal.NewFromInt(BudgetPerPersonLimit)
	programBudgetCeiling = decimal.NewFromInt(ProgramBudgetCeiling)
	hundred              = decimal.NewFromInt(100)
)

// Validator applies record rules. Rules that depend on the current year use its clock.
type Validator struct {
	now func() time.Time
}

// New builds a Validator. A nil clock means time.Now.
func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

type violations []string

func (v *violations) add(format string, args ...any) {
	*v = append(*v, fmt.Sprintf(format, args...))
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return &apperr.Error{Kind: apperr.KindValidation, Message: validationErrorMessage, Details: v}
}

func oneOf(values []string) string {
	return strings.Join(values, ", ")
}

func checkRegionID(v *violations, id string) {
	if strings.TrimSpace(id) == "" {
		v.add("Region is required")
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		v.add("Invalid region ID format")
	}
}

// Region checks a new region.
func (val *Validator) Region(r storage.Region) error {
	var v violations
	if strings.TrimSpace(r.Name) == "" {
		v.add("Region name is required")
	}
	return v.err()
}

// Program checks a social program against the enum and business rules.
func (val *Validator) Program(p storage.SocialProgram) error {
	var v violations

	name := strings.TrimSpace(p.ProgramName)
	switch {
	case name == "":
		v.add("Program name is required")
	case len([]rune(name)) > MaxProgramNameLength:
		v.add("Program name must not exceed %d characters", MaxProgramNameLength)
	}

	switch {
	case p.Sector == "":
		v.add("Sector is required")
	case !slices.Contains(ProgramSectors, p.Sector):
		v.add("Sector must be one of: %s", oneOf(ProgramSectors))
	}

	switch {
	case p.TargetGroup == "":
		v.add("Target group is required")
	case !slices.Contains(ProgramTargetGroups, p.TargetGroup):
		v.add("Target group must be one of: %s", oneOf(ProgramTargetGroups))
	}

	if p.BeneficiariesCount < 0 {
		v.add("Beneficiaries count must be a positive integer")
	}

	switch {
	case p.BudgetUsed.IsNegative():
		v.add("Budget must be a positive number")
	case p.BudgetUsed.GreaterThan(programBudgetCeiling):
		v.add("Budget cannot exceed 1 billion")
	}

	currentYear := val.now().Year()
	switch {
	case p.Year == 0:
		v.add("Year is required")
	case p.Year < MinProgramYear:
		v.add("Year must be a valid integer (%d or later)", MinProgramYear)
	case p.Year > currentYear:
		v.add("Program year cannot exceed current year (%d)", currentYear)
	}

	checkRegionID(&v, p.RegionID)

	if p.TargetGroup == lowIncomeTargetGroup && p.BeneficiariesCount <= 0 {
		v.add("Beneficiaries count must be greater than zero for Low Income target group")
	}

	if p.BeneficiariesCount > 0 && p.BudgetUsed.IsPositive() {
		perPerson := p.BudgetUsed.Div(decimal.NewFromInt(p.BeneficiariesCount))
		if perPerson.GreaterThan(budgetPerPersonLimit) {
			v.add("Budget per beneficiary exceeds threshold (1,000,000 per person)")
		}
	}

	return v.err()
}

// Tax checks a tax contribution.
func (val *Validator) Tax(t storage.TaxContribution) error {
	var v violations
	if !slices.Contains(PayerTypes, t.PayerType) {
		v.add("Invalid payer type")
	}
	if !slices.Contains(IncomeBrackets, t.IncomeBracket) {
		v.add("Invalid income bracket")
	}
	if !slices.Contains(TaxTypes, t.TaxType) {
		v.add("Invalid tax type")
	}
	if t.Amount.IsNegative() {
		v.add("Amount must be positive")
	}
	if t.Year < MinRecordYear {
		v.add("Invalid year")
	}
	checkRegionID(&v, t.RegionID)
	return v.err()
}

// IncomeBracket checks an optional listing filter.
func (val *Validator) IncomeBracket(bracket string) error {
	if bracket == "" || slices.Contains(IncomeBrackets, bracket) {
		return nil
	}
	return apperr.New(apperr.KindValidation, "Invalid income bracket")
}

// Budget checks a budget allocation.
func (val *Validator) Budget(b storage.BudgetAllocation) error {
	var v violations
	switch {
	case b.Sector == "":
		v.add("Sector is required")
	case !slices.Contains(BudgetSectors, b.Sector):
		v.add("Sector must be one of: %s", oneOf(BudgetSectors))
	}
	if b.AllocatedAmount.IsNegative() {
		v.add("Allocated amount must be a positive number")
	}
	if !slices.Contains(TargetIncomeGroups, b.TargetIncomeGroup) {
		v.add("Target income group must be one of: %s", oneOf(TargetIncomeGroups))
	}
	if b.Year < MinRecordYear {
		v.add("Year must be %d or later", MinRecordYear)
	}
	checkRegionID(&v, b.RegionID)
	return v.err()
}

// Development checks regional development metrics. A zero access index is
// replaced with the default before the range check.
func (val *Validator) Development(d *storage.RegionalDevelopment) error {
	var v violations
	switch {
	case strings.TrimSpace(d.RegionName) == "":
		v.add("Please add a region name")
	case !slices.Contains(Provinces, strings.TrimSpace(d.RegionName)):
		v.add("Region name must be one of: %s", oneOf(Provinces))
	}
	d.RegionName = strings.TrimSpace(d.RegionName)

	switch {
	case d.Year == 0:
		v.add("Please add a year")
	case d.Year < MinRecordYear:
		v.add("Year must be at least %d", MinRecordYear)
	case d.Year > MaxDevelopmentYear:
		v.add("Year must be at most %d", MaxDevelopmentYear)
	}

	if d.AverageIncome.IsNegative() {
		v.add("Average income must be a positive number")
	}
	if d.UnemploymentRate.IsNegative() || d.UnemploymentRate.GreaterThan(hundred) {
		v.add("Unemployment rate must be between 0 and 100")
	}
	if d.PovertyRate.IsNegative() || d.PovertyRate.GreaterThan(hundred) {
		v.add("Poverty rate must be between 0 and 100")
	}

	if d.AccessToServicesIndex.IsZero() {
		d.AccessToServicesIndex = decimal.NewFromInt(DefaultAccessIndex)
	}
	if d.AccessToServicesIndex.IsNegative() || d.AccessToServicesIndex.GreaterThan(hundred) {
		v.add("Access to services index must be between 0 and 100")
	}
	return v.err()
}

// User checks a registration. The email is expected to be trimmed and lowercased.
func (val *Validator) User(u storage.User, password string) error {
	var v violations
	if strings.TrimSpace(u.Name) == "" {
		v.add("Please add a name")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil || !strings.Contains(u.Email, "@") {
		v.add("Please add a valid email")
	}
	if len(password) < MinPasswordLength {
		v.add("Password must be at least %d characters", MinPasswordLength)
	}
	return v.err()
}

// ParseYear validates a year path or query parameter.
func ParseYear(raw string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || year <= 0 {
		return 0, apperr.New(apperr.KindValidation, "invalid year: %q", raw)
	}
	return year, nil
}
