package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxtrail/internal/apperr"
	"taxtrail/internal/storage"
	"taxtrail/internal/validation"
)

func newRecordFixture() (*RecordService, *memoryStore) {
	store := &memoryStore{}
	return NewRecordService(store.stores(), validation.New(fixedNow), zerolog.Nop()), store
}

func TestCreateTaxRequiresExistingRegion(t *testing.T) {
	svc, _ := newRecordFixture()
	_, err := svc.CreateTax(context.Background(), storage.TaxContribution{
		PayerType: "Individual", IncomeBracket: "Low", TaxType: "Income",
		Amount: d("10"), Year: 2024, RegionID: uuid.NewString(),
	})
	assert.ErrorIs(t, err, apperr.RegionNotFound)
}

func TestCreateTaxAttachesRegionName(t *testing.T) {
	svc, store := newRecordFixture()
	region, err := svc.CreateRegion(context.Background(), storage.Region{Name: " Southern "})
	require.NoError(t, err)
	assert.Equal(t, "Southern", region.Name)

	created, err := svc.CreateTax(context.Background(), storage.TaxContribution{
		PayerType: "Corporate", IncomeBracket: "High", TaxType: "Corporate",
		Amount: d("5000"), Year: 2024, RegionID: region.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Southern", created.RegionName)
	assert.Len(t, store.taxes, 1)
}

func TestCreateProgramValidatesBeforeStoring(t *testing.T) {
	svc, store := newRecordFixture()
	region, err := svc.CreateRegion(context.Background(), storage.Region{Name: "Northern"})
	require.NoError(t, err)

	_, err = svc.CreateProgram(context.Background(), storage.SocialProgram{
		ProgramName: "Food Aid", Sector: "Food Assistance", TargetGroup: "Low Income",
		BeneficiariesCount: 0, BudgetUsed: d("100"), Year: 2024, RegionID: region.ID,
	}, "user-1")
	assert.ErrorIs(t, err, apperr.Validation)
	assert.Empty(t, store.programs)

	created, err := svc.CreateProgram(context.Background(), storage.SocialProgram{
		ProgramName: "Food Aid", Sector: "Food Assistance", TargetGroup: "Low Income",
		BeneficiariesCount: 10, BudgetUsed: d("100"), Year: 2024, RegionID: region.ID,
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", created.CreatedBy)
	assert.Equal(t, "Northern", created.RegionName)
}

func TestDeleteMissingProgram(t *testing.T) {
	svc, _ := newRecordFixture()
	assert.ErrorIs(t, svc.DeleteProgram(context.Background(), "nope"), apperr.RecordNotFound)
}

func TestGetRegionNotFound(t *testing.T) {
	svc, _ := newRecordFixture()
	_, err := svc.GetRegion(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, apperr.RegionNotFound)
}

func TestCreateDevelopmentAppliesDefaults(t *testing.T) {
	svc, _ := newRecordFixture()
	created, err := svc.CreateDevelopment(context.Background(), storage.RegionalDevelopment{RegionName: "Central", Year: 2024, PovertyRate: d("14.3")})
	require.NoError(t, err)
	assert.Equal(t, "50", created.AccessToServicesIndex.String())
}

func seedProgram(t *testing.T, svc *RecordService) (storage.Region, storage.SocialProgram) {
	t.Helper()
	region, err := svc.CreateRegion(context.Background(), storage.Region{Name: "Uva"})
	require.NoError(t, err)
	program, err := svc.CreateProgram(context.Background(), storage.SocialProgram{
		ProgramName: "School Meals", Sector: "Education", TargetGroup: "Rural",
		BeneficiariesCount: 200, BudgetUsed: d("40000"), Year: 2024, RegionID: region.ID,
	}, "admin-1")
	require.NoError(t, err)
	return region, program
}

func TestUpdateProgramMergesAndRevalidates(t *testing.T) {
	svc, store := newRecordFixture()
	_, program := seedProgram(t, svc)

	budget := d("55000.5")
	updated, err := svc.UpdateProgram(context.Background(), program.ID, ProgramPatch{BudgetUsed: &budget})
	require.NoError(t, err)
	assert.Equal(t, "School Meals", updated.ProgramName)
	assert.True(t, updated.BudgetUsed.Equal(budget))
	assert.Equal(t, "admin-1", updated.CreatedBy)

	group := "Low Income"
	zero := int64(0)
	_, err = svc.UpdateProgram(context.Background(), program.ID, ProgramPatch{TargetGroup: &group, BeneficiariesCount: &zero})
	assert.ErrorIs(t, err, apperr.Validation)
	assert.Equal(t, "Rural", store.programs[0].TargetGroup, "rejected update must not be stored")

	missing := uuid.NewString()
	_, err = svc.UpdateProgram(context.Background(), program.ID, ProgramPatch{RegionID: &missing})
	assert.ErrorIs(t, err, apperr.RegionNotFound)

	_, err = svc.UpdateProgram(context.Background(), "nope", ProgramPatch{})
	assert.ErrorIs(t, err, apperr.RecordNotFound)
	assert.Equal(t, "Program not found", apperr.MessageOf(err))
}

func TestUpdateTaxPatchesOnlyGivenFields(t *testing.T) {
	svc, _ := newRecordFixture()
	region, err := svc.CreateRegion(context.Background(), storage.Region{Name: "Eastern"})
	require.NoError(t, err)
	created, err := svc.CreateTax(context.Background(), storage.TaxContribution{
		PayerType: "Individual", IncomeBracket: "Low", TaxType: "VAT",
		Amount: d("120"), Year: 2023, RegionID: region.ID,
	})
	require.NoError(t, err)

	amount := d("99.999")
	updated, err := svc.UpdateTax(context.Background(), created.ID, TaxPatch{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, "VAT", updated.TaxType)
	assert.Equal(t, "100", updated.Amount.String())

	bracket := "Rich"
	_, err = svc.UpdateTax(context.Background(), created.ID, TaxPatch{IncomeBracket: &bracket})
	assert.ErrorIs(t, err, apperr.Validation)

	_, err = svc.UpdateTax(context.Background(), "nope", TaxPatch{})
	assert.ErrorIs(t, err, apperr.RecordNotFound)
	assert.Equal(t, "Tax contribution not found", apperr.MessageOf(err))
}

func TestUpdateAndDeleteRegion(t *testing.T) {
	svc, store := newRecordFixture()
	region, err := svc.CreateRegion(context.Background(), storage.Region{Name: "Sabaragamuwa"})
	require.NoError(t, err)

	renamed, err := svc.UpdateRegion(context.Background(), region.ID, storage.Region{Name: " Sabaragamuwa Province "})
	require.NoError(t, err)
	assert.Equal(t, "Sabaragamuwa Province", renamed.Name)

	_, err = svc.UpdateRegion(context.Background(), region.ID, storage.Region{Name: "  "})
	assert.ErrorIs(t, err, apperr.Validation)

	_, err = svc.UpdateRegion(context.Background(), uuid.NewString(), storage.Region{Name: "Ghost"})
	assert.ErrorIs(t, err, apperr.RegionNotFound)

	require.NoError(t, svc.DeleteRegion(context.Background(), region.ID))
	assert.Empty(t, store.regions)
	assert.ErrorIs(t, svc.DeleteRegion(context.Background(), region.ID), apperr.RegionNotFound)
}

func TestDeleteRegionStillReferenced(t *testing.T) {
	svc, _ := newRecordFixture()
	region, err := svc.CreateRegion(context.Background(), storage.Region{Name: "Western"})
	require.NoError(t, err)
	_, err = svc.CreateTax(context.Background(), storage.TaxContribution{
		PayerType: "Corporate", IncomeBracket: "High", TaxType: "Corporate",
		Amount: d("10"), Year: 2024, RegionID: region.ID,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteRegion(context.Background(), region.ID), apperr.Validation)
}

func TestUpdateDevelopmentValidatesRates(t *testing.T) {
	svc, _ := newRecordFixture()
	created, err := svc.CreateDevelopment(context.Background(), storage.RegionalDevelopment{RegionName: "Central", Year: 2024, PovertyRate: d("14.3")})
	require.NoError(t, err)

	_, err = svc.UpdateDevelopment(context.Background(), created.ID, storage.RegionalDevelopment{RegionName: "Central", Year: 2024, PovertyRate: d("140")})
	assert.ErrorIs(t, err, apperr.Validation)

	updated, err := svc.UpdateDevelopment(context.Background(), created.ID, storage.RegionalDevelopment{RegionName: "Central", Year: 2024, PovertyRate: d("12.1"), UnemploymentRate: d("4.2")})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "12.1", updated.PovertyRate.String())
	assert.Equal(t, "50", updated.AccessToServicesIndex.String())

	_, err = svc.UpdateDevelopment(context.Background(), uuid.NewString(), storage.RegionalDevelopment{RegionName: "Central", Year: 2024})
	assert.ErrorIs(t, err, apperr.RecordNotFound)
}
