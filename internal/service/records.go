package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"taxtrail/internal/apperr"
	"taxtrail/internal/logging"
	"taxtrail/internal/storage"
	"taxtrail/internal/validation"
)

// TaxPatch is a partial tax contribution update. Nil fields keep their stored value.
type TaxPatch struct {
	PayerType     *string
	IncomeBracket *string
	TaxType       *string
	Amount        *decimal.Decimal
	Year          *int
	RegionID      *string
}

func (p TaxPatch) apply(t storage.TaxContribution) storage.TaxContribution {
	setIf(&t.PayerType, p.PayerType)
	setIf(&t.IncomeBracket, p.IncomeBracket)
	setIf(&t.TaxType, p.TaxType)
	setIf(&t.Amount, p.Amount)
	setIf(&t.Year, p.Year)
	setIf(&t.RegionID, p.RegionID)
	return t
}

// ProgramPatch lists the program fields an update may change. Nil fields keep
// their stored value; the creator and timestamps are never changed.
type ProgramPatch struct {
	ProgramName        *string
	Sector             *string
	TargetGroup        *string
	BeneficiariesCount *int64
	BudgetUsed         *decimal.Decimal
	Year               *int
	RegionID           *string
}

func (p ProgramPatch) apply(sp storage.SocialProgram) storage.SocialProgram {
	setIf(&sp.ProgramName, p.ProgramName)
	setIf(&sp.Sector, p.Sector)
	setIf(&sp.TargetGroup, p.TargetGroup)
	setIf(&sp.BeneficiariesCount, p.BeneficiariesCount)
	setIf(&sp.BudgetUsed, p.BudgetUsed)
	setIf(&sp.Year, p.Year)
	setIf(&sp.RegionID, p.RegionID)
	return sp
}

func setIf[T any](dst, src *T) {
	if src != nil {
		*dst = *src
	}
}

// RecordService validates and persists the tracked records.
type RecordService struct {
	stores    Stores
	validator *validation.Validator
	logger    zerolog.Logger
}

// NewRecordService wires record CRUD.
func NewRecordService(stores Stores, validator *validation.Validator, logger zerolog.Logger) *RecordService {
	if validator == nil {
		validator = validation.New(nil)
	}
	return &RecordService{
		stores:    stores,
		validator: validator,
		logger:    logging.Component(logger, "record_service"),
	}
}

// CreateRegion stores a new region.
func (s *RecordService) CreateRegion(ctx context.Context, r storage.Region) (storage.Region, error) {
	r.Name = strings.TrimSpace(r.Name)
	if err := s.validator.Region(r); err != nil {
		return storage.Region{}, err
	}
	return s.stores.Regions.CreateRegion(ctx, r)
}

// GetRegion loads a region or fails with RegionNotFound.
func (s *RecordService) GetRegion(ctx context.Context, id string) (storage.Region, error) {
	return ensureRegion(ctx, s.stores.Regions, id)
}

// ListRegions lists every region.
func (s *RecordService) ListRegions(ctx context.Context) ([]storage.Region, error) {
	return s.stores.Regions.ListRegions(ctx)
}

// UpdateRegion renames a region.
func (s *RecordService) UpdateRegion(ctx context.Context, id string, r storage.Region) (storage.Region, error) {
	r.ID = id
	r.Name = strings.TrimSpace(r.Name)
	if err := s.validator.Region(r); err != nil {
		return storage.Region{}, err
	}
	updated, err := s.stores.Regions.UpdateRegion(ctx, r)
	if err != nil {
		return storage.Region{}, regionNotFound(err)
	}
	return updated, nil
}

// DeleteRegion removes a region that no record refers to.
func (s *RecordService) DeleteRegion(ctx context.Context, id string) error {
	if err := s.stores.Regions.DeleteRegion(ctx, id); err != nil {
		return regionNotFound(err)
	}
	s.logger.Info().Str("id", id).Msg("region deleted")
	return nil
}

// CreateDevelopment stores one year of regional development metrics.
func (s *RecordService) CreateDevelopment(ctx context.Context, d storage.RegionalDevelopment) (storage.RegionalDevelopment, error) {
	if err := s.validator.Development(&d); err != nil {
		return storage.RegionalDevelopment{}, err
	}
	return s.stores.Development.CreateDevelopment(ctx, d)
}

// UpdateDevelopment replaces one development record with d after validating it.
func (s *RecordService) UpdateDevelopment(ctx context.Context, id string, d storage.RegionalDevelopment) (storage.RegionalDevelopment, error) {
	if err := s.validator.Development(&d); err != nil {
		return storage.RegionalDevelopment{}, err
	}
	d.ID = id
	return s.stores.Development.UpdateDevelopment(ctx, d)
}

// ListDevelopment lists development metrics, newest year first.
func (s *RecordService) ListDevelopment(ctx context.Context, filter storage.DevelopmentFilter) ([]storage.RegionalDevelopment, error) {
	return s.stores.Development.ListDevelopment(ctx, filter)
}

// CreateTax validates and stores a tax contribution for an existing region.
func (s *RecordService) CreateTax(ctx context.Context, t storage.TaxContribution) (storage.TaxContribution, error) {
	if err := s.validator.Tax(t); err != nil {
		return storage.TaxContribution{}, err
	}
	region, err := ensureRegion(ctx, s.stores.Regions, t.RegionID)
	if err != nil {
		return storage.TaxContribution{}, err
	}
	created, err := s.stores.Taxes.CreateTax(ctx, t)
	if err != nil {
		return storage.TaxContribution{}, err
	}
	created.RegionName = region.Name
	return created, nil
}

// GetTax loads a contribution.
func (s *RecordService) GetTax(ctx context.Context, id string) (storage.TaxContribution, error) {
	return s.stores.Taxes.GetTax(ctx, id)
}

// UpdateTax merges patch into a stored contribution, revalidates and saves it.
func (s *RecordService) UpdateTax(ctx context.Context, id string, patch TaxPatch) (storage.TaxContribution, error) {
	current, err := s.stores.Taxes.GetTax(ctx, id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindRecordNotFound {
			return storage.TaxContribution{}, apperr.Wrap(apperr.KindRecordNotFound, err, "Tax contribution not found")
		}
		return storage.TaxContribution{}, err
	}
	merged := patch.apply(current)
	if err := s.validator.Tax(merged); err != nil {
		return storage.TaxContribution{}, err
	}
	if _, err := ensureRegion(ctx, s.stores.Regions, merged.RegionID); err != nil {
		return storage.TaxContribution{}, err
	}
	updated, err := s.stores.Taxes.UpdateTax(ctx, merged)
	if err != nil {
		return storage.TaxContribution{}, err
	}
	s.logger.Info().Str("id", id).Msg("tax contribution updated")
	return updated, nil
}

// DeleteTax removes a contribution.
func (s *RecordService) DeleteTax(ctx context.Context, id string) error {
	if err := s.stores.Taxes.DeleteTax(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("id", id).Msg("tax contribution deleted")
	return nil
}

// CreateBudget validates and stores a budget allocation for an existing region.
func (s *RecordService) CreateBudget(ctx context.Context, b storage.BudgetAllocation) (storage.BudgetAllocation, error) {
	if err := s.validator.Budget(b); err != nil {
		return storage.BudgetAllocation{}, err
	}
	region, err := ensureRegion(ctx, s.stores.Regions, b.RegionID)
	if err != nil {
		return storage.BudgetAllocation{}, err
	}
	created, err := s.stores.Budgets.CreateBudget(ctx, b)
	if err != nil {
		return storage.BudgetAllocation{}, err
	}
	created.RegionName = region.Name
	return created, nil
}

// ListBudgets lists every allocation.
func (s *RecordService) ListBudgets(ctx context.Context) ([]storage.BudgetAllocation, error) {
	return s.stores.Budgets.AllBudgets(ctx)
}

// CreateProgram validates and stores a social program created by subject.
func (s *RecordService) CreateProgram(ctx context.Context, p storage.SocialProgram, subject string) (storage.SocialProgram, error) {
	p.ProgramName = strings.TrimSpace(p.ProgramName)
	if err := s.validator.Program(p); err != nil {
		return storage.SocialProgram{}, err
	}
	if strings.TrimSpace(subject) == "" {
		return storage.SocialProgram{}, apperr.New(apperr.KindUnauthorized, "Not authorized, user not found")
	}
	region, err := ensureRegion(ctx, s.stores.Regions, p.RegionID)
	if err != nil {
		return storage.SocialProgram{}, err
	}
	p.CreatedBy = subject
	created, err := s.stores.Programs.CreateProgram(ctx, p)
	if err != nil {
		return storage.SocialProgram{}, err
	}
	created.RegionName = region.Name
	return created, nil
}

// GetProgram loads a program.
func (s *RecordService) GetProgram(ctx context.Context, id string) (storage.SocialProgram, error) {
	return s.stores.Programs.GetProgram(ctx, id)
}

// ListPrograms lists every program.
func (s *RecordService) ListPrograms(ctx context.Context) ([]storage.SocialProgram, error) {
	return s.stores.Programs.ListPrograms(ctx)
}

// UpdateProgram merges patch into a stored program, revalidates it against the
// program rules and checks the region still exists.
func (s *RecordService) UpdateProgram(ctx context.Context, id string, patch ProgramPatch) (storage.SocialProgram, error) {
	current, err := s.stores.Programs.GetProgram(ctx, id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindRecordNotFound {
			return storage.SocialProgram{}, apperr.Wrap(apperr.KindRecordNotFound, err, "Program not found")
		}
		return storage.SocialProgram{}, err
	}
	merged := patch.apply(current)
	merged.ProgramName = strings.TrimSpace(merged.ProgramName)
	if err := s.validator.Program(merged); err != nil {
		return storage.SocialProgram{}, err
	}
	if _, err := ensureRegion(ctx, s.stores.Regions, merged.RegionID); err != nil {
		return storage.SocialProgram{}, err
	}
	updated, err := s.stores.Programs.UpdateProgram(ctx, merged)
	if err != nil {
		return storage.SocialProgram{}, err
	}
	s.logger.Info().Str("id", id).Msg("social program updated")
	return updated, nil
}

// DeleteProgram removes a program.
func (s *RecordService) DeleteProgram(ctx context.Context, id string) error {
	if err := s.stores.Programs.DeleteProgram(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("id", id).Msg("social program deleted")
	return nil
}
