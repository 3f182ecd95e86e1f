package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/internal/sales"
	"github.com/tripcreators/creator-wallet/internal/wallets"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type commissionApplier interface {
	ApplySaleCommissionTx(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (*wallets.CommissionResult, error)
}

type saleUpserter interface {
	UpsertSaleTx(ctx context.Context, tx *gorm.DB, input sales.UpsertSaleInput) (*sales.UpsertResult, error)
}

// OverrideInput describes one creator override window.
type OverrideInput struct {
	CreatorID     uuid.UUID
	Percent       decimal.Decimal
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
}

// SaleCommission is the outcome of commissioning one sale.
type SaleCommission struct {
	Sale       *models.Sale
	Rate       Rate
	Result     Result
	Commission *wallets.CommissionResult
	// CommissionFailure is set when the sale was stored but could not be commissioned.
	CommissionFailure pkgerrors.Code
}

// Service exposes commission policy administration and sale commissioning.
type Service interface {
	ResolveRate(ctx context.Context, creatorID uuid.UUID, at time.Time) (Rate, error)
	SetGlobalPercent(ctx context.Context, percent decimal.Decimal, adminID *uuid.UUID) (*models.CommissionSetting, error)
	AddCreatorOverride(ctx context.Context, input OverrideInput) (*models.CreatorCommissionOverride, error)
	SetCreatorOverride(ctx context.Context, input OverrideInput) (*models.CreatorCommissionOverride, error)
	ListOverrides(ctx context.Context, creatorID *uuid.UUID) ([]models.CreatorCommissionOverride, error)
	CommissionSale(ctx context.Context, saleID uuid.UUID, platformCommission decimal.Decimal) (*SaleCommission, error)
	IngestSale(ctx context.Context, input sales.UpsertSaleInput) (*SaleCommission, error)
}

type service struct {
	policies PolicyRepository
	sales    sales.Repository
	upserter saleUpserter
	wallets  commissionApplier
	tx       txRunner
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the commission service.
func NewService(policies PolicyRepository, salesRepo sales.Repository, upserter saleUpserter, walletSvc commissionApplier, tx txRunner, logg *logger.Logger) (Service, error) {
	if policies == nil {
		return nil, fmt.Errorf("policy repository required")
	}
	if salesRepo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if upserter == nil {
		return nil, fmt.Errorf("sales service required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		policies: policies,
		sales:    salesRepo,
		upserter: upserter,
		wallets:  walletSvc,
		tx:       tx,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) ResolveRate(ctx context.Context, creatorID uuid.UUID, at time.Time) (Rate, error) {
	rate, err := s.policies.ResolveRate(ctx, creatorID, at)
	if err != nil {
		return Rate{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve commission rate")
	}
	return rate, nil
}

func (s *service) SetGlobalPercent(ctx context.Context, percent decimal.Decimal, adminID *uuid.UUID) (*models.CommissionSetting, error) {
	if err := ValidatePercent(percent); err != nil {
		return nil, err
	}
	setting := &models.CommissionSetting{
		GlobalCreatorCommissionPercent: percent,
		SetBy:                          adminID,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.policies.WithTx(tx).ReplaceGlobal(ctx, setting)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set global commission")
	}
	s.logg.Info(s.logg.WithField(ctx, "percent", percent.String()), "global commission percent updated")
	return setting, nil
}

// AddCreatorOverride records a new override window, keeping earlier ones as history.
func (s *service) AddCreatorOverride(ctx context.Context, input OverrideInput) (*models.CreatorCommissionOverride, error) {
	from, err := s.validateOverride(input)
	if err != nil {
		return nil, err
	}
	override := &models.CreatorCommissionOverride{
		CreatorID:     input.CreatorID,
		Percent:       input.Percent,
		EffectiveFrom: from,
		EffectiveTo:   utcPtr(input.EffectiveTo),
	}
	if err := s.policies.CreateOverride(ctx, override); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission override")
	}
	s.logOverride(ctx, override, "creator commission override added")
	return override, nil
}

// SetCreatorOverride updates the creator's latest override, creating one when none exists.
func (s *service) SetCreatorOverride(ctx context.Context, input OverrideInput) (*models.CreatorCommissionOverride, error) {
	from, err := s.validateOverride(input)
	if err != nil {
		return nil, err
	}

	var override *models.CreatorCommissionOverride
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.policies.WithTx(tx)
		latest, err := repo.LatestOverride(ctx, input.CreatorID)
		if err != nil {
			return err
		}
		if latest == nil {
			override = &models.CreatorCommissionOverride{CreatorID: input.CreatorID}
		} else {
			override = latest
		}
		override.Percent = input.Percent
		override.EffectiveFrom = from
		override.EffectiveTo = utcPtr(input.EffectiveTo)
		if latest == nil {
			return repo.CreateOverride(ctx, override)
		}
		return repo.SaveOverride(ctx, override)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save commission override")
	}
	s.logOverride(ctx, override, "creator commission override set")
	return override, nil
}

func (s *service) ListOverrides(ctx context.Context, creatorID *uuid.UUID) ([]models.CreatorCommissionOverride, error) {
	rows, err := s.policies.ListOverrides(ctx, creatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission overrides")
	}
	return rows, nil
}

// CommissionSale resolves the rate at now, stores the split on the sale and
// credits the creator, all in one transaction. An already commissioned sale
// keeps its recorded split.
func (s *service) CommissionSale(ctx context.Context, saleID uuid.UUID, platformCommission decimal.Decimal) (*SaleCommission, error) {
	var out *SaleCommission
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = s.commissionSaleTx(ctx, tx, saleID, platformCommission)
		return err
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "sale_id", saleID.String()), "commission sale failed", err)
		return nil, err
	}
	return out, nil
}

// IngestSale upserts a reported sale, then commissions it when it is
// commissionable and carries a platform commission. The sale is committed
// first: a commissioning failure leaves it stored with CommissionFailure set
// so an admin can retry it through CommissionSale.
func (s *service) IngestSale(ctx context.Context, input sales.UpsertSaleInput) (*SaleCommission, error) {
	var sale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		upserted, err := s.upserter.UpsertSaleTx(ctx, tx, input)
		if err != nil {
			return err
		}
		sale = upserted.Sale
		return nil
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "transaction_ref", input.TransactionRef), "sale ingestion failed", err)
		return nil, err
	}
	if !sale.EventType.IsCommissionable() || !input.PlatformCommission.Valid || sale.IsCommissioned {
		return &SaleCommission{Sale: sale}, nil
	}

	var out *SaleCommission
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = s.commissionSaleTx(ctx, tx, sale.ID, input.PlatformCommission.Decimal)
		return err
	})
	if err != nil {
		code := pkgerrors.As(err).Code()
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"transaction_ref": sale.TransactionRef,
			"sale_id":         sale.ID.String(),
			"code":            code,
		}), "sale stored, commission pending manual retry", err)
		return &SaleCommission{Sale: sale, CommissionFailure: code}, nil
	}
	return out, nil
}

func (s *service) commissionSaleTx(ctx context.Context, tx *gorm.DB, saleID uuid.UUID, platformCommission decimal.Decimal) (*SaleCommission, error) {
	salesRepo := s.sales.WithTx(tx)
	sale, err := salesRepo.LockByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sales.SaleNotFoundError(saleID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}

	out := &SaleCommission{Sale: sale}
	if !sale.IsCommissioned {
		creatorID := uuid.Nil
		if sale.CreatorID != nil {
			creatorID = *sale.CreatorID
		}
		rate, err := s.policies.WithTx(tx).ResolveRate(ctx, creatorID, s.now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve commission rate")
		}
		result, err := Calculate(Input{EventType: sale.EventType, PlatformCommission: platformCommission}, rate.Percent)
		if err != nil {
			return nil, err
		}

		sale.PlatformCommission = decimal.NewNullDecimal(result.PlatformCommission)
		sale.CreatorCommission = decimal.NewNullDecimal(result.CreatorCommission)
		sale.CreatorCommissionPercent = decimal.NewNullDecimal(result.Percent)
		if err := salesRepo.Save(ctx, sale); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store sale commission")
		}
		out.Rate = rate
		out.Result = result
	}

	applied, err := s.wallets.ApplySaleCommissionTx(ctx, tx, sale.ID)
	if err != nil {
		return nil, err
	}
	out.Commission = applied
	return out, nil
}

func (s *service) validateOverride(input OverrideInput) (time.Time, error) {
	if input.CreatorID == uuid.Nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "creator id is required")
	}
	if err := ValidatePercent(input.Percent); err != nil {
		return time.Time{}, err
	}
	from := s.now().UTC()
	if input.EffectiveFrom != nil {
		from = input.EffectiveFrom.UTC()
	}
	if input.EffectiveTo != nil && input.EffectiveTo.Before(from) {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "effective_to must not be before effective_from")
	}
	return from, nil
}

func (s *service) logOverride(ctx context.Context, override *models.CreatorCommissionOverride, msg string) {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"creator_id":     override.CreatorID.String(),
		"percent":        override.Percent.String(),
		"effective_from": override.EffectiveFrom,
	}), msg)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
