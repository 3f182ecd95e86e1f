package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcreators/creator-wallet/api/validators"
	"github.com/tripcreators/creator-wallet/internal/commission"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
)

type commissionAdminService interface {
	SetGlobalPercent(ctx context.Context, percent decimal.Decimal, adminID *uuid.UUID) (*models.CommissionSetting, error)
	AddCreatorOverride(ctx context.Context, input commission.OverrideInput) (*models.CreatorCommissionOverride, error)
	SetCreatorOverride(ctx context.Context, input commission.OverrideInput) (*models.CreatorCommissionOverride, error)
	CommissionSale(ctx context.Context, saleID uuid.UUID, platformCommission decimal.Decimal) (*commission.SaleCommission, error)
}

type globalCommissionBody struct {
	Percent string `json:"percent" validate:"required,percent"`
}

type overrideBody struct {
	CreatorID     string     `json:"creator_id" validate:"omitempty,uuid"`
	Percent       string     `json:"percent" validate:"required,percent"`
	EffectiveFrom *time.Time `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to"`
}

type saleCommissionBody struct {
	PlatformCommission string `json:"platform_commission" validate:"required,money"`
}

// AdminSetGlobalCommission replaces the active global creator commission percent.
func AdminSetGlobalCommission(svc commissionAdminService, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "commission", func(r *http.Request) (int, any, error) {
		adminID, err := actorID(r)
		if err != nil {
			return fail(err)
		}
		var body globalCommissionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return fail(err)
		}
		percent, err := parseDecimal(body.Percent, "percent")
		if err != nil {
			return fail(err)
		}
		setting, err := svc.SetGlobalPercent(r.Context(), percent, &adminID)
		if err != nil {
			return fail(err)
		}
		return ok(toCommissionSettingDTO(setting))
	})
}

// AdminAddCommissionOverride adds an override window for the creator named in the body.
func AdminAddCommissionOverride(svc commissionAdminService, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "commission", func(r *http.Request) (int, any, error) {
		var body overrideBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return fail(err)
		}
		creatorID, err := uuid.Parse(body.CreatorID)
		if err != nil {
			return fail(pkgerrors.New(pkgerrors.CodeValidation, "creator_id is required").
				WithDetails(map[string]any{"field": "creator_id"}))
		}
		input, err := body.input(creatorID)
		if err != nil {
			return fail(err)
		}
		override, err := svc.AddCreatorOverride(r.Context(), input)
		if err != nil {
			return fail(err)
		}
		return created(toOverrideDTO(override))
	})
}

// AdminSetCommissionOverride upserts the override for the creator in the path.
// A creator_id in the body must agree with the path.
func AdminSetCommissionOverride(svc commissionAdminService, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "commission", func(r *http.Request) (int, any, error) {
		creatorID, err := validators.ParseUUIDParam(r, "creatorId")
		if err != nil {
			return fail(err)
		}
		var body overrideBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return fail(err)
		}
		if body.CreatorID != "" && !strings.EqualFold(body.CreatorID, creatorID.String()) {
			return fail(pkgerrors.New(pkgerrors.CodeValidation, "creator_id does not match path"))
		}
		input, err := body.input(creatorID)
		if err != nil {
			return fail(err)
		}
		override, err := svc.SetCreatorOverride(r.Context(), input)
		if err != nil {
			return fail(err)
		}
		return ok(toOverrideDTO(override))
	})
}

// AdminCommissionSale applies the creator commission for an ingested sale.
func AdminCommissionSale(svc commissionAdminService, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "commission", func(r *http.Request) (int, any, error) {
		saleID, err := validators.ParseUUIDParam(r, "saleId")
		if err != nil {
			return fail(err)
		}
		var body saleCommissionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return fail(err)
		}
		platformCommission, err := parseDecimal(body.PlatformCommission, "platform_commission")
		if err != nil {
			return fail(err)
		}
		result, err := svc.CommissionSale(r.Context(), saleID, platformCommission)
		if err != nil {
			return fail(err)
		}
		return ok(toSaleCommissionDTO(result))
	})
}

func (b overrideBody) input(creatorID uuid.UUID) (commission.OverrideInput, error) {
	percent, err := parseDecimal(b.Percent, "percent")
	if err != nil {
		return commission.OverrideInput{}, err
	}
	return commission.OverrideInput{
		CreatorID:     creatorID,
		Percent:       percent,
		EffectiveFrom: b.EffectiveFrom,
		EffectiveTo:   b.EffectiveTo,
	}, nil
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).
			WithDetails(map[string]any{"field": field})
	}
	return value, nil
}
