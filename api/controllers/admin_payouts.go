package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcreators/creator-wallet/api/validators"
	"github.com/tripcreators/creator-wallet/internal/payouts"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
)

type payoutAdminService interface {
	ApprovePayout(ctx context.Context, payoutID, adminID uuid.UUID) (*models.Payout, error)
	RejectPayout(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*models.Payout, error)
	SetPayoutThreshold(ctx context.Context, input payouts.ThresholdInput) (*models.PayoutThreshold, error)
}

type rejectPayoutBody struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type thresholdBody struct {
	MinimumAmount string  `json:"minimum_amount" validate:"required"`
	MaximumAmount *string `json:"maximum_amount" validate:"omitempty,money"`
	Currency      string  `json:"currency" validate:"omitempty,len=3"`
}

// payoutDecision resolves the acting admin and the payout named in the path.
func payoutDecision(r *http.Request) (adminID, payoutID uuid.UUID, err error) {
	if adminID, err = actorID(r); err != nil {
		return
	}
	payoutID, err = validators.ParseUUIDParam(r, "payoutId")
	return
}

// AdminApprovePayout approves a requested payout and queues it for settlement.
func AdminApprovePayout(svc payoutAdminService, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "payout", func(r *http.Request) (int, any, error) {
		adminID, payoutID, err := payoutDecision(r)
		if err != nil {
			return fail(err)
		}
		payout, err := svc.ApprovePayout(r.Context(), payoutID, adminID)
		if err != nil {
			return fail(err)
		}
		return ok(toPayoutDTO(payout))
	})
}

// AdminRejectPayout rejects a requested payout and returns the funds to the wallet.
func AdminRejectPayout(svc payoutAdminService, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "payout", func(r *http.Request) (int, any, error) {
		adminID, payoutID, err := payoutDecision(r)
		if err != nil {
			return fail(err)
		}
		var body rejectPayoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return fail(err)
		}
		payout, err := svc.RejectPayout(r.Context(), payoutID, adminID, validators.SanitizeText(body.Reason, 500))
		if err != nil {
			return fail(err)
		}
		return ok(toPayoutDTO(payout))
	})
}

// AdminSetPayoutThreshold replaces the active payout limits.
func AdminSetPayoutThreshold(svc payoutAdminService, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "payout", func(r *http.Request) (int, any, error) {
		adminID, err := actorID(r)
		if err != nil {
			return fail(err)
		}
		var body thresholdBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return fail(err)
		}
		input, err := body.input(adminID)
		if err != nil {
			return fail(err)
		}
		threshold, err := svc.SetPayoutThreshold(r.Context(), input)
		if err != nil {
			return fail(err)
		}
		return ok(toThresholdDTO(threshold))
	})
}

func (b thresholdBody) input(adminID uuid.UUID) (payouts.ThresholdInput, error) {
	input := payouts.ThresholdInput{SetBy: &adminID}
	var err error
	if input.Minimum, err = parseDecimal(b.MinimumAmount, "minimum_amount"); err != nil {
		return input, err
	}
	if b.MaximumAmount != nil {
		maximum, err := parseDecimal(*b.MaximumAmount, "maximum_amount")
		if err != nil {
			return input, err
		}
		input.Maximum = decimal.NewNullDecimal(maximum)
	}
	if code := strings.TrimSpace(b.Currency); code != "" {
		if input.Currency, err = enums.ParseCurrency(code); err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
	}
	return input, nil
}
