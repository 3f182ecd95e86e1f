package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcreators/creator-wallet/api/validators"
	"github.com/tripcreators/creator-wallet/internal/commission"
	"github.com/tripcreators/creator-wallet/internal/sales"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
)

const maxSaleBodyBytes = 1 << 20

type saleIngester interface {
	IngestSale(ctx context.Context, input sales.UpsertSaleInput) (*commission.SaleCommission, error)
}

// ingestSaleBody is one booking event reported by the partner crawler.
type ingestSaleBody struct {
	TransactionRef     string  `json:"transaction_ref" validate:"required,max=255"`
	BookingRef         string  `json:"booking_ref" validate:"required,max=255"`
	EventType          string  `json:"event_type" validate:"required"`
	ProductID          string  `json:"product_id" validate:"omitempty,uuid"`
	ProductCode        string  `json:"product_code" validate:"max=255"`
	CreatorID          string  `json:"creator_id" validate:"omitempty,uuid"`
	CampaignValue      *string `json:"campaign_value"`
	TravelDate         string  `json:"travel_date" validate:"omitempty,datetime=2006-01-02"`
	Price              *string `json:"price"`
	PlatformCommission *string `json:"platform_commission"`
	Currency           string  `json:"currency" validate:"omitempty,len=3"`
}

// IngestSale upserts a sale event by transaction reference and commissions
// it. The raw body is kept on the sale for audit.
func IngestSale(svc saleIngester, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "ingestion", func(r *http.Request) (int, any, error) {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxSaleBodyBytes))
		if err != nil {
			return fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))

		var body ingestSaleBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return fail(err)
		}
		input, err := body.input(raw)
		if err != nil {
			return fail(err)
		}
		result, err := svc.IngestSale(r.Context(), input)
		if err != nil {
			return fail(err)
		}
		return ok(toSaleCommissionDTO(result))
	})
}

func (b ingestSaleBody) input(raw []byte) (sales.UpsertSaleInput, error) {
	input := sales.UpsertSaleInput{
		TransactionRef: strings.TrimSpace(b.TransactionRef),
		BookingRef:     validators.SanitizeText(b.BookingRef, 255),
		EventType:      strings.TrimSpace(b.EventType),
		ProductCode:    validators.SanitizeText(b.ProductCode, 255),
		CampaignValue:  b.CampaignValue,
		Currency:       strings.TrimSpace(b.Currency),
		RawPayload:     json.RawMessage(raw),
	}
	if b.ProductID != "" {
		id := uuid.MustParse(b.ProductID)
		input.ProductID = &id
	}
	if b.CreatorID != "" {
		id := uuid.MustParse(b.CreatorID)
		input.CreatorID = &id
	}
	if b.TravelDate != "" {
		travel, err := time.ParseInLocation("2006-01-02", b.TravelDate, time.UTC)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid travel_date")
		}
		input.TravelDate = &travel
	}
	var err error
	if input.Price, err = optionalDecimal(b.Price, "price"); err != nil {
		return input, err
	}
	if input.PlatformCommission, err = optionalDecimal(b.PlatformCommission, "platform_commission"); err != nil {
		return input, err
	}
	return input, nil
}

func optionalDecimal(raw *string, field string) (decimal.NullDecimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	value, err := parseDecimal(*raw, field)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(value), nil
}
