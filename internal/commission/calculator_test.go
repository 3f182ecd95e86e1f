package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
)

func TestCalculate(t *testing.T) {
	cases := []struct {
		name      string
		event     enums.SaleEventType
		platform  string
		percent   string
		creator   string
		stored    string
		wantError bool
	}{
		{name: "half-up from raw amount", event: enums.SaleEventConfirmation, platform: "10.005", percent: "33.33", creator: "3.33", stored: "10.01"},
		{name: "override twenty percent", event: enums.SaleEventConfirmation, platform: "100.00", percent: "20", creator: "20.00", stored: "100.00"},
		{name: "amendment is commissionable", event: enums.SaleEventAmendment, platform: "45.50", percent: "10", creator: "4.55", stored: "45.50"},
		{name: "half cent rounds up", event: enums.SaleEventConfirmation, platform: "0.05", percent: "50", creator: "0.03", stored: "0.05"},
		{name: "zero percent", event: enums.SaleEventConfirmation, platform: "80.00", percent: "0", creator: "0.00", stored: "80.00"},
		{name: "rejection is not commissionable", event: enums.SaleEventRejection, platform: "80.00", percent: "10", wantError: true},
		{name: "cancellation is not commissionable", event: enums.SaleEventCancellation, platform: "80.00", percent: "10", wantError: true},
		{name: "percent above hundred", event: enums.SaleEventConfirmation, platform: "80.00", percent: "100.01", wantError: true},
		{name: "negative platform commission", event: enums.SaleEventConfirmation, platform: "-1", percent: "10", wantError: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Calculate(Input{
				EventType:          tc.event,
				PlatformCommission: decimal.RequireFromString(tc.platform),
			}, decimal.RequireFromString(tc.percent))
			if tc.wantError {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.creator, result.CreatorCommission.StringFixed(2))
			assert.Equal(t, tc.stored, result.PlatformCommission.StringFixed(2))
			assert.True(t, result.Percent.Equal(decimal.RequireFromString(tc.percent)))
		})
	}
}

func TestCalculateIsReproducible(t *testing.T) {
	input := Input{EventType: enums.SaleEventConfirmation, PlatformCommission: decimal.RequireFromString("10.005")}
	percent := decimal.RequireFromString("33.33")

	first, err := Calculate(input, percent)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Calculate(input, percent)
		require.NoError(t, err)
		assert.True(t, first.CreatorCommission.Equal(again.CreatorCommission))
	}
}

func TestValidatePercent(t *testing.T) {
	require.NoError(t, ValidatePercent(decimal.Zero))
	require.NoError(t, ValidatePercent(decimal.NewFromInt(100)))
	require.NoError(t, ValidatePercent(decimal.RequireFromString("12.34")))
	require.Error(t, ValidatePercent(decimal.RequireFromString("12.345")))
	require.Error(t, ValidatePercent(decimal.RequireFromString("-0.01")))
}
