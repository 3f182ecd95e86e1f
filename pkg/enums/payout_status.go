package enums

// PayoutStatus maps to the payout_status enum in Postgres.
type PayoutStatus string

const (
	PayoutStatusRequested  PayoutStatus = "requested"
	PayoutStatusApproved   PayoutStatus = "approved"
	PayoutStatusFunded     PayoutStatus = "funded"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
	PayoutStatusRejected   PayoutStatus = "rejected"
)

var payoutStatuses = set[PayoutStatus]{
	PayoutStatusRequested,
	PayoutStatusApproved,
	PayoutStatusFunded,
	PayoutStatusProcessing,
	PayoutStatusPaid,
	PayoutStatusFailed,
	PayoutStatusCancelled,
	PayoutStatusRejected,
}

// PendingPayoutStatuses hold reserved funds that have not settled yet.
var PendingPayoutStatuses = []PayoutStatus{
	PayoutStatusRequested,
	PayoutStatusApproved,
	PayoutStatusFunded,
	PayoutStatusProcessing,
}

func (s PayoutStatus) String() string { return string(s) }

func (s PayoutStatus) IsValid() bool { return payoutStatuses.has(s) }

// IsTerminal reports whether settlement is finished. Only a provider failure
// callback can still move a paid payout.
func (s PayoutStatus) IsTerminal() bool {
	switch s {
	case PayoutStatusPaid, PayoutStatusFailed, PayoutStatusCancelled, PayoutStatusRejected:
		return true
	}
	return false
}

// IsRefunded reports whether the reserved amount went back to the wallet.
func (s PayoutStatus) IsRefunded() bool {
	switch s {
	case PayoutStatusFailed, PayoutStatusCancelled, PayoutStatusRejected:
		return true
	}
	return false
}

// CanFail reports whether the settlement or a provider event may still fail the payout.
func (s PayoutStatus) CanFail() bool {
	switch s {
	case PayoutStatusApproved, PayoutStatusFunded, PayoutStatusProcessing:
		return true
	}
	return false
}

// ParsePayoutStatus matches lowercase status names exactly.
func ParsePayoutStatus(value string) (PayoutStatus, error) {
	return payoutStatuses.parse("payout status", value, false)
}

// PayoutMethod identifies the rail a payout settles through.
type PayoutMethod string

const (
	PayoutMethodStripe PayoutMethod = "stripe"
)
