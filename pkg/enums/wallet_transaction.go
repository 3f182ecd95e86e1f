package enums

// WalletTransactionType is the direction of a ledger entry.
type WalletTransactionType string

const (
	WalletTransactionCredit     WalletTransactionType = "credit"
	WalletTransactionDebit      WalletTransactionType = "debit"
	WalletTransactionAdjustment WalletTransactionType = "adjustment"
)

var walletTransactionTypes = set[WalletTransactionType]{
	WalletTransactionCredit,
	WalletTransactionDebit,
	WalletTransactionAdjustment,
}

func (t WalletTransactionType) IsValid() bool { return walletTransactionTypes.has(t) }

// WalletTransactionSource records the economic event behind a ledger entry.
type WalletTransactionSource string

const (
	SourceSaleCommission WalletTransactionSource = "sale_commission"
	SourcePayoutRequest  WalletTransactionSource = "payout_request"
	SourcePayoutFailed   WalletTransactionSource = "payout_failed"
	SourcePayoutCanceled WalletTransactionSource = "payout_canceled"
	SourceRefund         WalletTransactionSource = "refund"
	SourceAdjustment     WalletTransactionSource = "adjustment"
)

var walletTransactionSources = set[WalletTransactionSource]{
	SourceSaleCommission,
	SourcePayoutRequest,
	SourcePayoutFailed,
	SourcePayoutCanceled,
	SourceRefund,
	SourceAdjustment,
}

func (s WalletTransactionSource) IsValid() bool { return walletTransactionSources.has(s) }

// ReleasesReservation reports whether the source returns funds reserved by a payout request.
func (s WalletTransactionSource) ReleasesReservation() bool {
	switch s {
	case SourcePayoutFailed, SourcePayoutCanceled, SourceAdjustment:
		return true
	}
	return false
}

// WalletTransactionStatus maps to the wallet_transaction_status enum in Postgres.
type WalletTransactionStatus string

const (
	WalletTransactionPending   WalletTransactionStatus = "pending"
	WalletTransactionCompleted WalletTransactionStatus = "completed"
	WalletTransactionFailed    WalletTransactionStatus = "failed"
)

func (s WalletTransactionStatus) IsValid() bool {
	return set[WalletTransactionStatus]{WalletTransactionPending, WalletTransactionCompleted, WalletTransactionFailed}.has(s)
}
