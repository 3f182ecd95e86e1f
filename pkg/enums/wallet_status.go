package enums

// WalletStatus maps to the wallet_status enum in Postgres. Only active wallets
// accept credits and payout requests.
type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "active"
	WalletStatusSuspended WalletStatus = "suspended"
	WalletStatusClosed    WalletStatus = "closed"
)

var walletStatuses = set[WalletStatus]{WalletStatusActive, WalletStatusSuspended, WalletStatusClosed}

func (s WalletStatus) String() string { return string(s) }

func (s WalletStatus) IsValid() bool { return walletStatuses.has(s) }
