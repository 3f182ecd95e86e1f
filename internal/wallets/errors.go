package wallets

import (
	"github.com/google/uuid"

	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
)

// WalletNotFoundError reports a missing wallet, by wallet or creator id.
func WalletNotFoundError(field string, id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found").
		WithDetails(map[string]any{field: id.String()})
}

// WalletNotActiveError reports a suspended or closed wallet.
func WalletNotActiveError(walletID uuid.UUID, status string) error {
	return pkgerrors.New(pkgerrors.CodeWalletNotActive, "wallet is not active").
		WithDetails(map[string]any{"wallet_id": walletID.String(), "status": status})
}
