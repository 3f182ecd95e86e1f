package models

// All lists every persisted model, in dependency order, for schema bootstrapping
// in SQLite-backed development and tests. Postgres schemas come from migrations.
func All() []any {
	return []any{
		&Wallet{},
		&WalletTransaction{},
		&Sale{},
		&CommissionSetting{},
		&CreatorCommissionOverride{},
		&Payout{},
		&PayoutThreshold{},
		&CreatorAccount{},
		&OutboxEvent{},
		&OutboxDLQ{},
		&ExportCursor{},
	}
}
