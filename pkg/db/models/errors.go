package models

import "errors"

// ErrLedgerImmutable is returned by hooks guarding append-only tables.
var ErrLedgerImmutable = errors.New("wallet transactions are append-only")
