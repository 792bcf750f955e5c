package vault

import "errors"

var (
	ErrAlreadyExists       = errors.New("vault already exists")
	ErrVaultLocked         = errors.New("vault is still locked")
	ErrUnauthorized        = errors.New("caller is not the vault owner")
	ErrNotFound            = errors.New("vault not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidLockDuration = errors.New("lock duration must not be negative")
	ErrInvalidRecord       = errors.New("invalid vault record")
)
