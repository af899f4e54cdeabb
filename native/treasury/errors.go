package treasury

import "errors"

var (
	ErrReserveViolation     = errors.New("treasury: sweep failed: reserve would be violated")
	ErrInvalidAmount        = errors.New("treasury: invalid amount")
	ErrBurnExceedsAvailable = errors.New("treasury: burn failed: exceeds available supply")
	ErrNotConfirmed         = errors.New("treasury: mint failed: transaction not confirmed")
	ErrAlreadyMinted        = errors.New("treasury: mint failed: reward already minted")
	ErrSupplyDepleted       = errors.New("treasury: mint failed: supply depleted")
)
