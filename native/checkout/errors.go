package checkout

import "errors"

var (
	ErrEmptyCart          = errors.New("checkout: cart is empty")
	ErrNoActiveSession    = errors.New("checkout: no active session")
	ErrSessionMismatch    = errors.New("checkout: session belongs to a different transaction")
	ErrSessionNotAwaiting = errors.New("checkout: session is not awaiting payment")
	ErrInvalidTransition  = errors.New("checkout: invalid status transition")
	ErrNotExpired         = errors.New("checkout: payment window still open")
)
