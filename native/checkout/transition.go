package checkout

import "time"

func guard(s Session, txID string) error {
	if s.TxID != txID {
		return ErrSessionMismatch
	}
	return nil
}

// Submit records the customer's payment. A session whose window already
// closed moves to expired instead of broadcasting; callers inspect the
// returned status.
func Submit(s Session, txID string, at time.Time, networkRef string) (Session, error) {
	if err := guard(s, txID); err != nil {
		return s, err
	}
	if s.Status != StatusAwaitingPayment {
		return s, ErrSessionNotAwaiting
	}
	next := s.Clone()
	if s.Expired(at) {
		next.Status = StatusExpired
		next.FailureReason = ReasonRequestExpired
		return next, nil
	}
	paid := at
	next.Status = StatusBroadcasting
	next.PaidAt = &paid
	next.NetworkRef = networkRef
	next.FailureReason = ""
	return next, nil
}

// Broadcasted moves a broadcasting payment to confirming.
func Broadcasted(s Session, txID string) (Session, error) {
	if err := guard(s, txID); err != nil {
		return s, err
	}
	if s.Status != StatusBroadcasting {
		return s, ErrInvalidTransition
	}
	next := s.Clone()
	next.Status = StatusConfirming
	return next, nil
}

// Outcome decides how an in-flight payment settles at time at. roll is a
// uniform draw in [0, 1) compared against the success probability.
func Outcome(s Session, at time.Time, roll, successProbability float64) Status {
	if s.Expired(at) {
		return StatusExpired
	}
	if roll < successProbability {
		return StatusConfirmed
	}
	return StatusFailed
}

func settling(s Session) bool {
	return s.Status == StatusBroadcasting || s.Status == StatusConfirming
}

// Confirm settles an in-flight payment. minted is the reward actually
// credited and note explains a reduced or skipped reward.
func Confirm(s Session, txID string, at time.Time, minted int64, note string) (Session, error) {
	if err := guard(s, txID); err != nil {
		return s, err
	}
	if !settling(s) {
		return s, ErrInvalidTransition
	}
	if s.Expired(at) {
		return s, ErrInvalidTransition
	}
	confirmed := at
	next := s.Clone()
	next.Status = StatusConfirmed
	next.TokenReward = minted
	next.ConfirmedAt = &confirmed
	next.FailureReason = ""
	next.MintNote = note
	return next, nil
}

// Fail settles an in-flight payment as failed or expired.
func Fail(s Session, txID string, status Status, reason string) (Session, error) {
	if err := guard(s, txID); err != nil {
		return s, err
	}
	if status != StatusFailed && status != StatusExpired {
		return s, ErrInvalidTransition
	}
	if !settling(s) {
		return s, ErrInvalidTransition
	}
	next := s.Clone()
	next.Status = status
	next.FailureReason = reason
	return next, nil
}

// Expire closes a session still awaiting payment once its window has passed.
func Expire(s Session, txID string, at time.Time) (Session, error) {
	if err := guard(s, txID); err != nil {
		return s, err
	}
	if s.Status != StatusAwaitingPayment {
		return s, ErrInvalidTransition
	}
	if !s.Expired(at) {
		return s, ErrNotExpired
	}
	next := s.Clone()
	next.Status = StatusExpired
	next.FailureReason = ReasonRequestExpired
	return next, nil
}

// Minted records a reward credited after settlement, clearing any mint note.
func Minted(s Session, txID string, tokens int64) (Session, error) {
	if err := guard(s, txID); err != nil {
		return s, err
	}
	next := s.Clone()
	next.TokenReward = tokens
	next.MintNote = ""
	return next, nil
}

// DropProduct removes a deleted product's lines from the order record
// without affecting the session's status or amounts.
func DropProduct(s Session, productID string) Session {
	next := s.Clone()
	lines := next.OrderLines[:0]
	for _, line := range next.OrderLines {
		if line.ProductID != productID {
			lines = append(lines, line)
		}
	}
	next.OrderLines = lines
	return next
}
