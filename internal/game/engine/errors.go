package engine

import "errors"

// Rule violations are expected and recoverable: the engine rejects the
// call, mutates nothing, and the calling layer decides how to surface
// it. Only configuration and persistence problems are hard failures.
var (
	ErrGameNotActive    = errors.New("game is not active")
	ErrUnknownPlayer    = errors.New("player is not in this game")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrAlreadyRolled    = errors.New("already rolled this turn")
	ErrRollInFlight     = errors.New("dice are already in flight")
	ErrHasNotRolled     = errors.New("active player has not rolled yet")
	ErrCardPending      = errors.New("a drawn card awaits acknowledgement")
	ErrNoCardPending    = errors.New("no card awaits acknowledgement")
	ErrTileNotOwnable   = errors.New("tile cannot be owned")
	ErrTileAlreadyOwned = errors.New("tile already has an owner")
	ErrNotTileOwner     = errors.New("player does not own this tile")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTooFewVisits     = errors.New("not enough visits on this tile to build")
	ErrNeedChurchFirst  = errors.New("a synagogue requires a church on the tile")
	ErrRentNotDue       = errors.New("no rent is due on this tile")
	ErrRentAlreadyPaid  = errors.New("rent already paid on this tile this turn")
	ErrTradingDisabled  = errors.New("trading between players is not supported")
)

var validationErrs = []error{
	ErrGameNotActive, ErrUnknownPlayer, ErrNotYourTurn, ErrAlreadyRolled,
	ErrRollInFlight, ErrHasNotRolled, ErrCardPending, ErrNoCardPending,
	ErrTileNotOwnable, ErrTileAlreadyOwned, ErrNotTileOwner,
	ErrInsufficientFunds, ErrTooFewVisits, ErrNeedChurchFirst,
	ErrRentNotDue, ErrRentAlreadyPaid, ErrTradingDisabled,
}

// IsValidation reports whether err is an expected rule violation rather
// than a configuration or infrastructure failure.
func IsValidation(err error) bool {
	for _, v := range validationErrs {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
