package services

import "errors"

// Error taxonomy for the raffle lifecycle. Every mutating operation fails
// with one of these before any state is written, so callers can branch on
// cause (retry with a larger deposit on ErrIncorrectFunds, stop polling on
// ErrRaffleEnded).
var (
	// ErrUnauthorized is returned when the caller is not the required identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrWrongGameID is returned when no game exists for the id.
	ErrWrongGameID = errors.New("game with provided id does not exist")

	// ErrRaffleEnded is returned when the game has already been settled.
	ErrRaffleEnded = errors.New("raffle has ended")

	// ErrRaffleTimeOver is returned when a purchase arrives at or after the
	// game's end time.
	ErrRaffleTimeOver = errors.New("raffle time is over")

	// ErrRaffleSoldOut is returned when every ticket has been sold.
	ErrRaffleSoldOut = errors.New("raffle is sold out")

	// ErrCantFinishGame is returned when settlement is attempted before the
	// game's end time.
	ErrCantFinishGame = errors.New("game end time has not been reached")

	// ErrIncorrectFunds is returned when the deposit is below one ticket's
	// price. Overpayment is never an error; the excess is refunded.
	ErrIncorrectFunds = errors.New("deposit is below the ticket price")

	// ErrCantAccessPrize is returned when the treasury neither owns nor is
	// approved to move the prize token.
	ErrCantAccessPrize = errors.New("prize is not transferable by the treasury")

	// ErrMissingNftContractAddr is returned when a custody operation is
	// attempted on a game whose prize reference was never attached.
	ErrMissingNftContractAddr = errors.New("game has no nft contract address")
)
