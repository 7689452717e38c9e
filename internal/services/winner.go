package services

import "github.com/raffleworks/raffle-backend/pkg/chain"

// WinnerIndex derives the zero-based winning ticket index for a game from
// the block metadata of the settling transaction. The formula is kept
// bit-compatible with the on-chain contract this service mirrors, including
// its operator ordering, so the same inputs always name the same ticket.
//
// The result is a pure function of values every observer can read (or, for
// a block proposer, influence) before settlement lands: block time and
// height. It is deterministic and uniformly ranged over
// [0, totalTicketCount), but it is not cryptographically unpredictable.
// A commit-reveal scheme or a verifiable randomness beacon would close that
// gap; this port intentionally does not change the draw.
func WinnerIndex(totalTicketCount, soldTicketCount uint64, block chain.Block) uint64 {
	mod := totalTicketCount
	nanos := block.TimeNanos()
	height := block.Height

	seedAssist := soldTicketCount % mod * (nanos/1024/mod + height%mod*256%mod + 1) % mod
	seed := (nanos%mod + height + seedAssist) % mod
	return seed % mod
}
