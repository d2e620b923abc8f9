package store

// ClaimStatus reports the outcome of an attempt to claim a queued row.
// Claiming is an atomic conditional update, so under concurrent workers
// exactly one claimer wins and the others observe ClaimLostRace.
type ClaimStatus int

// Possible claim outcomes
const (
	// ClaimWon means the row was claimed and is now owned by the caller.
	ClaimWon ClaimStatus = iota

	// ClaimNoneAvailable means no eligible row exists.
	ClaimNoneAvailable

	// ClaimLostRace means an eligible row existed but another worker
	// claimed it first.
	ClaimLostRace
)

// String returns a human-readable claim status for logging.
func (s ClaimStatus) String() string {
	switch s {
	case ClaimWon:
		return "claimed"
	case ClaimNoneAvailable:
		return "none_available"
	case ClaimLostRace:
		return "lost_race"
	default:
		return "unknown"
	}
}
