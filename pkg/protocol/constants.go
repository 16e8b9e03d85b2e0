package protocol

import "time"

// HiveDir is the directory under the user's home where hive keeps its
// per-project databases and config.
const HiveDir = ".hive"

// Defaults for the product-tunable constants. Each is overridable via
// ~/.hive/config.toml; nothing in the core hard-codes these at call
// sites.
const (
	// DefaultReservationTTL bounds a file reservation when the caller
	// gives no TTL.
	DefaultReservationTTL = 15 * time.Minute

	// DefaultGoneThreshold is how long an agent may stay silent before
	// reads report it as gone.
	DefaultGoneThreshold = 30 * time.Minute

	// DefaultDecayWindow is how long a memory may go unvalidated
	// before its confidence starts to decay.
	DefaultDecayWindow = 90 * 24 * time.Hour

	// DefaultDecayHalfLife halves decayed confidence per interval past
	// the window.
	DefaultDecayHalfLife = 30 * 24 * time.Hour

	// DefaultUpsertTopK is how many candidate memories the smart
	// upsert retrieves for classification.
	DefaultUpsertTopK = 5

	// DefaultFindLimit caps find results when the caller gives none.
	DefaultFindLimit = 10

	// DefaultRRFK is the reciprocal-rank-fusion smoothing constant.
	DefaultRRFK = 60.0
)
