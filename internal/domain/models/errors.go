package models

import "errors"

// Domain error taxonomy. Refresh-path failures are recorded into persisted
// state and never abort the scheduler loop; trade failures surface to the
// caller synchronously without mutating the portfolio.
var (
	// ErrDataUnavailable means no provider (nor the archive) produced history.
	ErrDataUnavailable = errors.New("no price data available")

	// ErrInsufficientData means history was present but too short after
	// feature construction to form a supervised set.
	ErrInsufficientData = errors.New("insufficient history to train")

	// ErrTrainingFailure means the underlying learner rejected the data.
	ErrTrainingFailure = errors.New("model training failed")

	// ErrInvalidTrade rejects a trade request with a missing price or a
	// non-positive amount.
	ErrInvalidTrade = errors.New("invalid price or amount")

	// ErrNoPrice rejects a trade request when no current price is known.
	ErrNoPrice = errors.New("no price available")

	// ErrArtifactNotFound means no persisted model artifact exists for the
	// requested ticker and horizon kind.
	ErrArtifactNotFound = errors.New("model artifact not found")
)
