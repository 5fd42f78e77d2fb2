package commands

import "neptun/services/booking"

// process exit codes, part of the CLI contract
const (
	ExitSuccess             = 0
	ExitInvalidSubscription = 1
	ExitNoAvailability      = 2
	ExitBookingFailed       = 3
	ExitNetworkError        = 4
	ExitUnknownError        = 99
)

func exitCodeFor(outcome booking.Outcome) int {
	switch outcome {
	case booking.OutcomeSuccess:
		return ExitSuccess
	case booking.OutcomeInvalidSubscription:
		return ExitInvalidSubscription
	case booking.OutcomeNoAvailability:
		return ExitNoAvailability
	case booking.OutcomeBookingFailed:
		return ExitBookingFailed
	case booking.OutcomeNetworkError:
		return ExitNetworkError
	}
	return ExitUnknownError
}
