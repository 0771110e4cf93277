package transaction

import "alumnet/internal/models"

// Operation names reported to the MetricsCollector.
const (
	OpOpen     = "open"
	OpFeedback = "feedback"
	OpComplete = "complete"
	OpCancel   = "cancel"
	OpAdjust   = "adjust_offered"
	OpDispute  = "dispute"
	OpResolve  = "resolve_dispute"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// feedbackStatuses are the statuses in which participants may rate each other.
var feedbackStatuses = []models.TransactionStatus{
	models.TransactionInProgress,
	models.TransactionCompleted,
	models.TransactionDisputed,
}

var cancellableStatuses = []models.TransactionStatus{
	models.TransactionPending,
	models.TransactionInProgress,
}

var disputableStatuses = []models.TransactionStatus{
	models.TransactionPending,
	models.TransactionInProgress,
	models.TransactionCompleted,
}

func statusIn(s models.TransactionStatus, set []models.TransactionStatus) bool {
	for _, c := range set {
		if s == c {
			return true
		}
	}
	return false
}
