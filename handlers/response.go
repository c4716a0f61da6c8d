package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ltdedn/editions_backend/workflow"
)

// statusForOutcome maps workflow outcomes onto the HTTP surface. Success
// outcomes map to 200; callers that create resources use 201 directly.
func statusForOutcome(outcome workflow.Outcome) int {
	switch outcome {
	case workflow.OutcomeNotFound, workflow.OutcomeRecipientNotFound:
		return http.StatusNotFound
	case workflow.OutcomeNotAllowed:
		return http.StatusForbidden
	case workflow.OutcomeAlreadyClaimed, workflow.OutcomeAlreadyPending,
		workflow.OutcomeNotClaimable, workflow.OutcomeNotResolvable:
		return http.StatusConflict
	case workflow.OutcomeTransferExpired:
		return http.StatusGone
	case workflow.OutcomeBusy:
		return http.StatusServiceUnavailable
	case workflow.OutcomeError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

var outcomeMessages = map[workflow.Outcome]string{
	workflow.OutcomeOwned:             "edition claimed",
	workflow.OutcomeAlreadyOwned:      "you already own this edition",
	workflow.OutcomeAlreadyClaimed:    "edition already claimed by another user",
	workflow.OutcomeNotClaimable:      "edition is not claimable",
	workflow.OutcomeTransferCreated:   "transfer created",
	workflow.OutcomeTransferAccepted:  "transfer accepted",
	workflow.OutcomeTransferRejected:  "transfer rejected",
	workflow.OutcomeTransferCancelled: "transfer cancelled",
	workflow.OutcomeTransferExpired:   "transfer expired",
	workflow.OutcomeSelfTransfer:      "edition already belongs to this account",
	workflow.OutcomeAlreadyPending:    "edition already has a pending transfer",
	workflow.OutcomeNotResolvable:     "transfer is no longer pending",
	workflow.OutcomeRecipientNotFound: "no user with that email address",
	workflow.OutcomeRedeemed:          "edition redeemed",
	workflow.OutcomeNotFound:          "not found",
	workflow.OutcomeNotAllowed:        "not allowed",
	workflow.OutcomeBusy:              "edition is busy, try again",
	workflow.OutcomeError:             "internal error",
}

func respondOutcome(c *gin.Context, outcome workflow.Outcome, body gin.H) {
	status := statusForOutcome(outcome)
	if body == nil {
		body = gin.H{}
	}
	body["outcome"] = outcome
	if msg, ok := outcomeMessages[outcome]; ok {
		body["message"] = msg
	}
	c.JSON(status, body)
}

func respondInternalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
