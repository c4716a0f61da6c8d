package handlers

import (
	"net/http"
	"testing"

	"github.com/ltdedn/editions_backend/workflow"
)

func TestStatusForOutcome(t *testing.T) {
	cases := []struct {
		outcome workflow.Outcome
		status  int
	}{
		{workflow.OutcomeOwned, http.StatusOK},
		{workflow.OutcomeAlreadyOwned, http.StatusOK},
		{workflow.OutcomeSelfTransfer, http.StatusOK},
		{workflow.OutcomeRedeemed, http.StatusOK},
		{workflow.OutcomeNotFound, http.StatusNotFound},
		{workflow.OutcomeRecipientNotFound, http.StatusNotFound},
		{workflow.OutcomeNotAllowed, http.StatusForbidden},
		{workflow.OutcomeAlreadyClaimed, http.StatusConflict},
		{workflow.OutcomeNotClaimable, http.StatusConflict},
		{workflow.OutcomeAlreadyPending, http.StatusConflict},
		{workflow.OutcomeNotResolvable, http.StatusConflict},
		{workflow.OutcomeTransferExpired, http.StatusGone},
		{workflow.OutcomeBusy, http.StatusServiceUnavailable},
		{workflow.OutcomeError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusForOutcome(tc.outcome); got != tc.status {
			t.Errorf("%s: expected %d, got %d", tc.outcome, tc.status, got)
		}
	}
}

func TestEveryOutcomeHasMessage(t *testing.T) {
	for _, outcome := range []workflow.Outcome{
		workflow.OutcomeOwned, workflow.OutcomeAlreadyOwned, workflow.OutcomeAlreadyClaimed,
		workflow.OutcomeNotClaimable, workflow.OutcomeTransferCreated, workflow.OutcomeTransferAccepted,
		workflow.OutcomeTransferRejected, workflow.OutcomeTransferCancelled, workflow.OutcomeTransferExpired,
		workflow.OutcomeSelfTransfer, workflow.OutcomeAlreadyPending, workflow.OutcomeNotResolvable,
		workflow.OutcomeRecipientNotFound, workflow.OutcomeRedeemed, workflow.OutcomeNotFound,
		workflow.OutcomeNotAllowed,
		workflow.OutcomeBusy, workflow.OutcomeError,
	} {
		if _, ok := outcomeMessages[outcome]; !ok {
			t.Errorf("outcome %s has no message", outcome)
		}
	}
}
