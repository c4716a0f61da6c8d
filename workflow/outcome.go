package workflow

// Outcome classifies how a claim, transfer, or redeem attempt ended. Handlers
// map these to HTTP statuses; workflows never return raw gorm errors for
// expected business results.
type Outcome string

const (
	// claim
	OutcomeOwned          Outcome = "Owned"
	OutcomeAlreadyOwned   Outcome = "AlreadyOwned"
	OutcomeAlreadyClaimed Outcome = "AlreadyClaimed"
	OutcomeNotClaimable   Outcome = "NotClaimable"

	// transfer
	OutcomeTransferCreated   Outcome = "TransferCreated"
	OutcomeTransferAccepted  Outcome = "TransferAccepted"
	OutcomeTransferRejected  Outcome = "TransferRejected"
	OutcomeTransferCancelled Outcome = "TransferCancelled"
	OutcomeTransferExpired   Outcome = "TransferExpired"
	OutcomeSelfTransfer      Outcome = "SelfTransfer"
	OutcomeAlreadyPending    Outcome = "AlreadyPending"
	OutcomeNotResolvable     Outcome = "NotResolvable"
	OutcomeRecipientNotFound Outcome = "RecipientNotFound"

	// redeem
	OutcomeRedeemed Outcome = "Redeemed"

	// shared
	OutcomeNotFound   Outcome = "NotFound"
	OutcomeNotAllowed Outcome = "NotAllowed"
	OutcomeBusy       Outcome = "Busy"
	OutcomeError      Outcome = "Error"
)
