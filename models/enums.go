package models

type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRoleArtist    UserRole = "artist"
	UserRoleCollector UserRole = "collector"
)

type EditionStatus string

const (
	EditionStatusAvailable       EditionStatus = "available"
	EditionStatusSold            EditionStatus = "sold"
	EditionStatusRedeemed        EditionStatus = "redeemed"
	EditionStatusPendingTransfer EditionStatus = "pending_transfer"
	EditionStatusInvalidated     EditionStatus = "invalidated"
)

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusAccepted  TransferStatus = "accepted"
	TransferStatusRejected  TransferStatus = "rejected"
	TransferStatusCancelled TransferStatus = "cancelled"
	TransferStatusExpired   TransferStatus = "expired"
)

// NotificationKind names every outbox event the platform emits.
type NotificationKind string

const (
	NotificationKindEditionClaimed             NotificationKind = "EditionClaimed"
	NotificationKindEditionClaimedConfirmation NotificationKind = "EditionClaimedConfirmation"
	NotificationKindEditionsSoldOut            NotificationKind = "EditionsSoldOut"
	NotificationKindTransferRequested          NotificationKind = "TransferRequested"
	NotificationKindTransferAccepted           NotificationKind = "TransferAccepted"
	NotificationKindTransferRejected           NotificationKind = "TransferRejected"
	NotificationKindTransferCancelled          NotificationKind = "TransferCancelled"
	NotificationKindTransferExpired            NotificationKind = "TransferExpired"
	NotificationKindEditionRedeemed            NotificationKind = "EditionRedeemed"
	NotificationKindAccountCreated             NotificationKind = "AccountCreated"
	NotificationKindMonthlyReport              NotificationKind = "MonthlyReport"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)
