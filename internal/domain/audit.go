package domain

import "time"

// AuditActorNone is recorded when an action has no authenticated actor.
const AuditActorNone = "none"

// AuditEntry is a write-only record of an action performed through the API.
type AuditEntry struct {
	ID             string
	Route          string
	RequestPayload string
	Actor          string
	CreatedAt      time.Time
}
