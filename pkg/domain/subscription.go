package domain

import "time"

// SubscriptionID is the opaque identifier of an email subscription.
type SubscriptionID string

// Subscription binds a subscriber's email address to a monitored domain.
type Subscription struct {
	// ID identifies the subscription.
	ID SubscriptionID `cbor:"id" json:"id"`
	// Email is the subscriber's address.
	Email string `cbor:"email" json:"email"`
	// Domain is the normalized domain the subscriber is watching.
	Domain string `cbor:"domain" json:"domain"`
	// CreatedAt is when the subscription was (re)created.
	CreatedAt time.Time `cbor:"created_at" json:"createdAt"`
	// LastEmailSentAt is when the last notification was sent; nil means never.
	LastEmailSentAt *time.Time `cbor:"last_email_sent_at" json:"lastEmailSentAt,omitempty"`
}
