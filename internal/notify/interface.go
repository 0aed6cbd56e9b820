package notify

import (
	"context"

	"typowatch/pkg/domain"
)

// Processor decides whether a subscriber is due a notification and sends it.
//
//go:generate mockgen -package mocknotify -source=interface.go -destination=mock/mocknotify.go *
type Processor interface {
	// ProcessSub handles subscription id. Identity fields (email, domain) are
	// taken from sub; when they are empty the stored subscription fills them.
	// Whether an email is due is always decided from stored state.
	ProcessSub(ctx context.Context, id domain.SubscriptionID, sub domain.Subscription) error
}
