// Package notify delivers auction alerts by email.
package notify

import (
	"github.com/TheOneAtFault/auction-monitor/internal/storage"
)

// Notifier sends alert emails. A failed send is reported as an error and
// must never be fatal to the caller; the orchestrator uses the outcome to
// decide whether to record the notification.
type Notifier interface {
	// SendNotification emails one matched item to one recipient.
	SendNotification(recipient string, item storage.AuctionItem, matchedTerm string) error

	// SendTest sends a configuration-check email.
	SendTest(recipient string) error
}
