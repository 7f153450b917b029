package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkalnins/warranty-keeper/internal/document"
)

// Alert is everything a notification channel needs to tell the user
// about a warranty running out.
type Alert struct {
	DocumentID      string
	Title           string
	DaysUntilExpiry int
	ExpiryDate      string
}

// Message renders the user-facing notification text.
func (a Alert) Message() string {
	switch {
	case a.DaysUntilExpiry < 0:
		return fmt.Sprintf("Warranty for %q expired on %s", a.Title, a.ExpiryDate)
	case a.DaysUntilExpiry == 0:
		return fmt.Sprintf("Warranty for %q expires today (%s)", a.Title, a.ExpiryDate)
	case a.DaysUntilExpiry == 1:
		return fmt.Sprintf("Warranty for %q expires tomorrow (%s)", a.Title, a.ExpiryDate)
	default:
		return fmt.Sprintf("Warranty for %q expires in %d days (%s)", a.Title, a.DaysUntilExpiry, a.ExpiryDate)
	}
}

// Dispatcher delivers alerts to the user. Delivery mechanics (push, mail,
// whatever the platform offers) live behind this seam.
type Dispatcher interface {
	Dispatch(alert Alert) error
}

// LogDispatcher writes alerts to the log. It is the default channel and
// the one integration tests observe.
type LogDispatcher struct{}

// Dispatch logs the alert.
func (LogDispatcher) Dispatch(alert Alert) error {
	slog.Info("Warranty expiry alert",
		"document", alert.DocumentID,
		"title", alert.Title,
		"days_until_expiry", alert.DaysUntilExpiry,
		"expiry_date", alert.ExpiryDate,
	)
	return nil
}

// Notifier periodically scans one account's warranties and dispatches an
// alert for each one expiring soon or already expired. Each document is
// alerted at most once per process lifetime.
type Notifier struct {
	service    *document.Service
	dispatcher Dispatcher
	account    string
	alerted    map[string]bool
}

// NewNotifier creates a Notifier for one account.
func NewNotifier(service *document.Service, dispatcher Dispatcher, account string) *Notifier {
	return &Notifier{
		service:    service,
		dispatcher: dispatcher,
		account:    account,
		alerted:    make(map[string]bool),
	}
}

// CheckOnce scans warranties at the given instant and dispatches alerts
// for documents not alerted before. It returns the alerts dispatched.
func (n *Notifier) CheckOnce(now time.Time) ([]Alert, error) {
	docs, err := n.service.ExpiringWarranties(n.account, now)
	if err != nil {
		return nil, fmt.Errorf("listing expiring warranties: %w", err)
	}

	var dispatched []Alert
	for _, doc := range docs {
		if n.alerted[doc.ID] {
			continue
		}
		alert := Alert{
			DocumentID:      doc.ID,
			Title:           doc.Title,
			DaysUntilExpiry: document.DaysUntilExpiry(*doc.WarrantyEndDate, now),
			ExpiryDate:      doc.WarrantyEndDate.Format("02.01.2006"),
		}
		if err := n.dispatcher.Dispatch(alert); err != nil {
			slog.Warn("Failed to dispatch alert", "document", doc.ID, "error", err)
			continue
		}
		n.alerted[doc.ID] = true
		dispatched = append(dispatched, alert)
	}
	return dispatched, nil
}

// Run checks immediately and then on every tick until the context is
// cancelled.
func (n *Notifier) Run(ctx context.Context, interval time.Duration) {
	if _, err := n.CheckOnce(time.Now()); err != nil {
		slog.Error("Expiry check failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := n.CheckOnce(time.Now()); err != nil {
				slog.Error("Expiry check failed", "error", err)
			}
		}
	}
}
