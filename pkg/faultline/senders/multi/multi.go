// Package multi provides a sender that fans one report out to multiple
// senders. Delivery is acknowledged only when every sender succeeds, so a
// partial failure retains the record for retry.
package multi

import (
	"context"
	"errors"

	"github.com/faultline-io/faultline/pkg/faultline"
)

// multiSender fans out to multiple senders.
type multiSender struct {
	senders []faultline.Sender
}

// New creates a sender that submits each report to every given sender.
// The combined result succeeds iff all sends succeed; errors are aggregated
// via errors.Join.
func New(senders ...faultline.Sender) faultline.Sender {
	return &multiSender{senders: senders}
}

// Send submits the report to all senders and resolves once every one has
// completed.
func (m *multiSender) Send(ctx context.Context, report faultline.StoredReport) <-chan error {
	results := make([]<-chan error, len(m.senders))
	for i, sender := range m.senders {
		results[i] = sender.Send(ctx, report)
	}

	combined := make(chan error, 1)
	go func() {
		defer close(combined)
		var errs []error
		for _, result := range results {
			if err := <-result; err != nil {
				errs = append(errs, err)
			}
		}
		combined <- errors.Join(errs...)
	}()
	return combined
}
