// Package noop provides a sender that discards reports and acknowledges
// them immediately. Useful for tests and for draining a store without a
// backend.
package noop

import (
	"context"

	"github.com/faultline-io/faultline/pkg/faultline"
)

// noopSender acknowledges every report without transmitting it.
type noopSender struct{}

// New creates a sender that discards all reports.
func New() faultline.Sender {
	return noopSender{}
}

// Send resolves immediately with success.
func (noopSender) Send(ctx context.Context, report faultline.StoredReport) <-chan error {
	result := make(chan error, 1)
	result <- nil
	close(result)
	return result
}
