// coordinator.go drives policy-filtered delivery of finalized reports and
// reconciles store state from send completions.

package faultline

import (
	"context"

	"go.uber.org/zap"
)

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*coordinatorConfig)

type coordinatorConfig struct {
	logger *zap.Logger
}

// WithCoordinatorLogger sets the diagnostic logger. Defaults to a no-op
// logger.
func WithCoordinatorLogger(logger *zap.Logger) CoordinatorOption {
	return func(c *coordinatorConfig) {
		c.logger = logger
	}
}

// Coordinator loads finalized reports, applies a delivery policy, hands
// each eligible report to the sender, and deletes records whose delivery
// was acknowledged. It owns no retry loop: a failed send leaves its record
// in place, eligible again on the next SendAll call.
type Coordinator struct {
	store  Store
	sender Sender
	logger *zap.Logger
}

// NewCoordinator wires a Coordinator over the store and sender.
func NewCoordinator(store Store, sender Sender, opts ...CoordinatorOption) *Coordinator {
	cfg := &coordinatorConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Coordinator{
		store:  store,
		sender: sender,
		logger: cfg.logger,
	}
}

// SendAll transmits every finalized report permitted by policy.
//
// PolicyDisabled deletes all records without contacting the sender. Under
// PolicyManagedOnly a native report is deleted without sender invocation
// while the rest of the batch proceeds. Each eligible report is submitted
// independently and asynchronously; completion handling runs on executor,
// never on a goroutine the sender owns. Acknowledged reports are deleted;
// failed ones are retained for a later SendAll.
func (c *Coordinator) SendAll(ctx context.Context, orgID string, policy Policy, executor Executor) error {
	if policy == PolicyDisabled {
		c.logger.Debug("sending disabled, removing all reports")
		return c.store.DeleteAll(ctx)
	}

	reports, err := c.store.LoadFinalizedReports(ctx)
	if err != nil {
		return err
	}

	for _, stored := range reports {
		if stored.Report.Type == ReportTypeNative && policy != PolicyAll {
			c.logger.Debug("native sending disabled, removing report",
				zap.String("session_id", stored.SessionID))
			if err := c.store.DeleteFinalizedReport(ctx, stored.SessionID); err != nil {
				c.logger.Warn("failed to remove filtered native report",
					zap.String("session_id", stored.SessionID), zap.Error(err))
			}
			continue
		}

		stored.Report = stored.Report.WithOrganizationID(orgID)
		c.submit(ctx, stored, executor)
	}

	return nil
}

// submit hands one report to the sender and schedules its completion
// bookkeeping on the executor.
func (c *Coordinator) submit(ctx context.Context, stored StoredReport, executor Executor) {
	result := c.sender.Send(ctx, stored)
	go func() {
		err := <-result
		executor.Execute(func() {
			c.onSendComplete(ctx, stored, err)
		})
	}()
}

// onSendComplete deletes the record on acknowledged delivery and retains it
// otherwise.
func (c *Coordinator) onSendComplete(ctx context.Context, stored StoredReport, sendErr error) {
	if sendErr != nil {
		c.logger.Warn("report send failed, retaining for retry",
			zap.String("session_id", stored.SessionID), zap.Error(sendErr))
		return
	}

	c.logger.Info("report successfully delivered",
		zap.String("session_id", stored.SessionID))
	if err := c.store.DeleteFinalizedReport(ctx, stored.SessionID); err != nil {
		c.logger.Warn("failed to remove delivered report",
			zap.String("session_id", stored.SessionID), zap.Error(err))
	}
}
