// Package faultline is a durable crash and event capture-persist-deliver
// pipeline for client-side diagnostics. It turns raised errors, panics, and
// logged incidents into structured, immutable report records that survive
// process death, and later transmits them to a backend with retryable,
// at-least-once delivery.
//
// # Core Components
//
// The library is organized around these concepts:
//
//   - Report/Event: the immutable per-session record of captured incidents
//   - DataCapture: pure, non-blocking transformation of raw incidents into events
//   - Store: durable per-session persistence with open and finalized states
//   - Tracker: process-wide session lifecycle and the capture/persist path
//   - Coordinator: policy-driven delivery with acknowledgment-based cleanup
//   - Sender/Executor: asynchronous transport and completion dispatch
//
// # Quick Start
//
//	store, _ := filestore.New(dir, filestore.WithLimits(settings.MaxEventsPerSession, settings.MaxFinalizedReports))
//	capture := faultline.NewDataCapture(app, faultline.NewIdentityProvider(), meta, logs, nil)
//	tracker := faultline.NewTracker(store, capture, meta, faultline.WithLogBuffer(logs))
//
//	tracker.BeginSession(ctx, sessionID, time.Now())
//	tracker.FinalizeSessions(ctx, time.Now()) // recover prior crashed sessions
//	defer faultline.Recover(ctx, tracker)
//
//	coordinator := faultline.NewCoordinator(store, httpsender.New(endpoint))
//	coordinator.SendAll(ctx, orgID, faultline.PolicyAll, exec)
//
// # Design Principles
//
//   - A fatal event is durable and delivery-ready the moment the append
//     returns, even if the process dies immediately afterwards
//   - Delivery is at-least-once: a send that never completes retains its
//     record, favoring duplicate delivery over silent loss
//   - No failure inside the pipeline escalates to process-fatal; every path
//     resolves to skip-and-continue or retain-and-retry
package faultline

// Version is the faultline release version stamped into reports.
const Version = "0.4.1"
