package faultline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeSender records submissions and resolves them with configured results.
type fakeSender struct {
	mu      sync.Mutex
	sent    []StoredReport
	failFor map[string]error
}

var _ Sender = (*fakeSender)(nil)

func (s *fakeSender) Send(ctx context.Context, report StoredReport) <-chan error {
	s.mu.Lock()
	s.sent = append(s.sent, report)
	err := s.failFor[report.SessionID]
	s.mu.Unlock()

	result := make(chan error, 1)
	result <- err
	close(result)
	return result
}

func (s *fakeSender) sentSessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, r := range s.sent {
		out[i] = r.SessionID
	}
	return out
}

// waitExecutor runs callbacks inline and lets tests wait for a given count.
type waitExecutor struct {
	wg sync.WaitGroup
}

func (e *waitExecutor) expect(n int) { e.wg.Add(n) }

func (e *waitExecutor) Execute(fn func()) {
	fn()
	e.wg.Done()
}

func finalize(t *testing.T, store *memStore, sessionID string, typ ReportType) {
	t.Helper()
	report := Report{Type: typ, Session: SessionInfo{ID: sessionID}}
	if err := store.CreateOpenReport(context.Background(), report); err != nil {
		t.Fatalf("CreateOpenReport: %v", err)
	}
	if typ == ReportTypeNative {
		if err := store.FinalizeWithAttachments(context.Background(), sessionID, nil); err != nil {
			t.Fatalf("FinalizeWithAttachments: %v", err)
		}
		return
	}
	if err := store.FinalizeAllExcept(context.Background(), "", time.Now()); err != nil {
		t.Fatalf("FinalizeAllExcept: %v", err)
	}
}

func TestSendAll_DisabledDeletesEverythingWithoutSending(t *testing.T) {
	store := newMemStore()
	sender := &fakeSender{}
	finalize(t, store, "s1", ReportTypeManaged)

	coordinator := NewCoordinator(store, sender)
	if err := coordinator.SendAll(context.Background(), "org", PolicyDisabled, ExecutorFunc(func(fn func()) { fn() })); err != nil {
		t.Fatalf("SendAll: %v", err)
	}

	if len(sender.sentSessions()) != 0 {
		t.Error("sender must not be invoked when sending is disabled")
	}
	if len(store.finalizedSessions()) != 0 {
		t.Errorf("finalized set = %v, want empty", store.finalizedSessions())
	}
}

func TestSendAll_ManagedOnlyFiltersNativeWithoutAbortingBatch(t *testing.T) {
	store := newMemStore()
	sender := &fakeSender{}
	finalize(t, store, "native1", ReportTypeNative)
	finalize(t, store, "managed1", ReportTypeManaged)

	exec := &waitExecutor{}
	exec.expect(1) // only the managed report reaches the sender

	coordinator := NewCoordinator(store, sender)
	if err := coordinator.SendAll(context.Background(), "org", PolicyManagedOnly, exec); err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	exec.wg.Wait()

	sent := sender.sentSessions()
	if len(sent) != 1 || sent[0] != "managed1" {
		t.Errorf("sent sessions = %v, want [managed1]", sent)
	}
	if _, ok := store.finalizedSessions()["native1"]; ok {
		t.Error("filtered native report must be deleted")
	}
	if _, ok := store.finalizedSessions()["managed1"]; ok {
		t.Error("acknowledged managed report must be deleted")
	}
}

func TestSendAll_SuccessDeletesFailureRetains(t *testing.T) {
	store := newMemStore()
	sender := &fakeSender{failFor: map[string]error{
		"failing": errors.New("backend unavailable"),
	}}
	finalize(t, store, "failing", ReportTypeManaged)
	finalize(t, store, "passing", ReportTypeManaged)

	exec := &waitExecutor{}
	exec.expect(2)

	coordinator := NewCoordinator(store, sender)
	if err := coordinator.SendAll(context.Background(), "org", PolicyAll, exec); err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	exec.wg.Wait()

	finalized := store.finalizedSessions()
	if _, ok := finalized["passing"]; ok {
		t.Error("acknowledged report must be deleted")
	}
	if _, ok := finalized["failing"]; !ok {
		t.Error("failed report must be retained for retry")
	}
}

func TestSendAll_RetainedReportIsRetriedOnNextCall(t *testing.T) {
	store := newMemStore()
	sender := &fakeSender{failFor: map[string]error{
		"s1": errors.New("transient"),
	}}
	finalize(t, store, "s1", ReportTypeManaged)

	exec := &waitExecutor{}
	exec.expect(1)
	coordinator := NewCoordinator(store, sender)
	if err := coordinator.SendAll(context.Background(), "org", PolicyAll, exec); err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	exec.wg.Wait()

	// Backend recovers; the retained record is eligible again.
	sender.mu.Lock()
	delete(sender.failFor, "s1")
	sender.mu.Unlock()

	exec.expect(1)
	if err := coordinator.SendAll(context.Background(), "org", PolicyAll, exec); err != nil {
		t.Fatalf("SendAll retry: %v", err)
	}
	exec.wg.Wait()

	if got := sender.sentSessions(); len(got) != 2 {
		t.Errorf("send attempts = %v, want two attempts for s1", got)
	}
	if len(store.finalizedSessions()) != 0 {
		t.Error("acknowledged retry must delete the record")
	}
}

func TestSendAll_AttachesOrganizationID(t *testing.T) {
	store := newMemStore()
	sender := &fakeSender{}
	finalize(t, store, "s1", ReportTypeManaged)

	exec := &waitExecutor{}
	exec.expect(1)
	coordinator := NewCoordinator(store, sender)
	if err := coordinator.SendAll(context.Background(), "org-42", PolicyAll, exec); err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	exec.wg.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 1 || sender.sent[0].Report.OrgID != "org-42" {
		t.Errorf("submitted reports = %+v, want OrgID org-42", sender.sent)
	}
}

func TestSendAll_CompletionRunsOnSuppliedExecutor(t *testing.T) {
	store := newMemStore()
	sender := &fakeSender{}
	finalize(t, store, "s1", ReportTypeManaged)

	var mu sync.Mutex
	executions := 0
	done := make(chan struct{})
	exec := ExecutorFunc(func(fn func()) {
		mu.Lock()
		executions++
		mu.Unlock()
		fn()
		close(done)
	})

	coordinator := NewCoordinator(store, sender)
	if err := coordinator.SendAll(context.Background(), "org", PolicyAll, exec); err != nil {
		t.Fatalf("SendAll: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion never dispatched through the executor")
	}

	mu.Lock()
	defer mu.Unlock()
	if executions != 1 {
		t.Errorf("executor invocations = %d, want 1", executions)
	}
}
