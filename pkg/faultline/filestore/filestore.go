// Package filestore is the file-backed faultline.Store: one directory per
// open session holding a msgpack skeleton plus one file per appended event,
// and one msgpack record per finalized report. Every promotion to the
// finalized state goes through a temp-file rename, so a record is either
// absent or complete regardless of where the process died.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/faultline-io/faultline/pkg/faultline"
)

const (
	openDirName      = "open"
	finalizedDirName = "finalized"

	skeletonFileName = "report"
	userFileName     = "user"
	eventsDirName    = "events"

	eventFileSuffix  = ".evt"
	finalizedSuffix  = ".report"
	priorityMarker   = "_"
	eventCounterFmt  = "%010d"
	tempFilePattern  = "write-*"

	defaultMaxEventsPerSession = 8
	defaultMaxFinalizedReports = 4
)

// Option configures a Store.
type Option func(*Store)

// WithLimits sets the nonfatal-event retention bound per session and the
// cap on retained finalized reports. Non-positive values keep the defaults.
func WithLimits(maxEventsPerSession, maxFinalizedReports int) Option {
	return func(s *Store) {
		if maxEventsPerSession > 0 {
			s.maxEvents = maxEventsPerSession
		}
		if maxFinalizedReports > 0 {
			s.maxFinalized = maxFinalizedReports
		}
	}
}

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store implements faultline.Store on top of a root directory. Exactly one
// process instance may access the root at a time; no cross-process
// coordination is attempted.
type Store struct {
	root         string
	maxEvents    int
	maxFinalized int
	logger       *zap.Logger

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	counters map[string]uint64
}

var _ faultline.Store = (*Store)(nil)

// New opens (or creates) a store rooted at dir.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		root:         dir,
		maxEvents:    defaultMaxEventsPerSession,
		maxFinalized: defaultMaxFinalizedReports,
		logger:       zap.NewNop(),
		locks:        make(map[string]*sync.Mutex),
		counters:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, sub := range []string{openDirName, finalizedDirName} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create store layout: %w", err)
		}
	}
	return s, nil
}

// sessionLock returns the mutex serializing operations on one session id.
func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// evictSession drops the lock and counter bookkeeping for a session whose
// records are gone. Session ids are never reused, so a later operation on
// the same id only ever finds no-op work behind a fresh lock.
func (s *Store) evictSession(sessionID string) {
	s.mu.Lock()
	delete(s.locks, sessionID)
	delete(s.counters, sessionID)
	s.mu.Unlock()
}

func (s *Store) openDir(sessionID string) string {
	return filepath.Join(s.root, openDirName, sessionID)
}

func (s *Store) eventsDir(sessionID string) string {
	return filepath.Join(s.openDir(sessionID), eventsDirName)
}

func (s *Store) finalizedPath(sessionID string) string {
	return filepath.Join(s.root, finalizedDirName, sessionID+finalizedSuffix)
}

// CreateOpenReport establishes the durable open record for the report's
// session. The skeleton lands via temp-file rename so an I/O failure leaves
// no partial record.
func (s *Store) CreateOpenReport(ctx context.Context, report faultline.Report) error {
	sessionID := report.Session.ID
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.eventsDir(sessionID), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := writeMsgpack(filepath.Join(s.openDir(sessionID), skeletonFileName), report); err != nil {
		_ = os.RemoveAll(s.openDir(sessionID))
		return fmt.Errorf("persist open report %s: %w", sessionID, err)
	}
	return nil
}

// AppendEvent appends the event to the session's open report. Nonfatal
// events beyond the retention bound are dropped oldest-first. With
// highPriority set, the report is promoted to finalized before returning.
func (s *Store) AppendEvent(ctx context.Context, event faultline.Event, sessionID string, highPriority bool) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(s.openDir(sessionID)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", faultline.ErrNoOpenReport, sessionID)
		}
		return fmt.Errorf("stat open report %s: %w", sessionID, err)
	}

	counter, err := s.nextCounter(sessionID)
	if err != nil {
		return err
	}

	name := fmt.Sprintf(eventCounterFmt, counter)
	if highPriority {
		name += priorityMarker
	}
	if err := writeMsgpack(filepath.Join(s.eventsDir(sessionID), name+eventFileSuffix), event); err != nil {
		return fmt.Errorf("persist event for %s: %w", sessionID, err)
	}

	if !highPriority {
		s.trimNonFatalEvents(sessionID)
		return nil
	}

	// A fatal event makes the report delivery-ready immediately: combine and
	// promote before returning so the record survives a process death that
	// follows this call.
	return s.promoteLocked(sessionID, nil, nil, faultline.ReportTypeManaged)
}

// nextCounter hands out the next event ordinal for a session, seeding from
// the existing event files after a restart.
func (s *Store) nextCounter(sessionID string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.counters[sessionID]; ok {
		s.counters[sessionID] = n + 1
		return n + 1, nil
	}

	names, err := listEventFiles(s.eventsDir(sessionID))
	if err != nil {
		return 0, fmt.Errorf("scan events for %s: %w", sessionID, err)
	}
	var n uint64
	if len(names) > 0 {
		// File names are zero-padded ordinals; the last one is the highest.
		last := strings.TrimSuffix(names[len(names)-1], priorityMarker)
		if high, parseErr := strconv.ParseUint(last, 10, 64); parseErr == nil {
			n = high
		} else {
			n = uint64(len(names))
		}
	}
	s.counters[sessionID] = n + 1
	return n + 1, nil
}

// trimNonFatalEvents enforces the per-session retention bound, deleting the
// oldest nonfatal event files first. Failures are logged and swallowed:
// retention is a quota control, not a correctness requirement.
func (s *Store) trimNonFatalEvents(sessionID string) {
	names, err := listEventFiles(s.eventsDir(sessionID))
	if err != nil {
		s.logger.Warn("retention scan failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	var nonFatal []string
	for _, name := range names {
		if !strings.HasSuffix(name, priorityMarker) {
			nonFatal = append(nonFatal, name)
		}
	}
	for i := 0; i < len(nonFatal)-s.maxEvents; i++ {
		path := filepath.Join(s.eventsDir(sessionID), nonFatal[i]+eventFileSuffix)
		if err := os.Remove(path); err != nil {
			s.logger.Warn("retention trim failed", zap.String("event", nonFatal[i]), zap.Error(err))
		}
	}
}

// SetUserID updates the open report's user id. A missing record is a no-op.
func (s *Store) SetUserID(ctx context.Context, userID, sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(s.openDir(sessionID)); errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("no open report to set user id on", zap.String("session_id", sessionID))
		return nil
	}
	if err := writeAtomic(filepath.Join(s.openDir(sessionID), userFileName), []byte(userID)); err != nil {
		return fmt.Errorf("persist user id for %s: %w", sessionID, err)
	}
	return nil
}

// FinalizeWithAttachments merges the native file bundle into the session's
// report and promotes it to finalized. A missing open record is a no-op.
func (s *Store) FinalizeWithAttachments(ctx context.Context, sessionID string, files []faultline.FilePayload) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(s.openDir(sessionID)); errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("no open report to finalize", zap.String("session_id", sessionID))
		return nil
	}
	return s.promoteLocked(sessionID, files, nil, faultline.ReportTypeNative)
}

// FinalizeAllExcept promotes every open report other than the current
// session's. Sessions that never captured an event are discarded rather
// than finalized. One session's failure does not abort the rest.
func (s *Store) FinalizeAllExcept(ctx context.Context, currentSessionID string, ts time.Time) error {
	entries, err := os.ReadDir(filepath.Join(s.root, openDirName))
	if err != nil {
		return fmt.Errorf("list open reports: %w", err)
	}

	for _, entry := range entries {
		sessionID := entry.Name()
		if !entry.IsDir() || sessionID == currentSessionID {
			continue
		}

		lock := s.sessionLock(sessionID)
		lock.Lock()
		names, listErr := listEventFiles(s.eventsDir(sessionID))
		if listErr == nil && len(names) == 0 {
			// Nothing captured: a report with no events has no value, drop it.
			_ = os.RemoveAll(s.openDir(sessionID))
			s.evictSession(sessionID)
			lock.Unlock()
			continue
		}
		if err := s.promoteLocked(sessionID, nil, &ts, faultline.ReportTypeManaged); err != nil {
			s.logger.Warn("failed to finalize stale session",
				zap.String("session_id", sessionID), zap.Error(err))
		}
		lock.Unlock()
	}
	return nil
}

// promoteLocked combines a session's skeleton, user id, and event files
// into a finalized record, writes it atomically, and removes the open
// record. Caller holds the session lock.
func (s *Store) promoteLocked(sessionID string, files []faultline.FilePayload, endedAt *time.Time, typ faultline.ReportType) error {
	report, err := s.combineLocked(sessionID)
	if err != nil {
		return err
	}

	report.Type = typ
	report.NativeFiles = files
	report.Session.EndedAt = endedAt

	stored := faultline.StoredReport{SessionID: sessionID, Report: report}
	if err := writeMsgpack(s.finalizedPath(sessionID), stored); err != nil {
		return fmt.Errorf("persist finalized report %s: %w", sessionID, err)
	}
	if err := os.RemoveAll(s.openDir(sessionID)); err != nil {
		s.logger.Warn("failed to remove open record after promotion",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	s.evictSession(sessionID)
	s.capFinalizedReports()
	return nil
}

// combineLocked reads the skeleton and replays the event files in ordinal
// order. Caller holds the session lock.
func (s *Store) combineLocked(sessionID string) (faultline.Report, error) {
	var report faultline.Report
	if err := readMsgpack(filepath.Join(s.openDir(sessionID), skeletonFileName), &report); err != nil {
		return report, fmt.Errorf("read open report %s: %w", sessionID, err)
	}

	if user, err := os.ReadFile(filepath.Join(s.openDir(sessionID), userFileName)); err == nil {
		report.Session.UserID = string(user)
	}

	names, err := listEventFiles(s.eventsDir(sessionID))
	if err != nil {
		return report, fmt.Errorf("list events for %s: %w", sessionID, err)
	}
	for _, name := range names {
		var event faultline.Event
		path := filepath.Join(s.eventsDir(sessionID), name+eventFileSuffix)
		if err := readMsgpack(path, &event); err != nil {
			s.logger.Warn("skipping unreadable event file", zap.String("path", path), zap.Error(err))
			continue
		}
		report.Events = append(report.Events, event)
	}
	return report, nil
}

// capFinalizedReports prunes the oldest finalized records beyond the cap.
func (s *Store) capFinalizedReports() {
	dir := filepath.Join(s.root, finalizedDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("finalized cap scan failed", zap.Error(err))
		return
	}

	type aged struct {
		name string
		mod  time.Time
	}
	var records []aged
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		records = append(records, aged{name: entry.Name(), mod: info.ModTime()})
	}
	if len(records) <= s.maxFinalized {
		return
	}

	sort.Slice(records, func(i, j int) bool { return records[i].mod.Before(records[j].mod) })
	for _, record := range records[:len(records)-s.maxFinalized] {
		if err := os.Remove(filepath.Join(dir, record.name)); err != nil {
			s.logger.Warn("finalized cap trim failed", zap.String("record", record.name), zap.Error(err))
		}
	}
}

// LoadFinalizedReports returns a snapshot of all finalized records.
// Unreadable records are skipped, never aborting the load.
func (s *Store) LoadFinalizedReports(ctx context.Context) ([]faultline.StoredReport, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, finalizedDirName))
	if err != nil {
		return nil, fmt.Errorf("list finalized reports: %w", err)
	}

	var reports []faultline.StoredReport
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), finalizedSuffix) {
			continue
		}
		var stored faultline.StoredReport
		path := filepath.Join(s.root, finalizedDirName, entry.Name())
		if err := readMsgpack(path, &stored); err != nil {
			s.logger.Warn("skipping unreadable finalized report", zap.String("path", path), zap.Error(err))
			continue
		}
		reports = append(reports, stored)
	}
	return reports, nil
}

// DeleteFinalizedReport removes the finalized record. Absence is a no-op.
func (s *Store) DeleteFinalizedReport(ctx context.Context, sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(s.finalizedPath(sessionID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete finalized report %s: %w", sessionID, err)
	}
	s.evictSession(sessionID)
	return nil
}

// DeleteAll removes every record, open or finalized.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	s.locks = make(map[string]*sync.Mutex)
	s.counters = make(map[string]uint64)
	s.mu.Unlock()

	var errs []error
	for _, sub := range []string{openDirName, finalizedDirName} {
		dir := filepath.Join(s.root, sub)
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// listEventFiles returns event file base names (suffix stripped) in ordinal
// order. A missing directory yields an empty list.
func listEventFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), eventFileSuffix) {
			names = append(names, strings.TrimSuffix(entry.Name(), eventFileSuffix))
		}
	}
	sort.Strings(names)
	return names, nil
}

// writeMsgpack encodes v and writes it atomically.
func writeMsgpack(path string, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// readMsgpack decodes the file at path into v.
func readMsgpack(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(data, v)
}

// writeAtomic writes data to a temp file in the target directory and
// renames it into place, so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
