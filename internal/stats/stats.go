// Package stats implements the process-wide I/O statistics singleton: total
// reads/writes/bytes, and serial/parallel time accounting for reads,
// writes, and all I/O combined. Grounded on original_source/io/iostats.h.
package stats

import (
	"sync"
	"time"

	"github.com/manpen/foxxll/internal/logging"
)

// WaitKind distinguishes which wait-time bucket a ScopedWaitTimer accrues
// to, mirroring stats::WAIT_OP_READ / WAIT_OP_WRITE.
type WaitKind int

const (
	WaitRead WaitKind = iota
	WaitWrite
)

// Data is an immutable snapshot of the counters, suitable for taking deltas
// across a benchmark window via Sub.
type Data struct {
	Reads, Writes         uint64
	BytesRead, BytesWritten uint64

	SerialReadTime, ParallelReadTime     time.Duration
	SerialWriteTime, ParallelWriteTime   time.Duration
	SerialIOTime, ParallelIOTime         time.Duration

	WaitReadTime, WaitWriteTime time.Duration
}

// Sub returns a-b, field by field. Used to report a benchmark window's
// contribution rather than the lifetime total.
func (a Data) Sub(b Data) Data {
	return Data{
		Reads:              a.Reads - b.Reads,
		Writes:             a.Writes - b.Writes,
		BytesRead:          a.BytesRead - b.BytesRead,
		BytesWritten:       a.BytesWritten - b.BytesWritten,
		SerialReadTime:     a.SerialReadTime - b.SerialReadTime,
		ParallelReadTime:   a.ParallelReadTime - b.ParallelReadTime,
		SerialWriteTime:    a.SerialWriteTime - b.SerialWriteTime,
		ParallelWriteTime:  a.ParallelWriteTime - b.ParallelWriteTime,
		SerialIOTime:       a.SerialIOTime - b.SerialIOTime,
		ParallelIOTime:     a.ParallelIOTime - b.ParallelIOTime,
		WaitReadTime:       a.WaitReadTime - b.WaitReadTime,
		WaitWriteTime:      a.WaitWriteTime - b.WaitWriteTime,
	}
}

// accTimer tracks the in-flight-count/parallel-time algorithm described in
// iostats.h: on every start/finish event, the elapsed time since the last
// event is added to serial time scaled by the pre-event in-flight count,
// and to parallel time whenever that pre-event count was positive (for a
// finish event too, so the interval before the last operation ends counts).
type accTimer struct {
	mu       sync.Mutex
	acc      int
	pBegin   time.Time
	serial   time.Duration
	parallel time.Duration
}

func (a *accTimer) started() {
	now := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.pBegin.IsZero() {
		diff := now.Sub(a.pBegin)
		a.serial += time.Duration(a.acc) * diff
		if a.acc > 0 {
			a.parallel += diff
		}
	}
	a.pBegin = now
	a.acc++
}

func (a *accTimer) finished() {
	now := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.pBegin.IsZero() {
		diff := now.Sub(a.pBegin)
		a.serial += time.Duration(a.acc) * diff
		wasInFlight := a.acc > 0
		a.acc--
		if wasInFlight {
			a.parallel += diff
		}
	} else {
		a.acc--
	}
	a.pBegin = now
}

func (a *accTimer) snapshot() (serial, parallel time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.serial, a.parallel
}

func (a *accTimer) reset() (hadInFlight bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	hadInFlight = a.acc != 0
	a.acc = 0
	a.serial = 0
	a.parallel = 0
	a.pBegin = time.Time{}
	return hadInFlight
}

// Stats is the process-wide singleton. All mutation goes through its
// methods. The read, write and combined-I/O timers each have their own
// lock, so read-only and write-only timing do not contend; the operation
// and byte counters share countMu and every start/finish also takes the
// I/O timer's lock, so reads and writes still meet there.
type Stats struct {
	readTimer  accTimer
	writeTimer accTimer
	ioTimer    accTimer

	countMu      sync.Mutex
	reads        uint64
	writes       uint64
	bytesRead    uint64
	bytesWritten uint64

	waitMu        sync.Mutex
	waitReadTime  time.Duration
	waitWriteTime time.Duration
}

var (
	instance     *Stats
	instanceOnce sync.Once
)

// GetInstance returns the process-wide Stats singleton, creating it lazily
// on first use (foxxll::singleton's lazy-init contract).
func GetInstance() *Stats {
	instanceOnce.Do(func() {
		instance = &Stats{}
	})
	return instance
}

// ReadStarted records the beginning of a read transfer.
func (s *Stats) ReadStarted() {
	s.countMu.Lock()
	s.reads++
	s.countMu.Unlock()
	s.readTimer.started()
	s.ioTimer.started()
}

// ReadFinished records the end of a read transfer.
func (s *Stats) ReadFinished() {
	s.readTimer.finished()
	s.ioTimer.finished()
}

// WriteStarted records the beginning of a write transfer.
func (s *Stats) WriteStarted() {
	s.countMu.Lock()
	s.writes++
	s.countMu.Unlock()
	s.writeTimer.started()
	s.ioTimer.started()
}

// WriteFinished records the end of a write transfer.
func (s *Stats) WriteFinished() {
	s.writeTimer.finished()
	s.ioTimer.finished()
}

// AddBytesRead adds n to the successfully-transferred read byte total.
// Canceled requests never reach here since they never call Serve.
func (s *Stats) AddBytesRead(n int64) {
	s.countMu.Lock()
	s.bytesRead += uint64(n)
	s.countMu.Unlock()
}

// AddBytesWritten adds n to the successfully-transferred write byte total.
func (s *Stats) AddBytesWritten(n int64) {
	s.countMu.Lock()
	s.bytesWritten += uint64(n)
	s.countMu.Unlock()
}

// ScopedWaitTimer starts accounting wait time for kind and returns a
// function that, when called, stops accounting and records the elapsed
// duration. Used as: defer stats.ScopedWaitTimer(stats.WaitRead)().
func (s *Stats) ScopedWaitTimer(kind WaitKind) func() {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		s.waitMu.Lock()
		defer s.waitMu.Unlock()
		switch kind {
		case WaitRead:
			s.waitReadTime += elapsed
		case WaitWrite:
			s.waitWriteTime += elapsed
		}
	}
}

// Snapshot returns the current counters as an immutable Data value.
func (s *Stats) Snapshot() Data {
	s.countMu.Lock()
	reads, writes, bytesRead, bytesWritten := s.reads, s.writes, s.bytesRead, s.bytesWritten
	s.countMu.Unlock()

	serialRead, parallelRead := s.readTimer.snapshot()
	serialWrite, parallelWrite := s.writeTimer.snapshot()
	serialIO, parallelIO := s.ioTimer.snapshot()

	s.waitMu.Lock()
	waitRead, waitWrite := s.waitReadTime, s.waitWriteTime
	s.waitMu.Unlock()

	return Data{
		Reads:              reads,
		Writes:             writes,
		BytesRead:          bytesRead,
		BytesWritten:       bytesWritten,
		SerialReadTime:     serialRead,
		ParallelReadTime:   parallelRead,
		SerialWriteTime:    serialWrite,
		ParallelWriteTime:  parallelWrite,
		SerialIOTime:       serialIO,
		ParallelIOTime:     parallelIO,
		WaitReadTime:       waitRead,
		WaitWriteTime:      waitWrite,
	}
}

// Reset zeroes every counter. If any timer still has in-flight operations
// (acc != 0) it logs a warning rather than failing — matching
// iostats.h::reset()'s documented behavior.
func (s *Stats) Reset() {
	s.countMu.Lock()
	s.reads, s.writes, s.bytesRead, s.bytesWritten = 0, 0, 0, 0
	s.countMu.Unlock()

	if s.readTimer.reset() {
		logging.Warn("stats reset with in-flight reads outstanding")
	}
	if s.writeTimer.reset() {
		logging.Warn("stats reset with in-flight writes outstanding")
	}
	if s.ioTimer.reset() {
		logging.Warn("stats reset with in-flight I/O outstanding")
	}

	s.waitMu.Lock()
	s.waitReadTime, s.waitWriteTime = 0, 0
	s.waitMu.Unlock()
}
