package progress

import (
	"io"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Tracker counts completed units of one named job.
type Tracker interface {
	Increment(n int)
	Done()
}

// Manager creates trackers and waits for them to finish rendering.
type Manager interface {
	NewTracker(name string, total int64) Tracker
	Wait()
}

// MPBManager renders one bar per tracker.
type MPBManager struct {
	container *mpb.Progress
}

// NewMPBManager renders bars to w, normally os.Stderr.
func NewMPBManager(w io.Writer) *MPBManager {
	return &MPBManager{container: mpb.New(mpb.WithWidth(60), mpb.WithOutput(w))}
}

func (m *MPBManager) NewTracker(name string, total int64) Tracker {
	bar := m.container.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
		),
	)
	return &mpbTracker{bar: bar}
}

func (m *MPBManager) Wait() {
	m.container.Wait()
}

type mpbTracker struct {
	bar *mpb.Bar
}

func (t *mpbTracker) Increment(n int) {
	t.bar.IncrBy(n)
}

// Done completes the bar at its current count, which also covers jobs
// that finished early.
func (t *mpbTracker) Done() {
	t.bar.SetTotal(-1, true)
}

// NoopManager is used for non-interactive runs. It keeps totals so callers
// can log a summary instead of drawing bars.
type NoopManager struct {
	completed atomic.Int64
}

func (m *NoopManager) NewTracker(string, int64) Tracker {
	return &noopTracker{mgr: m}
}

func (m *NoopManager) Wait() {}

// Completed returns the units counted across all trackers.
func (m *NoopManager) Completed() int64 {
	return m.completed.Load()
}

type noopTracker struct {
	mgr *NoopManager
}

func (t *noopTracker) Increment(n int) { t.mgr.completed.Add(int64(n)) }

func (t *noopTracker) Done() {}
