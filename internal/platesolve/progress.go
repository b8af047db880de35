package platesolve

import (
	"time"

	"github.com/litescript/ls-platesolve/internal/astro"
)

// Phase identifies a progress event.
type Phase int

const (
	PhaseCapturing Phase = iota
	PhaseThumbnail
	PhaseSolving
	PhaseSolved
	PhaseSyncing
	PhaseSlewing
	PhaseCentered
)

func (p Phase) String() string {
	switch p {
	case PhaseCapturing:
		return "capturing"
	case PhaseThumbnail:
		return "thumbnail"
	case PhaseSolving:
		return "solving"
	case PhaseSolved:
		return "solved"
	case PhaseSyncing:
		return "syncing"
	case PhaseSlewing:
		return "slewing"
	case PhaseCentered:
		return "centered"
	default:
		return "unknown"
	}
}

// Event is a display-only progress notification.
type Event struct {
	Phase     Phase
	Time      time.Time
	Attempt   int // capture attempt, 1-based; 0 when not applicable
	Iteration int // centering iteration, 1-based; 0 outside centering
	State     CenteringState

	Image      *Image
	Statistics *ImageStatistics
	Result     *PlateSolveResult
	Separation *astro.Separation
	Message    string
}

// ProgressSink receives progress events. Implementations must not block for
// long; events are delivered synchronously.
type ProgressSink interface {
	Report(Event)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(Event)

// Report calls f.
func (f ProgressFunc) Report(e Event) { f(e) }

// report delivers e to sink, which may be nil.
func report(sink ProgressSink, e Event) {
	if sink == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	sink.Report(e)
}

// MultiSink fans events out to every non-nil sink in order.
func MultiSink(sinks ...ProgressSink) ProgressSink {
	var live []ProgressSink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return ProgressFunc(func(e Event) {
		for _, s := range live {
			s.Report(e)
		}
	})
}
