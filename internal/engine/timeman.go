package engine

import (
	"time"

	"github.com/TheChii/chessgo/internal/board"
)

// UCILimits contains UCI time control parameters.
type UCILimits struct {
	Time      [2]time.Duration // wtime, btime (remaining time for each color)
	Inc       [2]time.Duration // winc, binc (increment per move)
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move (overrides other time controls)
	Depth     int              // maximum search depth
	Nodes     uint64           // maximum nodes to search
	Infinite  bool             // search until stopped
	Ponder    bool             // ponder mode
}

// moveOverhead is subtracted from the available time to account for
// engine/GUI communication latency, per §4.8.
var moveOverhead = 30 * time.Millisecond

// defaultMovesToGo is the assumed moves remaining under sudden death,
// matching §4.8's stated default of 30.
const defaultMovesToGo = 30

// TimeManager computes and tracks the soft and hard time budgets for one
// search, per §4.8: fixed movetime splits 85%/95% between soft and hard;
// clock-based search allocates soft from the remaining time divided by the
// estimated moves to go plus three quarters of the increment, and bounds
// hard at either three times soft or a quarter of what's left, whichever
// is smaller.
type TimeManager struct {
	soft      time.Duration
	hard      time.Duration
	startTime time.Time
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init initializes the time manager for a new search. ply is the current
// game ply; the formulas here don't need it, but callers shouldn't need a
// separate code path depending on whether it's available.
func (tm *TimeManager) Init(limits UCILimits, us board.Color, ply int) {
	tm.startTime = time.Now()

	if limits.MoveTime > 0 {
		available := limits.MoveTime - moveOverhead
		if available < 0 {
			available = limits.MoveTime
		}
		tm.soft = available * 85 / 100
		tm.hard = available * 95 / 100
		return
	}

	if limits.Infinite || limits.Time[us] == 0 {
		tm.soft = 24 * time.Hour
		tm.hard = 24 * time.Hour
		return
	}

	t := limits.Time[us]
	c := limits.Inc[us]
	m := limits.MovesToGo
	if m <= 0 {
		m = defaultMovesToGo
	}

	available := t - moveOverhead
	if available < 0 {
		available = t
	}

	tm.soft = available/time.Duration(m) + c*3/4
	hardFromSoft := tm.soft * 3
	hardFromAvailable := available / 4
	if hardFromSoft < hardFromAvailable {
		tm.hard = hardFromSoft
	} else {
		tm.hard = hardFromAvailable
	}

	if tm.soft < time.Millisecond {
		tm.soft = time.Millisecond
	}
	if tm.hard < tm.soft {
		tm.hard = tm.soft
	}
}

// Extend widens the soft budget by factor and the hard budget by its
// square root, per §4.8 — used when the search grows unstable and wants
// more room without blowing past the hard stop as aggressively.
func (tm *TimeManager) Extend(factor float64) {
	if factor <= 1 {
		return
	}
	tm.soft = time.Duration(float64(tm.soft) * factor)
	tm.hard = time.Duration(float64(tm.hard) * sqrtApprox(factor))
}

func sqrtApprox(x float64) float64 {
	if x <= 0 {
		return 0
	}
	guess := x
	for i := 0; i < 20; i++ {
		guess = 0.5 * (guess + x/guess)
	}
	return guess
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the soft budget for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.soft
}

// MaximumTime returns the hard budget for this move.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.hard
}

// ShouldStop returns true once the hard budget is exceeded.
func (tm *TimeManager) ShouldStop() bool {
	return tm.Elapsed() >= tm.hard
}

// PastOptimum returns true once the soft budget is exceeded.
func (tm *TimeManager) PastOptimum() bool {
	return tm.Elapsed() >= tm.soft
}

// earlyStopFraction is the share of the soft budget that must already have
// elapsed before a stable best move is allowed to end the search early,
// per §4.8 — without this floor a move that stabilizes in the first few
// milliseconds of a long soft budget would cut the search short on noise
// rather than genuine convergence.
const earlyStopFraction = 0.4

// PastEarlyStopThreshold returns true once earlyStopFraction of the soft
// budget has elapsed, the point from which a stable best move is allowed
// to stop the search before the soft budget is fully spent.
func (tm *TimeManager) PastEarlyStopThreshold() bool {
	return tm.Elapsed() >= time.Duration(float64(tm.soft)*earlyStopFraction)
}
