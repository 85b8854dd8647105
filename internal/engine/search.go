package engine

import (
	"sync/atomic"

	"github.com/TheChii/chessgo/internal/board"
	"github.com/TheChii/chessgo/internal/nnue"
)

// Search constants, per §3: INF bounds the alpha-beta window, MATE is the
// score assigned to a position that delivers checkmate (reduced by ply as
// it's backed up toward the root), and NONE is a sentinel outside the
// representable [-INF, INF] range for "no score yet".
const (
	Infinity  = 32000  // INF
	MateScore = 31000  // MATE
	NoScore   = -32001 // NONE
	MaxPly    = 128
)

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// searcherEval is the tiny NNUE-evaluator holder a Searcher needs so it can
// share Engine.LoadNNUE/SetUseNNUE with the Lazy SMP workers without
// duplicating the evaluator plumbing.
type searcherEval struct {
	useNNUE  bool
	nnueEval *nnue.Evaluator
}

func (s *searcherEval) initNNUE(weightsFile string) error {
	ev, err := nnue.NewEvaluator(weightsFile)
	if err != nil {
		return err
	}
	s.nnueEval = ev
	return nil
}

// Searcher performs single-threaded alpha-beta search, used only for
// Multi-PV analysis where independent searches need their own exclusion
// lists at the root.
type Searcher struct {
	pos     *board.Position
	tt      *TranspositionTable
	orderer *MoveOrderer
	worker  searcherEval

	nodes    uint64
	stopFlag atomic.Bool

	pv PVTable

	undoStack [MaxPly]board.UndoInfo

	excludedRoot  []board.Move
	rootPosHashes []uint64
}

// NewSearcher creates a new searcher.
func NewSearcher(tt *TranspositionTable) *Searcher {
	return &Searcher{
		tt:      tt,
		orderer: NewMoveOrderer(),
	}
}

// Stop signals the search to stop.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// IsStopped reports whether the search was asked to stop.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}

// Reset resets the searcher for a new search.
func (s *Searcher) Reset() {
	s.stopFlag.Store(false)
	s.nodes = 0
	s.orderer.Clear()
}

// ClearOrderer ages the move ordering tables, matching Engine.Clear.
func (s *Searcher) ClearOrderer() {
	s.orderer.Clear()
}

// SetExcludedMoves excludes the given moves from consideration at the
// root, used by Multi-PV to find successive best lines.
func (s *Searcher) SetExcludedMoves(moves []board.Move) {
	s.excludedRoot = moves
}

// SetRootHistory records prior game positions for repetition detection.
func (s *Searcher) SetRootHistory(hashes []uint64) {
	s.rootPosHashes = make([]uint64, len(hashes))
	copy(s.rootPosHashes, hashes)
}

// Nodes returns the number of nodes searched.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

func (s *Searcher) evaluate() int {
	if s.worker.useNNUE && s.worker.nnueEval != nil {
		return s.worker.nnueEval.Evaluate(s.pos)
	}
	return Evaluate(s.pos)
}

// Search performs the search at the given depth.
func (s *Searcher) Search(pos *board.Position, depth int) (board.Move, int) {
	s.pos = pos.Copy()
	s.Reset()

	score := s.negamax(depth, 0, -Infinity, Infinity)

	var bestMove board.Move
	if s.pv.length[0] > 0 {
		bestMove = s.pv.moves[0][0]
	}

	return bestMove, score
}

// negamax implements the negamax algorithm with alpha-beta pruning.
func (s *Searcher) negamax(depth, ply int, alpha, beta int) int {
	if s.nodes&4095 == 0 && s.stopFlag.Load() {
		return 0
	}

	s.nodes++
	s.pv.length[ply] = ply

	if ply > 0 && s.isDraw() {
		return 0
	}

	var ttMove board.Move
	ttEntry, found := s.tt.Probe(s.pos.Hash)
	if found {
		ttMove = ttEntry.Move
		if int(ttEntry.Depth) >= depth {
			score := AdjustScoreFromTT(int(ttEntry.Score), ply)
			switch ttEntry.Flag {
			case TTExact:
				return score
			case TTLowerBound:
				if score > alpha {
					alpha = score
				}
			case TTUpperBound:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				return score
			}
		}
	}

	if depth <= 0 {
		return s.quiescence(ply, alpha, beta)
	}

	inCheck := s.pos.InCheck()
	moves := s.pos.GenerateLegalMoves()

	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	scores := s.orderer.ScoreMoves(s.pos, moves, ply, ttMove)

	bestScore := NoScore
	bestMove := board.NoMove
	flag := TTUpperBound
	legalCount := 0

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if ply == 0 && containsMove(s.excludedRoot, move) {
			continue
		}

		s.undoStack[ply] = s.pos.MakeMove(move)
		if !s.undoStack[ply].Valid {
			s.pos.UnmakeMove(move, s.undoStack[ply])
			continue
		}
		legalCount++

		score := -s.negamax(depth-1, ply+1, -beta, -alpha)

		s.pos.UnmakeMove(move, s.undoStack[ply])

		if s.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move

			if score > alpha {
				alpha = score
				flag = TTExact

				s.pv.moves[ply][ply] = move
				for j := ply + 1; j < s.pv.length[ply+1]; j++ {
					s.pv.moves[ply][j] = s.pv.moves[ply+1][j]
				}
				s.pv.length[ply] = s.pv.length[ply+1]
			}
		}

		if score >= beta {
			s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(score, ply), TTLowerBound, bestMove)

			if !move.IsCapture(s.pos) {
				s.orderer.UpdateKillers(move, ply)
				s.orderer.UpdateHistory(s.pos.SideToMove, move, depth, true)
			}

			return score
		}
	}

	if legalCount == 0 {
		// Every legal move was excluded at the root; report a clean
		// "nothing to play" result rather than a bogus mate score.
		return 0
	}

	s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)

	return bestScore
}

func containsMove(moves []board.Move, m board.Move) bool {
	for _, x := range moves {
		if x == m {
			return true
		}
	}
	return false
}

// quiescence searches only captures to avoid horizon effect.
func (s *Searcher) quiescence(ply int, alpha, beta int) int {
	const maxQuiescencePly = 32
	if ply >= MaxPly || ply > maxQuiescencePly {
		return s.evaluate()
	}

	if s.stopFlag.Load() {
		return 0
	}

	s.nodes++

	standPat := s.evaluate()

	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	if standPat+deltaMargin < alpha {
		return alpha
	}

	moves := s.pos.GenerateCaptures()
	scores := s.orderer.ScoreMoves(s.pos, moves, ply, board.NoMove)

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if !s.pos.InCheck() {
			captureValue := qsCaptureValue(s.pos, move)
			if standPat+captureValue+qsMoveSafetyMargin < alpha {
				continue
			}
		}

		undo := s.pos.MakeMove(move)
		if !undo.Valid {
			s.pos.UnmakeMove(move, undo)
			continue
		}

		score := -s.quiescence(ply+1, -beta, -alpha)
		s.pos.UnmakeMove(move, undo)

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}

	return alpha
}

// isDraw checks for draw by repetition or 50-move rule.
func (s *Searcher) isDraw() bool {
	if s.pos.HalfMoveClock >= 100 {
		return true
	}
	if s.pos.IsInsufficientMaterial() {
		return true
	}
	for _, h := range s.rootPosHashes {
		if h == s.pos.Hash {
			return true
		}
	}
	return false
}

// GetPV returns the principal variation from the last search.
func (s *Searcher) GetPV() []board.Move {
	pv := make([]board.Move, s.pv.length[0])
	for i := 0; i < s.pv.length[0]; i++ {
		pv[i] = s.pv.moves[0][i]
	}
	return pv
}
