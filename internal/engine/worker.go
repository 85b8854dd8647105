package engine

import (
	"math"
	"sync/atomic"

	"github.com/TheChii/chessgo/internal/board"
	"github.com/TheChii/chessgo/internal/nnue"
)

// Pruning and reduction constants for the core negamax procedure. Each is
// referenced from exactly one call site below so the formula stays
// visible where it's applied rather than hidden behind a pile of knobs.
const (
	contemptScore = 10 // centipawns, applied to repetition/fifty-move scores

	rfpMaxDepth = 7
	rfpMargin   = 75 // per ply

	probCutMinDepth  = 5
	probCutMargin    = 100
	probCutReduction = 4

	nmpMinDepth = 3

	razorMaxDepth = 3
	razorBase     = 200
	razorSlope    = 60

	historyPruneMaxDepth = 4
	historyPruneSlope    = 3000

	seePruneMaxDepth  = 4
	seePruneThreshold = -50

	futilityMaxDepth = 3
	futilityMargin   = 150

	iidMinDepth  = 6
	iidReduction = 2

	lmrMinDepth     = 3
	lmrMinMoveIndex = 2 // 0-indexed; LMR starts from the 3rd move searched

	deltaMargin        = 600 // quiescence big-delta margin
	qsMoveSafetyMargin = 100
)

// SearchStack carries the per-ply bookkeeping a worker needs while
// recursing: the move that produced this node (for counter-move and
// continuation-history lookups) and the piece that made it.
type SearchStack struct {
	currentMove board.Move
	movedPiece  board.Piece
	cutoffCnt   int
}

// WorkerResult reports one iterative-deepening step from a Lazy SMP worker.
type WorkerResult struct {
	WorkerID int
	Depth    int
	Score    int
	Move     board.Move
	PV       []board.Move
	Nodes    uint64
}

// lmrTable[depth][moveIndex] precomputes the late-move reduction amount,
// floor(ln(depth)*ln(moveIndex+1) / 1.9) — the coherent default this engine
// commits to (see DESIGN.md) rather than a Stockfish-tuned constant.
var lmrTable [MaxPly][256]int

func init() {
	for d := 1; d < MaxPly; d++ {
		for i := 0; i < 256; i++ {
			r := math.Floor(math.Log(float64(d)) * math.Log(float64(i+1)) / 1.9)
			if r < 0 {
				r = 0
			}
			lmrTable[d][i] = int(r)
		}
	}
}

// Worker runs one Lazy SMP search thread. Everything here except the
// transposition table and the engine-wide stop flag is private: killers,
// history, counter-moves, PV, node count, board and evaluator are never
// touched by any other goroutine.
type Worker struct {
	id int

	pos *board.Position
	tt  *TranspositionTable

	orderer    *MoveOrderer
	pawnTable  *PawnTable
	correction *CorrectionHistory

	useNNUE  bool
	nnueEval *nnue.Evaluator

	nodes    atomic.Uint64
	stopFlag *atomic.Bool

	pv        PVTable
	undoStack [MaxPly]board.UndoInfo
	stack     [MaxPly]SearchStack

	rootPosHashes []uint64
}

// NewWorker creates a worker sharing only the transposition table and the
// stop flag with the rest of the Lazy SMP pool.
func NewWorker(id int, tt *TranspositionTable, pawnTable *PawnTable, stopFlag *atomic.Bool) *Worker {
	return &Worker{
		id:         id,
		tt:         tt,
		orderer:    NewMoveOrderer(),
		pawnTable:  pawnTable,
		correction: NewCorrectionHistory(),
		stopFlag:   stopFlag,
	}
}

// initNNUE attaches an incremental evaluator to this worker. A worker that
// never calls this falls back to the classical evaluator.
func (w *Worker) initNNUE(weightsFile string) error {
	ev, err := nnue.NewEvaluator(weightsFile)
	if err != nil {
		return err
	}
	w.nnueEval = ev
	return nil
}

// Reset clears per-search state. orderer.Clear resets killers and ages
// history rather than zeroing it, per spec §3.
func (w *Worker) Reset() {
	w.stopFlag.Store(false)
	w.nodes.Store(0)
	w.orderer.Clear()
	if w.nnueEval != nil {
		w.nnueEval.Reset()
	}
}

// ResetForNewGame clears state that should not persist across games: per
// spec §3, counter-moves reset on ucinewgame rather than on every search,
// and so does accumulated evaluation-correction data.
func (w *Worker) ResetForNewGame() {
	w.orderer.ClearCounterMoves()
	w.correction.Clear()
}

// SetRootHistory copies the game's position-hash history for repetition
// detection. Each worker keeps its own copy.
func (w *Worker) SetRootHistory(hashes []uint64) {
	w.rootPosHashes = make([]uint64, len(hashes))
	copy(w.rootPosHashes, hashes)
}

// InitSearch prepares the worker to search from pos.
func (w *Worker) InitSearch(pos *board.Position) {
	w.pos = pos.Copy()
	if w.nnueEval != nil {
		w.nnueEval.Refresh(w.pos)
	}
}

// Nodes returns the number of nodes this worker has searched.
func (w *Worker) Nodes() uint64 {
	return w.nodes.Load()
}

// GetPV returns the principal variation from the worker's last search.
func (w *Worker) GetPV() []board.Move {
	pv := make([]board.Move, w.pv.length[0])
	for i := 0; i < w.pv.length[0]; i++ {
		pv[i] = w.pv.moves[0][i]
	}
	return pv
}

// SearchDepth performs one iterative-deepening step at depth within the
// given aspiration window, returning the best move and its score.
func (w *Worker) SearchDepth(depth, alpha, beta int) (board.Move, int) {
	score := w.negamax(depth, 0, alpha, beta, false)

	var bestMove board.Move
	if w.pv.length[0] > 0 {
		bestMove = w.pv.moves[0][0]
	}
	return bestMove, score
}

func (w *Worker) evaluate() int {
	if w.useNNUE && w.nnueEval != nil {
		return w.nnueEval.Evaluate(w.pos)
	}
	return EvaluateWithPawnTable(w.pos, w.pawnTable)
}

func (w *Worker) correctedEval() int {
	return w.evaluate() + w.correction.Get(w.pos)
}

// isRepetitionOrFifty reports a draw by the fifty-move rule, insufficient
// material, or repetition of a position in the game history passed to
// SetRootHistory. Positions repeated only within the search tree are not
// detected.
func (w *Worker) isRepetitionOrFifty() bool {
	if w.pos.HalfMoveClock >= 100 {
		return true
	}
	if w.pos.IsInsufficientMaterial() {
		return true
	}
	for _, h := range w.rootPosHashes {
		if h == w.pos.Hash {
			return true
		}
	}
	return false
}

// negamax implements alpha-beta search with PVS, following §4.6: mate
// distance pruning, a TT cutoff, then (outside check and away from mate
// scores) reverse futility pruning, ProbCut, null-move pruning, razoring
// and internal iterative deepening, before the move loop applies
// futility/history/SEE pruning, late move reductions and the PVS
// re-search per candidate.
func (w *Worker) negamax(depth, ply int, alpha, beta int, cutNode bool) int {
	if w.nodes.Load()&2047 == 0 && w.stopFlag.Load() {
		return 0
	}
	w.nodes.Add(1)

	pvNode := beta-alpha > 1
	w.pv.length[ply] = ply

	if ply > 0 {
		if w.isRepetitionOrFifty() {
			if w.pos.SideToMove == board.White {
				return -contemptScore
			}
			return contemptScore
		}

		alpha = maxInt(alpha, -MateScore+ply)
		beta = minInt(beta, MateScore-ply-1)
		if alpha >= beta {
			return alpha
		}
	}

	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	var ttMove board.Move
	ttEntry, ttHit := w.tt.Probe(w.pos.Hash)
	if ttHit {
		ttMove = ttEntry.Move
		if !pvNode && int(ttEntry.Depth) >= depth {
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

	inCheck := w.pos.InCheck()
	staticEval := 0
	if !inCheck {
		staticEval = w.correctedEval()
	}

	isMateBound := alpha >= MateScore-MaxPly || beta <= -MateScore+MaxPly

	if !inCheck && !pvNode && !isMateBound {
		if depth <= rfpMaxDepth && staticEval-rfpMargin*depth >= beta {
			return staticEval
		}

		// §4.6 gates ProbCut on |beta| < MATE-1000 rather than the coarser
		// MaxPly-based isMateBound check above, since ProbCut's verification
		// search itself runs at a reduced depth and shouldn't be trusted this
		// close to a forced mate score.
		if depth >= probCutMinDepth && absInt(beta) < MateScore-1000 {
			probCutBeta := beta + probCutMargin
			if s, ok := w.tryProbCut(depth, ply, probCutBeta, staticEval, cutNode); ok {
				return s
			}
		}

		if depth >= nmpMinDepth && staticEval >= beta && w.pos.HasNonPawnMaterial() {
			r := 4
			if depth > 6 {
				r = 5
			}
			nullUndo := w.pos.MakeNullMove()
			w.stack[ply].currentMove = board.NoMove
			score := -w.negamax(depth-r, ply+1, -beta, -beta+1, !cutNode)
			w.pos.UnmakeNullMove(nullUndo)
			if w.stopFlag.Load() {
				return 0
			}
			if score >= beta {
				if score > MateScore-MaxPly {
					score = beta
				}
				return score
			}
		}

		if depth <= razorMaxDepth && staticEval+razorBase+razorSlope*depth < alpha {
			score := w.quiescence(ply, alpha-1, alpha)
			if score < alpha {
				return score
			}
		}
	}

	if ttMove == board.NoMove && pvNode && depth >= iidMinDepth {
		w.negamax(depth-iidReduction, ply, alpha, beta, cutNode)
		if w.pv.length[ply] > ply {
			ttMove = w.pv.moves[ply][ply]
		}
	}

	moves := w.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	var prevMove board.Move
	var scores []int
	if ply > 0 {
		prevMove = w.stack[ply-1].currentMove
		scores = w.orderer.ScoreMovesWithCounter(w.pos, moves, ply, ttMove, prevMove)
	} else {
		scores = w.orderer.ScoreMoves(w.pos, moves, ply, ttMove)
	}

	bestScore := NoScore
	bestMove := board.NoMove
	flag := TTUpperBound
	legalCount := 0
	var quietsSearched []board.Move

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)
		isCapture := move.IsCapture(w.pos)
		isQuiet := !isCapture && !move.IsPromotion()

		if !pvNode && !inCheck && legalCount > 0 && bestScore > -MateScore+MaxPly {
			if isQuiet {
				color := w.pos.SideToMove
				if depth <= historyPruneMaxDepth &&
					w.orderer.GetHistoryScore(color, move) < -historyPruneSlope*depth {
					continue
				}
				if depth <= futilityMaxDepth && staticEval+futilityMargin*depth < alpha {
					continue
				}
			}
			if depth <= seePruneMaxDepth && !SeeGE(w.pos, move, seePruneThreshold) {
				continue
			}
		}

		capturedPiece := w.pos.PieceAt(move.To())
		if w.useNNUE && w.nnueEval != nil {
			w.nnueEval.Push()
		}
		w.undoStack[ply] = w.pos.MakeMove(move)
		if !w.undoStack[ply].Valid {
			w.pos.UnmakeMove(move, w.undoStack[ply])
			if w.useNNUE && w.nnueEval != nil {
				w.nnueEval.Pop()
			}
			continue
		}
		legalCount++

		if w.useNNUE && w.nnueEval != nil {
			w.nnueEval.Update(w.pos, move, capturedPiece)
		}

		movedPiece := w.pos.PieceAt(move.To())
		w.stack[ply].currentMove = move
		w.stack[ply].movedPiece = movedPiece

		givesCheck := w.pos.InCheck()
		newDepth := depth - 1
		if givesCheck {
			newDepth++
		}

		var score int
		if legalCount == 1 {
			score = -w.negamax(newDepth, ply+1, -beta, -alpha, false)
		} else {
			reduction := 0
			if isQuiet && depth >= lmrMinDepth && legalCount-1 >= lmrMinMoveIndex && !givesCheck {
				reduction = lmrTable[minInt(depth, MaxPly-1)][minInt(legalCount-1, 255)]
				if cutNode {
					reduction++
				}
				reduction = clampInt(reduction, 1, maxInt(newDepth-1, 1))
			}

			score = -w.negamax(newDepth-reduction, ply+1, -alpha-1, -alpha, true)

			if reduction > 0 && score > alpha {
				score = -w.negamax(newDepth, ply+1, -alpha-1, -alpha, !cutNode)
			}
			if score > alpha && score < beta {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha, false)
			}
		}

		w.pos.UnmakeMove(move, w.undoStack[ply])
		if w.useNNUE && w.nnueEval != nil {
			w.nnueEval.Pop()
		}

		if w.stopFlag.Load() {
			return 0
		}

		if isQuiet {
			quietsSearched = append(quietsSearched, move)
		}

		if score > bestScore {
			bestScore = score
			bestMove = move

			if score > alpha {
				alpha = score
				flag = TTExact

				w.pv.moves[ply][ply] = move
				for j := ply + 1; j < w.pv.length[ply+1]; j++ {
					w.pv.moves[ply][j] = w.pv.moves[ply+1][j]
				}
				w.pv.length[ply] = w.pv.length[ply+1]
			}
		}

		if score >= beta {
			flag = TTLowerBound
			if isQuiet {
				color := w.pos.SideToMove
				w.orderer.UpdateKillers(move, ply)
				w.orderer.UpdateHistory(color, move, depth, true)
				if ply > 0 && prevMove != board.NoMove {
					w.orderer.UpdateCounterMove(prevMove, move, w.pos)
					prevPiece := w.pos.PieceAt(prevMove.To())
					w.orderer.UpdateCountermoveHistory(prevMove, move, prevPiece, movedPiece, depth, true)
				}
				for _, qm := range quietsSearched[:len(quietsSearched)-1] {
					w.orderer.UpdateHistory(color, qm, depth, false)
				}
			} else {
				attacker := w.pos.PieceAt(move.From())
				var victim board.PieceType
				if move.IsEnPassant() {
					victim = board.Pawn
				} else if cap := w.pos.PieceAt(move.To()); cap != board.NoPiece {
					victim = cap.Type()
				}
				w.orderer.UpdateCaptureHistory(attacker, move.To(), victim, depth, true)
			}
			w.stack[ply].cutoffCnt++
			break
		}
	}

	if !inCheck && bestMove != board.NoMove {
		w.correction.Update(w.pos, bestScore, staticEval, depth)
	}

	w.tt.Store(w.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)

	return bestScore
}

// tryProbCut verifies a beta cutoff at reduced depth using only captures
// whose SEE already clears the raised margin, per §4.6's ProbCut entry.
func (w *Worker) tryProbCut(depth, ply, probCutBeta, staticEval int, cutNode bool) (int, bool) {
	captures := w.pos.GenerateCaptures()
	capScores := w.orderer.ScoreMoves(w.pos, captures, ply, board.NoMove)

	for i := 0; i < captures.Len(); i++ {
		PickMove(captures, capScores, i)
		m := captures.Get(i)
		if !SeeGE(w.pos, m, probCutBeta-staticEval) {
			continue
		}

		capturedPiece := w.pos.PieceAt(m.To())
		if w.useNNUE && w.nnueEval != nil {
			w.nnueEval.Push()
		}
		undo := w.pos.MakeMove(m)
		if !undo.Valid {
			w.pos.UnmakeMove(m, undo)
			if w.useNNUE && w.nnueEval != nil {
				w.nnueEval.Pop()
			}
			continue
		}
		if w.useNNUE && w.nnueEval != nil {
			w.nnueEval.Update(w.pos, m, capturedPiece)
		}

		score := -w.quiescence(ply+1, -probCutBeta, -probCutBeta+1)
		if score >= probCutBeta {
			score = -w.negamax(depth-probCutReduction, ply+1, -probCutBeta, -probCutBeta+1, !cutNode)
		}
		w.pos.UnmakeMove(m, undo)
		if w.useNNUE && w.nnueEval != nil {
			w.nnueEval.Pop()
		}

		if w.stopFlag.Load() {
			return 0, true
		}
		if score >= probCutBeta {
			return score, true
		}
	}
	return 0, false
}

// quiescence searches captures (and, when in check, every evasion) down to
// a quiet position, per §4.5: stand-pat, a single big-delta cutoff, and a
// smaller per-move safety margin ahead of SEE-based pruning.
func (w *Worker) quiescence(ply, alpha, beta int) int {
	if w.nodes.Load()&2047 == 0 && w.stopFlag.Load() {
		return 0
	}
	w.nodes.Add(1)
	w.pv.length[ply] = ply

	if ply >= MaxPly-1 {
		return w.evaluate()
	}

	inCheck := w.pos.InCheck()
	var standPat int
	if !inCheck {
		standPat = w.correctedEval()
		if standPat >= beta {
			return standPat
		}
		if standPat+deltaMargin < alpha {
			return alpha
		}
		if standPat > alpha {
			alpha = standPat
		}
	} else {
		standPat = -MateScore + ply
	}

	var moves *board.MoveList
	if inCheck {
		moves = w.pos.GenerateLegalMoves()
	} else {
		moves = w.pos.GenerateCaptures()
	}
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return alpha
	}

	scores := w.orderer.ScoreMoves(w.pos, moves, ply, board.NoMove)
	bestScore := standPat
	if inCheck {
		bestScore = -MateScore + ply
	}

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if !inCheck {
			if !SeeGE(w.pos, move, 0) {
				continue
			}
			captureValue := qsCaptureValue(w.pos, move)
			if standPat+captureValue+qsMoveSafetyMargin < alpha {
				continue
			}
		}

		capturedPiece := w.pos.PieceAt(move.To())
		if w.useNNUE && w.nnueEval != nil {
			w.nnueEval.Push()
		}
		undo := w.pos.MakeMove(move)
		if !undo.Valid {
			w.pos.UnmakeMove(move, undo)
			if w.useNNUE && w.nnueEval != nil {
				w.nnueEval.Pop()
			}
			continue
		}
		if w.useNNUE && w.nnueEval != nil {
			w.nnueEval.Update(w.pos, move, capturedPiece)
		}

		score := -w.quiescence(ply+1, -beta, -alpha)
		w.pos.UnmakeMove(move, undo)
		if w.useNNUE && w.nnueEval != nil {
			w.nnueEval.Pop()
		}

		if w.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				alpha = score
				w.pv.moves[ply][ply] = move
				for j := ply + 1; j < w.pv.length[ply+1]; j++ {
					w.pv.moves[ply][j] = w.pv.moves[ply+1][j]
				}
				w.pv.length[ply] = w.pv.length[ply+1]
			}
		}
		if score >= beta {
			return score
		}
	}

	return bestScore
}

// qsCaptureValue estimates the material value of a capture for delta
// pruning purposes.
func qsCaptureValue(pos *board.Position, move board.Move) int {
	var value int
	if move.IsEnPassant() {
		value = PawnValue
	} else if captured := pos.PieceAt(move.To()); captured != board.NoPiece {
		value = pieceValues[captured.Type()]
	}
	if move.IsPromotion() {
		value += pieceValues[move.Promotion()] - PawnValue
	}
	return value
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
