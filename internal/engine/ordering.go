package engine

import (
	"github.com/TheChii/chessgo/internal/board"
)

// Move ordering score bands, highest first. These exact values (rather
// than the larger Stockfish-style spread some engines use) keep history
// scores — capped at ±16000 — from ever crossing into capture or killer
// territory.
const (
	TTMoveScore        = 1000000
	PromotionBase      = 100000
	GoodCaptureBase    = 60000
	BadCaptureBase     = -10000
	KillerScore1       = 40000
	KillerScore2       = 35000
	CounterMoveScore   = 30000
	historyMax         = 16000
	historyMin         = -16000
)

// MVV-LVA (Most Valuable Victim - Least Valuable Attacker) score:
// 10*value(victim) - value(attacker), expressed in pawns (1..9) rather than
// centipawns so it composes cleanly with the bands above.
var mvvLvaUnit = [6]int{1, 3, 3, 5, 9, 0} // Pawn..King in "pawns"

func mvvLva(victim, attacker board.PieceType) int {
	return 10*mvvLvaUnit[victim] - mvvLvaUnit[attacker]
}

// MoveOrderer holds per-thread move ordering memory: killers, history,
// counter-moves, and the supplementary capture/continuation history tables
// that sharpen ordering beyond the base scoring table.
type MoveOrderer struct {
	killers [MaxPly][2]board.Move

	// History table, indexed by [color][from][to], aged (halved) at each
	// new search per spec §3.
	history [2][64][64]int

	// Counter-move table, keyed by the opponent's preceding move.
	counterMoves [12][64]board.Move

	// Capture history, indexed by [attackerPiece][toSquare][capturedType].
	captureHistory [12][64][6]int

	// Countermove history (continuation history, one ply back), indexed by
	// [prevPiece][prevTo][movePiece][moveTo].
	countermoveHistory [12][64][12][64]int
}

func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets killers for a new search and ages (halves) the history
// tables rather than zeroing them, so long-lived good/bad patterns persist
// across moves within a game.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}
	for c := range mo.history {
		for i := range mo.history[c] {
			for j := range mo.history[c][i] {
				mo.history[c][i][j] /= 2
			}
		}
	}
	for i := range mo.captureHistory {
		for j := range mo.captureHistory[i] {
			for k := range mo.captureHistory[i][j] {
				mo.captureHistory[i][j][k] /= 2
			}
		}
	}
	for i := range mo.countermoveHistory {
		for j := range mo.countermoveHistory[i] {
			for k := range mo.countermoveHistory[i][j] {
				for l := range mo.countermoveHistory[i][j][k] {
					mo.countermoveHistory[i][j][k][l] /= 2
				}
			}
		}
	}
}

// ClearCounterMoves clears the counter-move table. Per spec §3 this table
// is cleared on new game, not on every new search, unlike history/killers.
func (mo *MoveOrderer) ClearCounterMoves() {
	for i := range mo.counterMoves {
		for j := range mo.counterMoves[i] {
			mo.counterMoves[i][j] = board.NoMove
		}
	}
}

// ScoreMoves assigns ordering scores to every move in the list.
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves *board.MoveList, ply int, ttMove board.Move) []int {
	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		scores[i] = mo.scoreMove(pos, moves.Get(i), ply, ttMove)
	}
	return scores
}

// ScoreMovesWithCounter is ScoreMoves plus a counter-move bonus and a
// continuation-history nudge for quiets, both keyed off prevMove.
func (mo *MoveOrderer) ScoreMovesWithCounter(pos *board.Position, moves *board.MoveList, ply int, ttMove, prevMove board.Move) []int {
	scores := make([]int, moves.Len())
	counterMove := mo.GetCounterMove(prevMove, pos)

	var prevPiece board.Piece = board.NoPiece
	if prevMove != board.NoMove {
		prevPiece = pos.PieceAt(prevMove.To())
	}

	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		scores[i] = mo.scoreMove(pos, move, ply, ttMove)

		if move == counterMove && move != ttMove && scores[i] < CounterMoveScore {
			scores[i] = CounterMoveScore
		}

		if !move.IsCapture(pos) && !move.IsPromotion() && move != ttMove {
			movePiece := pos.PieceAt(move.From())
			cmhScore := mo.GetCountermoveHistoryScore(prevMove, prevPiece, movePiece, move.To())
			scores[i] += cmhScore / 4
		}
	}

	return scores
}

// scoreMove implements the table from spec §4.3.
func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, ttMove board.Move) int {
	if m == ttMove {
		return TTMoveScore
	}

	from, to := m.From(), m.To()

	if m.IsCapture(pos) {
		attackerPiece := pos.PieceAt(from)
		if attackerPiece == board.NoPiece {
			return GoodCaptureBase
		}
		attacker := attackerPiece.Type()

		var victim board.PieceType
		if m.IsEnPassant() {
			victim = board.Pawn
		} else {
			capturedPiece := pos.PieceAt(to)
			if capturedPiece == board.NoPiece {
				return GoodCaptureBase
			}
			victim = capturedPiece.Type()
		}
		if victim >= board.King || attacker > board.King {
			return GoodCaptureBase
		}

		mvv := mvvLva(victim, attacker)
		var score int
		if mvv >= 0 {
			score = GoodCaptureBase + mvv
		} else if SeeGE(pos, m, 0) {
			score = GoodCaptureBase + mvv
		} else {
			score = BadCaptureBase + mvv
		}

		score += mo.GetCaptureHistoryScore(attackerPiece, to, victim) / 8
		return score
	}

	if m.IsPromotion() {
		return PromotionBase + pieceValues[m.Promotion()]
	}

	if m == mo.killers[ply][0] {
		return KillerScore1
	}
	if m == mo.killers[ply][1] {
		return KillerScore2
	}

	color := pos.SideToMove
	return mo.history[color][from][to]
}

// SortMoves fully sorts moves by score, descending.
func SortMoves(moves *board.MoveList, scores []int) {
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			moves.Swap(i, best)
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}

// PickMove selects the best remaining move (scanning the tail for the
// max) and swaps it into position index, enabling lazy selection: a
// search that cuts off early never pays for sorting moves it never looks
// at.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers records a killer move at the given ply, keeping the most
// recent two distinct quiets that caused a cutoff.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly {
		return
	}
	if mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory applies a ±depth² bonus/penalty to a quiet move, clamped
// to [-16000, 16000] per spec §3.
func (mo *MoveOrderer) UpdateHistory(color board.Color, m board.Move, depth int, isGood bool) {
	from, to := m.From(), m.To()
	bonus := depth * depth
	if isGood {
		bonus = -bonus
	}
	// isGood flips the sign here so callers can pass the same bonus
	// magnitude for both the cutoff move and the earlier-searched quiets.
	v := mo.history[color][from][to] - bonus
	if v > historyMax {
		v = historyMax
	}
	if v < historyMin {
		v = historyMin
	}
	mo.history[color][from][to] = v
}

func (mo *MoveOrderer) UpdateCounterMove(prevMove, counterMove board.Move, pos *board.Position) {
	if prevMove == board.NoMove {
		return
	}
	piece := pos.PieceAt(prevMove.To())
	if piece == board.NoPiece {
		return
	}
	mo.counterMoves[piece][prevMove.To()] = counterMove
}

func (mo *MoveOrderer) GetCounterMove(prevMove board.Move, pos *board.Position) board.Move {
	if prevMove == board.NoMove {
		return board.NoMove
	}
	piece := pos.PieceAt(prevMove.To())
	if piece == board.NoPiece {
		return board.NoMove
	}
	return mo.counterMoves[piece][prevMove.To()]
}

// GetHistoryScore returns the history score for a move, used by history
// pruning in the negamax loop.
func (mo *MoveOrderer) GetHistoryScore(color board.Color, m board.Move) int {
	return mo.history[color][m.From()][m.To()]
}

func (mo *MoveOrderer) UpdateCaptureHistory(attackerPiece board.Piece, toSq board.Square, capturedType board.PieceType, depth int, isGood bool) {
	if attackerPiece == board.NoPiece || capturedType >= board.King {
		return
	}
	bonus := depth * depth
	if isGood {
		mo.captureHistory[attackerPiece][toSq][capturedType] += bonus
		if mo.captureHistory[attackerPiece][toSq][capturedType] > 400000 {
			mo.scaleCaptureHistory()
		}
	} else {
		mo.captureHistory[attackerPiece][toSq][capturedType] -= bonus
		if mo.captureHistory[attackerPiece][toSq][capturedType] < -400000 {
			mo.captureHistory[attackerPiece][toSq][capturedType] = -400000
		}
	}
}

func (mo *MoveOrderer) scaleCaptureHistory() {
	for i := range mo.captureHistory {
		for j := range mo.captureHistory[i] {
			for k := range mo.captureHistory[i][j] {
				mo.captureHistory[i][j][k] /= 2
			}
		}
	}
}

func (mo *MoveOrderer) GetCaptureHistoryScore(attackerPiece board.Piece, toSq board.Square, capturedType board.PieceType) int {
	if attackerPiece == board.NoPiece || capturedType >= board.King {
		return 0
	}
	return mo.captureHistory[attackerPiece][toSq][capturedType]
}

func (mo *MoveOrderer) UpdateCountermoveHistory(prevMove, goodMove board.Move, prevPiece, movePiece board.Piece, depth int, isGood bool) {
	if prevMove == board.NoMove || prevPiece == board.NoPiece || movePiece == board.NoPiece {
		return
	}
	prevTo := prevMove.To()
	moveTo := goodMove.To()
	bonus := depth * depth

	if isGood {
		mo.countermoveHistory[prevPiece][prevTo][movePiece][moveTo] += bonus
		if mo.countermoveHistory[prevPiece][prevTo][movePiece][moveTo] > 400000 {
			mo.scaleCountermoveHistory()
		}
	} else {
		mo.countermoveHistory[prevPiece][prevTo][movePiece][moveTo] -= bonus
		if mo.countermoveHistory[prevPiece][prevTo][movePiece][moveTo] < -400000 {
			mo.countermoveHistory[prevPiece][prevTo][movePiece][moveTo] = -400000
		}
	}
}

func (mo *MoveOrderer) scaleCountermoveHistory() {
	for i := range mo.countermoveHistory {
		for j := range mo.countermoveHistory[i] {
			for k := range mo.countermoveHistory[i][j] {
				for l := range mo.countermoveHistory[i][j][k] {
					mo.countermoveHistory[i][j][k][l] /= 2
				}
			}
		}
	}
}

func (mo *MoveOrderer) GetCountermoveHistoryScore(prevMove board.Move, prevPiece, movePiece board.Piece, moveTo board.Square) int {
	if prevMove == board.NoMove || prevPiece == board.NoPiece || movePiece == board.NoPiece {
		return 0
	}
	return mo.countermoveHistory[prevPiece][prevMove.To()][movePiece][moveTo]
}
