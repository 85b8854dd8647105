package nnue

import "github.com/TheChii/chessgo/internal/board"

// Accumulator stores the accumulated hidden layer values for incremental
// updates, one half per side's perspective.
type Accumulator struct {
	White [L1Size]int16
	Black [L1Size]int16

	Computed bool
}

// AccumulatorStack manages accumulators during search.
type AccumulatorStack struct {
	stack [128]Accumulator // One per ply
	top   int
}

// NewAccumulatorStack creates a new accumulator stack.
func NewAccumulatorStack() *AccumulatorStack {
	return &AccumulatorStack{}
}

// Push saves current accumulator state.
func (s *AccumulatorStack) Push() {
	if s.top < 127 {
		s.stack[s.top+1] = s.stack[s.top]
		s.top++
	}
}

// Pop restores previous accumulator state.
func (s *AccumulatorStack) Pop() {
	if s.top > 0 {
		s.top--
	}
}

// Current returns the current accumulator.
func (s *AccumulatorStack) Current() *Accumulator {
	return &s.stack[s.top]
}

// Reset resets the stack to initial state.
func (s *AccumulatorStack) Reset() {
	s.top = 0
	s.stack[0].Computed = false
}

// half returns the perspective half belonging to side.
func (acc *Accumulator) half(side board.Color) *[L1Size]int16 {
	if side == board.White {
		return &acc.White
	}
	return &acc.Black
}

// computeSide fills one perspective half from scratch against net's bias
// and weights, leaving the other half untouched.
func (acc *Accumulator) computeSide(pos *board.Position, net *Network, side board.Color) {
	half := acc.half(side)
	copy(half[:], net.L1Bias[:])
	for _, idx := range activeFeaturesFor(pos, side, pos.KingSquare[side]) {
		addWeights(half, net, idx)
	}
}

// ComputeFull recomputes both perspective halves from scratch.
func (acc *Accumulator) ComputeFull(pos *board.Position, net *Network) {
	acc.computeSide(pos, net, board.White)
	acc.computeSide(pos, net, board.Black)
	acc.Computed = true
}

func addWeights(half *[L1Size]int16, net *Network, idx int) {
	if idx < 0 || idx >= HalfKPSize {
		return
	}
	for i := 0; i < L1Size; i++ {
		half[i] += net.L1Weights[idx][i]
	}
}

func subWeights(half *[L1Size]int16, net *Network, idx int) {
	if idx < 0 || idx >= HalfKPSize {
		return
	}
	for i := 0; i < L1Size; i++ {
		half[i] -= net.L1Weights[idx][i]
	}
}

func applyDelta(half *[L1Size]int16, net *Network, d featureDelta) {
	for _, idx := range d.remove {
		subWeights(half, net, idx)
	}
	for _, idx := range d.add {
		addWeights(half, net, idx)
	}
}

// UpdateIncremental brings the accumulator up to date for a move already
// played on pos. A non-king mover only ever touches four feature slots per
// perspective (old square, new square, and an optional capture) so both
// halves are patched in place. A king move invalidates every feature keyed
// to its own, now-stale king square, so the mover's own half gets a full
// recompute; the other side's half is untouched by the king's relocation
// itself (kings carry no feature) and only needs the capture/castling-rook
// delta applied.
func (acc *Accumulator) UpdateIncremental(pos *board.Position, m board.Move, captured board.Piece, net *Network) {
	if !acc.Computed {
		acc.ComputeFull(pos, net)
		return
	}

	moved := pos.PieceAt(m.To())
	if moved == board.NoPiece {
		acc.Computed = false
		return
	}

	if moved.Type() == board.King {
		mover := moved.Color()
		opponent := mover.Other()
		acc.computeSide(pos, net, mover)
		applyDelta(acc.half(opponent), net, kingMoveOpponentDelta(pos, m, captured, opponent, pos.KingSquare[opponent]))
		return
	}

	white, black := nonKingMoveDeltas(pos, m, captured)
	applyDelta(&acc.White, net, white)
	applyDelta(&acc.Black, net, black)
}
