package nnue

import (
	"testing"

	"github.com/TheChii/chessgo/internal/board"
)

func randomNet() *Network {
	net := NewNetwork()
	net.InitRandom(7)
	return net
}

// assertMatchesFreshCompute plays m on pos, updates acc incrementally, and
// checks the result against a from-scratch ComputeFull on the resulting
// position — the contract every UpdateIncremental path must honor.
func assertMatchesFreshCompute(t *testing.T, net *Network, pos *board.Position, m board.Move) {
	t.Helper()

	captured := pos.PieceAt(m.To())
	if m.IsEnPassant() {
		captured = board.NewPiece(board.Pawn, pos.SideToMove.Other())
	}

	acc := &Accumulator{}
	acc.ComputeFull(pos, net)

	undo := pos.MakeMove(m)
	acc.UpdateIncremental(pos, m, captured, net)

	want := &Accumulator{}
	want.ComputeFull(pos, net)

	if acc.White != want.White {
		t.Errorf("move %s: White half diverged from fresh compute", m.String())
	}
	if acc.Black != want.Black {
		t.Errorf("move %s: Black half diverged from fresh compute", m.String())
	}

	pos.UnmakeMove(m, undo)
}

func TestUpdateIncrementalQuietMove(t *testing.T) {
	net := randomNet()
	pos := board.NewPosition()
	assertMatchesFreshCompute(t, net, pos, board.NewMove(board.E2, board.E4))
}

func TestUpdateIncrementalCapture(t *testing.T) {
	net := randomNet()
	pos, err := board.ParseFEN("rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	assertMatchesFreshCompute(t, net, pos, board.NewMove(board.E4, board.D5))
}

func TestUpdateIncrementalKingMoveOnlyRecomputesMoverHalf(t *testing.T) {
	net := randomNet()
	pos, err := board.ParseFEN("rnbqk2r/pppp1ppp/5n2/2b1p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	// King steps off e1; black's accumulator half must only absorb a
	// capture/castling-rook delta, never a full recompute keyed to a king
	// square that isn't its own.
	assertMatchesFreshCompute(t, net, pos, board.NewMove(board.E1, board.F1))
}

func TestUpdateIncrementalCastling(t *testing.T) {
	net := randomNet()
	pos, err := board.ParseFEN("rnbqk2r/pppp1ppp/5n2/2b1p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	assertMatchesFreshCompute(t, net, pos, board.NewCastling(board.E1, board.G1))
}

func TestUpdateIncrementalPromotion(t *testing.T) {
	net := randomNet()
	pos, err := board.ParseFEN("8/4P3/8/8/4k3/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	assertMatchesFreshCompute(t, net, pos, board.NewPromotion(board.E7, board.E8, board.Queen))
}
