package nnue

import "github.com/TheChii/chessgo/internal/board"

// pieceIndex maps (PieceType, Color) to a 0-9 index for HalfKP. Kings are
// not indexed — a side's king square is the perspective basis itself, not
// one of the ten piece planes.
func pieceIndex(pt board.PieceType, c board.Color) int {
	if pt == board.King || pt > board.Queen {
		return -1
	}
	base := int(pt)
	if c == board.Black {
		base += 5
	}
	return base
}

// HalfKPIndex computes the feature index for piece (pieceType, pieceColor)
// at pieceSquare, as seen from perspective's own king on kingSquare. Black's
// perspective mirrors both squares and flips the piece's color so each side
// encodes "my king, my/their pieces" identically.
func HalfKPIndex(perspective board.Color, kingSquare board.Square,
	pieceType board.PieceType, pieceColor board.Color,
	pieceSquare board.Square) int {

	kingSq := int(kingSquare)
	pieceSq := int(pieceSquare)
	pc := pieceColor

	if perspective == board.Black {
		kingSq = int(kingSquare.Mirror())
		pieceSq = int(pieceSquare.Mirror())
		pc = pieceColor.Other()
	}

	pi := pieceIndex(pieceType, pc)
	if pi < 0 {
		return -1
	}

	return kingSq*(NumPieceTypes*NumPieceSquares) + pi*NumPieceSquares + pieceSq
}

// sidePieces enumerates every non-king piece currently on the board,
// independent of perspective, for use building one side's active feature
// list or applying deltas to it.
func sidePieces(pos *board.Position, yield func(pt board.PieceType, color board.Color, sq board.Square)) {
	for color := board.White; color <= board.Black; color++ {
		for pt := board.Pawn; pt < board.King; pt++ {
			bb := pos.Pieces[color][pt]
			for bb != 0 {
				yield(pt, color, bb.PopLSB())
			}
		}
	}
}

// activeFeaturesFor lists every active HalfKP feature index for a single
// perspective (its own king square against every piece on the board).
func activeFeaturesFor(pos *board.Position, perspective board.Color, kingSq board.Square) []int {
	features := make([]int, 0, 32)
	sidePieces(pos, func(pt board.PieceType, color board.Color, sq board.Square) {
		if idx := HalfKPIndex(perspective, kingSq, pt, color, sq); idx >= 0 && idx < HalfKPSize {
			features = append(features, idx)
		}
	})
	return features
}

// ActiveFeatures returns the full active-feature lists for both perspectives
// of pos, used for a from-scratch accumulator fill.
func ActiveFeatures(pos *board.Position) (white, black []int) {
	white = activeFeaturesFor(pos, board.White, pos.KingSquare[board.White])
	black = activeFeaturesFor(pos, board.Black, pos.KingSquare[board.Black])
	return
}

// featureDelta is the set of feature indices to subtract then add to bring
// one perspective's accumulator up to date after a non-king move.
type featureDelta struct {
	add, remove []int
}

// nonKingMoveDeltas computes each perspective's featureDelta for a move
// whose mover is not a king: the mover's old-square feature is removed, its
// new-square (or promoted) feature is added, and a captured piece's feature
// is removed, each relative to both kings' unchanged squares.
func nonKingMoveDeltas(pos *board.Position, m board.Move, captured board.Piece) (white, black featureDelta) {
	whiteKingSq := pos.KingSquare[board.White]
	blackKingSq := pos.KingSquare[board.Black]

	from, to := m.From(), m.To()
	moved := pos.PieceAt(to)
	if moved == board.NoPiece {
		return
	}
	movingColor := moved.Color()

	removeFeature := func(pt board.PieceType, color board.Color, sq board.Square) {
		if idx := HalfKPIndex(board.White, whiteKingSq, pt, color, sq); idx >= 0 && idx < HalfKPSize {
			white.remove = append(white.remove, idx)
		}
		if idx := HalfKPIndex(board.Black, blackKingSq, pt, color, sq); idx >= 0 && idx < HalfKPSize {
			black.remove = append(black.remove, idx)
		}
	}
	addFeature := func(pt board.PieceType, color board.Color, sq board.Square) {
		if idx := HalfKPIndex(board.White, whiteKingSq, pt, color, sq); idx >= 0 && idx < HalfKPSize {
			white.add = append(white.add, idx)
		}
		if idx := HalfKPIndex(board.Black, blackKingSq, pt, color, sq); idx >= 0 && idx < HalfKPSize {
			black.add = append(black.add, idx)
		}
	}

	removedType := moved.Type()
	if m.IsPromotion() {
		removedType = board.Pawn
	}
	removeFeature(removedType, movingColor, from)

	addedType := moved.Type()
	if m.IsPromotion() {
		addedType = m.Promotion()
	}
	addFeature(addedType, movingColor, to)

	if captured != board.NoPiece && captured.Type() != board.King {
		capSq := to
		if m.IsEnPassant() {
			if movingColor == board.White {
				capSq = to - 8
			} else {
				capSq = to + 8
			}
		}
		removeFeature(captured.Type(), captured.Color(), capSq)
	}

	return
}

// castlingRookSquares returns a castling move's rook origin and destination.
func castlingRookSquares(from, to board.Square) (rookFrom, rookTo board.Square) {
	rank := from.Rank()
	if to > from {
		return board.NewSquare(7, rank), board.NewSquare(5, rank)
	}
	return board.NewSquare(0, rank), board.NewSquare(3, rank)
}

// kingMoveOpponentDelta computes the featureDelta for the perspective that
// did NOT move its king. A king's own relocation carries no feature (kings
// aren't indexed), so the only entries the non-moving perspective ever
// needs are a captured piece's removal or, on castling, the rook's jump —
// each keyed off that perspective's own, unchanged king square.
func kingMoveOpponentDelta(pos *board.Position, m board.Move, captured board.Piece, perspective board.Color, kingSq board.Square) featureDelta {
	var delta featureDelta
	from, to := m.From(), m.To()

	if m.IsCastling() {
		moverColor := pos.PieceAt(to).Color()
		rookFrom, rookTo := castlingRookSquares(from, to)
		if idx := HalfKPIndex(perspective, kingSq, board.Rook, moverColor, rookFrom); idx >= 0 && idx < HalfKPSize {
			delta.remove = append(delta.remove, idx)
		}
		if idx := HalfKPIndex(perspective, kingSq, board.Rook, moverColor, rookTo); idx >= 0 && idx < HalfKPSize {
			delta.add = append(delta.add, idx)
		}
		return delta
	}

	if captured != board.NoPiece && captured.Type() != board.King {
		if idx := HalfKPIndex(perspective, kingSq, captured.Type(), captured.Color(), to); idx >= 0 && idx < HalfKPSize {
			delta.remove = append(delta.remove, idx)
		}
	}
	return delta
}
