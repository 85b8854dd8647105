package nnue

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Weight file format constants.
const (
	MagicNumber = 0x46524B53 // "FRKS"
	Version     = 1
)

// FileHeader is the header of the weight file.
type FileHeader struct {
	Magic   uint32
	Version uint32
	L1Size  uint32
	L2Size  uint32
}

// readHeader reads and validates a FileHeader against this binary's
// compiled-in network dimensions.
func readHeader(r io.Reader) (FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return header, fmt.Errorf("failed to read header: %w", err)
	}
	if header.Magic != MagicNumber {
		return header, fmt.Errorf("invalid magic number: expected %x, got %x", MagicNumber, header.Magic)
	}
	if header.Version != Version {
		return header, fmt.Errorf("unsupported version: expected %d, got %d", Version, header.Version)
	}
	if header.L1Size != L1Size {
		return header, fmt.Errorf("L1 size mismatch: expected %d, got %d", L1Size, header.L1Size)
	}
	if header.L2Size != L2Size {
		return header, fmt.Errorf("L2 size mismatch: expected %d, got %d", L2Size, header.L2Size)
	}
	return header, nil
}

// readWeights reads every weight section after the header in file order.
func (n *Network) readWeights(r io.Reader) error {
	for i := 0; i < HalfKPSize; i++ {
		if err := binary.Read(r, binary.LittleEndian, &n.L1Weights[i]); err != nil {
			return fmt.Errorf("failed to read L1 weights at %d: %w", i, err)
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &n.L1Bias); err != nil {
		return fmt.Errorf("failed to read L1 bias: %w", err)
	}
	for i := 0; i < L1Size*2; i++ {
		if err := binary.Read(r, binary.LittleEndian, &n.L2Weights[i]); err != nil {
			return fmt.Errorf("failed to read L2 weights at %d: %w", i, err)
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &n.L2Bias); err != nil {
		return fmt.Errorf("failed to read L2 bias: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n.OutputWeights); err != nil {
		return fmt.Errorf("failed to read output weights: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n.OutputBias); err != nil {
		return fmt.Errorf("failed to read output bias: %w", err)
	}
	return nil
}

// LoadWeights loads network weights from a binary file on disk.
func (n *Network) LoadWeights(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open weights file: %w", err)
	}
	defer f.Close()
	return n.LoadWeightsFromReader(f)
}

// LoadWeightsFromReader loads network weights from an io.Reader using the
// layout documented on FileHeader: header, L1 weights, L1 bias, L2 weights,
// L2 bias, output weights, output bias.
func (n *Network) LoadWeightsFromReader(r io.Reader) error {
	if _, err := readHeader(r); err != nil {
		return err
	}
	return n.readWeights(r)
}

// SaveWeights saves network weights to a binary file.
func (n *Network) SaveWeights(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create weights file: %w", err)
	}
	defer f.Close()

	header := FileHeader{
		Magic:   MagicNumber,
		Version: Version,
		L1Size:  L1Size,
		L2Size:  L2Size,
	}
	if err := binary.Write(f, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := 0; i < HalfKPSize; i++ {
		if err := binary.Write(f, binary.LittleEndian, &n.L1Weights[i]); err != nil {
			return fmt.Errorf("failed to write L1 weights at %d: %w", i, err)
		}
	}
	if err := binary.Write(f, binary.LittleEndian, &n.L1Bias); err != nil {
		return fmt.Errorf("failed to write L1 bias: %w", err)
	}
	for i := 0; i < L1Size*2; i++ {
		if err := binary.Write(f, binary.LittleEndian, &n.L2Weights[i]); err != nil {
			return fmt.Errorf("failed to write L2 weights at %d: %w", i, err)
		}
	}
	if err := binary.Write(f, binary.LittleEndian, &n.L2Bias); err != nil {
		return fmt.Errorf("failed to write L2 bias: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, &n.OutputWeights); err != nil {
		return fmt.Errorf("failed to write output weights: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, &n.OutputBias); err != nil {
		return fmt.Errorf("failed to write output bias: %w", err)
	}
	return nil
}
