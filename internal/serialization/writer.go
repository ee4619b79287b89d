package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Writer writes weight files to an io.Writer.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteStateDict writes every weight vector of stateDict together with header.
//
// Tensors are laid out in name order. FormatVersion and Tensors are always
// overwritten; an empty ModelID gets a new UUID and a zero CreatedAt gets the
// current time. The completed header is returned.
func (w *Writer) WriteStateDict(stateDict map[string][]float64, header Header) (Header, error) {
	if len(stateDict) > MaxTensorCount {
		return header, fmt.Errorf("%w: got %d, max %d", ErrTooManyTensors, len(stateDict), MaxTensorCount)
	}

	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		if err := ValidateTensorName(name); err != nil {
			return header, err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header.FormatVersion = FormatVersion
	if header.ModelID == "" {
		header.ModelID = uuid.NewString()
	}
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}

	var offset int64
	header.Tensors = make([]TensorMeta, 0, len(names))
	for _, name := range names {
		size := int64(len(stateDict[name])) * elementSize
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  DTypeFloat64,
			Shape:  []int{len(stateDict[name])},
			Offset: offset,
			Size:   size,
		})
		offset += size
	}
	if offset > MaxDataSize {
		return header, fmt.Errorf("%w: %d bytes, max %d", ErrDataTooLarge, offset, MaxDataSize)
	}

	data := make([]byte, 0, offset)
	for _, name := range names {
		for _, v := range stateDict[name] {
			data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return header, fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return header, ErrHeaderTooLarge
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersion))
	binary.LittleEndian.PutUint32(fixed[8:12], headerFlags(header))
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	sum := Checksum(data)
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], sum[:])

	if _, err := w.w.Write(fixed); err != nil {
		return header, fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.w.Write(headerJSON); err != nil {
		return header, fmt.Errorf("failed to write header JSON: %w", err)
	}
	if _, err := w.w.Write(data); err != nil {
		return header, fmt.Errorf("failed to write tensor data: %w", err)
	}
	return header, nil
}

func headerFlags(h Header) uint32 {
	var flags uint32
	if len(h.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if h.CheckpointMeta != nil {
		flags |= FlagHasCheckpoint
	}
	return flags
}

// WriteFile writes a weight file to path. The file is written to a temporary
// name in the same directory and renamed into place once complete.
func WriteFile(path string, stateDict map[string][]float64, header Header) (Header, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return header, fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name()) // no-op after a successful rename
	}()

	header, err = NewWriter(tmp).WriteStateDict(stateDict, header)
	if err != nil {
		_ = tmp.Close()
		return header, err
	}
	if err := tmp.Close(); err != nil {
		return header, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return header, fmt.Errorf("failed to rename file: %w", err)
	}
	return header, nil
}
