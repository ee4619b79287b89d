package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// Reader holds a fully read weight file.
type Reader struct {
	header  Header
	flags   uint32
	version uint32
	data    []byte
	index   map[string]int
}

// ReaderOptions configures the behavior of Reader.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// DefaultReaderOptions returns strict validation with checksum verification.
func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{ValidationLevel: ValidationStrict}
}

// NewReader reads a complete weight file from r and validates it.
func NewReader(r io.Reader, opts ReaderOptions) (*Reader, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}

	reader := &Reader{
		version: binary.LittleEndian.Uint32(fixed[4:8]),
		flags:   binary.LittleEndian.Uint32(fixed[8:12]),
	}
	if reader.version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, reader.version, FormatVersion)
	}

	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	if dataSize > MaxDataSize {
		return nil, ErrDataTooLarge
	}
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := json.Unmarshal(headerJSON, &reader.header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	reader.data = make([]byte, dataSize)
	if _, err := io.ReadFull(r, reader.data); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	if !opts.SkipChecksumValidation {
		if err := VerifyChecksum(reader.data, stored); err != nil {
			return nil, err
		}
	}
	//nolint:gosec // G115: dataSize is bounded by MaxDataSize
	if err := ValidateHeader(&reader.header, int64(dataSize), opts.ValidationLevel); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	reader.index = make(map[string]int, len(reader.header.Tensors))
	for i, t := range reader.header.Tensors {
		reader.index[t.Name] = i
	}
	return reader, nil
}

// ReadFile opens path and reads it with NewReader.
func ReadFile(path string, opts ReaderOptions) (*Reader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	return NewReader(file, opts)
}

// Header returns the parsed JSON header.
func (r *Reader) Header() Header {
	return r.header
}

// Flags returns the flags of the fixed header.
func (r *Reader) Flags() uint32 {
	return r.flags
}

// Metadata returns the custom metadata.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns the names of all tensors in file order.
func (r *Reader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, t := range r.header.Tensors {
		names[i] = t.Name
	}
	return names
}

// Tensor decodes the weight vector called name.
func (r *Reader) Tensor(name string) ([]float64, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
	}
	meta := r.header.Tensors[i]
	if meta.Offset < 0 || meta.Size < 0 || meta.Offset+meta.Size > int64(len(r.data)) {
		return nil, &ValidationError{Type: "out_of_bounds", Tensor: name, Details: fmt.Sprintf("offset %d + size %d > data_size %d", meta.Offset, meta.Size, len(r.data))}
	}
	raw := r.data[meta.Offset : meta.Offset+meta.Size]
	out := make([]float64, len(raw)/elementSize)
	for k := range out {
		out[k] = math.Float64frombits(binary.LittleEndian.Uint64(raw[k*elementSize:]))
	}
	return out, nil
}

// StateDict decodes every tensor.
func (r *Reader) StateDict() (map[string][]float64, error) {
	sd := make(map[string][]float64, len(r.header.Tensors))
	for _, t := range r.header.Tensors {
		v, err := r.Tensor(t.Name)
		if err != nil {
			return nil, err
		}
		sd[t.Name] = v
	}
	return sd, nil
}
