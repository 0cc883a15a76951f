package operations

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
)

// WriteZstd creates filePath and hands encode a JSON encoder writing
// through a Zstandard stream.
func WriteZstd(filePath string, encode func(*json.Encoder) error) (err error) {
	outFile, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := outFile.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	writer, err := zstd.NewWriter(outFile)
	if err != nil {
		return fmt.Errorf("failed to create Zstandard writer: %w", err)
	}
	if err := encode(json.NewEncoder(writer)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode: %w", err)
	}
	// Close flushes the final frame.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to compress file: %w", err)
	}
	return nil
}

// ReadZstd opens a file written by WriteZstd and hands decode a JSON
// decoder over the decompressed stream.
func ReadZstd(filePath string, decode func(*json.Decoder) error) error {
	inFile, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	reader, err := zstd.NewReader(inFile)
	if err != nil {
		return fmt.Errorf("failed to create Zstandard reader: %w", err)
	}
	defer reader.Close()

	if err := decode(json.NewDecoder(reader)); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	return nil
}
