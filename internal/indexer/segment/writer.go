package segment

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Encode writes records to w as one complete stream.
func Encode(w io.Writer, records []Record, c Compression) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return fmt.Errorf("encoding record for term %q: %w", records[i].Term, err)
		}
	}
	raw := body.Bytes()

	stored, applied, err := compress(raw, c)
	if err != nil {
		return err
	}

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint16(header[4:6], FormatVersion)
	header[6] = byte(applied)
	binary.LittleEndian.PutUint64(header[8:16], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint64(header[16:24], uint64(len(raw)))
	binary.LittleEndian.PutUint64(header[24:32], uint64(len(stored)))

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(raw))
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(records)))

	for _, part := range [][]byte{header, stored, footer} {
		if _, err := w.Write(part); err != nil {
			return fmt.Errorf("writing snapshot stream: %w", err)
		}
	}
	return nil
}

// WriteFile encodes records into path. The stream goes to a .tmp sibling
// that is synced and renamed over path, so readers never see a partial file.
func WriteFile(path string, records []Record, c Compression) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer f.Close()

	if err := Encode(f, records, c); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming snapshot file: %w", err)
	}
	return nil
}
