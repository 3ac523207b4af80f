package segment

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"time"
)

// maxRawSize bounds allocations driven by a (possibly corrupt) header.
const maxRawSize = 1 << 34

// Decode reads a whole stream and returns its records in stored order. Any
// structural problem yields an error wrapping ErrCorrupt and no records.
// Records are not merged: a term may appear more than once, and callers
// applying them in order get later-wins semantics.
func Decode(r io.Reader) ([]Record, Header, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Header{}, fmt.Errorf("reading snapshot stream: %w", err)
	}
	return DecodeBytes(data)
}

func DecodeBytes(data []byte) ([]Record, Header, error) {
	if len(data) < HeaderSize+FooterSize {
		return nil, Header{}, corruptf("stream too short (%d bytes)", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != MagicBytes {
		return nil, Header{}, corruptf("bad magic bytes %x", magic)
	}
	h := Header{
		Version:     binary.LittleEndian.Uint16(data[4:6]),
		Compression: Compression(data[6]),
		CreatedAt:   time.Unix(0, int64(binary.LittleEndian.Uint64(data[8:16]))),
		RawSize:     binary.LittleEndian.Uint64(data[16:24]),
		StoredSize:  binary.LittleEndian.Uint64(data[24:32]),
	}
	if h.Version != FormatVersion {
		return nil, h, corruptf("unsupported format version %d", h.Version)
	}
	if h.StoredSize != uint64(len(data)-HeaderSize-FooterSize) {
		return nil, h, corruptf("body length %d does not match stream length %d", h.StoredSize, len(data))
	}
	if h.RawSize > maxRawSize {
		return nil, h, corruptf("declared body length %d too large", h.RawSize)
	}

	stored := data[HeaderSize : HeaderSize+int(h.StoredSize)]
	footer := data[HeaderSize+int(h.StoredSize):]
	wantSum := binary.LittleEndian.Uint32(footer[0:4])
	h.Records = binary.LittleEndian.Uint32(footer[4:8])

	raw, err := decompress(stored, h.Compression, h.RawSize)
	if err != nil {
		return nil, h, err
	}
	if uint64(len(raw)) != h.RawSize {
		return nil, h, corruptf("body decompressed to %d bytes, header says %d", len(raw), h.RawSize)
	}
	if sum := crc32.ChecksumIEEE(raw); sum != wantSum {
		return nil, h, corruptf("checksum mismatch: got %08x want %08x", sum, wantSum)
	}

	records, err := parseRecords(raw)
	if err != nil {
		return nil, h, err
	}
	if uint32(len(records)) != h.Records {
		return nil, h, corruptf("found %d records, footer says %d", len(records), h.Records)
	}
	return records, h, nil
}

func parseRecords(raw []byte) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), len(raw)+1)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(bytes.TrimSpace(b)) == 0 {
			continue
		}
		var rec Record
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rec); err != nil {
			return nil, corruptf("record %d: %v", line, err)
		}
		if rec.Term == "" {
			return nil, corruptf("record %d: empty term", line)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, corruptf("record %d too long", line+1)
		}
		return nil, fmt.Errorf("scanning records: %w", err)
	}
	return records, nil
}

// ReadFile decodes the stream stored at path.
func ReadFile(path string) ([]Record, Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("opening snapshot file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
