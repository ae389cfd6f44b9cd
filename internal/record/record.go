// Package record parses the transfer records handed to the task by the
// input-splitting framework.
package record

import (
	"fmt"
	"strconv"
	"strings"
)

// Compression declares whether the fetched file must be decompressed.
type Compression string

const (
	CompressionNone Compression = "NONE"
	CompressionGzip Compression = "GZIP"
)

// Known reports whether the compression token is one the task can dispatch
// on. Unknown tokens still parse; the pipeline rejects them.
func (c Compression) Known() bool {
	return c == CompressionNone || c == CompressionGzip
}

// Record is one transfer instruction. The line format is positional:
//
//	OFFSET EPHEMERAL_MOUNT SOURCE_URL COMPRESSION_TYPE TMP_REMOTE_PATH FINAL_REMOTE_PATH
//
// OFFSET is the byte offset prepended by the framework's line splitter and
// is not used by the pipeline.
type Record struct {
	Offset          int64
	EphemeralMount  string
	SourceURL       string
	Compression     Compression
	TmpRemotePath   string
	FinalRemotePath string
}

// Parse splits one input line into a Record. Exactly six
// whitespace-separated fields must be present.
func Parse(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 6 {
		return Record{}, fmt.Errorf("expected 6 whitespace-separated fields, got %d", len(fields))
	}

	offset, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("offset field %q is not an integer: %w", fields[0], err)
	}

	return Record{
		Offset:          offset,
		EphemeralMount:  fields[1],
		SourceURL:       fields[2],
		Compression:     Compression(fields[3]),
		TmpRemotePath:   fields[4],
		FinalRemotePath: fields[5],
	}, nil
}
