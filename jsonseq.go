package jsonstream

import (
	"bufio"
	"bytes"
	"context"
	"io"
)

// JSONSeqRecordSeparator is the ASCII Record Separator RFC 7464 uses to
// mark the start of each JSON text sequence record.
const JSONSeqRecordSeparator = 0x1e

// WriteJSONSeqRecord writes one RFC 7464 record: a leading record
// separator, the record bytes, and a trailing line feed, the framing
// Stringify's output needs wrapped in to become a JSON-seq stream.
// Adapted from jmank88/jsonseq's WriteRecord.
func WriteJSONSeqRecord(w io.Writer, record []byte) error {
	if _, err := w.Write([]byte{JSONSeqRecordSeparator}); err != nil {
		return err
	}
	if _, err := w.Write(record); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}

// ScanJSONSeqRecords is a bufio.SplitFunc that splits a byte stream on RFC
// 7464 record separators, returning each record's bytes (the separator and
// any trailing newline stripped). Consecutive separators with nothing
// between them yield empty tokens, which callers should skip. Adapted from
// jmank88/jsonseq's ScanRecord to hand back ready-to-feed record bodies
// rather than requiring a second validation pass.
func ScanJSONSeqRecords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if len(data) > 0 && data[0] == JSONSeqRecordSeparator {
		data = data[1:]
		advance++
	}
	if i := bytes.IndexByte(data, JSONSeqRecordSeparator); i >= 0 {
		return advance + i, bytes.TrimSuffix(data[:i], []byte{'\n'}), nil
	}
	if atEOF {
		return advance + len(data), bytes.TrimSuffix(data, []byte{'\n'}), nil
	}
	return 0, nil, nil
}

// ChunkReader bridges an io.Reader to the chan string that Parse consumes,
// reading in whatever sizes the underlying reader hands back; the parser
// places no requirement on chunk boundaries. The channel is closed on EOF,
// reader error, or context cancellation.
func ChunkReader(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		buf := make([]byte, 64*1024)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := string(buf[:n])
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

// ScanJSONSeqReader returns a *bufio.Scanner over r that yields one
// complete record body per Scan, using ScanJSONSeqRecords. Empty records
// (from consecutive separators) are returned as empty tokens, not skipped;
// callers skip them and feed each non-empty Bytes() into ParseString.
func ScanJSONSeqReader(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Split(ScanJSONSeqRecords)
	return s
}
