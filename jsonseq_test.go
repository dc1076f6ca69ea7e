package jsonstream

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONSeqRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSeqRecord(&buf, []byte(`{"a":1}`)))
	assert.Equal(t, "\x1e{\"a\":1}\n", buf.String())
}

func TestScanJSONSeqRecords(t *testing.T) {
	input := "\x1e\"a\"\n\x1e\"b\"\n"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(ScanJSONSeqRecords)

	var records []string
	for scanner.Scan() {
		records = append(records, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{`"a"`, `"b"`}, records)
}

func TestScanJSONSeqReaderFeedsParser(t *testing.T) {
	input := "\x1e{\"x\":1}\n\x1e{\"x\":2}\n"
	scanner := ScanJSONSeqReader(strings.NewReader(input))

	ctx := context.Background()
	var sums []float64
	for scanner.Scan() {
		rec := scanner.Bytes()
		if len(rec) == 0 {
			continue
		}
		ts := ParseString(ctx, string(rec), ParserOptions{})
		vs := Deserialize(ctx, ts.Tokens())
		for dv := range vs.Values() {
			obj, _ := dv.Value.AsObject()
			x, _ := obj.Get("x")
			n, _ := x.AsNumber()
			sums = append(sums, n)
		}
		require.NoError(t, ts.Err())
		require.NoError(t, vs.Err())
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []float64{1, 2}, sums)
}

func TestChunkReader(t *testing.T) {
	ctx := context.Background()
	r := strings.NewReader(`{"a":1}`)
	ch := ChunkReader(ctx, r)
	ts := Parse(ctx, ch, ParserOptions{})
	vs := Deserialize(ctx, ts.Tokens())
	var got Value
	for dv := range vs.Values() {
		got = dv.Value
	}
	require.NoError(t, ts.Err())
	require.NoError(t, vs.Err())
	obj, _ := got.AsObject()
	a, _ := obj.Get("a")
	n, _ := a.AsNumber()
	assert.Equal(t, 1.0, n)
}
