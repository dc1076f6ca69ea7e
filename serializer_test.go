package jsonstream

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serializeToText(t *testing.T, sv SourceValue, opts SerializeOptions) string {
	t.Helper()
	ctx := context.Background()
	ts := Serialize(ctx, sv, opts)
	text, err := StringifyAll(ctx, ts.Tokens())
	require.NoError(t, err)
	require.NoError(t, ts.Err())
	return text
}

func TestSerializePlainValueCompact(t *testing.T) {
	o := NewObject()
	o.Set("a", Number(1))
	o.Set("b", Array(Bool(true), Null))

	text := serializeToText(t, FromValue(Obj(o)), SerializeOptions{})
	assert.Equal(t, `{"a":1,"b":[true,null]}`, text)
}

func TestSerializePrettyPrinting(t *testing.T) {
	o := NewObject()
	o.Set("a", Number(1))
	o.Set("b", Array(Number(2)))

	text := serializeToText(t, FromValue(Obj(o)), SerializeOptions{Indent: "  "})
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    2\n  ]\n}", text)
}

func TestSerializeEmptyContainersStayCompactUnderPrettyPrint(t *testing.T) {
	o := NewObject()
	o.Set("e", Obj(NewObject()))
	text := serializeToText(t, FromValue(Obj(o)), SerializeOptions{Indent: "  "})
	assert.Equal(t, "{\n  \"e\": {}\n}", text)
}

func TestSerializeStringStreamValue(t *testing.T) {
	frags := make(chan string, 2)
	frags <- "chunk1"
	frags <- "chunk2"
	close(frags)

	entries := make(chan ObjectStreamEntry, 1)
	entries <- ObjectStreamEntry{Key: FromString("test"), Value: StringStream(frags)}
	close(entries)

	text := serializeToText(t, ObjectStreamValue(entries), SerializeOptions{})
	assert.Equal(t, `{"test":"chunk1chunk2"}`, text)
}

func TestSerializeArrayStream(t *testing.T) {
	elems := make(chan SourceValue, 3)
	elems <- FromNumber(1)
	elems <- FromNumber(2)
	elems <- FromNumber(3)
	close(elems)

	text := serializeToText(t, ArrayStream(elems), SerializeOptions{})
	assert.Equal(t, `[1,2,3]`, text)
}

func TestSerializeDeferredValue(t *testing.T) {
	sv := Defer(func(ctx context.Context) (SourceValue, error) {
		return FromString("resolved"), nil
	})
	text := serializeToText(t, sv, SerializeOptions{})
	assert.Equal(t, `"resolved"`, text)
}

func TestSerializeDeferredErrorSurfacesAsUpstreamError(t *testing.T) {
	boom := errors.New("boom")
	sv := Defer(func(ctx context.Context) (SourceValue, error) {
		return SourceValue{}, boom
	})
	ctx := context.Background()
	ts := Serialize(ctx, sv, SerializeOptions{})
	_, err := StringifyAll(ctx, ts.Tokens())
	require.NoError(t, err) // Stringify itself cannot fail
	err = ts.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSerializeAbsentEntrySkipped(t *testing.T) {
	entries := make(chan ObjectStreamEntry, 2)
	entries <- ObjectStreamEntry{Key: FromString("keep"), Value: FromNumber(1)}
	entries <- ObjectStreamEntry{Key: FromString("drop"), Value: Absent}
	close(entries)

	text := serializeToText(t, ObjectStreamValue(entries), SerializeOptions{})
	assert.Equal(t, `{"keep":1}`, text)
}

func TestSerializeNonFiniteNumberBecomesNull(t *testing.T) {
	text := serializeToText(t, FromNumber(math.NaN()), SerializeOptions{})
	assert.Equal(t, `null`, text)
	text = serializeToText(t, FromNumber(math.Inf(1)), SerializeOptions{})
	assert.Equal(t, `null`, text)
}

func TestSerializeRawJSONPassthrough(t *testing.T) {
	entries := make(chan ObjectStreamEntry, 1)
	entries <- ObjectStreamEntry{Key: FromString("injected"), Value: RawJSON(`{"x":[1,2]}`)}
	close(entries)

	text := serializeToText(t, ObjectStreamValue(entries), SerializeOptions{})
	assert.Equal(t, `{"injected":{"x":[1,2]}}`, text)
}

type transformingValue struct{ n int }

func (v transformingValue) TransformJSON(key string) (SourceValue, error) {
	return FromNumber(float64(v.n) * 2), nil
}

func TestSerializeTransformerHook(t *testing.T) {
	sv := SourceValue{Kind: SourcePlain, Native: transformingValue{n: 21}}
	text := serializeToText(t, sv, SerializeOptions{})
	assert.Equal(t, `42`, text)
}

func TestSerializeStreamMultiDocumentJSONL(t *testing.T) {
	values := make(chan SourceValue, 3)
	values <- FromNumber(1)
	values <- FromNumber(2)
	values <- FromNumber(3)
	close(values)

	before, delim, after := JSONLFraming()
	ctx := context.Background()
	ts := SerializeStream(ctx, values, SerializeOptions{BeforeFirst: before, Delimiter: delim, AfterLast: after})
	text, err := StringifyAll(ctx, ts.Tokens())
	require.NoError(t, err)
	require.NoError(t, ts.Err())
	assert.Equal(t, "1\n2\n3", text)
}

func TestSerializeStreamMultiDocumentJSONSeq(t *testing.T) {
	values := make(chan SourceValue, 2)
	values <- FromString("a")
	values <- FromString("b")
	close(values)

	before, delim, after := JSONSeqFraming()
	ctx := context.Background()
	ts := SerializeStream(ctx, values, SerializeOptions{BeforeFirst: before, Delimiter: delim, AfterLast: after})
	text, err := StringifyAll(ctx, ts.Tokens())
	require.NoError(t, err)
	require.NoError(t, ts.Err())
	assert.Equal(t, "\x1e\"a\"\n\x1e\"b\"\n", text)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	o := NewObject()
	o.Set("str", String("hi \"there\"\n"))
	o.Set("num", Number(-12.5))
	o.Set("arr", Array(Bool(true), Null, Number(3)))
	original := Obj(o)

	ctx := context.Background()
	ts := Serialize(ctx, FromValue(original), SerializeOptions{})
	text, err := StringifyAll(ctx, ts.Tokens())
	require.NoError(t, err)
	require.NoError(t, ts.Err())

	parsed := ParseString(ctx, text, ParserOptions{})
	vs := Deserialize(ctx, parsed.Tokens())
	var got Value
	for dv := range vs.Values() {
		got = dv.Value
	}
	require.NoError(t, parsed.Err())
	require.NoError(t, vs.Err())
	assert.True(t, original.Equal(got))
}
