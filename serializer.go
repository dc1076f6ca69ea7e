package jsonstream

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SerializeOptions configures Serialize/SerializeStream.
type SerializeOptions struct {
	// Indent, when non-empty, is used as one level of indentation and
	// turns on pretty-printing. Leave empty for compact output.
	Indent string

	// BeforeFirst, Delimiter, and AfterLast frame a multi-document stream.
	// Delimiter defaults to "\n" (JSONL). All three are ignored by
	// Serialize, which always produces a single document.
	BeforeFirst string
	Delimiter   string
	AfterLast   string
}

// IndentSpaces is sugar for an Indent of n literal spaces.
func IndentSpaces(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}

// JSONSeqFraming returns the BeforeFirst/Delimiter/AfterLast triple for
// RFC 7464 JSON text sequences, grounded on jmank88/jsonseq.
func JSONSeqFraming() (beforeFirst, delimiter, afterLast string) {
	return "\x1e", "\n\x1e", "\n"
}

// JSONLFraming returns the triple for newline-delimited JSON.
func JSONLFraming() (beforeFirst, delimiter, afterLast string) {
	return "", "\n", ""
}

// Serialize produces the token stream for a single source value.
func Serialize(ctx context.Context, value SourceValue, opts SerializeOptions) *TokenStream {
	ch := make(chan SourceValue, 1)
	ch <- value
	close(ch)
	opts.BeforeFirst, opts.Delimiter, opts.AfterLast = "", "", ""
	return SerializeStream(ctx, ch, opts)
}

// SerializeStream produces a multi-document token stream, one document per
// value read from values, framed per opts.
func SerializeStream(ctx context.Context, values <-chan SourceValue, opts SerializeOptions) *TokenStream {
	ts := newTokenStream()
	s := &serializer{ctx: ctx, out: ts.tokens, pretty: opts.Indent != "", indent: opts.Indent}
	go s.run(values, opts, ts)
	return ts
}

type serializer struct {
	ctx    context.Context
	out    chan<- Token
	pretty bool
	indent string
}

func (s *serializer) emit(t Token) {
	select {
	case s.out <- t:
	case <-s.ctx.Done():
		panic(abortSignal{})
	}
}

func (s *serializer) run(values <-chan SourceValue, opts SerializeOptions, ts *TokenStream) {
	var finalErr error
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case abortSignal:
				finalErr = s.ctx.Err()
				if finalErr == nil {
					finalErr = ErrCancelled
				}
			case parseError:
				finalErr = e.err
			default:
				panic(r)
			}
		}
		ts.errCh <- finalErr
		close(ts.tokens)
	}()

	delim := opts.Delimiter
	if delim == "" {
		delim = "\n"
	}
	first := true
	for {
		select {
		case <-s.ctx.Done():
			panic(abortSignal{})
		case sv, ok := <-values:
			if !ok {
				if !first && opts.AfterLast != "" {
					s.emit(whitespaceToken(opts.AfterLast))
				}
				return
			}
			if first && opts.BeforeFirst != "" {
				s.emit(whitespaceToken(opts.BeforeFirst))
			} else if !first && delim != "" {
				s.emit(whitespaceToken(delim))
			}
			if err := s.emitValue(s.ctx, sv, "", 0); err != nil {
				s.fail(err)
			}
			first = false
		}
	}
}

func (s *serializer) fail(err error) { panic(parseError{err}) }

// resolve peels deferred values and Transformer hooks until a concrete
// SourceValue remains.
func (s *serializer) resolve(ctx context.Context, sv SourceValue, key string) (SourceValue, error) {
	for {
		if sv.Kind == SourceDeferred {
			next, err := sv.Resolve(ctx)
			if err != nil {
				return SourceValue{}, err
			}
			sv = next
			continue
		}
		if sv.Native != nil {
			tr, ok := sv.Native.(Transformer)
			if !ok {
				return SourceValue{}, fmt.Errorf("jsonstream: value of type %T has no JSON representation", sv.Native)
			}
			next, err := tr.TransformJSON(key)
			if err != nil {
				return SourceValue{}, err
			}
			sv = next
			continue
		}
		return sv, nil
	}
}

func resolvedKeyString(k SourceValue) string {
	if k.Kind == SourcePlain {
		if str, ok := k.Value.AsString(); ok {
			return str
		}
	}
	return ""
}

func (s *serializer) emitValue(ctx context.Context, sv SourceValue, key string, depth int) error {
	resolved, err := s.resolve(ctx, sv, key)
	if err != nil {
		return &UpstreamError{Cause: err}
	}
	return s.emitResolvedValue(resolved, depth)
}

func (s *serializer) emitResolvedValue(resolved SourceValue, depth int) error {
	switch resolved.Kind {
	case SourceAbsent:
		// Object-stream members and array-stream elements that resolve to
		// absent are skipped by their callers; anywhere else an absent value
		// has no JSON rendering, so fall back to null.
		s.emit(nullToken())
		return nil
	case SourceRaw:
		return s.emitRaw(resolved.Raw)
	case SourceStringStream:
		return s.emitStringStreamValue(resolved, RoleValue)
	case SourceArrayStream:
		return s.emitArrayStreamValue(resolved, depth)
	case SourceObjectStream:
		return s.emitObjectStreamValue(resolved, depth)
	case SourcePlain:
		return s.emitPlainValue(resolved.Value, depth)
	}
	return &UpstreamError{Cause: fmt.Errorf("jsonstream: unresolved source value kind %d", resolved.Kind)}
}

func (s *serializer) emitPlainValue(v Value, depth int) error {
	switch v.Kind() {
	case NullVal:
		s.emit(nullToken())
	case BoolVal:
		b, _ := v.AsBool()
		s.emit(booleanToken(b))
	case NumberVal:
		n, _ := v.AsNumber()
		s.emitNumber(n)
	case StringVal:
		str, _ := v.AsString()
		s.emitWholeString(str, RoleValue)
	case ArrayVal:
		return s.emitPlainArray(v, depth)
	case ObjectVal:
		return s.emitPlainObject(v, depth)
	}
	return nil
}

// emitNumber renders non-finite floats as null, matching the standard JSON
// textual convention.
func (s *serializer) emitNumber(n float64) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		s.emit(nullToken())
		return
	}
	raw := strconv.FormatFloat(n, 'g', -1, 64)
	s.emit(Token{Kind: NumberValue, Raw: raw, Num: n})
}

func (s *serializer) emitWholeString(str string, role StringRole) {
	s.emit(Token{Kind: StringStart, Raw: `"`, Role: role})
	if str != "" {
		s.emitStringChunk(str, role)
	}
	s.emit(Token{Kind: StringEnd, Raw: `"`, Role: role})
}

func (s *serializer) emitStringChunk(str string, role StringRole) {
	s.emit(Token{Kind: StringChunk, Raw: encodeJSONStringBody(str), Str: str, Role: role})
}

func (s *serializer) emitItemSeparator(depth int) {
	if s.pretty {
		s.emit(whitespaceToken("\n" + strings.Repeat(s.indent, depth)))
	}
}

func (s *serializer) emitCloseSeparator(depth int, nonEmpty bool) {
	if s.pretty && nonEmpty {
		s.emit(whitespaceToken("\n" + strings.Repeat(s.indent, depth)))
	}
}

func (s *serializer) emitPlainArray(v Value, depth int) error {
	arr, _ := v.AsArray()
	s.emit(arrayStartToken())
	for i, elem := range arr {
		if i > 0 {
			s.emit(commaToken())
		}
		s.emitItemSeparator(depth + 1)
		if err := s.emitValue(s.ctx, FromValue(elem), "", depth+1); err != nil {
			return err
		}
	}
	s.emitCloseSeparator(depth, len(arr) > 0)
	s.emit(arrayEndToken())
	return nil
}

func (s *serializer) emitPlainObject(v Value, depth int) error {
	obj, _ := v.AsObject()
	s.emit(objectStartToken())
	first := true
	var rangeErr error
	if obj != nil {
		obj.Range(func(k string, val Value) bool {
			if !first {
				s.emit(commaToken())
			}
			s.emitItemSeparator(depth + 1)
			s.emitWholeString(k, Key)
			s.emit(colonToken())
			if s.pretty {
				s.emit(whitespaceToken(" "))
			}
			if err := s.emitValue(s.ctx, FromValue(val), k, depth+1); err != nil {
				rangeErr = err
				return false
			}
			first = false
			return true
		})
	}
	if rangeErr != nil {
		return rangeErr
	}
	s.emitCloseSeparator(depth, obj != nil && obj.Len() > 0)
	s.emit(objectEndToken())
	return nil
}

// emitRaw feeds pre-computed JSON text through the Parser and splices the
// resulting tokens verbatim into the output.
func (s *serializer) emitRaw(raw string) error {
	sub := ParseString(s.ctx, raw, ParserOptions{Mode: SingleDocument})
	for tok := range sub.Tokens() {
		s.emit(tok)
	}
	if err := sub.Err(); err != nil {
		return &UpstreamError{Cause: err}
	}
	return nil
}

func (s *serializer) emitStringStreamValue(sv SourceValue, role StringRole) error {
	s.emit(Token{Kind: StringStart, Raw: `"`, Role: role})
	for {
		select {
		case frag, ok := <-sv.Strings:
			if !ok {
				s.emit(Token{Kind: StringEnd, Raw: `"`, Role: role})
				return nil
			}
			if frag != "" {
				s.emitStringChunk(frag, role)
			}
		case <-s.ctx.Done():
			panic(abortSignal{})
		}
	}
}

// resolveWindow is the lookahead used when draining ArrayStream/ObjectStream
// tags: up to this many sibling entries are resolved concurrently via
// errgroup before being emitted in their original order, so a slow deferred
// value in one sibling doesn't stall independent resolution work in
// another, while emission order is unaffected.
const resolveWindow = 4

func (s *serializer) emitArrayStreamValue(sv SourceValue, depth int) error {
	s.emit(arrayStartToken())
	buf := make([]SourceValue, 0, resolveWindow)
	first := true

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		resolved := make([]SourceValue, len(buf))
		g, gctx := errgroup.WithContext(s.ctx)
		for i, e := range buf {
			i, e := i, e
			g.Go(func() error {
				r, err := s.resolve(gctx, e, "")
				if err != nil {
					return err
				}
				resolved[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return &UpstreamError{Cause: err}
		}
		for _, r := range resolved {
			if r.Kind == SourceAbsent {
				continue
			}
			if !first {
				s.emit(commaToken())
			}
			s.emitItemSeparator(depth + 1)
			if err := s.emitResolvedValue(r, depth+1); err != nil {
				return err
			}
			first = false
		}
		buf = buf[:0]
		return nil
	}

	for {
		select {
		case e, ok := <-sv.Elements:
			if !ok {
				if err := flush(); err != nil {
					return err
				}
				s.emitCloseSeparator(depth, !first)
				s.emit(arrayEndToken())
				return nil
			}
			buf = append(buf, e)
			if len(buf) == resolveWindow {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-s.ctx.Done():
			panic(abortSignal{})
		}
	}
}

func (s *serializer) emitObjectStreamValue(sv SourceValue, depth int) error {
	s.emit(objectStartToken())
	first := true
	if err := s.emitObjectStreamEntries(sv.Entries, depth, &first); err != nil {
		return err
	}
	s.emitCloseSeparator(depth, !first)
	s.emit(objectEndToken())
	return nil
}

type resolvedEntry struct {
	key SourceValue
	val SourceValue
}

func (s *serializer) emitObjectStreamEntries(entries <-chan ObjectStreamEntry, containerDepth int, first *bool) error {
	buf := make([]ObjectStreamEntry, 0, resolveWindow)

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		resolved := make([]resolvedEntry, len(buf))
		g, gctx := errgroup.WithContext(s.ctx)
		for i, e := range buf {
			i, e := i, e
			g.Go(func() error {
				k, err := s.resolve(gctx, e.Key, "")
				if err != nil {
					return err
				}
				v, err := s.resolve(gctx, e.Value, resolvedKeyString(k))
				if err != nil {
					return err
				}
				resolved[i] = resolvedEntry{key: k, val: v}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return &UpstreamError{Cause: err}
		}
		for _, re := range resolved {
			if re.val.Kind == SourceAbsent {
				continue
			}
			if !*first {
				s.emit(commaToken())
			}
			s.emitItemSeparator(containerDepth + 1)
			if err := s.emitKeyTokens(re.key); err != nil {
				return err
			}
			s.emit(colonToken())
			if s.pretty {
				s.emit(whitespaceToken(" "))
			}
			if err := s.emitResolvedValue(re.val, containerDepth+1); err != nil {
				return err
			}
			*first = false
		}
		buf = buf[:0]
		return nil
	}

	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return flush()
			}
			buf = append(buf, e)
			if len(buf) == resolveWindow {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-s.ctx.Done():
			panic(abortSignal{})
		}
	}
}

func (s *serializer) emitKeyTokens(key SourceValue) error {
	s.emit(Token{Kind: StringStart, Raw: `"`, Role: Key})
	switch key.Kind {
	case SourcePlain:
		str, ok := key.Value.AsString()
		if !ok {
			return &UpstreamError{Cause: fmt.Errorf("jsonstream: object key must be a string, got %s", key.Value.Kind())}
		}
		if str != "" {
			s.emitStringChunk(str, Key)
		}
	case SourceStringStream:
		for {
			select {
			case frag, ok := <-key.Strings:
				if !ok {
					s.emit(Token{Kind: StringEnd, Raw: `"`, Role: Key})
					return nil
				}
				if frag != "" {
					s.emitStringChunk(frag, Key)
				}
			case <-s.ctx.Done():
				panic(abortSignal{})
			}
		}
	default:
		return &UpstreamError{Cause: fmt.Errorf("jsonstream: unsupported object key kind")}
	}
	s.emit(Token{Kind: StringEnd, Raw: `"`, Role: Key})
	return nil
}

const hexDigits = "0123456789abcdef"

// encodeJSONStringBody renders s as the inner body of a JSON string
// literal (no surrounding quotes), escaping the characters RFC 8259
// requires plus the common short escapes for readability.
func encodeJSONStringBody(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[(r>>4)&0xf])
				b.WriteByte(hexDigits[r&0xf])
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
