package jsonstream

import "context"

// Deserialize reassembles a token stream into materialised values, one per
// completed top-level document. The input may contain several top-level
// values, as produced by PathSelector; each completion emits independently,
// with its own path.
func Deserialize(ctx context.Context, tokens <-chan Token) *ValueStream {
	vs := newValueStream()
	d := &deserializer{ctx: ctx, out: vs.values}
	go d.run(tokens, vs)
	return vs
}

type dsFrameKind int8

const (
	dsFrameArray dsFrameKind = iota
	dsFrameObject
)

// dsFrame tracks one open array or object: the container under
// construction, plus (for objects) the key currently pending a value.
type dsFrame struct {
	kind dsFrameKind
	arr  []Value
	obj  *Object
	key  string
}

type deserializer struct {
	ctx context.Context
	out chan<- DeserializedValue

	stack []dsFrame

	inString bool
	strBuf   []byte // decoded fragment accumulator for the open string
}

func (d *deserializer) fail(err error)  { panic(parseError{err}) }
func (d *deserializer) send(v DeserializedValue) {
	select {
	case d.out <- v:
	case <-d.ctx.Done():
		panic(abortSignal{})
	}
}

func (d *deserializer) run(tokens <-chan Token, vs *ValueStream) {
	var finalErr error
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case abortSignal:
				finalErr = d.ctx.Err()
				if finalErr == nil {
					finalErr = ErrCancelled
				}
			case parseError:
				finalErr = e.err
			default:
				panic(r)
			}
		}
		vs.errCh <- finalErr
		close(vs.values)
	}()

	for {
		select {
		case <-d.ctx.Done():
			panic(abortSignal{})
		case t, ok := <-tokens:
			if !ok {
				if len(d.stack) != 0 || d.inString {
					d.fail(ErrPrematureEnd)
				}
				return
			}
			d.step(t)
		}
	}
}

func (d *deserializer) step(t Token) {
	switch t.Kind {
	case Whitespace, Colon:
		return
	case ObjectStart:
		d.stack = append(d.stack, dsFrame{kind: dsFrameObject, obj: NewObject()})
	case ArrayStart:
		d.stack = append(d.stack, dsFrame{kind: dsFrameArray})
	case ObjectEnd:
		top := d.popFrame()
		d.complete(Obj(top.obj), t.Path)
	case ArrayEnd:
		top := d.popFrame()
		d.complete(Array(top.arr...), t.Path)
	case Comma:
		return
	case StringStart:
		d.inString = true
		d.strBuf = d.strBuf[:0]
	case StringChunk:
		d.strBuf = append(d.strBuf, t.Str...)
	case StringEnd:
		d.inString = false
		str := string(d.strBuf)
		d.strBuf = d.strBuf[:0]
		if t.Role == Key {
			d.setPendingKey(str)
			return
		}
		d.complete(String(str), t.Path)
	case NumberValue:
		d.complete(Number(t.Num), t.Path)
	case BooleanValue:
		d.complete(Bool(t.Bool), t.Path)
	case NullValue:
		d.complete(Null, t.Path)
	}
}

func (d *deserializer) popFrame() dsFrame {
	top := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	return top
}

func (d *deserializer) setPendingKey(key string) {
	if len(d.stack) == 0 {
		d.fail(&UnexpectedCharacterError{})
	}
	d.stack[len(d.stack)-1].key = key
}

// complete writes a just-finished value (scalar, or a container that just
// popped) into the new top frame's container, or — if the stack is now
// empty — emits it as a completed top-level document.
func (d *deserializer) complete(v Value, path Path) {
	if len(d.stack) == 0 {
		d.send(DeserializedValue{Value: v, Path: path})
		return
	}
	top := &d.stack[len(d.stack)-1]
	switch top.kind {
	case dsFrameArray:
		top.arr = append(top.arr, v)
	case dsFrameObject:
		top.obj.Set(top.key, v)
		top.key = ""
	}
}
