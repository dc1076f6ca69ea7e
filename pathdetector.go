package jsonstream

import "context"

// DetectPaths annotates every token of tokens with its Path.
// The input stream itself is unmodified structurally; only Token.Path
// changes from nil to a snapshot of the path at the moment the token was
// emitted.
func DetectPaths(ctx context.Context, tokens <-chan Token) *TokenStream {
	ts := newTokenStream()
	pd := &pathDetector{ctx: ctx, out: ts.tokens, path: Path{}}
	go pd.run(tokens, ts)
	return ts
}

type pdSubState int8

const (
	pdObjectPendingKey pdSubState = iota
	pdObjectNextValue
	pdObjectActiveValue
	pdArrayNextValue
	pdArrayActiveValue
)

// pdFrame tracks one open container. baseLen is the length pd.path had at
// the moment this frame was pushed — equivalently, the container's own
// path length, restored whenever no child value is currently active.
type pdFrame struct {
	isObject bool
	sub      pdSubState
	key      string
	index    int
	baseLen  int
}

type pathDetector struct {
	ctx   context.Context
	out   chan<- Token
	stack []pdFrame
	path  Path
}

func (pd *pathDetector) emit(t Token) {
	select {
	case pd.out <- t:
	case <-pd.ctx.Done():
		panic(abortSignal{})
	}
}

func (pd *pathDetector) run(tokens <-chan Token, ts *TokenStream) {
	var finalErr error
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case abortSignal:
				finalErr = pd.ctx.Err()
				if finalErr == nil {
					finalErr = ErrCancelled
				}
			default:
				panic(r)
			}
		}
		ts.errCh <- finalErr
		close(ts.tokens)
	}()

	for {
		select {
		case <-pd.ctx.Done():
			panic(abortSignal{})
		case t, ok := <-tokens:
			if !ok {
				return
			}
			pd.process(t)
		}
	}
}

func (pd *pathDetector) process(t Token) {
	// ObjectEnd/ArrayEnd belong to the frame that is itself closing: no
	// promotion happens on its own behalf, only a return to the path it
	// had before any of its children were active.
	if t.Kind == ObjectEnd || t.Kind == ArrayEnd {
		top := &pd.stack[len(pd.stack)-1]
		pd.path = pd.path[:top.baseLen]
		t.Path = pd.path.Clone()
		pd.emit(t)
		pd.stack = pd.stack[:len(pd.stack)-1]
		return
	}

	// Every other token is either the parent's pending child value
	// beginning (promote first) or a token that belongs to the parent
	// itself (promote is then a no-op).
	pd.promoteTop()

	switch t.Kind {
	case ObjectStart:
		t.Path = pd.path.Clone()
		pd.emit(t)
		pd.stack = append(pd.stack, pdFrame{isObject: true, sub: pdObjectPendingKey, baseLen: len(pd.path)})
		return
	case ArrayStart:
		t.Path = pd.path.Clone()
		pd.emit(t)
		pd.stack = append(pd.stack, pdFrame{isObject: false, sub: pdArrayNextValue, baseLen: len(pd.path)})
		return
	}

	// A Comma belongs to the container itself, not to the value that just
	// finished before it, so the active child segment must be popped before
	// (not after) the comma's own path snapshot is taken.
	if t.Kind == Comma {
		top := &pd.stack[len(pd.stack)-1]
		pd.path = pd.path[:top.baseLen]
		if top.isObject {
			top.key = ""
			top.sub = pdObjectPendingKey
		} else {
			top.index++
			top.sub = pdArrayNextValue
		}
	}

	t.Path = pd.path.Clone()
	pd.emit(t)

	if len(pd.stack) == 0 {
		return
	}
	top := &pd.stack[len(pd.stack)-1]
	switch t.Kind {
	case StringChunk:
		if top.isObject && top.sub == pdObjectPendingKey && t.Role == Key {
			top.key += t.Str
		}
	case Colon:
		if top.isObject && top.sub == pdObjectPendingKey {
			top.sub = pdObjectNextValue
		}
	}
}

// promoteTop pushes the top frame's pending key/index onto the active path
// the first time a value begins under it.
func (pd *pathDetector) promoteTop() {
	if len(pd.stack) == 0 {
		return
	}
	top := &pd.stack[len(pd.stack)-1]
	switch top.sub {
	case pdObjectNextValue:
		top.sub = pdObjectActiveValue
		pd.path = append(pd.path[:top.baseLen], keySeg(top.key))
	case pdArrayNextValue:
		top.sub = pdArrayActiveValue
		pd.path = append(pd.path[:top.baseLen], indexSeg(top.index))
	}
}
