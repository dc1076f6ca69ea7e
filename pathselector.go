package jsonstream

import "context"

// SelectPaths filters a path-annotated token stream (the output of
// DetectPaths) down to tokens matching sel, plus every token belonging to
// a descendant of an already-matched path, so that selecting a container
// yields its entire subtree. The output may contain several
// top-level values and need not itself be a valid single JSON document.
func SelectPaths(ctx context.Context, tokens <-chan Token, sel *Selector) *TokenStream {
	ts := newTokenStream()
	ps := &pathSelector{ctx: ctx, out: ts.tokens, sel: sel}
	go ps.run(tokens, ts)
	return ts
}

type pathSelector struct {
	ctx context.Context
	out chan<- Token
	sel *Selector

	// matchedPrefix is the path of the subtree currently being forwarded;
	// it is only meaningful while inMatch is true.
	matchedPrefix Path
	inMatch       bool
}

func (ps *pathSelector) emit(t Token) {
	select {
	case ps.out <- t:
	case <-ps.ctx.Done():
		panic(abortSignal{})
	}
}

func (ps *pathSelector) run(tokens <-chan Token, ts *TokenStream) {
	var finalErr error
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case abortSignal:
				finalErr = ps.ctx.Err()
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
		case <-ps.ctx.Done():
			panic(abortSignal{})
		case t, ok := <-tokens:
			if !ok {
				return
			}
			ps.process(t)
		}
	}
}

func (ps *pathSelector) process(t Token) {
	if ps.inMatch {
		if t.Path.HasPrefix(ps.matchedPrefix) {
			ps.emit(t)
			return
		}
		ps.inMatch = false
	}
	if ps.sel.Matches(t.Path) {
		ps.inMatch = true
		ps.matchedPrefix = t.Path.Clone()
		ps.emit(t)
	}
}
