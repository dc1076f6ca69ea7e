package jsonstream

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// subStreamQueueSize bounds each sub-stream's internal buffer. A lagging sub-stream
// reader can hold back at most this many buffered tokens before the
// splitter's main loop blocks on it.
const subStreamQueueSize = 64

// announceQueueSize bounds the outer-announce side of the tee: the number
// of opened-but-not-yet-announced sub-streams the splitter can get ahead of
// a slow SubStreams() reader by before it blocks. Kept separate from
// subStreamQueueSize because the two queues are drained by different
// consumers at different rates.
const announceQueueSize = 256

// SubStream is one nested token stream emitted by PathStreamSplitter,
// rooted at a single matched subtree. Its tokens have the
// subtree's root path stripped, so the sub-stream reads like an
// independent document.
type SubStream struct {
	path   Path
	ch     chan Token
	cancel context.CancelFunc
}

func newSubStream(parentCtx context.Context, path Path) (*SubStream, context.Context) {
	ctx, cancel := context.WithCancel(parentCtx)
	return &SubStream{path: path, ch: make(chan Token, subStreamQueueSize), cancel: cancel}, ctx
}

// Path is the matched subtree's root path in the parent stream.
func (s *SubStream) Path() Path { return s.path }

// Tokens is the re-rooted token stream for this subtree.
func (s *SubStream) Tokens() <-chan Token { return s.ch }

// Cancel stops delivery to this sub-stream without affecting the parent
// stream or any other sub-stream.
func (s *SubStream) Cancel() { s.cancel() }

// SplitStream is PathStreamSplitter's output: an announcement channel of
// newly opened SubStreams, plus the usual terminal error.
type SplitStream struct {
	subs  chan *SubStream
	errCh chan error
	err   error
	read  bool
}

func newSplitStream() *SplitStream {
	return &SplitStream{subs: make(chan *SubStream), errCh: make(chan error, 1)}
}

// SubStreams returns the channel of newly opened sub-streams, in the order
// their subtrees first appear in the input.
func (s *SplitStream) SubStreams() <-chan *SubStream { return s.subs }

func (s *SplitStream) Err() error {
	if !s.read {
		s.err = <-s.errCh
		s.read = true
	}
	return s.err
}

// SplitPaths groups a path-annotated, already-filtered token stream (the
// output of SelectPaths) into one sub-stream per matched subtree. A new
// group starts whenever a token's path is not an extension of the
// currently open group's root path.
func SplitPaths(ctx context.Context, tokens <-chan Token) *SplitStream {
	ss := newSplitStream()
	sp := &splitter{ctx: ctx, outSubs: ss.subs}
	go sp.run(tokens, ss)
	return ss
}

type splitter struct {
	ctx     context.Context
	outSubs chan<- *SubStream
}

// writeToSub delivers t to sub, silently dropping it if the sub-stream's
// own reader has cancelled.
func writeToSub(sub *SubStream, subCtx context.Context, t Token) {
	select {
	case sub.ch <- t:
	case <-subCtx.Done():
	}
}

func (sp *splitter) run(tokens <-chan Token, ss *SplitStream) {
	var finalErr error
	// The outer-announce/inner-write tee: a single dedicated
	// goroutine drains the announce queue into ss.subs, so a slow or absent
	// outer reader never stalls token delivery into whichever sub-stream is
	// already open, while still announcing new sub-streams in the order
	// their subtrees first appeared (a per-announcement goroutine would
	// race on that ordering). Joined with errgroup so its context-cancelled
	// exit surfaces the same way as every other transform's abort handling,
	// grounded on flitsinc/go-llms' errgroup.WithContext fan-out in
	// mcp/config.go.
	g, gctx := errgroup.WithContext(sp.ctx)
	announce := make(chan *SubStream, announceQueueSize)
	g.Go(func() error {
		for {
			select {
			case sub, ok := <-announce:
				if !ok {
					return nil
				}
				select {
				case sp.outSubs <- sub:
				case <-gctx.Done():
					return gctx.Err()
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case abortSignal:
				finalErr = sp.ctx.Err()
				if finalErr == nil {
					finalErr = ErrCancelled
				}
			default:
				panic(r)
			}
		}
		close(announce)
		if waitErr := g.Wait(); waitErr != nil && finalErr == nil {
			finalErr = waitErr
		}
		ss.errCh <- finalErr
		close(ss.subs)
	}()

	var current *SubStream
	var currentCtx context.Context
	closeCurrent := func() {
		if current != nil {
			close(current.ch)
			current = nil
		}
	}

	for {
		select {
		case <-sp.ctx.Done():
			panic(abortSignal{})
		case t, ok := <-tokens:
			if !ok {
				closeCurrent()
				return
			}
			if current != nil && t.Path.HasPrefix(current.path) {
				t2 := t
				t2.Path = t.Path.TrimPrefix(current.path).Clone()
				writeToSub(current, currentCtx, t2)
				continue
			}
			closeCurrent()
			sub, subCtx := newSubStream(gctx, t.Path.Clone())
			current, currentCtx = sub, subCtx
			select {
			case announce <- sub:
			case <-sp.ctx.Done():
				panic(abortSignal{})
			}
			t2 := t
			t2.Path = Path{}
			writeToSub(current, currentCtx, t2)
		}
	}
}
