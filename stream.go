package jsonstream

// TokenStream is the shared result type for every component that produces
// tokens asynchronously: a channel to range over, plus a terminal error
// available once that channel has been drained.
//
// This mirrors the goroutine-owns-channel shape used throughout
// flitsinc/go-llms (LLM.ChatUsingMessages returns <-chan Update and stores
// the terminal error on the struct for retrieval after the channel closes).
type TokenStream struct {
	tokens chan Token
	errCh  chan error
	err    error
	read   bool
}

func newTokenStream() *TokenStream {
	return &TokenStream{
		tokens: make(chan Token),
		errCh:  make(chan error, 1),
	}
}

// Tokens returns the channel of produced tokens. It closes once production
// ends, whether cleanly or due to an error; call Err afterward to
// distinguish the two.
func (s *TokenStream) Tokens() <-chan Token { return s.tokens }

// Err returns the terminal error, or nil on clean completion. It blocks
// until the producer has finished, so call it after ranging over Tokens()
// (or be prepared to block if called first).
func (s *TokenStream) Err() error {
	if !s.read {
		s.err = <-s.errCh
		s.read = true
	}
	return s.err
}

// DeserializedValue is one completed top-level document from a
// Deserializer: the materialised value, plus the path its completing token
// carried — non-nil only when the input tokens were
// annotated by a PathDetector, which is how a PathSelector's multi-document
// output tells its documents apart.
type DeserializedValue struct {
	Value Value
	Path  Path
}

// ValueStream is the Deserializer's output: like TokenStream but of
// materialised values, one per completed top-level document.
type ValueStream struct {
	values chan DeserializedValue
	errCh  chan error
	err    error
	read   bool
}

func newValueStream() *ValueStream {
	return &ValueStream{
		values: make(chan DeserializedValue),
		errCh:  make(chan error, 1),
	}
}

func (s *ValueStream) Values() <-chan DeserializedValue { return s.values }

func (s *ValueStream) Err() error {
	if !s.read {
		s.err = <-s.errCh
		s.read = true
	}
	return s.err
}

// abortSignal is panicked by a producer's emit step when the consumer's
// context is cancelled mid-send; the producer's top-level recover converts
// it back into an error without unwinding every call frame by hand. The
// pattern (panic on failure, single recover at the entry point) is
// grounded on creachadair/jtree's Stream.Parse / recoverParseError
// (other_examples).
type abortSignal struct{}

// parseError is panicked by grammar-level failures for the same reason.
type parseError struct{ err error }
