package jsonstream

import "context"

// Stringify turns a token stream back into text by emitting each token's
// raw field verbatim. It performs no validation of its own: round-tripping
// unmodified Parser output reproduces the source text byte-for-byte.
func Stringify(ctx context.Context, tokens <-chan Token) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for t := range tokens {
			select {
			case out <- t.Raw:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// StringifyAll drains tokens and concatenates every raw field into a single
// string. Convenient for tests and for callers who already know the
// document is small enough to hold in full.
func StringifyAll(ctx context.Context, tokens <-chan Token) (string, error) {
	var b []byte
	for s := range Stringify(ctx, tokens) {
		b = append(b, s...)
	}
	if err := ctx.Err(); err != nil {
		return string(b), err
	}
	return string(b), nil
}
