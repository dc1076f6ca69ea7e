package jsonstream

import (
	"context"
	"testing"
)

// collectTokens drains a TokenStream fully, returning every token alongside
// the stream's terminal error.
func collectTokens(ts *TokenStream) ([]Token, error) {
	var toks []Token
	for t := range ts.Tokens() {
		toks = append(toks, t)
	}
	return toks, ts.Err()
}

// mustParse parses text in single-document mode and fails the test on error.
func mustParse(t *testing.T, text string) []Token {
	t.Helper()
	ts := ParseString(context.Background(), text, ParserOptions{})
	toks, err := collectTokens(ts)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return toks
}

// feedChunks drives Parse with an arbitrary chunk split, used to test
// boundary-invariance.
func feedChunks(ctx context.Context, chunks []string) *TokenStream {
	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, c := range chunks {
			ch <- c
		}
	}()
	return Parse(ctx, ch, ParserOptions{})
}

func rawConcat(toks []Token) string {
	var out string
	for _, t := range toks {
		out += t.Raw
	}
	return out
}

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}
