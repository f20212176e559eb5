package corpusio

import (
	"fmt"
	"strings"

	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'shrg.corpusio'.
func tracer() tracing.Trace {
	return tracing.Select("shrg.corpusio")
}

const (
	tokQuoted = iota
	tokBare
)

// itemLabel is one lexed CFGItem label: either a quoted string literal
// (escapes already resolved) or a bare token reused verbatim.
type itemLabel struct {
	text    string
	literal bool
}

var itemLexer *lexmachine.Lexer

func init() {
	itemLexer = lexmachine.NewLexer()
	itemLexer.Add([]byte(`"(\\.|[^"\\])*"`), func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		raw := string(m.Bytes)
		return s.Token(tokQuoted, itemLabel{text: unescapeQuoted(raw[1 : len(raw)-1]), literal: true}, m), nil
	})
	itemLexer.Add([]byte(`[^ \t\r\n"]+`), func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(tokBare, itemLabel{text: string(m.Bytes)}, m), nil
	})
	itemLexer.Add([]byte(`[ \t]+`), func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return nil, nil // whitespace is skipped, same convention as lexmach.Skip
	})
	if err := itemLexer.Compile(); err != nil {
		tracer().Errorf("corpusio: item lexer failed to compile: %v", err)
		panic(fmt.Sprintf("corpusio: item lexer DFA is malformed: %v", err))
	}
}

func unescapeQuoted(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// lexItemLabels tokenizes line (one CFGItem label field, a quoted string
// literal or a bare token) into its component labels, in order.
func lexItemLabels(line string) ([]itemLabel, error) {
	scanner, err := itemLexer.Scanner([]byte(line))
	if err != nil {
		return nil, err
	}
	var out []itemLabel
	for {
		tok, err, eof := scanner.Next()
		if err != nil {
			if ui, is := err.(*machines.UnconsumedInput); is {
				scanner.TC = ui.FailTC
				continue
			}
			return nil, err
		}
		if eof {
			return out, nil
		}
		if tok == nil {
			continue
		}
		token := tok.(*lexmachine.Token)
		out = append(out, token.Value.(itemLabel))
	}
}
