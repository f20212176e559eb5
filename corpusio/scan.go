package corpusio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// lineScanner reads the grammar/graph text formats (§6.1, §6.2) one
// logical record per line, the way the original loader's cin-based
// reader consumed one row per getline. Every record in both formats
// occupies exactly one line; only a CFGItem's label field may itself
// contain embedded whitespace (a quoted literal), which callers handle
// via lexItemLabels on the raw line text rather than through fields.
type lineScanner struct {
	sc *bufio.Scanner
	n  int
}

func newLineScanner(r io.Reader) *lineScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &lineScanner{sc: sc}
}

func (l *lineScanner) next() (string, error) {
	if !l.sc.Scan() {
		if err := l.sc.Err(); err != nil {
			return "", fmt.Errorf("corpusio: line %d: %w", l.n+1, err)
		}
		return "", io.EOF
	}
	l.n++
	return l.sc.Text(), nil
}

func (l *lineScanner) fields() ([]string, error) {
	line, err := l.next()
	if err != nil {
		return nil, err
	}
	return strings.Fields(line), nil
}

func (l *lineScanner) int() (int, error) {
	line, err := l.next()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("corpusio: line %d: expected integer, got %q: %w", l.n, line, err)
	}
	return n, nil
}

func requireFieldCount(n int, got []string, what string, lineNo int) error {
	if len(got) != n {
		return fmt.Errorf("corpusio: line %d: %s wants %d fields, got %d", lineNo, what, n, len(got))
	}
	return nil
}

func atoiField(s, what string, lineNo int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("corpusio: line %d: %s: expected integer, got %q", lineNo, what, s)
	}
	return n, nil
}
