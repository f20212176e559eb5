package corpusio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// WeightHistory is one grammar rule's log-weight trajectory across EM
// iterations (§6.3): LogWeights[k] is the rule's log-weight after
// iteration k.
type WeightHistory struct {
	ShrgIndex  int
	LogWeights []float64
}

// ReadWeightHistory parses the §6.3 CSV format, one rule per line:
// "<shrg_index>,<log_w_iter0>,<log_w_iter1>,...". Numeric tokens go
// through parseTolerantFloat, so inf/-inf/nan spellings, a Unicode minus
// sign, and stray CR are all accepted the way a long-running training
// log accumulates them.
func ReadWeightHistory(r io.Reader) ([]WeightHistory, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var out []WeightHistory
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		shrgIndex, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("corpusio: weight history line %d: malformed shrg_index %q", lineNo, fields[0])
		}
		weights := make([]float64, 0, len(fields)-1)
		for _, f := range fields[1:] {
			v, err := parseTolerantFloat(f)
			if err != nil {
				return nil, fmt.Errorf("corpusio: weight history line %d: %w", lineNo, err)
			}
			weights = append(weights, v)
		}
		out = append(out, WeightHistory{ShrgIndex: shrgIndex, LogWeights: weights})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("corpusio: reading weight history: %w", err)
	}
	return out, nil
}

// WriteWeightHistory writes hist in the §6.3 CSV format, one line per
// rule in the order given. Called once per EM iteration by the training
// loop with its full accumulated history, so the file on disk is always
// a complete, independently-loadable snapshot rather than a partial
// append.
func WriteWeightHistory(w io.Writer, hist []WeightHistory) error {
	bw := bufio.NewWriter(w)
	for _, h := range hist {
		if _, err := fmt.Fprintf(bw, "%d", h.ShrgIndex); err != nil {
			return err
		}
		for _, v := range h.LogWeights {
			if _, err := fmt.Fprintf(bw, ",%s", formatLogWeight(v)); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatLogWeight(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

// parseTolerantFloat parses one §6.3 numeric token: inf/-inf/nan spelled
// with any case and an optional sign, a Unicode minus sign (U+2212)
// normalised to ASCII '-', and CR/LF stripped before parsing. Results
// that overflow float64 clamp to ±math.MaxFloat64 rather than becoming
// +/-Inf; results that underflow clamp to a signed zero.
func parseTolerantFloat(tok string) (float64, error) {
	s := strings.TrimRight(tok, "\r\n")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "−", "-")
	if s == "" {
		return 0, fmt.Errorf("empty numeric token")
	}

	sign := 1.0
	body := s
	switch body[0] {
	case '+':
		body = body[1:]
	case '-':
		sign = -1
		body = body[1:]
	}
	switch strings.ToLower(body) {
	case "inf", "infinity":
		return sign * math.Inf(1), nil
	case "nan":
		return math.NaN(), nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		ne, ok := err.(*strconv.NumError)
		if ok && ne.Err == strconv.ErrRange {
			if v > 0 {
				return math.MaxFloat64, nil
			}
			if v < 0 {
				return -math.MaxFloat64, nil
			}
			return math.Copysign(0, sign), nil
		}
		return 0, fmt.Errorf("malformed numeric token %q", tok)
	}
	return v, nil
}
