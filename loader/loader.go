// Package loader reads programs stored as hex instruction words.
//
// Each non-empty line holds one 32-bit instruction word as its first
// whitespace-separated token, in hexadecimal with an optional 0x prefix.
// The remainder of the line, if any, is kept as the row label used by the
// pipeline trace. Lines whose first token starts with '#' or '//' are
// comments.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/sarchlab/rvsim/translate"
)

var f = translate.From

var (
	// ErrEmptyProgram is returned when a source holds no instruction words.
	ErrEmptyProgram = errors.New(f("empty program"))

	// ErrBadWord is returned for a token that is not a 32-bit hex word.
	ErrBadWord = errors.New(f("invalid instruction word"))
)

// SyntaxError reports a malformed line.
type SyntaxError struct {
	Line int    // 1-based line number
	Text string // offending token
	Err  error
}

func (e *SyntaxError) Error() string {
	return f("line %d: %v %q", e.Line, e.Err, e.Text)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Program is a loaded instruction store.
type Program struct {
	// Words are the instruction words in program order.
	Words []uint32
	// Labels holds one label per word; empty when the line had none.
	Labels []string
}

// Len returns the number of instruction words.
func (p *Program) Len() int {
	return len(p.Words)
}

// Parse reads a program from r.
func Parse(r io.Reader) (*Program, error) {
	prog := &Program{}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		token, label := line, ""
		if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
			token, label = line[:i], line[i:]
		}

		word, err := parseWord(token)
		if err != nil {
			return nil, &SyntaxError{Line: lineNo, Text: token, Err: err}
		}

		prog.Words = append(prog.Words, word)
		prog.Labels = append(prog.Labels, strings.TrimSpace(label))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	if len(prog.Words) == 0 {
		return nil, ErrEmptyProgram
	}

	return prog, nil
}

// Load reads a program from the file at path.
func Load(path string) (*Program, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}
	defer func() { _ = file.Close() }()

	prog, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return prog, nil
}

func parseWord(token string) (uint32, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(token, "0x"), "0X")
	if digits == "" || len(digits) > 8 {
		return 0, ErrBadWord
	}

	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, ErrBadWord
	}

	return uint32(v), nil
}
