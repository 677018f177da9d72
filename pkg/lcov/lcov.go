package lcov

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrMalformedRecord is returned when the tracefile contains a record that
	// cannot be trusted for coverage math, e.g. LH greater than LF.
	ErrMalformedRecord = errors.New("malformed lcov record")
)

const (
	tagSourceFile  = "SF"
	tagLineData    = "DA"
	tagLinesFound  = "LF"
	tagLinesHit    = "LH"
	tagEndOfRecord = "end_of_record"
)

// LineHit is a single DA entry of a tracefile.
type LineHit struct {
	Line int // executable line number
	Hits int // execution count
}

// File represents the line coverage of a single source file.
// It's immutable once returned by Parse.
type File struct {
	// Path is the source file path as written in the SF tag.
	Path string
	// Lines contains all the DA entries in the order they appear.
	Lines []LineHit
	// LinesFound is the number of executable lines.
	LinesFound int
	// LinesHit is the number of executable lines with at least one hit.
	LinesHit int
}

// NewFile builds a File from DA entries, deriving found and hit counts.
func NewFile(path string, lines []LineHit) *File {
	f := &File{Path: path, Lines: lines}
	f.LinesFound, f.LinesHit = countLines(lines)
	return f
}

func countLines(lines []LineHit) (found, hit int) {
	for _, l := range lines {
		found++
		if l.Hits > 0 {
			hit++
		}
	}
	return found, hit
}

// ParseFile parses the lcov tracefile at the given path.
func ParseFile(fileName string) ([]*File, error) {
	pf, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	files, err := Parse(pf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return files, nil
}

// record accumulates one SF..end_of_record block.
type record struct {
	path     string
	lines    []LineHit
	found    int
	hit      int
	hasFound bool
	hasHit   bool
}

// Parse reads lcov tracefile data and returns one File per record, in order.
// Tags other than SF, DA, LF, LH and end_of_record are skipped.
func Parse(rd io.Reader) ([]*File, error) {
	s := bufio.NewScanner(rd)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		files   []*File
		current *record
		lineNo  int
	)

	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}

		if line == tagEndOfRecord {
			if current == nil {
				return nil, fmt.Errorf("%w: line %d: end_of_record without SF", ErrMalformedRecord, lineNo)
			}
			f, err := current.build()
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			files = append(files, f)
			current = nil
			continue
		}

		tag, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		switch tag {
		case tagSourceFile:
			if current != nil {
				return nil, fmt.Errorf("%w: line %d: SF before end_of_record of %s", ErrMalformedRecord, lineNo, current.path)
			}
			current = &record{path: value}
		case tagLineData, tagLinesFound, tagLinesHit:
			if current == nil {
				return nil, fmt.Errorf("%w: line %d: %s outside of a record", ErrMalformedRecord, lineNo, tag)
			}
			if err := current.add(tag, value); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan tracefile: %w", err)
	}

	// tolerate a missing trailing end_of_record
	if current != nil {
		f, err := current.build()
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	return files, nil
}

func (r *record) add(tag, value string) error {
	switch tag {
	case tagLineData:
		// DA:<line number>,<execution count>[,<checksum>]
		parts := strings.Split(value, ",")
		if len(parts) < 2 {
			return fmt.Errorf("%w: DA:%s", ErrMalformedRecord, value)
		}
		ln, err := strconv.Atoi(parts[0])
		if err != nil || ln < 0 {
			return fmt.Errorf("%w: DA line number %q", ErrMalformedRecord, parts[0])
		}
		hits, err := parseHits(parts[1])
		if err != nil {
			return err
		}
		r.lines = append(r.lines, LineHit{Line: ln, Hits: hits})
	case tagLinesFound:
		n, err := parseCount(value)
		if err != nil {
			return err
		}
		r.found, r.hasFound = n, true
	case tagLinesHit:
		n, err := parseCount(value)
		if err != nil {
			return err
		}
		r.hit, r.hasHit = n, true
	}
	return nil
}

// parseHits accepts integer counts and integral floats such as "1.0" or "1e3",
// which some generators emit.
func parseHits(value string) (int, error) {
	if n, err := strconv.ParseInt(value, 10, 0); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: DA execution count %q", ErrMalformedRecord, value)
		}
		return int(n), nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f >= math.MaxInt || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: DA execution count %q", ErrMalformedRecord, value)
	}
	return int(f), nil
}

func parseCount(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: count %q", ErrMalformedRecord, value)
	}
	return n, nil
}

// build validates the record. Declared LF/LH win over the DA derived values,
// which are only used when a summary tag is missing.
func (r *record) build() (*File, error) {
	found, hit := countLines(r.lines)
	if r.hasFound {
		found = r.found
	}
	if r.hasHit {
		hit = r.hit
	}
	if hit > found {
		return nil, fmt.Errorf("%w: %s: lines hit %d exceeds lines found %d", ErrMalformedRecord, r.path, hit, found)
	}

	return &File{
		Path:       r.path,
		Lines:      r.lines,
		LinesFound: found,
		LinesHit:   hit,
	}, nil
}
