package potential

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnreadable indicates a table file that could not be opened or read.
	ErrUnreadable = errors.New("potential: cannot read table")

	// ErrMalformed indicates a numeric line that could not be parsed or is incomplete.
	ErrMalformed = errors.New("potential: malformed table")
)

type Format int

const (
	// Format1 is a dense grid: one line per r² holding every column.
	Format1 Format = 1
	// Format2 has one "begin end step" header per column, then one block of samples per column.
	Format2 Format = 2
)

type LoadOptions struct {
	// ShiftToZero shifts every column so its last sample is exactly zero.
	ShiftToZero bool
	Logger      logrus.FieldLogger
}

func (o LoadOptions) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

// LoadFile reads a table from path. Files ending in .gz or .zst are
// decompressed on the fly.
func LoadFile(path string, format Format, cols int, opts LoadOptions) (*Table, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	var r io.Reader = f
	switch filepath.Ext(path) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
		}
		defer zr.Close()
		r = zr
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
		}
		defer zr.Close()
		r = zr
	}
	return Load(r, filepath.Base(path), format, cols, opts)
}

// Load parses a table and returns it with the largest squared cutoff
// found, so the caller can size the cell grid.
func Load(r io.Reader, name string, format Format, cols int, opts LoadOptions) (*Table, float64, error) {
	if cols <= 0 {
		return nil, 0, fmt.Errorf("%w: %s: %d columns requested", ErrMalformed, name, cols)
	}
	var (
		t   *Table
		err error
	)
	switch format {
	case Format1:
		t, err = loadFormat1(r, name, cols, opts)
	case Format2:
		t, err = loadFormat2(r, name, cols, opts)
	default:
		return nil, 0, fmt.Errorf("unknown table format: %d", format)
	}
	if err != nil {
		return nil, 0, err
	}
	return t, t.MaxCutoff2(), nil
}

type lineReader struct {
	sc   *bufio.Scanner
	name string
	line int
}

func newLineReader(r io.Reader, name string) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &lineReader{sc: sc, name: name}
}

// next returns the fields of the next non-blank, non-comment line.
func (lr *lineReader) next() ([]string, error) {
	for lr.sc.Scan() {
		lr.line++
		text := strings.TrimSpace(lr.sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		return strings.Fields(text), nil
	}
	if err := lr.sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, lr.name, err)
	}
	return nil, io.EOF
}

func (lr *lineReader) parse(field string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s line %d: %q is not a number", ErrMalformed, lr.name, lr.line, field)
	}
	return v, nil
}

func loadFormat1(r io.Reader, name string, cols int, opts LoadOptions) (*Table, error) {
	log := opts.logger()
	lr := newLineReader(r, name)

	var (
		rows     [][]float64
		r2s      []float64
		lastNonZ = make([]float64, cols)
		hasNonZ  = make([]bool, cols)
	)
	for {
		fields, err := lr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(fields) != cols+1 {
			return nil, fmt.Errorf("%w: %s line %d: got %d values, want %d", ErrMalformed, name, lr.line, len(fields), cols+1)
		}
		r2, err := lr.parse(fields[0])
		if err != nil {
			return nil, err
		}
		row := make([]float64, cols)
		for i := range row {
			if row[i], err = lr.parse(fields[i+1]); err != nil {
				return nil, err
			}
			if row[i] != 0 {
				lastNonZ[i] = r2
				hasNonZ[i] = true
			}
		}
		rows = append(rows, row)
		r2s = append(r2s, r2)
	}

	npot := len(rows)
	if npot < 2 {
		return nil, fmt.Errorf("%w: %s: %d lines, need at least 2", ErrMalformed, name, npot)
	}
	start, last := r2s[0], r2s[npot-1]
	step := (last - start) / float64(npot)
	if step <= 0 {
		return nil, fmt.Errorf("%w: %s: r² does not increase (%g to %g)", ErrMalformed, name, start, last)
	}
	log.Infof("read potential %s with %d lines, r2 %g to %g, step %g", name, npot, start, last, step)

	t := newTable(name, cols, npot)
	for col := 0; col < cols; col++ {
		t.Begin[col] = start
		t.Step[col] = step
		t.InvStep[col] = 1 / step
		t.Len[col] = npot
		if hasNonZ[col] {
			t.End[col] = lastNonZ[col]
		}
		for k, row := range rows {
			t.set(k, col, row[col])
		}
		if rows[npot-1][col] == 0 {
			t.End[col] += step
		}
	}
	if opts.ShiftToZero {
		t.shiftToZero(log)
	}
	t.pad()
	return t, nil
}

func loadFormat2(r io.Reader, name string, cols int, opts LoadOptions) (*Table, error) {
	log := opts.logger()
	lr := newLineReader(r, name)

	begin := make([]float64, cols)
	end := make([]float64, cols)
	step := make([]float64, cols)
	lens := make([]int, cols)
	maxSteps := 0
	for col := 0; col < cols; col++ {
		fields, err := lr.next()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: %s: missing header for column %d", ErrMalformed, name, col)
		}
		if err != nil {
			return nil, err
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: %s line %d: header needs begin end step", ErrMalformed, name, lr.line)
		}
		vals := [3]float64{}
		for i := range vals {
			if vals[i], err = lr.parse(fields[i]); err != nil {
				return nil, err
			}
		}
		begin[col], end[col], step[col] = vals[0], vals[1], vals[2]
		if step[col] <= 0 || end[col] < begin[col] {
			return nil, fmt.Errorf("%w: %s line %d: begin %g end %g step %g", ErrMalformed, name, lr.line, begin[col], end[col], step[col])
		}
		numstep := 1 + (end[col]-begin[col])/step[col]
		lens[col] = int(numstep + 0.5)
		if math.Abs(float64(lens[col])-numstep) >= 0.1 {
			log.Warnf("numstep = %f rounded to %d in %s column %d", numstep, lens[col], name, col)
		}
		if lens[col] > maxSteps {
			maxSteps = lens[col]
		}
	}

	t := newTable(name, cols, maxSteps)
	var pending []string
	for col := 0; col < cols; col++ {
		t.Begin[col] = begin[col]
		t.End[col] = end[col]
		t.Step[col] = step[col]
		t.InvStep[col] = 1 / step[col]
		t.Len[col] = lens[col]
		for k := 0; k < lens[col]; k++ {
			for len(pending) == 0 {
				fields, err := lr.next()
				if err == io.EOF {
					return nil, fmt.Errorf("%w: %s: column %d ends after %d of %d values", ErrMalformed, name, col, k, lens[col])
				}
				if err != nil {
					return nil, err
				}
				pending = fields
			}
			v, err := lr.parse(pending[0])
			if err != nil {
				return nil, err
			}
			pending = pending[1:]
			t.set(k, col, v)
		}
	}
	log.Infof("read tabulated function %s with %d columns, max length %d", name, cols, maxSteps)

	if opts.ShiftToZero {
		t.shiftToZero(log)
	}
	t.pad()
	return t, nil
}
