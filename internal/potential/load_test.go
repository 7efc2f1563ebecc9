package potential

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.InfoLevel)
	return log, &buf
}

// format1Source has a column ending nonzero and a column with two trailing zeros.
func format1Source() string {
	var b strings.Builder
	b.WriteString("# r2 v00 v01\n")
	for k := 0; k < 10; k++ {
		r2 := 1.0 + 0.5*float64(k)
		v1 := 0.0
		if k < 8 {
			v1 = float64(8 - k)
		}
		fmt.Fprintf(&b, "%g %g %g\n", r2, 10-float64(k), v1)
	}
	return b.String()
}

func TestLoadFormat1(t *testing.T) {
	log, buf := quietLogger()
	tab, cut2, err := Load(strings.NewReader(format1Source()), "lj.pot", Format1, 2, LoadOptions{ShiftToZero: true, Logger: log})
	require.NoError(t, err)

	assert.Equal(t, 2, tab.Cols)
	assert.Equal(t, 10, tab.Len[0])
	assert.InDelta(t, 1.0, tab.Begin[0], 1e-12)
	assert.InDelta(t, 0.45, tab.Step[0], 1e-12)
	assert.InDelta(t, 5.5, tab.End[0], 1e-12)
	assert.InDelta(t, 4.5+0.45, tab.End[1], 1e-12)
	assert.InDelta(t, 5.5, cut2, 1e-12)

	// column 0 shifted by its last value, column 1 already ends at zero
	assert.InDelta(t, 9.0, tab.Sample(0, 0), 1e-12)
	assert.InDelta(t, 8.0, tab.Sample(1, 0), 1e-12)
	assert.Contains(t, buf.String(), "shifted by 1")
}

func TestLoadShiftToZeroAtCutoff(t *testing.T) {
	var b strings.Builder
	for k := 0; k < 12; k++ {
		x := float64(k)
		fmt.Fprintf(&b, "%g %g %g %g %g %g\n", 0.8+0.25*x, 12-x, 2*(12-x)+0.5, 0.1*x, 1/(1+x), 3.5)
	}
	log, _ := quietLogger()
	tab, _, err := Load(strings.NewReader(b.String()), "five.pot", Format1, 5, LoadOptions{ShiftToZero: true, Logger: log})
	require.NoError(t, err)

	for col := 0; col < tab.Cols; col++ {
		for _, order := range []Order{Quadratic, Cubic} {
			assert.InDelta(t, 0.0, tab.Value(col, tab.End[col], order), 1e-9, "col %d %s", col, order)
		}
	}
}

const format2Source = `0 0.9 0.1
0 2 0.5

1 2 3 4 5
6 7 8 9 10

0.5
0.4
0.3
0.2
0.1
`

func TestLoadFormat2(t *testing.T) {
	log, _ := quietLogger()
	tab, cut2, err := Load(strings.NewReader(format2Source), "rho.tab", Format2, 2, LoadOptions{Logger: log})
	require.NoError(t, err)

	assert.Equal(t, []int{10, 5}, tab.Len)
	assert.Equal(t, 10, tab.MaxSteps)
	assert.InDelta(t, 2.0, cut2, 1e-12)
	assert.Equal(t, 10.0, tab.Sample(0, 9))
	assert.Equal(t, 0.1, tab.Sample(1, 4))

	// padding repeats the last value
	for k := 5; k < tab.MaxSteps+Padding; k++ {
		assert.Equal(t, 0.1, tab.Sample(1, k))
	}
	assert.Equal(t, 0.1, tab.Value(1, 100, Quadratic))
}

func TestLoadFormat2RoundingWarning(t *testing.T) {
	log, buf := quietLogger()
	src := "0 1 0.3\n1\n2\n3\n4\n"
	tab, _, err := Load(strings.NewReader(src), "odd.tab", Format2, 1, LoadOptions{Logger: log})
	require.NoError(t, err)

	assert.Equal(t, 4, tab.Len[0])
	assert.Contains(t, buf.String(), "rounded to 4")
	assert.Contains(t, buf.String(), "level=warning")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		format Format
		cols   int
	}{
		{"bad number", "1.0 2.0\n1.5 abc\n", Format1, 1},
		{"incomplete line", "1.0 2.0 3.0\n1.5 2.0\n", Format1, 2},
		{"too few lines", "1.0 2.0\n", Format1, 1},
		{"bad header", "0 1\n1\n2\n", Format2, 1},
		{"missing header", "0 1 0.5\n", Format2, 2},
		{"short block", "0 1 0.5\n1\n2\n", Format2, 1},
		{"zero step", "0 1 0\n1\n", Format2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(strings.NewReader(tt.src), tt.name, tt.format, tt.cols, LoadOptions{Logger: logrus.New()})
			assert.ErrorIs(t, err, ErrMalformed)
			assert.NotErrorIs(t, err, ErrUnreadable)
		})
	}
}

func TestLoadFileUnreadable(t *testing.T) {
	_, _, err := LoadFile(filepath.Join(t.TempDir(), "missing.pot"), Format1, 1, LoadOptions{})
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.NotErrorIs(t, err, ErrMalformed)
}

func TestLoadFileCompressed(t *testing.T) {
	dir := t.TempDir()
	src := []byte(format1Source())

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write(src)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zst := enc.EncodeAll(src, nil)
	require.NoError(t, enc.Close())

	files := map[string][]byte{
		"plain.pot":    src,
		"pair.pot.gz":  gz.Bytes(),
		"pair.pot.zst": zst,
	}
	for name, data := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, data, 0644))

			tab, cut2, err := LoadFile(path, Format1, 2, LoadOptions{ShiftToZero: true, Logger: logrus.New()})
			require.NoError(t, err)
			assert.InDelta(t, 5.5, cut2, 1e-12)
			assert.InDelta(t, 9.0, tab.Sample(0, 0), 1e-12)
		})
	}
}
