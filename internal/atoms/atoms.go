package atoms

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/san-kum/mdforce/internal/cell"
)

var ErrMalformed = errors.New("atoms: malformed atom file")

// Read parses an atom file. Each non-comment line holds
//
//	number type mass x y [z] [vx vy [vz]]
//
// with dim position components. Missing velocities give zero momentum.
func Read(r io.Reader, name string, dim int) ([]cell.Particle, error) {
	var ps []cell.Particle
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		p, err := parseLine(strings.Fields(text), dim)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrMalformed, name, line, err)
		}
		ps = append(ps, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("atoms: reading %s: %w", name, err)
	}
	return ps, nil
}

func parseLine(f []string, dim int) (cell.Particle, error) {
	var p cell.Particle
	if len(f) < 3+dim {
		return p, fmt.Errorf("%d fields, need at least %d", len(f), 3+dim)
	}
	id, err := strconv.ParseInt(f[0], 10, 64)
	if err != nil {
		return p, err
	}
	typ, err := strconv.Atoi(f[1])
	if err != nil {
		return p, err
	}
	if typ < 0 {
		return p, fmt.Errorf("negative type %d", typ)
	}
	mass, err := strconv.ParseFloat(f[2], 64)
	if err != nil {
		return p, err
	}
	if mass <= 0 {
		return p, fmt.Errorf("mass %g of atom %d is not positive", mass, id)
	}
	p.ID, p.Type, p.Mass = id, typ, mass

	vals := f[3:]
	for d := 0; d < dim; d++ {
		if p.Pos[d], err = strconv.ParseFloat(vals[d], 64); err != nil {
			return p, err
		}
	}
	if len(vals) >= 2*dim {
		for d := 0; d < dim; d++ {
			v, err := strconv.ParseFloat(vals[dim+d], 64)
			if err != nil {
				return p, err
			}
			p.Mom[d] = v * mass
		}
	}
	return p, nil
}

// ReadFile reads an atom file, gunzipping names ending in .gz.
func ReadFile(path string, dim int) ([]cell.Particle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("atoms: %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	return Read(r, path, dim)
}

// Write stores particles in the format Read accepts, velocities included.
func Write(w io.Writer, ps []cell.Particle, dim int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# number type mass position[%d] velocity[%d]\n", dim, dim)
	for _, p := range ps {
		fmt.Fprintf(bw, "%d %d %.10g", p.ID, p.Type, p.Mass)
		for d := 0; d < dim; d++ {
			fmt.Fprintf(bw, " %.10g", p.Pos[d])
		}
		for d := 0; d < dim; d++ {
			fmt.Fprintf(bw, " %.10g", p.Mom[d]/p.Mass)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteFile writes an atom file, gzipped when the name ends in .gz.
func WriteFile(path string, ps []cell.Particle, dim int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".gz") {
		return Write(f, ps, dim)
	}
	zw := gzip.NewWriter(f)
	if err := Write(zw, ps, dim); err != nil {
		return err
	}
	return zw.Close()
}
