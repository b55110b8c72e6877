package pointio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hupe1980/starprobe/model"
)

// ReadCSV reads rows of "x,y,z". A first row that does not parse as numbers
// is treated as a header. Blank lines and lines starting with '#' are skipped.
func ReadCSV(r io.Reader) (model.PointSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	cr.ReuseRecord = true

	var xs, ys, zs []float32
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.PointSet{}, fmt.Errorf("pointio: csv: %w", err)
		}

		var p [3]float32
		if err := parseRow(rec, &p); err != nil {
			if row == 0 {
				continue
			}
			line, _ := cr.FieldPos(0)
			return model.PointSet{}, fmt.Errorf("pointio: csv line %d: %w", line, err)
		}
		xs = append(xs, p[0])
		ys = append(ys, p[1])
		zs = append(zs, p[2])
	}

	return model.NewPointSet(xs, ys, zs)
}

func parseRow(rec []string, p *[3]float32) error {
	for i, field := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
		if err != nil {
			return err
		}
		p[i] = float32(v)
	}
	return nil
}

// WriteCSV writes ps as "x,y,z" rows preceded by a header.
func WriteCSV(w io.Writer, ps model.PointSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", "y", "z"}); err != nil {
		return err
	}

	rec := make([]string, 3)
	for i := range ps.Len() {
		p := ps.At(i)
		for axis := range 3 {
			rec[axis] = strconv.FormatFloat(float64(p.Axis(axis)), 'g', -1, 32)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
