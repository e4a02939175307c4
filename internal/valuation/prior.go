package valuation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"homesquare/internal/domain"
)

// LoadPriorFile reads a bulk sales dataset from disk. See LoadPrior.
func LoadPriorFile(path string) (domain.PriorStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("prior: open %q: %w", path, err)
	}
	defer f.Close()
	return LoadPrior(f)
}

// LoadPrior builds the per-ZIP median $/sqft lookup from a CSV with a header
// row containing price, sqft and zip_code (or zip). Rows missing any of the
// three, with non-numeric values, or with non-positive sqft are dropped.
func LoadPrior(r io.Reader) (domain.PriorStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("prior: read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	priceIdx, okP := cols["price"]
	sqftIdx, okS := cols["sqft"]
	zipIdx, okZ := cols["zip_code"]
	if !okZ {
		zipIdx, okZ = cols["zip"]
	}
	if !okP || !okS || !okZ {
		return nil, fmt.Errorf("prior: header must contain price, sqft and zip_code or zip (got %v)", header)
	}

	ratios := map[string][]float64{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				continue
			}
			return nil, fmt.Errorf("prior: read row: %w", err)
		}
		zip := cell(rec, zipIdx)
		price, okP := numericCell(rec, priceIdx)
		sqft, okS := numericCell(rec, sqftIdx)
		if zip == "" || !okP || !okS || sqft <= 0 {
			continue
		}
		ratios[zip] = append(ratios[zip], price/sqft)
	}

	out := make(domain.PriorStats, len(ratios))
	for zip, rs := range ratios {
		out[zip] = *median(rs)
	}
	return out, nil
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func numericCell(rec []string, i int) (float64, bool) {
	s := cell(rec, i)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) {
		return 0, false
	}
	return f, true
}
