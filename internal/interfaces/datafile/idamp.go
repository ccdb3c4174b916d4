// Package datafile reads measurement data files.
//
// An IdAMP file is CSV with a header row. One column is headed [ID]; every
// other recognised column is headed [<kind>][<comparison>] where kind is M
// (fold change, required per comparison), P (p-value), A (abundance) or AS
// (analyst selection, "1" means selected). Labels and comparison names are
// case-insensitive; other columns are ignored.
package datafile

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

var (
	idPattern     = regexp.MustCompile(`(?i)^\[ID\]$`)
	columnPattern = regexp.MustCompile(`^\[(.+)]\s*\[(.+)\]$`)
)

type column int

const (
	colFoldChange column = iota
	colPValue
	colAbundance
	colAnalystSelection
	numColumns
)

var columnLabels = [numColumns]string{"M", "P", "A", "AS"}

var columnNames = [numColumns]string{"fold change", "p-value", "abundance", "analyst selection"}

func columnForLabel(label string) (column, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	for c, l := range columnLabels {
		if l == label {
			return column(c), true
		}
	}
	return 0, false
}

type comparisonColumns struct {
	name string
	idx  [numColumns]int
	ms   []*measurement.Measurement
}

// Parser reads IdAMP files. Every identifier becomes a term in namespace.
type Parser struct {
	namespace string
	logger    logging.Logger
}

// NewParser returns a parser assigning ids to namespace.
func NewParser(namespace string, log logging.Logger) *Parser {
	return &Parser{namespace: namespace, logger: logging.OrDefault(log)}
}

// ParseFile opens and parses path.
func (p *Parser) ParseFile(path string) ([]*measurement.Comparison, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataFile, "failed to open data file").WithDetail(path)
	}
	defer f.Close()

	comps, err := p.Parse(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to parse data file").WithDetail(path)
	}
	return comps, nil
}

// Parse reads comparisons from r in header order.
func (p *Parser) Parse(r io.Reader) ([]*measurement.Comparison, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if stderrors.Is(err, io.EOF) {
		return nil, errors.New(errors.ErrCodeDataFile, "data file is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataFile, "failed to read header")
	}

	idIdx, comps, err := p.parseHeader(header)
	if err != nil {
		return nil, err
	}

	for {
		row, err := cr.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDataFile, "malformed csv")
		}
		line, _ := cr.FieldPos(0)
		if err := p.parseRow(line, row, idIdx, comps); err != nil {
			return nil, err
		}
	}

	out := make([]*measurement.Comparison, len(comps))
	for i, c := range comps {
		out[i] = measurement.NewComparison(c.name, c.ms)
		p.logger.Debug("comparison read",
			logging.String(logging.FieldComparison, c.name),
			logging.Int("measurements", len(c.ms)))
	}
	return out, nil
}

func (p *Parser) parseHeader(header []string) (int, []*comparisonColumns, error) {
	idIdx := -1
	var comps []*comparisonColumns
	byName := make(map[string]*comparisonColumns)

	for i, cell := range header {
		cell = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
		if idPattern.MatchString(cell) {
			if idIdx != -1 {
				return 0, nil, errors.New(errors.ErrCodeDataFile,
					fmt.Sprintf("duplicate id columns: %d and %d", idIdx+1, i+1))
			}
			idIdx = i
			continue
		}
		m := columnPattern.FindStringSubmatch(cell)
		if m == nil {
			p.logger.Debug("ignoring column", logging.String("column", cell), logging.Int("index", i))
			continue
		}
		col, ok := columnForLabel(m[1])
		if !ok {
			p.logger.Debug("unrecognized column", logging.String("column", cell), logging.Int("index", i))
			continue
		}
		name := m[2]
		key := strings.ToUpper(name)
		cc, ok := byName[key]
		if !ok {
			cc = &comparisonColumns{name: name}
			for k := range cc.idx {
				cc.idx[k] = -1
			}
			byName[key] = cc
			comps = append(comps, cc)
		}
		if prev := cc.idx[col]; prev != -1 {
			return 0, nil, errors.New(errors.ErrCodeDataFile,
				fmt.Sprintf("comparison %s defines duplicate %s columns at columns %d and %d",
					cc.name, columnLabels[col], prev+1, i+1))
		}
		cc.idx[col] = i
	}

	if idIdx == -1 {
		return 0, nil, errors.New(errors.ErrCodeDataFile, "data file has no [ID] column")
	}
	for _, cc := range comps {
		if cc.idx[colFoldChange] == -1 {
			return 0, nil, errors.New(errors.ErrCodeDataFile,
				fmt.Sprintf("comparison %s must define a %s column", cc.name, columnLabels[colFoldChange]))
		}
	}
	return idIdx, comps, nil
}

func (p *Parser) parseRow(line int, row []string, idIdx int, comps []*comparisonColumns) error {
	cell := func(i int) (string, error) {
		if i >= len(row) {
			return "", errors.New(errors.ErrCodeDataFile,
				fmt.Sprintf("line %d: expected at least %d fields, got %d", line, i+1, len(row)))
		}
		return strings.TrimSpace(row[i]), nil
	}

	id, err := cell(idIdx)
	if err != nil {
		return err
	}
	if id == "" {
		return errors.New(errors.ErrCodeDataFile, fmt.Sprintf("line %d: empty id", line))
	}
	term := measurement.Term{Namespace: p.namespace, Value: id}

	for _, cc := range comps {
		raw, err := cell(cc.idx[colFoldChange])
		if err != nil {
			return err
		}
		fc, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return invalidValue(line, colFoldChange, raw)
		}

		opts := []measurement.Option{measurement.WithID(id)}
		for _, col := range []column{colPValue, colAbundance} {
			if cc.idx[col] == -1 {
				continue
			}
			raw, err := cell(cc.idx[col])
			if err != nil {
				return err
			}
			if raw == "" || strings.EqualFold(raw, "NA") {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return invalidValue(line, col, raw)
			}
			if col == colPValue {
				opts = append(opts, measurement.WithPValue(v))
			} else {
				opts = append(opts, measurement.WithAbundance(v))
			}
		}
		if i := cc.idx[colAnalystSelection]; i != -1 {
			raw, err := cell(i)
			if err != nil {
				return err
			}
			opts = append(opts, measurement.WithAnalystSelection(raw == "1"))
		}

		m, err := measurement.New(term, fc, opts...)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDataFile, fmt.Sprintf("line %d", line))
		}
		cc.ms = append(cc.ms, m)
	}
	return nil
}

func invalidValue(line int, col column, raw string) error {
	return errors.New(errors.ErrCodeDataFile, fmt.Sprintf("line %d: invalid %s: %q", line, columnNames[col], raw))
}
