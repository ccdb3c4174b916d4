// Package report writes the CSV outputs of a run.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/turtacn/rcr/internal/application/analysis"
	"github.com/turtacn/rcr/internal/application/scoring"
	"github.com/turtacn/rcr/internal/domain/direction"
	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

// File name suffixes appended to the run name.
const (
	ResultSuffix  = "_result.csv"
	MappingSuffix = "_mapping.csv"
	DetailSuffix  = "_detail.csv"
)

const (
	notAvailable   = "NA"
	notSignificant = "Not significant"
	ambiguous      = "Ambiguous"
)

var (
	resultHeader  = []string{"Id", "Direction", "Correct", "Richness", "Concordance", "Ambiguous", "Contra", "Possible", "Observed"}
	mappingHeader = []string{"Id", "KAM_NODE", "STATUS"}
	detailHeader  = []string{"Source", "Relationship", "Target", "Type", "Direction"}
)

// Paths names the output files of one run.
type Paths struct {
	Result  string
	Mapping string
	Detail  string
}

// PathsFor returns the output paths for run under dir.
func PathsFor(dir, run string) Paths {
	base := filepath.Join(dir, run)
	return Paths{
		Result:  base + ResultSuffix,
		Mapping: base + MappingSuffix,
		Detail:  base + DetailSuffix,
	}
}

// Files lists the paths to be written. Mapping and Detail are included only
// when detail is set.
func (p Paths) Files(detail bool) []string {
	if detail {
		return []string{p.Result, p.Mapping, p.Detail}
	}
	return []string{p.Result}
}

// CheckWritable creates or touches every path so that permission problems
// surface before a run starts.
func CheckWritable(paths ...string) error {
	for _, p := range paths {
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInvalidConfig, "could not open file for writing").WithDetail(p)
		}
		if err := f.Close(); err != nil {
			return errors.Wrap(err, errors.ErrCodeInvalidConfig, "could not open file for writing").WithDetail(p)
		}
	}
	return nil
}

// Writer renders run results.
type Writer struct {
	logger logging.Logger
}

// NewWriter returns a Writer.
func NewWriter(log logging.Logger) *Writer {
	return &Writer{logger: logging.OrDefault(log)}
}

// WriteFiles writes the result file and, when the run carries a Report, the
// mapping and detail files. It returns the paths written.
func (w *Writer) WriteFiles(paths Paths, res *analysis.Result, measurements []*measurement.Measurement) ([]string, error) {
	if err := writeFile(paths.Result, func(out io.Writer) error { return WriteResult(out, res.Scored()) }); err != nil {
		return nil, err
	}
	w.logger.Info("scores saved", logging.String("path", paths.Result), logging.Int("hypotheses", len(res.Scored())))
	written := []string{paths.Result}
	if res.Report == nil {
		return written, nil
	}

	if err := writeFile(paths.Mapping, func(out io.Writer) error {
		return WriteMapping(out, measurements, res.Report)
	}); err != nil {
		return written, err
	}
	w.logger.Info("mapping output saved", logging.String("path", paths.Mapping))
	written = append(written, paths.Mapping)

	if err := writeFile(paths.Detail, func(out io.Writer) error {
		return WriteDetail(out, res.Scored(), res.Report)
	}); err != nil {
		return written, err
	}
	w.logger.Info("mechanism detail saved", logging.String("path", paths.Detail))
	return append(written, paths.Detail), nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create output file").WithDetail(path)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to write output file").WithDetail(path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to close output file").WithDetail(path)
	}
	return nil
}

// WriteResult writes one row per scored hypothesis in input order.
func WriteResult(out io.Writer, scores []*scoring.ScoredHypothesis) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(resultHeader); err != nil {
		return err
	}
	for _, s := range scores {
		row := []string{
			s.Label(),
			strconv.Itoa(s.Direction.Code()),
			strconv.Itoa(s.Correct()),
			formatFloat(s.Richness),
			formatFloat(s.Concordance),
			strconv.Itoa(s.Ambiguous()),
			strconv.Itoa(s.Contra()),
			strconv.Itoa(s.Possible),
			formatInt(s.Observed),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMapping writes one row per input measurement with the outcome
// recorded in rep. KAM_NODE is set only for measurements that represent
// their node.
func WriteMapping(out io.Writer, measurements []*measurement.Measurement, rep *analysis.Report) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(mappingHeader); err != nil {
		return err
	}
	for _, m := range measurements {
		node, status := "", ""
		if e, ok := rep.Entry(m); ok {
			status = Status(e)
			if e.Selected() && e.Node != nil {
				node = e.Node.Label
			}
		}
		if err := cw.Write([]string{measurementID(m), node, status}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDetail writes one row per hypothesis downstream that is part of the
// population.
func WriteDetail(out io.Writer, scores []*scoring.ScoredHypothesis, rep *analysis.Report) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(detailHeader); err != nil {
		return err
	}
	for _, s := range scores {
		for _, d := range s.Hypothesis.Downstreams {
			if !rep.InPopulationNode(d.Node) {
				continue
			}
			measured := notSignificant
			if mm, ok := rep.StateChangeFor(d.Node); ok {
				measured = mm.Measurement.Direction().Label()
			}
			row := []string{
				s.Label(),
				Relationship(d.Direction),
				d.Node.Label,
				s.Prediction.Classify(d).String(),
				measured,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Status renders a mapping outcome.
func Status(e analysis.Entry) string {
	switch e.Status {
	case analysis.StatusUnmapped:
		return "Not mapped to KAM"
	case analysis.StatusNotInPopulation:
		return fmt.Sprintf("Not present in population: %s", e.Target)
	case analysis.StatusCollapsed:
		return fmt.Sprintf("Collapsed to: %s", e.Target)
	case analysis.StatusStateChange:
		return "State Change"
	case analysis.StatusFailedCutoffs:
		return "Failed cutoffs"
	default:
		return ""
	}
}

// Relationship renders a predicted downstream direction.
func Relationship(d direction.Type) string {
	switch d {
	case direction.Up:
		return "increases"
	case direction.Down:
		return "decreases"
	default:
		return ambiguous
	}
}

func measurementID(m *measurement.Measurement) string {
	if id := m.ID(); id != "" {
		return id
	}
	return m.Term().Value
}

func formatFloat(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return notAvailable
	}
	return strconv.Itoa(*v)
}
