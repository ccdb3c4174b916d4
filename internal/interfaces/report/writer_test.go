package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/rcr/internal/application/analysis"
	"github.com/turtacn/rcr/internal/application/mapping"
	"github.com/turtacn/rcr/internal/application/scoring"
	"github.com/turtacn/rcr/internal/domain/direction"
	"github.com/turtacn/rcr/internal/domain/hypothesis"
	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/domain/network"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

// p1 increases r1..r4 and decreases r5; r6 is unreachable.
func buildNetwork(t *testing.T) *network.Snapshot {
	t.Helper()
	b := network.NewBuilder("test")
	_, err := b.AddNode(network.Node{ID: "p1", Function: network.FunctionProteinAbundance})
	require.NoError(t, err)
	for i := 1; i <= 6; i++ {
		_, err := b.AddNode(network.Node{
			ID:          fmt.Sprintf("r%d", i),
			Label:       fmt.Sprintf("r(EG:%d)", i),
			Function:    network.FunctionRNAAbundance,
			Identifiers: []network.Identifier{{Namespace: "EG", Value: fmt.Sprint(i)}},
		})
		require.NoError(t, err)
	}
	for i := 1; i <= 4; i++ {
		_, err := b.AddEdge("p1", fmt.Sprintf("r%d", i), network.Increases)
		require.NoError(t, err)
	}
	_, err = b.AddEdge("p1", "r5", network.Decreases)
	require.NoError(t, err)
	return b.Build()
}

func eg(v string, fc float64) *measurement.Measurement {
	return measurement.MustNew(measurement.Term{Namespace: "EG", Value: v}, fc, measurement.WithID(v))
}

func measurements() []*measurement.Measurement {
	return []*measurement.Measurement{
		eg("1", 2), eg("1", 1.2), eg("2", 3), eg("3", 1.5), eg("4", 0.1), eg("5", -2),
		eg("6", 4), eg("404", 2),
	}
}

func run(t *testing.T, ms []*measurement.Measurement) *analysis.Result {
	t.Helper()
	mapper, err := mapping.NewService(mapping.NewDefaultCollapsingStrategy(false))
	require.NoError(t, err)
	p, err := analysis.NewPipeline(hypothesis.NewFinder(), mapper, scoring.NewScorer(scoring.WithWorkers(1)))
	require.NoError(t, err)
	fc := 1.0
	cut, err := measurement.NewNumericCutoffs(&fc, nil, nil)
	require.NoError(t, err)
	res, err := p.Run(context.Background(), analysis.Request{
		RunID:        "run-1",
		Network:      buildNetwork(t),
		Measurements: ms,
		Cutoffs:      cut,
		MaxDepth:     2,
		Detail:       true,
	})
	require.NoError(t, err)
	return res
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteResult(t *testing.T) {
	res := run(t, measurements())
	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, res.Scored()))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 2)
	assert.Equal(t, resultHeader, rows[0])

	row := rows[1]
	assert.Equal(t, "p1", row[0])
	assert.Equal(t, "1", row[1])
	assert.Equal(t, "4", row[2])
	richness, err := strconv.ParseFloat(row[3], 64)
	require.NoError(t, err)
	assert.True(t, richness > 0 && richness <= 1)
	concordance, err := strconv.ParseFloat(row[4], 64)
	require.NoError(t, err)
	assert.True(t, concordance > 0 && concordance <= 1)
	assert.Equal(t, []string{"0", "0", "5", "4"}, row[5:])
}

func TestWriteResult_UnscoredWritesNA(t *testing.T) {
	node := &network.Node{ID: "x", Label: "p(EG:1)"}
	sh := &scoring.ScoredHypothesis{
		Hypothesis: hypothesis.New(node, 2),
		Direction:  direction.Unmeasured,
		Possible:   2,
	}
	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, []*scoring.ScoredHypothesis{sh}))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"p(EG:1)", "0", "0", "NA", "NA", "0", "0", "2", "NA"}, rows[1])
}

func TestWriteMapping(t *testing.T) {
	ms := measurements()
	res := run(t, ms)
	var buf bytes.Buffer
	require.NoError(t, WriteMapping(&buf, ms, res.Report))

	rows := readCSV(t, buf.Bytes())
	assert.Equal(t, [][]string{
		mappingHeader,
		{"1", "", "Collapsed to: r(EG:1)"},
		{"1", "r(EG:1)", "State Change"},
		{"2", "r(EG:2)", "State Change"},
		{"3", "r(EG:3)", "State Change"},
		{"4", "r(EG:4)", "Failed cutoffs"},
		{"5", "r(EG:5)", "State Change"},
		{"6", "", "Not present in population: r(EG:6)"},
		{"404", "", "Not mapped to KAM"},
	}, rows)
}

func TestWriteDetail(t *testing.T) {
	res := run(t, measurements())
	var buf bytes.Buffer
	require.NoError(t, WriteDetail(&buf, res.Scored(), res.Report))

	rows := readCSV(t, buf.Bytes())
	require.NotEmpty(t, rows)
	assert.Equal(t, detailHeader, rows[0])
	assert.ElementsMatch(t, [][]string{
		{"p1", "increases", "r(EG:1)", "Correct", "UP"},
		{"p1", "increases", "r(EG:2)", "Correct", "UP"},
		{"p1", "increases", "r(EG:3)", "Correct", "UP"},
		{"p1", "increases", "r(EG:4)", "Not significant", "Not significant"},
		{"p1", "decreases", "r(EG:5)", "Correct", "DOWN"},
	}, rows[1:])
}

func TestStatusAndRelationship(t *testing.T) {
	assert.Equal(t, "Not mapped to KAM", Status(analysis.Entry{Status: analysis.StatusUnmapped}))
	assert.Equal(t, "Collapsed to: r(EG:9)", Status(analysis.Entry{Status: analysis.StatusCollapsed, Target: "r(EG:9)"}))
	assert.Equal(t, "", Status(analysis.Entry{}))

	assert.Equal(t, "increases", Relationship(direction.Up))
	assert.Equal(t, "decreases", Relationship(direction.Down))
	assert.Equal(t, "Ambiguous", Relationship(direction.Ambiguous))
	assert.Equal(t, "Ambiguous", Relationship(direction.Unmeasured))
}

func TestWriter_WriteFiles(t *testing.T) {
	dir := t.TempDir()
	ms := measurements()
	res := run(t, ms)
	paths := PathsFor(dir, "exp")
	assert.Equal(t, filepath.Join(dir, "exp_result.csv"), paths.Result)

	written, err := NewWriter(logging.NewNopLogger()).WriteFiles(paths, res, ms)
	require.NoError(t, err)
	assert.Equal(t, paths.Files(true), written)
	for _, p := range written {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	res.Report = nil
	written, err = NewWriter(nil).WriteFiles(PathsFor(dir, "plain"), res, ms)
	require.NoError(t, err)
	assert.Len(t, written, 1)
}

func TestCheckWritable(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "a.csv")
	require.NoError(t, CheckWritable(ok))
	_, err := os.Stat(ok)
	assert.NoError(t, err)

	err = CheckWritable(filepath.Join(dir, "missing", "b.csv"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
}
