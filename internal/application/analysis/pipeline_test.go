package analysis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/rcr/internal/application/mapping"
	"github.com/turtacn/rcr/internal/application/scoring"
	"github.com/turtacn/rcr/internal/domain/direction"
	"github.com/turtacn/rcr/internal/domain/hypothesis"
	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/domain/network"
	"github.com/turtacn/rcr/pkg/errors"
)

// testNetwork: p1 increases r1..r4 and decreases r5; p2 increases r1..r3.
// r6 is measured but unreachable.
func testNetwork(t *testing.T) *network.Snapshot {
	t.Helper()
	b := network.NewBuilder("test")
	for _, id := range []string{"p1", "p2"} {
		_, err := b.AddNode(network.Node{ID: id, Function: network.FunctionProteinAbundance})
		require.NoError(t, err)
	}
	for i := 1; i <= 6; i++ {
		_, err := b.AddNode(network.Node{
			ID:          fmt.Sprintf("r%d", i),
			Label:       fmt.Sprintf("r(EG:%d)", i),
			Function:    network.FunctionRNAAbundance,
			Identifiers: []network.Identifier{{Namespace: "EG", Value: fmt.Sprint(i)}},
		})
		require.NoError(t, err)
	}
	link := func(src, dst string, rel network.RelationshipType) {
		_, err := b.AddEdge(src, dst, rel)
		require.NoError(t, err)
	}
	for i := 1; i <= 4; i++ {
		link("p1", fmt.Sprintf("r%d", i), network.Increases)
	}
	link("p1", "r5", network.Decreases)
	for i := 1; i <= 3; i++ {
		link("p2", fmt.Sprintf("r%d", i), network.Increases)
	}
	return b.Build()
}

func eg(v string, fc float64) *measurement.Measurement {
	return measurement.MustNew(measurement.Term{Namespace: "EG", Value: v}, fc, measurement.WithID(v))
}

func testMeasurements() []*measurement.Measurement {
	return []*measurement.Measurement{
		eg("1", 2), eg("1", 1.2), eg("2", 3), eg("3", 1.5), eg("4", 0.1), eg("5", -2),
		eg("6", 4), eg("404", 2),
	}
}

func newPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	mapper, err := mapping.NewService(mapping.NewDefaultCollapsingStrategy(false))
	require.NoError(t, err)
	p, err := NewPipeline(hypothesis.NewFinder(), mapper, scoring.NewScorer(scoring.WithWorkers(2)), opts...)
	require.NoError(t, err)
	return p
}

func cutoffs(t *testing.T) measurement.Cutoffs {
	t.Helper()
	fc := 1.0
	c, err := measurement.NewNumericCutoffs(&fc, nil, nil)
	require.NoError(t, err)
	return c
}

func TestNewPipeline_RequiresStages(t *testing.T) {
	_, err := NewPipeline(nil, nil, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingCollaborator))
}

func TestRun_EndToEnd(t *testing.T) {
	g := testNetwork(t)
	res, err := newPipeline(t).Run(context.Background(), Request{
		Network:      g,
		Measurements: testMeasurements(),
		Cutoffs:      cutoffs(t),
		MaxDepth:     2,
		Detail:       true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Hypotheses, 1, "p2 reaches only three nodes")
	assert.Equal(t, "p1", res.Hypotheses[0].Node.ID)
	assert.Equal(t, 5, res.PopulationSize)
	assert.Len(t, res.Mapping.Mapped, 5)

	require.Len(t, res.Scored(), 1)
	sh := res.Scored()[0]
	assert.Equal(t, 5, sh.Possible)
	assert.Equal(t, direction.Up, sh.Direction)
	assert.Equal(t, 4, sh.Correct(), "r1 r2 r3 up and r5 down")
	assert.Equal(t, 0, sh.Contra())
	assert.Equal(t, 4, *sh.Observed)

	r := res.Report
	require.NotNil(t, r)
	ms := testMeasurements()
	status := func(i int) Status {
		e, ok := r.Entry(ms[i])
		require.True(t, ok, ms[i].String())
		return e.Status
	}
	assert.Equal(t, StatusCollapsed, status(0), "the lower fold-change represents r1")
	assert.Equal(t, StatusStateChange, status(1))
	assert.Equal(t, StatusFailedCutoffs, status(4))
	assert.Equal(t, StatusNotInPopulation, status(6))
	assert.Equal(t, StatusUnmapped, status(7))

	r6, _ := g.Node("r6")
	r1, _ := g.Node("r1")
	assert.False(t, r.InPopulationNode(r6))
	assert.True(t, r.InPopulationNode(r1))
	_, ok := r.StateChangeFor(r1)
	assert.True(t, ok)
}

func TestRun_PopulationOverride(t *testing.T) {
	size := 1000
	res, err := newPipeline(t).Run(context.Background(), Request{
		Network:        testNetwork(t),
		Measurements:   testMeasurements(),
		Cutoffs:        cutoffs(t),
		MaxDepth:       2,
		PopulationSize: &size,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, res.PopulationSize)
	assert.Equal(t, 5, res.Mapping.PopulationSize)
	assert.Nil(t, res.Report)

	neg := -1
	_, err = newPipeline(t).Run(context.Background(), Request{Network: testNetwork(t), PopulationSize: &neg, MaxDepth: 2})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
}

func TestRun_PropagatesStageErrors(t *testing.T) {
	_, err := newPipeline(t).Run(context.Background(), Request{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingCollaborator))

	_, err = newPipeline(t).Run(context.Background(), Request{Network: testNetwork(t), MaxDepth: 0})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
}

type fakeRecorder struct {
	mapping.NopObserver
	stages     []string
	found      int
	scored     int
	changes    int
	unmapped   int
	failedCuts int
}

func (f *fakeRecorder) Unmapped(*measurement.Measurement) { f.unmapped++ }
func (f *fakeRecorder) StateChange(*mapping.MappedMeasurement) {
	f.changes++
}
func (f *fakeRecorder) FailedCutoffs(*mapping.MappedMeasurement) { f.failedCuts++ }
func (f *fakeRecorder) ObserveStage(stage string, _ time.Duration) {
	f.stages = append(f.stages, stage)
}
func (f *fakeRecorder) ObserveHypotheses(found, scored int) { f.found, f.scored = found, scored }

func TestRun_Recorder(t *testing.T) {
	rec := &fakeRecorder{}
	_, err := newPipeline(t, WithRecorder(rec)).Run(context.Background(), Request{
		RunID:        "run-1",
		Network:      testNetwork(t),
		Measurements: testMeasurements(),
		Cutoffs:      cutoffs(t),
		MaxDepth:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{StageFind, StageMap, StageScore}, rec.stages)
	assert.Equal(t, 1, rec.found)
	assert.Equal(t, 1, rec.scored)
	assert.Equal(t, 1, rec.unmapped)
	assert.Equal(t, 4, rec.changes)
	assert.Equal(t, 1, rec.failedCuts)
}
