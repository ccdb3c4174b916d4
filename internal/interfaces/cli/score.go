package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/turtacn/rcr/internal/application/analysis"
	"github.com/turtacn/rcr/internal/application/mapping"
	"github.com/turtacn/rcr/internal/application/scoring"
	"github.com/turtacn/rcr/internal/config"
	"github.com/turtacn/rcr/internal/domain/hypothesis"
	"github.com/turtacn/rcr/internal/domain/measurement"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/rcr/internal/interfaces/datafile"
	"github.com/turtacn/rcr/internal/interfaces/report"
	"github.com/turtacn/rcr/pkg/errors"
)

type scoreOptions struct {
	network          string
	dataFile         string
	runName          string
	namespace        string
	comparison       string
	analystSelection bool
	foldChange       float64
	pValue           float64
	abundance        float64
	populationSize   int
	detail           bool
	maxDepth         int
	metricsFile      string
	upload           bool
}

func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score the hypotheses of a network against a data file",
		Long: "Finds upstream hypotheses in the named network, maps the measurements of one\n" +
			"comparison to network nodes and writes <run>_result.csv. With --detail the\n" +
			"mapping and mechanism detail files are written as well.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runScore(cmd.Context(), cc, opts, cmd.Flags(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.network, "network", "k", "", "causal network name [REQUIRED]")
	f.StringVarP(&opts.dataFile, "data", "d", "", "IdAMP data file [REQUIRED]")
	f.StringVarP(&opts.runName, "run", "r", "", "run name, used as the output file prefix [REQUIRED]")
	f.StringVarP(&opts.namespace, "namespace", "n", "", "namespace of the data file ids (default from config)")
	f.StringVar(&opts.comparison, "comparison", "", "comparison to score when the data file holds several")
	f.BoolVar(&opts.analystSelection, "analyst-selection", false, "use the analyst selection column as the only cutoff")
	f.Float64Var(&opts.foldChange, "fold-change", 0, "minimum absolute fold change")
	f.Float64Var(&opts.pValue, "p-value", 0, "maximum p-value")
	f.Float64Var(&opts.abundance, "abundance", 0, "minimum abundance")
	f.IntVar(&opts.populationSize, "population-size", 0, "override the population size derived from mapping")
	f.BoolVar(&opts.detail, "detail", false, "also write the mapping and mechanism detail files")
	f.IntVar(&opts.maxDepth, "max-depth", 0, "maximum hypothesis search depth (default from config)")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this path")
	f.BoolVar(&opts.upload, "upload", false, "upload the output files to object storage")
	_ = cmd.MarkFlagRequired("network")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

// cutoffs builds the cutoffs from the flags that were set. An unset numeric
// flag leaves its axis unconstrained.
func (o *scoreOptions) cutoffs(flags *pflag.FlagSet) (measurement.Cutoffs, error) {
	var numeric []string
	for _, name := range []string{"fold-change", "p-value", "abundance"} {
		if flags.Changed(name) {
			numeric = append(numeric, name)
		}
	}
	if o.analystSelection {
		if len(numeric) > 0 {
			return measurement.Cutoffs{}, errors.InvalidConfig(
				fmt.Sprintf("--analyst-selection cannot be combined with --%s", numeric[0]))
		}
		return measurement.NewAnalystSelectionCutoffs(), nil
	}
	optional := func(name string, v float64) *float64 {
		if flags.Changed(name) {
			return &v
		}
		return nil
	}
	return measurement.NewNumericCutoffs(
		optional("fold-change", o.foldChange),
		optional("p-value", o.pValue),
		optional("abundance", o.abundance))
}

// applyOverrides folds flag values into the analysis configuration.
func (o *scoreOptions) applyOverrides(cfg *config.Config, flags *pflag.FlagSet) error {
	if flags.Changed("namespace") {
		cfg.Analysis.Namespace = o.namespace
	}
	if flags.Changed("max-depth") {
		if o.maxDepth < 1 {
			return errors.InvalidConfig(fmt.Sprintf("--max-depth must be >= 1, got %d", o.maxDepth))
		}
		cfg.Analysis.MaxDepth = o.maxDepth
	}
	if flags.Changed("population-size") && o.populationSize < 0 {
		return errors.InvalidConfig(fmt.Sprintf("--population-size must not be negative, got %d", o.populationSize))
	}
	if o.upload && !cfg.MinIO.Enabled {
		return errors.InvalidConfig("--upload requires minio.enabled")
	}
	return nil
}

func runScore(ctx context.Context, cc *CLIContext, o *scoreOptions, flags *pflag.FlagSet, out io.Writer) error {
	cfg := *cc.Config
	log := cc.Logger
	if err := o.applyOverrides(&cfg, flags); err != nil {
		return err
	}
	cutoffs, err := o.cutoffs(flags)
	if err != nil {
		return err
	}

	paths := report.PathsFor(cfg.Analysis.OutputDir, o.runName)
	writable := paths.Files(o.detail)
	if o.metricsFile != "" {
		writable = append(writable, o.metricsFile)
	}
	if err := report.CheckWritable(writable...); err != nil {
		return err
	}

	comparisons, err := datafile.NewParser(cfg.Analysis.Namespace, log).ParseFile(o.dataFile)
	if err != nil {
		return err
	}
	comparison, err := measurement.SelectComparison(comparisons, o.comparison)
	if err != nil {
		return err
	}
	log.Info("comparison selected",
		logging.String(logging.FieldComparison, comparison.Name()),
		logging.Int("measurements", comparison.Len()))

	deps, err := openStack(ctx, &cfg, o.upload, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	snapshot, err := deps.Loader.Load(ctx, o.network)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	pipeline, collector, err := buildPipeline(&cfg, deps, o, runID, log)
	if err != nil {
		return err
	}

	req := analysis.Request{
		RunID:        runID,
		Network:      snapshot,
		Measurements: comparison.Measurements(),
		Cutoffs:      cutoffs,
		MaxDepth:     cfg.Analysis.MaxDepth,
		Detail:       o.detail,
	}
	if flags.Changed("population-size") {
		size := o.populationSize
		req.PopulationSize = &size
	}
	res, err := pipeline.Run(ctx, req)
	if err != nil {
		return err
	}

	written, err := report.NewWriter(log).WriteFiles(paths, res, comparison.Measurements())
	if err != nil {
		return err
	}
	if collector != nil {
		if err := collector.WriteTextfile(o.metricsFile); err != nil {
			return err
		}
		written = append(written, o.metricsFile)
	}

	if abs, err := filepath.Abs(paths.Result); err == nil {
		fmt.Fprintf(out, "Complete: scores have been saved to %s\n", abs)
	}
	if deps.Uploader != nil {
		uploaded, err := deps.Uploader.Upload(ctx, res.RunID, written)
		if err != nil {
			return err
		}
		for _, u := range uploaded {
			fmt.Fprintf(out, "Uploaded %s/%s\n", u.Bucket, u.ObjectKey)
		}
	}
	return nil
}

// buildPipeline wires the analysis stages from cfg. The returned collector
// is nil unless a metrics file was requested.
func buildPipeline(cfg *config.Config, deps *stack, o *scoreOptions, runID string, log logging.Logger) (*analysis.Pipeline, prometheus.MetricsCollector, error) {
	stage := mapping.LowestFoldChange
	if cfg.Analysis.LowestStage == config.LowestStagePValue {
		stage = mapping.LowestPValue
	}
	strategy := mapping.NewDefaultCollapsingStrategy(cfg.Analysis.RespectAnalystSelection,
		mapping.WithLowestStage(stage), mapping.WithCollapseLogger(log))

	mapOpts := []mapping.ServiceOption{mapping.WithLogger(log)}
	if deps.Resolver != nil {
		mapOpts = append(mapOpts, mapping.WithResolver(deps.Resolver))
	}
	mapper, err := mapping.NewService(strategy, mapOpts...)
	if err != nil {
		return nil, nil, err
	}

	scorer := scoring.NewScorer(scoring.WithLogger(log), scoring.WithWorkers(cfg.Analysis.ScoreWorkers))
	opts := []analysis.Option{analysis.WithLogger(log)}

	var collector prometheus.MetricsCollector
	if o.metricsFile != "" {
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:   "rcr",
			ConstLabels: map[string]string{"run": o.runName, "run_id": runID},
		}, log)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create metrics collector")
		}
		opts = append(opts, analysis.WithRecorder(prometheus.NewRunMetrics(collector)))
	}

	p, err := analysis.NewPipeline(hypothesis.NewFinder(hypothesis.WithLogger(log)), mapper, scorer, opts...)
	if err != nil {
		return nil, nil, err
	}
	return p, collector, nil
}
