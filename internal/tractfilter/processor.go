package tractfilter

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/tractfilter/internal/ants"
	"github.com/askiada/tractfilter/internal/config"
	"github.com/askiada/tractfilter/internal/logging"
	"github.com/askiada/tractfilter/internal/metrics"
	"github.com/askiada/tractfilter/internal/mrtrix"
	"github.com/askiada/tractfilter/internal/pipeline"
	"github.com/askiada/tractfilter/internal/pipeline/drawer"
	"github.com/askiada/tractfilter/internal/pipeline/measure"
	"github.com/askiada/tractfilter/internal/pipeline/model"
	"github.com/askiada/tractfilter/internal/report"
	"github.com/askiada/tractfilter/internal/tck"
	"github.com/askiada/tractfilter/internal/toolrun"
)

var (
	ErrEmptyROI          = errors.New("empty ROI mask")
	errSplitterExhausted = errors.New("splitter has no branch left")
)

// Variants lists the rows produced for every tract, in table order.
var Variants = []string{report.VariantOriginal, report.VariantProcessed, report.VariantInverseProcessed}

func variantIndex(variant string) int {
	for i, v := range Variants {
		if v == variant {
			return i
		}
	}

	return len(Variants)
}

// VariantResult is one tractogram of a job and its fiber count.
type VariantResult struct {
	Job     *Job
	Variant string
	Path    string
	// Endpoints is the tckresample -endpoints output. Empty for the original
	// and when EndpointsErr is set.
	Endpoints    string
	EndpointsErr error
	// Count is nil when the tractogram was not produced or could not be read.
	Count *int
	Stats *tck.Stats
	// Err is set when the tractogram could not be produced or counted.
	Err error
}

// Failed reports whether the result misses its count or its endpoint file.
func (r *VariantResult) Failed() bool {
	return r.Err != nil || r.EndpointsErr != nil
}

// Position is the row of the result in the fiber count table.
func (r *VariantResult) Position() int {
	return r.Job.Index*len(Variants) + variantIndex(r.Variant)
}

// LedgerFunc records a counted result, e.g. in the run ledger.
type LedgerFunc func(ctx context.Context, res *VariantResult) error

// Option configures a Processor.
type Option func(p *Processor)

// WithLogger sets the logger of the processor and of the tools it runs.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithMetrics records stage and fiber metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithLedger records every counted result with fn as it is produced.
func WithLedger(fn LedgerFunc) Option {
	return func(p *Processor) {
		p.ledger = fn
	}
}

// WithDrawer draws the stage graph and its timings once a run succeeds.
func WithDrawer(d drawer.Drawer) Option {
	return func(p *Processor) {
		p.drawer = d
	}
}

// WithPipelineOptions adds pipeline hooks.
func WithPipelineOptions(opts ...model.PipelineOption) Option {
	return func(p *Processor) {
		p.pipeOpts = append(p.pipeOpts, opts...)
	}
}

// Processor runs the filter, resample and count stages of every tract.
type Processor struct {
	cfg      *config.Config
	mrtrix   *mrtrix.Tools
	ants     *ants.Tools
	logger   *slog.Logger
	metrics  *metrics.Metrics
	ledger   LedgerFunc
	drawer   drawer.Drawer
	pipeOpts []model.PipelineOption
}

// NewProcessor creates a Processor invoking the tools with runner.
func NewProcessor(cfg *config.Config, runner toolrun.Runner, opts ...Option) *Processor {
	p := &Processor{
		cfg:    cfg,
		mrtrix: mrtrix.New(runner, cfg.Tools),
		ants:   ants.New(runner, cfg.Tools),
		logger: logging.NewNop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Binaries lists the executables a run needs with the current configuration.
func (p *Processor) Binaries() []string {
	bins := p.mrtrix.Binaries()
	antsBins := p.ants.Binaries()
	needRegistration, needApply := false, false

	for _, tract := range p.cfg.Tracts {
		if tract.Registration == nil {
			continue
		}

		needApply = true

		if tract.Registration.Moving != "" {
			needRegistration = true
		}
	}

	if needRegistration {
		bins = append(bins, antsBins[0])
	}

	if needApply {
		bins = append(bins, antsBins[1])
	}

	return bins
}

// Run plans the configured tracts in dir and processes them.
func (p *Processor) Run(ctx context.Context, dir string) (*Summary, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to resolve %s", dir)
	}

	jobs, err := Plan(absDir, p.cfg)
	if err != nil {
		return nil, err
	}

	summary, err := p.Process(ctx, jobs)
	if summary != nil {
		summary.Dir = absDir
	}

	return summary, err
}

// Process runs the pipeline over jobs. On failure the returned summary holds
// the results counted before the pipeline stopped.
func (p *Processor) Process(ctx context.Context, jobs []*Job) (*Summary, error) {
	summary := &Summary{
		Label:   p.cfg.Pipeline.Label,
		DryRun:  p.cfg.Pipeline.DryRun,
		Started: time.Now(),
		Jobs:    jobs,
	}

	ctx, cancel := context.WithCancel(logging.WithLogger(ctx, p.logger))
	defer cancel()

	msr := measure.NewDefaultMeasure()
	opts := []model.PipelineOption{measure.PipelineMeasure(msr), logging.PipelineLogger(p.logger)}

	if p.metrics != nil {
		opts = append(opts, metrics.PipelineStages(p.metrics))
	}

	if p.drawer != nil {
		opts = append(opts, drawer.PipelineDrawer(p.drawer, msr))
	}

	pipe, err := pipeline.New(ctx, append(opts, p.pipeOpts...)...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create pipeline")
	}

	results := &collector{}

	if err := p.build(pipe, jobs, results); err != nil {
		return nil, errors.Wrap(err, "unable to build pipeline")
	}

	err = pipe.Run()

	summary.Finished = time.Now()
	summary.Results = results.ordered()
	summary.Timings = measure.Timings(msr)

	if err != nil {
		return summary, errors.Wrap(err, "pipeline failed")
	}

	return summary, nil
}

type branch struct {
	name string
	fn   func(ctx context.Context, job *Job) (*VariantResult, error)
}

func (p *Processor) build(pipe *pipeline.Pipeline, jobs []*Job, results *collector) error {
	workers := p.cfg.Pipeline.Jobs

	discovered, err := pipeline.AddRootStep(pipe, "discover", pipeline.SliceRoot(jobs))
	if err != nil {
		return err
	}

	prepared, err := pipeline.AddStepOneToOne(pipe, "prepare-rois", discovered, p.prepareROIs,
		pipeline.StepConcurrency[*Job](workers))
	if err != nil {
		return err
	}

	branches := []branch{
		{name: "include", fn: p.include},
		{name: "inverse", fn: p.inverse},
		{name: "original", fn: p.original},
	}

	variants, err := pipeline.AddSplitter(pipe, "variants", prepared, len(branches),
		pipeline.SplitterBufferSize[*Job](len(jobs)))
	if err != nil {
		return err
	}

	filtered := make([]*model.Step[*VariantResult], 0, len(branches))

	for _, b := range branches {
		input, ok := variants.Get()
		if !ok {
			return errSplitterExhausted
		}

		step, err := pipeline.AddStepOneToOne(pipe, b.name, input, b.fn,
			pipeline.StepConcurrency[*VariantResult](workers))
		if err != nil {
			return err
		}

		filtered = append(filtered, step)
	}

	merged, err := pipeline.AddMerger(pipe, "merge", filtered...)
	if err != nil {
		return err
	}

	resampled, err := pipeline.AddStepOneToOne(pipe, "resample", merged, p.resample,
		pipeline.StepConcurrency[*VariantResult](workers))
	if err != nil {
		return err
	}

	counted, err := pipeline.AddStepOneToOne(pipe, "count", resampled, p.count,
		pipeline.StepConcurrency[*VariantResult](workers))
	if err != nil {
		return err
	}

	if p.ledger == nil {
		return pipeline.AddSink(pipe, "collect", counted, results.add)
	}

	fanOut, err := pipeline.AddSplitter(pipe, "fan-out", counted, 2,
		pipeline.SplitterBufferSize[*VariantResult](len(jobs)*len(Variants)))
	if err != nil {
		return err
	}

	toCollect, ok := fanOut.Get()
	if !ok {
		return errSplitterExhausted
	}

	toLedger, ok := fanOut.Get()
	if !ok {
		return errSplitterExhausted
	}

	if err := pipeline.AddSink(pipe, "collect", toCollect, results.add); err != nil {
		return err
	}

	return pipeline.AddSinkFromChan(pipe, "ledger", toLedger, p.record)
}

// tolerate returns nil when err can be recorded on a result instead of
// stopping the run.
func (p *Processor) tolerate(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || !p.cfg.Pipeline.KeepGoing {
		return err
	}

	return nil
}

type collector struct {
	mu      sync.Mutex
	results []*VariantResult
}

func (c *collector) add(_ context.Context, res *VariantResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = append(c.results, res)

	return nil
}

// ordered returns the results in table order, whatever order the workers
// finished in.
func (c *collector) ordered() []*VariantResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := append([]*VariantResult(nil), c.results...)
	sort.Slice(res, func(i, j int) bool {
		return res[i].Position() < res[j].Position()
	})

	return res
}
