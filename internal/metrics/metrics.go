package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/sabitm/sail/pkg/shell"
)

// Metrics collects per-run installer metrics for the node_exporter textfile
// collector. Each run owns its registry.
type Metrics struct {
	reg           *prometheus.Registry
	stageDuration *prometheus.GaugeVec
	stageOK       *prometheus.GaugeVec
	commands      *prometheus.CounterVec
	commandTime   *prometheus.HistogramVec
	lastRun       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		stageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sail_stage_duration_seconds",
				Help: "Wall time spent in each installer stage.",
			},
			[]string{"stage"},
		),
		stageOK: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sail_stage_success",
				Help: "1 if the stage completed, 0 if it failed.",
			},
			[]string{"stage"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sail_commands_total",
				Help: "External commands run by program and result.",
			},
			[]string{"program", "result"},
		),
		commandTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sail_command_duration_seconds",
				Help:    "Duration of external commands in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"program"},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sail_last_run_timestamp_seconds",
				Help: "Unix time the metrics file was written.",
			},
		),
	}
	m.reg.MustRegister(m.stageDuration, m.stageOK, m.commands, m.commandTime, m.lastRun)
	return m
}

func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage).Set(d.Seconds())
	ok := 1.0
	if err != nil {
		ok = 0
	}
	m.stageOK.WithLabelValues(stage).Set(ok)
}

func (m *Metrics) observeCommand(program string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commands.WithLabelValues(program, result).Inc()
	m.commandTime.WithLabelValues(program).Observe(d.Seconds())
}

func (m *Metrics) Gatherer() prometheus.Gatherer { return m.reg }

// WriteFile writes all metrics in text exposition format. An empty path is a no-op.
func (m *Metrics) WriteFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	m.lastRun.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, m.reg)
}

// ReadStageDurations parses a file written by WriteFile and returns the
// recorded duration of every stage. A missing file yields an empty map.
func ReadStageDurations(path string) (map[string]time.Duration, error) {
	out := map[string]time.Duration{}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var parser expfmt.TextParser
	fams, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return nil, err
	}
	fam, ok := fams["sail_stage_duration_seconds"]
	if !ok {
		return out, nil
	}
	for _, metric := range fam.GetMetric() {
		for _, l := range metric.GetLabel() {
			if l.GetName() == "stage" {
				out[l.GetValue()] = time.Duration(metric.GetGauge().GetValue() * float64(time.Second))
			}
		}
	}
	return out, nil
}

// Instrument wraps r so every command is counted and timed.
func (m *Metrics) Instrument(r shell.Runner) shell.Runner {
	return &instrumented{next: r, m: m}
}

type instrumented struct {
	next shell.Runner
	m    *Metrics
}

func (i *instrumented) Run(ctx context.Context, c shell.Command) (shell.Result, error) {
	start := time.Now()
	res, err := i.next.Run(ctx, c)
	if errors.Is(err, context.Canceled) {
		return res, err
	}
	i.m.observeCommand(c.Name, time.Since(start), err)
	return res, err
}
