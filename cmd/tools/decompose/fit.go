package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/soltixdb/decompose/internal/frame"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/models"
	"github.com/soltixdb/decompose/internal/services"
	"github.com/soltixdb/decompose/internal/timeseries"
	"github.com/spf13/cobra"
)

type fitFlags struct {
	data         string
	predict      string
	model        string
	out          string
	timeColumn   string
	targetColumn string
	labels       []string
	mcmc         bool
	draws        int
	seed         int64
	percentiles  []float64
	decompose    bool
	yScaler      string
	likelihood   string
}

// fitCmd fits a model file to a CSV and writes predictions
func fitCmd() *cobra.Command {
	f := &fitFlags{}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a model to a CSV series and write predictions",
		Long: `Loads the series in --data, fits the component tree in --model and
predicts on --predict (the training rows when omitted). With --decompose the
output holds one column per component instead of yhat and percentiles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			if f.out != "" {
				file, err := os.Create(f.out)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer file.Close()
				out = file
			}
			return runFit(ctx, f, cmd.Flags().Changed("seed"), out)
		},
	}

	cmd.Flags().StringVar(&f.data, "data", "", "Training CSV (required)")
	cmd.Flags().StringVar(&f.predict, "predict", "", "CSV of rows to predict on")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model file, YAML or JSON (required)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output CSV (default stdout)")
	cmd.Flags().StringVar(&f.timeColumn, "time-column", frame.TimeColumn, "Timestamp column")
	cmd.Flags().StringVar(&f.targetColumn, "target-column", "value", "Target column")
	cmd.Flags().StringSliceVar(&f.labels, "labels", nil, "Columns read as group labels")
	cmd.Flags().BoolVar(&f.mcmc, "mcmc", false, "Draw posterior samples instead of a point estimate")
	cmd.Flags().IntVar(&f.draws, "draws", 0, "Posterior draws with --mcmc")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Sampler seed")
	cmd.Flags().Float64SliceVar(&f.percentiles, "percentiles", nil, "Percentiles to report, e.g. 5,95")
	cmd.Flags().BoolVar(&f.decompose, "decompose", false, "Write per-component contributions")
	cmd.Flags().StringVar(&f.yScaler, "y-scaler", "", "Target scaler: identity, minmax, max, standardize")
	cmd.Flags().StringVar(&f.likelihood, "likelihood", "", "Observation noise: gaussian, studentt")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func runFit(ctx context.Context, f *fitFlags, seedSet bool, out io.Writer) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	spec, err := loadModelSpec(f.model)
	if err != nil {
		return err
	}
	root, err := timeseries.Build(spec)
	if err != nil {
		return err
	}

	csvOpts := frame.DefaultCSVOptions()
	csvOpts.TimeColumn = f.timeColumn
	csvOpts.TargetColumn = f.targetColumn
	csvOpts.LabelColumns = f.labels

	X, y, err := frame.LoadCSV(f.data, csvOpts)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", f.data, err)
	}
	if y == nil {
		return fmt.Errorf("%s has no %q column", f.data, f.targetColumn)
	}

	opts := models.FitOptions{
		Draws:      f.draws,
		YScaler:    f.yScaler,
		Likelihood: f.likelihood,
	}
	if f.mcmc {
		opts.Method = "sample"
	}
	if seedSet {
		seed := uint64(f.seed)
		opts.Seed = &seed
	}
	// FitConfig only merges options over the inference defaults
	fitCfg, method, err := services.NewDecomposeService(logger, nil, nil, cfg.Inference).FitConfig(opts)
	if err != nil {
		return err
	}

	model := timeseries.NewModel(root)
	model.SetLogger(logger)

	logger.Info("Fitting", "model", root.String(), "rows", X.Len(), "method", method)
	start := time.Now()
	if err := model.Fit(ctx, X, y, fitCfg); err != nil {
		return err
	}
	logger.Info("Fit complete", "duration", time.Since(start).Round(time.Millisecond))
	describeComponents(logger, model)

	target := X
	if f.predict != "" {
		target, _, err = frame.LoadCSV(f.predict, csvOpts)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", f.predict, err)
		}
	}

	if f.decompose {
		dec, err := model.Decompose(target)
		if err != nil {
			return err
		}
		return dec.WriteCSV(out)
	}

	percentiles := f.percentiles
	if percentiles == nil && f.mcmc {
		percentiles = cfg.Inference.Percentiles
	}
	pred, err := model.Predict(target, percentiles...)
	if err != nil {
		return err
	}
	return pred.WriteCSV(out)
}

// describeComponents lists the fitted leaves at debug level
func describeComponents(logger *logging.Logger, m *timeseries.Model) {
	names := make([]string, 0)
	for _, leaf := range m.Leaves() {
		names = append(names, leaf.Name())
	}
	logger.Debug("Components", "leaves", strings.Join(names, ", "))
}
