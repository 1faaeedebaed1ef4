// Command graft inspects ONNX models and converts them into the in-memory
// reference engine, reporting operator coverage for hybrid execution.
package main

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/graft-ml/graft/engine/mem"
	"github.com/graft-ml/graft/importer"
	"github.com/graft-ml/graft/onnx"
)

const version = "v0.1.0-dev"

// config holds environment-supplied defaults (GRAFT_VERBOSITY, ...).
type config struct {
	Verbosity string `default:"warn"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg config
	if err := envconfig.Process("graft", &cfg); err != nil {
		cfg.Verbosity = "warn"
	}

	root := &cobra.Command{
		Use:           "graft",
		Short:         "Import ONNX computation graphs into an inference runtime",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addVerbosityFlag(root.PersistentFlags(), &cfg.Verbosity)
	root.AddCommand(newInfoCmd(&cfg), newCheckCmd(&cfg), newImportCmd(&cfg))
	return root
}

func addVerbosityFlag(fs *pflag.FlagSet, verbosity *string) {
	fs.StringVarP(verbosity, "verbosity", "v", *verbosity,
		"log level: debug, info, warn or error")
}

func newLogger(verbosity string) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(verbosity)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid verbosity %q", verbosity)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	return cfg.Build()
}

func newInfoCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "info <model.onnx>",
		Short: "Print model metadata without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cfg
			model, err := onnx.ParseFile(args[0])
			if err != nil {
				return err
			}
			info := onnx.Info(model)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "IR version:       %d\n", info.IRVersion)
			fmt.Fprintf(out, "Opset version:    %d\n", info.OpsetVersion)
			fmt.Fprintf(out, "Producer:         %s %s\n", info.ProducerName, info.ProducerVersion)
			fmt.Fprintf(out, "Domain:           %s\n", info.Domain)
			fmt.Fprintf(out, "Model version:    %d\n", info.ModelVersion)
			fmt.Fprintf(out, "Inputs:           %v\n", info.InputNames)
			fmt.Fprintf(out, "Outputs:          %v\n", info.OutputNames)
			fmt.Fprintf(out, "Nodes:            %d\n", info.NodeCount)
			fmt.Fprintf(out, "Initializers:     %d\n", info.InitializerCount)
			return nil
		},
	}
}

func newCheckCmd(cfg *config) *cobra.Command {
	var shapesFile string
	cmd := &cobra.Command{
		Use:   "check <model.onnx>",
		Short: "Report which contiguous graph segments the runtime can execute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imp, model, err := setup(cfg, args[0], shapesFile)
			if err != nil {
				return err
			}
			report, err := imp.Analyze(model)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, seg := range report.Segments {
				fmt.Fprintf(out, "segment %d: %d node(s) %v\n", i, len(seg.Nodes), seg.Nodes)
			}
			if report.Supported {
				fmt.Fprintln(out, "model is fully supported")
				return nil
			}
			fmt.Fprintf(out, "model is not fully supported: %d segment(s) need fallback execution\n", len(report.Segments))
			return nil
		},
	}
	cmd.Flags().StringVar(&shapesFile, "shapes", "", "YAML file with per-input dimension overrides")
	return cmd
}

func newImportCmd(cfg *config) *cobra.Command {
	var shapesFile string
	cmd := &cobra.Command{
		Use:   "import <model.onnx>",
		Short: "Import the model into the in-memory reference engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imp, model, err := setup(cfg, args[0], shapesFile)
			if err != nil {
				return err
			}
			if err := imp.Import(model); err != nil {
				for _, rec := range imp.Errors() {
					fmt.Fprintln(cmd.ErrOrStderr(), rec)
				}
				return errors.Wrap(err, "import failed")
			}
			builder := imp.Builder().(*mem.Builder)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %q: %d input(s), %d layer(s), %d output(s)\n",
				model.Graph.Name, builder.NumInputs(), builder.NumLayers(), builder.NumOutputs())
			return nil
		},
	}
	cmd.Flags().StringVar(&shapesFile, "shapes", "", "YAML file with per-input dimension overrides")
	return cmd
}

// setup loads the model and builds an importer targeting the reference
// engine.
func setup(cfg *config, path, shapesFile string) (*importer.Importer, *onnx.ModelProto, error) {
	log, err := newLogger(cfg.Verbosity)
	if err != nil {
		return nil, nil, err
	}
	model, err := onnx.ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	opts := importer.Options{Logger: log}
	if shapesFile != "" {
		opts.InputDims, err = loadShapes(shapesFile)
		if err != nil {
			return nil, nil, err
		}
	}
	return importer.New(mem.NewBuilder(), opts), model, nil
}

// loadShapes reads per-input dimension overrides:
//
//	inputs:
//	  images: [1, 3, 224, 224]
//
//nolint:gosec // G304: path is supplied by the user.
func loadShapes(path string) (map[string][]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read shapes file")
	}
	var doc struct {
		Inputs map[string][]int64 `yaml:"inputs"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse shapes file")
	}
	return doc.Inputs, nil
}
