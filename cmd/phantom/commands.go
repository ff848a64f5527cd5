package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vench/phantom"
	"github.com/vench/phantom/internal/config"
	"github.com/vench/phantom/internal/logger"
	"github.com/vench/phantom/internal/server"
	"github.com/vench/phantom/internal/workbook"
)

// dashboard input file of export and measures commands.
type dashboard struct {
	Items []*phantom.VisualItem `json:"items"`
	State *phantom.State        `json:"state"`
}

func readDashboard(path string) (*dashboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dashboard: %w", err)
	}

	d := &dashboard{}
	if err = json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("failed to decode dashboard %s: %w", path, err)
	}

	return d, nil
}

// setup loads configuration and logger shared by commands.
func setup(cmd *cobra.Command) (*config.Configuration, *zap.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	return cfg, log, nil
}

func newExportCommand() *cobra.Command {
	var scenario, input, output, dictionary string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write PBIP project zip of the dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			sc, err := phantom.ParseScenario(scenario)
			if err != nil {
				return err
			}
			d, err := readDashboard(input)
			if err != nil {
				return err
			}

			pkg, err := phantom.NewExporter(phantom.WithLogger(log)).Export(d.Items, sc, d.State)
			if err != nil {
				return err
			}

			if output == "" {
				output = pkg.ProjectName + ".zip"
			}
			if err = os.WriteFile(output, pkg.Blob, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			if dictionary != "" {
				data, err := workbook.Dictionary(d.Items, sc)
				if err != nil {
					return err
				}
				if err = os.WriteFile(dictionary, data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", dictionary, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files, %d measures\n", output, len(pkg.Files), len(pkg.Measures))
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenario, "scenario", "s", "", "scenario name")
	cmd.Flags().StringVarP(&input, "input", "i", "", "dashboard json file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output zip, <Project>.zip by default")
	cmd.Flags().StringVar(&dictionary, "dictionary", "", "also write measure dictionary xlsx")
	_ = cmd.MarkFlagRequired("scenario")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func newMeasuresCommand() *cobra.Command {
	var scenario, input string

	cmd := &cobra.Command{
		Use:   "measures",
		Short: "Print measures required by the dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := phantom.ParseScenario(scenario)
			if err != nil {
				return err
			}
			d, err := readDashboard(input)
			if err != nil {
				return err
			}

			measures, err := phantom.NewExporter().Measures(d.Items, sc)
			if err != nil {
				return err
			}

			return printJSON(cmd, measures)
		},
	}

	cmd.Flags().StringVarP(&scenario, "scenario", "s", "", "scenario name")
	cmd.Flags().StringVarP(&input, "input", "i", "", "dashboard json file")
	_ = cmd.MarkFlagRequired("scenario")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func newRecipeCommand() *cobra.Command {
	var scenario string

	cmd := &cobra.Command{
		Use:   "recipe <type>",
		Short: "Print default bindings of a visual type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := phantom.ParseScenario(scenario)
			if err != nil {
				return err
			}

			recipe, err := phantom.NewExporter().Recipe(phantom.VisualType(args[0]), sc)
			if err != nil {
				return err
			}

			return printJSON(cmd, recipe)
		},
	}

	cmd.Flags().StringVarP(&scenario, "scenario", "s", "", "scenario name")
	_ = cmd.MarkFlagRequired("scenario")

	return cmd
}

func newServeCommand() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			if address != "" {
				cfg.Address = address
			}

			store, closeStore, err := previewStore(cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeStore(); err != nil {
					log.Warn("failed to close preview store", zap.Error(err))
				}
			}()

			exporter := phantom.NewExporter(
				phantom.WithLogger(log),
				phantom.WithPreviewStore(store),
			)
			srv := server.New(exporter,
				server.WithLogger(log),
				server.WithMaxBodyBytes(cfg.MaxBodyBytes),
			)

			return srv.Run(cmd.Context(), cfg.Address, cfg.ReadTimeout, cfg.WriteTimeout)
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "listen address, overrides PHANTOM_ADDRESS")

	return cmd
}

// previewStore returns a per-request snapshot store for sqlite and a shared
// connection for server databases, which must already hold the scenario tables.
func previewStore(cfg *config.Configuration, log *zap.Logger) (phantom.PreviewStore, func() error, error) {
	dialect, err := phantom.ParseDialect(cfg.PreviewDriver)
	if err != nil {
		return nil, nil, err
	}

	opts := []phantom.SQLRepositoryOption{
		phantom.DialectSQLRepositoryOption(dialect),
		phantom.LoggerSQLRepositoryOption(log),
	}

	if dialect == phantom.DialectSQLite {
		return phantom.SnapshotPreviewStore(string(dialect), cfg.PreviewDSN, opts...), func() error { return nil }, nil
	}

	conn, err := sql.Open(string(dialect), cfg.PreviewDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s connection: %w", dialect, err)
	}

	return phantom.SharedPreviewStore(conn, opts...), conn.Close, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
