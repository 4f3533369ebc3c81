// Package main provides the CLI entry point for refpix.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ukaji3/refpix-go/pkg/refpix"
	"github.com/ukaji3/refpix-go/pkg/refpix/config"
	"github.com/ukaji3/refpix-go/pkg/refpix/logger"
	"github.com/ukaji3/refpix-go/pkg/refpix/output"
	"github.com/ukaji3/refpix-go/pkg/refpix/store"
	"go.uber.org/zap"
)

var (
	envFile     string
	outputPath  string
	pretty      bool
	failOnError bool

	startRow    int
	photoColumn string
	refColumn   string
	sheet       string
	storeKind   string
	endpoint    string
	basePath    string
	workers     int
	maxRetries  int

	addr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "refpix",
		Short: "Upload the pictures anchored in a spreadsheet, named by REF",
		Long: `refpix reads the pictures anchored in a spreadsheet's photo column,
pairs each with the REF identifier on its row, and uploads them to a
local directory, S3 bucket, FTP or SFTP server as {base path}/{REF}.{ext}.

Settings come from REFPIX_* environment variables or a .env file; flags
override them.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file")

	processCmd := &cobra.Command{
		Use:   "process [input.xlsx]",
		Short: "Extract and upload the pictures of one spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE:  runProcess,
	}
	processCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path for the JSON report (default: stdout)")
	processCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	processCmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "Exit non-zero when any upload fails")
	processCmd.Flags().IntVar(&startRow, "start-row", 4, "First data row (1-based)")
	processCmd.Flags().StringVar(&photoColumn, "photo-column", "H", "Column holding the pictures")
	processCmd.Flags().StringVar(&refColumn, "ref-column", "A", "Column holding REF identifiers")
	processCmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to read (default: active sheet)")
	processCmd.Flags().StringVar(&storeKind, "store", store.KindLocal, "Destination: local, s3, ftp, sftp")
	processCmd.Flags().StringVar(&endpoint, "endpoint", "", "Store endpoint (host:port, URL, or local directory)")
	processCmd.Flags().StringVar(&basePath, "base-path", "images/products", "Destination path prefix")
	processCmd.Flags().IntVar(&workers, "workers", 4, "Concurrent transfers")
	processCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Retries per transient transfer failure")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the process endpoint over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")

	rootCmd.AddCommand(processCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies any flag the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("start-row") {
		cfg.StartRow = startRow
	}
	if flags.Changed("photo-column") {
		cfg.PhotoColumn = photoColumn
	}
	if flags.Changed("ref-column") {
		cfg.RefColumn = refColumn
	}
	if flags.Changed("sheet") {
		cfg.Sheet = sheet
	}
	if flags.Changed("store") {
		cfg.StoreKind = storeKind
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = endpoint
	}
	if flags.Changed("base-path") {
		cfg.BasePath = basePath
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = maxRetries
	}
	if flags.Changed("addr") {
		cfg.Addr = addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newProcessor builds the logger, store and processor described by cfg.
func newProcessor(ctx context.Context, cfg *config.Config) (*refpix.Processor, *zap.Logger, error) {
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, nil, err
	}

	s, err := store.New(ctx, cfg.StoreConfig(), log)
	if err != nil {
		log.Sync()
		return nil, nil, fmt.Errorf("store setup failed: %w", err)
	}

	p := refpix.New(s, refpix.Config{
		Defaults: refpix.Options{
			StartRow:    cfg.StartRow,
			PhotoColumn: cfg.PhotoColumn,
			RefColumn:   cfg.RefColumn,
			Sheet:       cfg.Sheet,
		},
		Upload:     cfg.UploadConfig(),
		RunTimeout: cfg.RunTimeout,
	}, log)
	return p, log, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	// Validate input file exists
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p, log, err := newProcessor(ctx, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	stats, err := p.ProcessWithOptions(ctx, inputPath, p.Defaults())
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	jsonData, err := output.ToJSON(stats, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		fmt.Print(string(jsonData))
	}

	if failOnError && stats.UploadsFailed > 0 {
		return fmt.Errorf("%d of %d uploads failed", stats.UploadsFailed, stats.ImagesFound)
	}
	return nil
}
