package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dygy/chartgen/internal/cache"
	"github.com/dygy/chartgen/internal/config"
	"github.com/dygy/chartgen/internal/exec"
	"github.com/dygy/chartgen/internal/pipeline"
	"github.com/dygy/chartgen/internal/progress"
	"github.com/dygy/chartgen/internal/report"
	"github.com/dygy/chartgen/internal/server"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chartgen",
	Short: "Generate carillon practice charts as LilyPond and MIDI",
	Long: `chartgen draws random chords within a pitch range and lays them out
as practice charts for the carillon, splitting the music across staves
so that as few ledger lines as possible are needed.

Charts: chords, arpeggios, and an enfilade that hides a melody
inside a sequence of arpeggios.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var chordsCmd = &cobra.Command{
	Use:   "chords",
	Short: "Generate a chart of random block chords",
	Long: `Generate a chart of random chords and spread them over as many
staves as needed to keep ledger lines down.

Examples:
  chartgen chords > chords.ly
  chartgen chords --seed 7 --count 40 -o chords.ly --midi chords.mid
  chartgen chords --low g, --high c''' --render`,
	RunE: runChart(pipeline.KindChords),
}

var arpeggiosCmd = &cobra.Command{
	Use:   "arpeggios",
	Short: "Generate a chart of random arpeggiated chords",
	Long: `Generate random chords and play each one as a descending run of
sixteenth notes, from the top pitch down.

Example:
  chartgen arpeggios --seed 3 -o arpeggios.ly --render --show`,
	RunE: runChart(pipeline.KindArpeggios),
}

var enfiladeCmd = &cobra.Command{
	Use:   "enfilade",
	Short: "Hide a melody inside random arpeggios",
	Long: `Generate an enfilade: the melody, followed by five passes of
arpeggios drawn so that each pass spells out the melody, one
emphasized note per arpeggio, transposed for the pass.

Examples:
  chartgen enfilade -o enfilade.ly
  chartgen enfilade --melody "c'4 d' e' f' g'2" --pool 200 --render`,
	RunE: runChart(pipeline.KindEnfilade),
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the preview server",
	Long: `Start an HTTP server that generates charts on request.

Endpoints:
  GET  /charts/{kind}?seed=&count=&low=&high=&format=ly|midi|json
  POST /charts/{kind}/render
  GET  /jobs/{id}
  GET  /jobs/{id}/pdf

Example:
  chartgen serve --port 8080`,
	RunE: runServe,
}

var reportCmd = &cobra.Command{
	Use:   "report <kind>",
	Short: "Generate HTML report for cached versions of a chart",
	Long: `Generate a self-contained HTML report listing every cached version
of the chart the given parameters produce.

Examples:
  chartgen report chords --seed 7
  chartgen report enfilade -o enfilade.html`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the chart cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show chart cache size",
	RunE:  runCacheInfo,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached charts",
	RunE:  runCacheClear,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE:  runInit,
}

var (
	// global flags
	configPath string
	verbose    bool

	// chart flags
	seed       uint64
	count      int
	low        string
	high       string
	melody     string
	poolSize   int
	outputPath string
	midiOutput string
	render     bool
	show       bool
	play       bool
	keepFiles  bool
	noCache    bool

	// serve flags
	port int

	// init flags
	force bool
)

func init() {
	rootCmd.AddCommand(chordsCmd)
	rootCmd.AddCommand(arpeggiosCmd)
	rootCmd.AddCommand(enfiladeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(initCmd)

	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./"+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	for _, cmd := range []*cobra.Command{chordsCmd, arpeggiosCmd, enfiladeCmd, reportCmd} {
		cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (default from config)")
		cmd.Flags().StringVar(&low, "low", "", "Lowest pitch, LilyPond notation (default c)")
		cmd.Flags().StringVar(&high, "high", "", "Highest pitch, LilyPond notation (default c'''')")
		cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: stdout)")
	}
	for _, cmd := range []*cobra.Command{chordsCmd, arpeggiosCmd, reportCmd} {
		cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of chords (default 20)")
	}
	for _, cmd := range []*cobra.Command{enfiladeCmd, reportCmd} {
		cmd.Flags().StringVar(&melody, "melody", "", "Melody to hide, LilyPond notation")
		cmd.Flags().IntVar(&poolSize, "pool", 0, "Chords drawn per pass (default 100)")
	}
	for _, cmd := range []*cobra.Command{chordsCmd, arpeggiosCmd, enfiladeCmd} {
		cmd.Flags().StringVar(&midiOutput, "midi", "", "Save MIDI to file")
		cmd.Flags().BoolVar(&render, "render", false, "Typeset a PDF with LilyPond")
		cmd.Flags().BoolVar(&show, "show", false, "Open the PDF in the viewer (implies --render)")
		cmd.Flags().BoolVar(&play, "play", false, "Play the MIDI with the configured player")
		cmd.Flags().BoolVar(&keepFiles, "keep", false, "Keep the render workspace")
		cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the chart cache (force fresh generation)")
	}

	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default 8080)")

	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
}

// loadSettings reads the config and applies the flags the user set
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		settings.Seed = seed
	}
	if flags.Changed("count") {
		settings.Count = count
	}
	if flags.Changed("low") {
		settings.Low = low
	}
	if flags.Changed("high") {
		settings.High = high
	}
	if flags.Changed("melody") {
		settings.Melody = melody
	}
	if flags.Changed("pool") {
		settings.PoolSize = poolSize
	}
	if flags.Changed("keep") {
		settings.KeepFiles = keepFiles
	}
	if flags.Changed("port") {
		settings.Server.Port = port
	}
	if noCache {
		settings.UseCache = false
	}
	return settings, settings.Validate()
}

func runChart(kind pipeline.Kind) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		cfg, err := pipeline.FromSettings(settings, kind)
		if err != nil {
			return err
		}
		cfg.OutputPath = outputPath
		cfg.MIDIOutputPath = midiOutput
		cfg.Render = render
		cfg.Show = show
		cfg.Play = play

		// Setup context with cancellation
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Handle interrupt
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
			cancel()
		}()

		runner := exec.NewRunner(settings.ExecTools())
		orchestrator := pipeline.NewOrchestrator(runner, os.Stderr, verbose)

		res, err := orchestrator.Execute(ctx, cfg)
		if err != nil {
			progress.NewReporter(os.Stderr, verbose).Error(err)
			return err
		}

		if outputPath == "" {
			fmt.Print(res.LilyPond)
		}
		if res.OutputDir != "" {
			fmt.Fprintf(os.Stderr, "Files kept in %s\n", res.OutputDir)
		}
		return nil
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	cfg := server.Config{
		Port:     settings.Server.Port,
		Settings: settings,
		Logger:   slog.Default(),
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	return srv.Run()
}

func runReport(cmd *cobra.Command, args []string) error {
	kind, err := pipeline.ParseKind(args[0])
	if err != nil {
		return err
	}
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	cfg, err := pipeline.FromSettings(settings, kind)
	if err != nil {
		return err
	}

	chartCache, err := cache.New(settings.CacheDir)
	if err != nil {
		return err
	}
	path, err := report.NewGenerator(chartCache).Generate(cfg.CacheKey(), outputPath)
	if err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", path)
	return nil
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	chartCache, err := openCache(cmd)
	if err != nil {
		return err
	}
	size, n, err := chartCache.Size()
	if err != nil {
		return err
	}
	fmt.Printf("%d charts, %.1f KB\n", n, float64(size)/1024)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	chartCache, err := openCache(cmd)
	if err != nil {
		return err
	}
	if err := chartCache.Clear(); err != nil {
		return err
	}
	fmt.Println("Cache cleared")
	return nil
}

func openCache(cmd *cobra.Command) (*cache.ChartCache, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	return cache.New(settings.CacheDir)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultFile
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
