package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"burstbench/internal/banner"
	"burstbench/internal/cli"
	"burstbench/internal/runner"
	"burstbench/internal/storage"
	"burstbench/internal/tui/app"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "burstbench",
	Short: "BurstBench - fixed-count HTTP load testing",
	Long: `
BurstBench fires a fixed number of GET requests at an endpoint with a
bounded number in flight and reports latency and throughput.

It supports two main modes:
1. TUI Mode (Default): Interactive Terminal UI
2. CLI Mode (Headless): Run with --url for CI/CD usage`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("url") != "" {
			return runHeadless(cmd)
		}
		return runTUI()
	},
}

func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(dummyCmd, requestCmd, submitCmd, historyCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.burstbench.yaml)")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.String("history-db", "", "history database path (default is $HOME/.burstbench/history.db)")
	viper.BindPFlag("log_level", pf.Lookup("log-level"))
	viper.BindPFlag("history_db", pf.Lookup("history-db"))

	f := rootCmd.Flags()
	f.StringP("url", "u", "", "Target URL, may contain {{index}} / {{uuid}} templates (enables CLI mode)")
	f.IntP("requests", "n", 100, "Total number of requests")
	f.IntP("concurrency", "c", 10, "Maximum requests in flight")
	f.StringSliceP("header", "H", []string{}, "HTTP Header (e.g. \"Key: Value\")")
	f.Duration("timeout", runner.DefaultTimeout, "Per-request timeout")
	f.StringP("out", "o", "", "Output filename prefix for csv/json/yaml/png reports")
	f.Bool("save", false, "Save the run to history")

	for _, name := range []string{"url", "requests", "concurrency", "header", "timeout", "out", "save"} {
		viper.BindPFlag(name, f.Lookup(name))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".burstbench")
		}
	}
	viper.SetEnvPrefix("BURSTBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	configErr := viper.ReadInConfig()

	setupLogging(viper.GetString("log_level"))

	if configErr == nil {
		log.Debug("using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		log.Warn("could not read config file", "path", cfgFile, "err", configErr)
	}
}

func setupLogging(level string) {
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.TimeOnly)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warn("unknown log level, using warn", "level", level)
		lvl = log.WarnLevel
	}
	log.SetLevel(lvl)
}

func openStore() (*storage.Store, error) {
	path := viper.GetString("history_db")
	if path == "" {
		var err error
		if path, err = storage.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return storage.NewStore(path)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// --- Runners ---

func runTUI() error {
	store, err := openStore()
	if err != nil {
		log.Warn("history disabled", "err", err)
		store = nil
	} else {
		defer store.Close()
	}

	initial := runner.Config{
		Endpoint:      "http://localhost:8080/fast",
		TotalRequests: viper.GetInt("requests"),
		Concurrency:   viper.GetInt("concurrency"),
	}
	// The form can raise concurrency later, so keep the default pool size
	client := runner.NewHTTPClient(viper.GetDuration("timeout"), 0)
	run := runner.NewRunner(client, make(runner.StatsUpdateChan, 100))

	// Log lines would tear the alt screen
	log.SetLevel(log.FatalLevel)

	m := app.NewModel(run, store, initial)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running BurstBench TUI: %w", err)
	}
	return nil
}

func runHeadless(cmd *cobra.Command) error {
	headers, err := runner.ParseHeaders(viper.GetStringSlice("header"))
	if err != nil {
		return err
	}

	cfg := runner.Config{
		Endpoint:      viper.GetString("url"),
		TotalRequests: viper.GetInt("requests"),
		Concurrency:   viper.GetInt("concurrency"),
		Headers:       headers,
	}

	opts := cli.Options{
		Config:    cfg,
		OutPrefix: viper.GetString("out"),
		Client:    runner.NewHTTPClient(viper.GetDuration("timeout"), cfg.Concurrency),
		Out:       cmd.OutOrStdout(),
	}

	if viper.GetBool("save") {
		store, err := openStore()
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		opts.Store = store
	}

	ctx, stop := signalContext()
	defer stop()

	_, err = cli.Start(ctx, opts)
	return err
}
