package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rustyeddy/tradeflow/agent"
	"github.com/rustyeddy/tradeflow/agents"
	"github.com/rustyeddy/tradeflow/config"
	"github.com/rustyeddy/tradeflow/feed"
	"github.com/rustyeddy/tradeflow/journal"
	"github.com/rustyeddy/tradeflow/message"
	"github.com/rustyeddy/tradeflow/pipeline"
	"github.com/rustyeddy/tradeflow/portfolio"
	"github.com/rustyeddy/tradeflow/router"
	"github.com/rustyeddy/tradeflow/task"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a demo pipeline from a config file",
	Long: `Run the trading pipeline with the reference agents, pushing the
configured demo signals through risk, execution, and reporting.

The config file sets portfolio limits, routing policy, task timing,
and the demo signals themselves. Without -f the built-in defaults run.

Example:
  tradeflow run -f examples/configs/demo.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if runConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(runConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	jnl, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer jnl.Close()

	store := portfolio.New(portfolio.Config{
		InitialCash: decimal.NewFromFloat(cfg.Portfolio.InitialCash),
		Limits: portfolio.Limits{
			PerInstrument: decimal.NewFromFloat(cfg.Portfolio.PerInstrumentLimit),
			PerSector:     decimal.NewFromFloat(cfg.Portfolio.PerSectorLimit),
			RiskBudget:    decimal.NewFromFloat(cfg.Portfolio.RiskBudget),
		},
		Sectors: cfg.Portfolio.Sectors,
	})

	rt := router.New(router.Config{
		MaxRetries:     cfg.Router.MaxRetries,
		BackoffBase:    cfg.BackoffBaseDuration(),
		RequestTimeout: cfg.RequestTimeoutDuration(),
	}, logger, jnl)
	defer rt.Close()

	tasks := task.NewManager(task.Config{
		TTL:           cfg.TaskTTLDuration(),
		SweepInterval: cfg.SweepIntervalDuration(),
	}, logger)

	coord, err := pipeline.New(pipeline.Config{
		SentimentFreshness: cfg.SentimentFreshnessDuration(),
	}, rt, tasks, store, nil, nil, jnl, logger)
	if err != nil {
		return fmt.Errorf("create coordinator: %w", err)
	}
	defer coord.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tasks.Run(ctx)

	prices := agents.NewPriceBook()
	for instrument, px := range cfg.Demo.Prices {
		prices.Set(instrument, decimal.NewFromFloat(px))
	}

	exec := agents.NewExecutionAgent(pipeline.ExecutionAgentName, prices, 5, logger)
	reporter := agents.NewReportingAgent(pipeline.ReportingAgentName, logger)
	news := agents.NewNewsAgent(pipeline.NewsAgentName, pipeline.Name)
	for _, a := range []agent.Adapter{
		agents.NewRiskAgent(pipeline.RiskAgentName, store, prices, agents.DefaultSizing(), logger),
		exec,
		reporter,
		news,
	} {
		if err := coord.Attach(a); err != nil {
			return fmt.Errorf("attach %s: %w", a.Identity().Name, err)
		}
	}

	events, unsubscribe := coord.Feed().Subscribe(64)
	defer unsubscribe()

	for _, s := range cfg.Demo.Sentiments {
		if err := rt.Send(news.Observe(s.Instrument, s.Score, s.Source)); err != nil {
			return fmt.Errorf("publish sentiment: %w", err)
		}
	}
	if len(cfg.Demo.Sentiments) > 0 {
		// Give the scores a moment to land so they enrich the signals.
		time.Sleep(100 * time.Millisecond)
	}

	pending := make(map[string]bool, len(cfg.Demo.Signals))
	var order []string
	for _, s := range cfg.Demo.Signals {
		correlationID, err := coord.SubmitSignal(message.Signal{
			Instrument:    s.Instrument,
			Side:          message.Side(s.Side),
			SuggestedSize: decimal.NewFromFloat(s.SuggestedSize),
			Confidence:    s.Confidence,
			Rationale:     s.Rationale,
		})
		if err != nil {
			fmt.Printf("✗ %s %s %.0f rejected at intake: %v\n",
				s.Side, s.Instrument, s.SuggestedSize, err)
			continue
		}
		fmt.Printf("→ %s %s %.0f submitted (%s)\n",
			s.Side, s.Instrument, s.SuggestedSize, correlationID)
		pending[correlationID] = true
		order = append(order, correlationID)
	}

	waitForOutcomes(events, pending, cfg.RequestTimeoutDuration())

	fmt.Printf("\nTask Outcomes:\n")
	for _, correlationID := range order {
		t, err := coord.Task(correlationID)
		if err != nil {
			fmt.Printf("  %s: %v\n", correlationID, err)
			continue
		}
		printOutcome(t)
	}

	summary := store.Summary()
	fmt.Printf("\nPortfolio Summary:\n")
	fmt.Printf("  Cash: $%s\n", summary.Cash.StringFixed(2))
	fmt.Printf("  Positions: %d (market value $%s)\n",
		summary.PositionCount, summary.TotalMarketValue.StringFixed(2))
	fmt.Printf("  Mutations: %d\n", summary.Mutations)

	execSummary := exec.Summary()
	fmt.Printf("  Fills: %d/%d orders (notional $%s)\n",
		execSummary.Fills, execSummary.Orders, execSummary.TotalNotional.StringFixed(2))

	if dead := rt.DeadLetters(); len(dead) > 0 {
		fmt.Printf("  Dead letters: %d\n", len(dead))
	}
	if dropped := coord.Feed().Dropped(); dropped > 0 {
		fmt.Printf("  Dropped feed events: %d\n", dropped)
	}
	return nil
}

// waitForOutcomes drains feed events until every submitted task hits a
// terminal state or the deadline passes. The deadline covers both
// pipeline stages plus slack for the task sweeper.
func waitForOutcomes(events <-chan feed.Event, pending map[string]bool, requestTimeout time.Duration) {
	deadline := time.After(2*requestTimeout + 2*time.Second)
	for len(pending) > 0 {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Task != nil && e.Task.State.Terminal() {
				delete(pending, e.Task.CorrelationID)
			}
		case <-deadline:
			return
		}
	}
}

func printOutcome(t task.Task) {
	switch t.State {
	case task.StateReported:
		r := t.ExecutionResult
		fmt.Printf("  ✓ %s %s: %s filled %s @ $%s\n",
			t.Origin.Side, t.Instrument, t.State, r.FilledSize.StringFixed(0), r.AvgPrice.StringFixed(2))
	default:
		reason := t.Reason
		if reason == "" {
			reason = "no reason recorded"
		}
		fmt.Printf("  ✗ %s %s: %s (%s)\n", t.Origin.Side, t.Instrument, t.State, reason)
	}
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		return journal.NewCSV(cfg.Journal.MessagesFile, cfg.Journal.TasksFile)
	default:
		return journal.Nop{}, nil
	}
}
