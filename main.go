package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/vpqxl1/selfbot/kv"
	"github.com/vpqxl1/selfbot/metrics"
	"github.com/vpqxl1/selfbot/rule"
)

var app = cli.Command{
	Name:  "selfbot",
	Usage: "Personal chat assistant bot",

	Flags: []cli.Flag{
		&flagConfig,
		&flagLog,
		&flagLogFormat,
	},
	Commands: []*cli.Command{
		{
			Name:  "rules",
			Usage: "Inspect or clear stored rules without connecting",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "set",
					Usage: "Rule set, one of react, reply, ai",
					Value: "react",
				},
			},
			Commands: []*cli.Command{
				{
					Name:   "list",
					Usage:  "List rules in the set",
					Action: cliRulesList,
				},
				{
					Name:   "clear",
					Usage:  "Delete every rule in the set",
					Action: cliRulesClear,
				},
			},
		},
	},
	Action: cliRun,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		stop()
	}()
	err := app.Run(ctx, os.Args)
	if err != nil {
		fmt.Println(err)
	}
}

func cliRun(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	r, err := os.Open(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("couldn't open config file: %w", err)
	}
	cfg, md, err := Load(ctx, r)
	if err != nil {
		return fmt.Errorf("couldn't load config: %w", err)
	}
	r.Close()

	robo := New(newMetrics(), runtime.GOMAXPROCS(0))
	robo.prefix = cfg.Prefix
	robo.SetOwner(cfg.Owner.Name, cfg.Owner.Contact)
	if err := robo.SetSecrets(cfg.SecretFile); err != nil {
		return err
	}
	rules, act, priv, err := loadDBs(ctx, cfg.DB)
	if err != nil {
		return err
	}
	if err := robo.SetStores(ctx, rules, act, priv); err != nil {
		return err
	}
	if err := robo.SetChannels(ctx, cfg); err != nil {
		return err
	}
	if !md.IsDefined("ai") {
		cfg.AI.Enabled = false
	}
	if err := robo.InitAI(ctx, cfg.AI); err != nil {
		return err
	}
	if err := robo.InitGateway(ctx, cfg.Gateway); err != nil {
		return err
	}

	return robo.Run(ctx, cfg.HTTP.Listen)
}

// openRules opens one rule store from the config without the rest of the
// bot, for offline subcommands.
func openRules(ctx context.Context, cmd *cli.Command) (*rule.Store, func(), error) {
	r, err := os.Open(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't open config file: %w", err)
	}
	cfg, _, err := Load(ctx, r)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't load config: %w", err)
	}
	r.Close()
	set := cmd.String("set")
	switch set {
	case "react", "reply", "ai": // do nothing
	default:
		return nil, nil, fmt.Errorf("no rule set named %q", set)
	}
	if cfg.DB.Rules == "" {
		return nil, nil, errors.New("no rules db configured")
	}
	db, _, _, err := loadDBs(ctx, DBCfg{Rules: cfg.DB.Rules, Activity: ":memory:", Privacy: ":memory:"})
	if err != nil {
		return nil, nil, err
	}
	s, err := rule.Open(ctx, kv.InBadger(db), "rules/"+set)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, func() { db.Close() }, nil
}

func cliRulesList(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	s, done, err := openRules(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()
	for _, r := range s.Rules() {
		fmt.Printf("%s\t%s\t%s\t%s\n", r.ID, r.Category, r.Target, r.Action)
	}
	return nil
}

func cliRulesClear(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	s, done, err := openRules(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()
	n, err := s.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Println("deleted", n, "rules")
	return nil
}

var (
	flagConfig = cli.StringFlag{
		Name:       "config",
		Required:   true,
		Usage:      "TOML config file",
		Persistent: true,
		Action: func(ctx context.Context, cmd *cli.Command, s string) error {
			i, err := os.Stat(s)
			if err != nil {
				return err
			}
			if !i.Mode().IsRegular() {
				return errors.New("config must be a regular file")
			}
			return nil
		},
	}

	flagLog = cli.StringFlag{
		Name:       "log",
		Usage:      "Logging level, one of debug, info, warn, error",
		Value:      "info",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			var l slog.Level
			return l.UnmarshalText([]byte(s))
		},
	}

	flagLogFormat = cli.StringFlag{
		Name:       "log-format",
		Usage:      "Logging format, either text or json",
		Value:      "text",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			switch strings.ToLower(s) {
			case "text", "json":
				return nil
			default:
				return errors.New("unknown logging format")
			}
		},
	}
)

func loggerFromFlags(cmd *cli.Command) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(cmd.String("log"))); err != nil {
		panic(err)
	}
	var h slog.Handler
	switch strings.ToLower(cmd.String("log-format")) {
	case "text":
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	case "json":
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	}
	return slog.New(h)
}

// metrics configuration
func newMetrics() *metrics.Metrics {
	return &metrics.Metrics{
		EventsCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "selfbot",
					Subsystem: "gateway",
					Name:      "events",
					Help:      "Number of chat events received from the gateway.",
				},
			),
		),
		SentCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "selfbot",
					Subsystem: "gateway",
					Name:      "sent",
					Help:      "Number of messages sent.",
				},
			),
		),
		CommandCount: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "selfbot",
					Subsystem: "commands",
					Name:      "invocations",
					Help:      "Number of command invocations dispatched.",
				},
				[]string{"command"},
			),
		),
		RuleMatchCount: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "selfbot",
					Subsystem: "rules",
					Name:      "matches",
					Help:      "Number of messages matched by automatic rules.",
				},
				[]string{"set"},
			),
		),
		ReactCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "selfbot",
					Subsystem: "rules",
					Name:      "reactions",
					Help:      "Number of reactions added by autoreact rules.",
				},
			),
		),
		AIReplyCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "selfbot",
					Subsystem: "ai",
					Name:      "replies",
					Help:      "Number of AI auto-responses sent.",
				},
			),
		),
		TimerFiredCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "selfbot",
					Subsystem: "timers",
					Name:      "fired",
					Help:      "Number of timer callbacks that ran.",
				},
			),
		),
		CommandLatency: metrics.NewPromObserverVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
					Namespace: "selfbot",
					Subsystem: "commands",
					Name:      "latency",
					Help:      "How long command handlers run in seconds.",
				},
				[]string{"command"},
			),
		),
	}
}
