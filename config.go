package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"gitlab.com/zephyrtronium/pick"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
	"golang.org/x/time/rate"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/vpqxl1/selfbot/activity"
	"github.com/vpqxl1/selfbot/ai"
	"github.com/vpqxl1/selfbot/channel"
	"github.com/vpqxl1/selfbot/gateway"
	"github.com/vpqxl1/selfbot/kv"
	"github.com/vpqxl1/selfbot/message"
	"github.com/vpqxl1/selfbot/privacy"
	"github.com/vpqxl1/selfbot/rule"
)

// Load loads the bot configuration from TOML.
func Load(ctx context.Context, r io.Reader) (*Config, *toml.MetaData, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't decode config: %w", err)
	}
	expandcfg(&cfg, os.Getenv)
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	return &cfg, &md, nil
}

// SetOwner sets owner metadata used in self-description replies.
func (robo *Selfbot) SetOwner(ownerName, ownerContact string) {
	robo.owner = ownerName
	robo.ownerContact = ownerContact
}

// SetSecrets loads the bot's fixed secret and initializes derived secrets.
func (robo *Selfbot) SetSecrets(file string) error {
	k, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("couldn't read secret key: %w", err)
	}
	robo.secrets = &keys{
		userhash: domainkey(make([]byte, 64), k, []byte("userhash")),
	}
	return nil
}

// SetStores opens the rule stores and analytics wrappers around the
// respective databases. Use [loadDBs] to open the databases themselves.
func (robo *Selfbot) SetStores(ctx context.Context, rules *badger.DB, act, priv *sqlitex.Pool) error {
	db := kv.Store(kv.InBadger(rules))
	if rules == nil {
		// No rules database configured; rules last for the process only.
		slog.WarnContext(ctx, "no rules db; rules will not survive restarts")
		db = kv.InMemory()
	}
	var err error
	if robo.reacts, err = rule.Open(ctx, db, "rules/react"); err != nil {
		return fmt.Errorf("couldn't open autoreact rules: %w", err)
	}
	if robo.replies, err = rule.Open(ctx, db, "rules/reply"); err != nil {
		return fmt.Errorf("couldn't open autoreply rules: %w", err)
	}
	if robo.airules, err = rule.Open(ctx, db, "rules/ai"); err != nil {
		return fmt.Errorf("couldn't open AI rules: %w", err)
	}
	if err := activity.Init(ctx, act); err != nil {
		return err
	}
	if robo.activity, err = activity.Open(ctx, act); err != nil {
		return fmt.Errorf("couldn't open activity recorder: %w", err)
	}
	if err := privacy.Init(ctx, priv); err != nil {
		return err
	}
	if robo.privacy, err = privacy.Open(ctx, priv); err != nil {
		return fmt.Errorf("couldn't open opt-out list: %w", err)
	}
	return nil
}

// SetChannels initializes channel configuration and defaults for channels
// the config doesn't mention.
func (robo *Selfbot) SetChannels(ctx context.Context, cfg *Config) error {
	gblk, err := compileBlock(cfg.Global.Block, "")
	if err != nil {
		return fmt.Errorf("bad global block expression: %w", err)
	}
	robo.defaults = channelDefaults{
		block:  gblk,
		rate:   cfg.Global.Rate,
		emotes: pick.New(pick.FromMap(cfg.Global.Emotes)),
	}
	for nm, c := range cfg.Channels {
		blk, err := compileBlock(cfg.Global.Block, c.Block)
		if err != nil {
			return fmt.Errorf("bad block expression for channels.%s: %w", nm, err)
		}
		var ign, mod map[string]bool
		for _, p := range c.Privileges {
			switch {
			case strings.EqualFold(p.Level, "ignore"):
				if ign == nil {
					ign = make(map[string]bool)
				}
				ign[p.ID] = true
			case strings.EqualFold(p.Level, "moderator"):
				if mod == nil {
					mod = make(map[string]bool)
				}
				mod[p.ID] = true
			}
		}
		v := &channel.Channel{
			ID:      c.ID,
			Name:    nm,
			Block:   blk,
			Rate:    limiter(c.Rate, cfg.Global.Rate),
			Ignore:  ign,
			Mod:     mod,
			Emotes:  pick.New(pick.FromMap(mergemaps(cfg.Global.Emotes, c.Emotes))),
			History: channel.NewHistory(),
		}
		v.Message = robo.sender(v)
		robo.channels.Store(c.ID, v)
	}
	robo.allowed = make(map[string]bool, len(cfg.Global.Allow))
	for _, id := range cfg.Global.Allow {
		robo.allowed[id] = true
	}
	return nil
}

// InitGateway creates the Discord gateway from the configured token file
// and hooks inbound messages to the dispatcher.
func (robo *Selfbot) InitGateway(ctx context.Context, cfg GatewayCfg) error {
	tok, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return fmt.Errorf("couldn't read gateway token: %w", err)
	}
	gw, err := gateway.NewDiscord(strings.TrimSpace(string(tok)))
	if err != nil {
		return err
	}
	robo.gw = gw
	gw.OnMessage(func(ev *message.Event) {
		robo.onMessage(ctx, ev)
	})
	return nil
}

// InitAI configures the AI auto-responder.
func (robo *Selfbot) InitAI(ctx context.Context, cfg AICfg) error {
	var tok string
	if cfg.TokenFile != "" {
		b, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return fmt.Errorf("couldn't read AI token: %w", err)
		}
		tok = strings.TrimSpace(string(b))
	}
	robo.ai = ai.New(ai.Config{
		Enabled:   cfg.Enabled,
		Model:     cfg.Model,
		Endpoint:  cfg.Endpoint,
		Token:     tok,
		MaxTokens: cfg.MaxTokens,
	}, slog.Default())
	return nil
}

// loadDBs opens the databases named in the config: a Badger database for
// rules and SQLite pools for activity and the opt-out list. The rules path
// may be empty; the SQLite pools share one database when their DSNs match.
func loadDBs(ctx context.Context, cfg DBCfg) (rules *badger.DB, act, priv *sqlitex.Pool, err error) {
	if cfg.Rules != "" {
		slog.DebugContext(ctx, "rules db", slog.String("path", cfg.Rules))
		opts := badger.DefaultOptions(cfg.Rules)
		opts = opts.WithLogger(nil)
		opts = opts.WithCompression(options.None)
		opts = opts.WithBloomFalsePositive(0)
		rules, err = badger.Open(opts)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("couldn't open rules db: %w", err)
		}
	}
	act, err = sqlitex.NewPool(cfg.Activity, sqlitex.PoolOptions{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("couldn't open activity db: %w", err)
	}
	switch cfg.Privacy {
	case cfg.Activity:
		slog.DebugContext(ctx, "opt-out db shared with activity db")
		priv = act
	default:
		slog.DebugContext(ctx, "opt-out db", slog.String("path", cfg.Privacy))
		priv, err = sqlitex.NewPool(cfg.Privacy, sqlitex.PoolOptions{})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("couldn't open opt-out db: %w", err)
		}
	}
	return rules, act, priv, nil
}

// compileBlock combines the global and per-channel block expressions.
// Both empty yields nil: nothing blocked.
func compileBlock(global, local string) (*regexp.Regexp, error) {
	switch {
	case global == "" && local == "":
		return nil, nil
	case local == "":
		return regexp.Compile(global)
	case global == "":
		return regexp.Compile(local)
	}
	return regexp.Compile("(" + global + ")|(" + local + ")")
}

// limiter builds a channel rate limiter, falling back to the global rate
// and then to one message per second.
func limiter(r, global Rate) *rate.Limiter {
	if r.Num == 0 {
		r = global
	}
	if r.Num == 0 {
		r = Rate{Every: 1, Num: 1}
	}
	return rate.NewLimiter(rate.Every(fseconds(r.Every)), r.Num)
}

func mergemaps(ms ...map[string]int) map[string]int {
	u := make(map[string]int)
	for _, m := range ms {
		for k, v := range m {
			u[k] += v
		}
	}
	return u
}

func fseconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

type keys struct {
	// userhash is the hasher key for userhashes.
	userhash []byte
}

// domainkey fills o with a key derived from k for the given domain. Panics
// if a key cannot be expanded.
func domainkey(o, k, domain []byte) []byte {
	kr := hkdf.Expand(sha3.New224, k, domain)
	if _, err := io.ReadFull(kr, o); err != nil {
		panic(err)
	}
	return o
}

// Config is the marshaled structure of the bot's configuration.
type Config struct {
	// SecretFile is the path to a file containing a secret key used to
	// derive userhashes.
	SecretFile string `toml:"secret"`
	// Prefix is the command prefix. Defaults to "!".
	Prefix string `toml:"prefix"`
	// Owner is the table of metadata about the owner.
	Owner Owner `toml:"owner"`
	// DB is the table of database locations.
	DB DBCfg `toml:"db"`
	// HTTP is the HTTP API configuration.
	HTTP HTTPCfg `toml:"http"`
	// Gateway is the chat gateway configuration.
	Gateway GatewayCfg `toml:"gateway"`
	// AI is the AI auto-responder configuration.
	AI AICfg `toml:"ai"`
	// Global is the table of global settings.
	Global Global `toml:"global"`
	// Channels is per-channel configuration, keyed by a label.
	Channels map[string]*ChannelCfg `toml:"channels"`
}

// ChannelCfg is the configuration for a channel.
type ChannelCfg struct {
	// ID is the channel's identifier on the chat service.
	ID string `toml:"id"`
	// Block is a regular expression of messages to ignore.
	Block string `toml:"block"`
	// Rate is the rate limit for messages the bot sends here.
	Rate Rate `toml:"rate"`
	// Emotes is the emotes and their weights for the channel.
	Emotes map[string]int `toml:"emotes"`
	// Privileges is the user access controls for the channel.
	Privileges []Privilege `toml:"privileges"`
}

// Global is the configuration for globally applied options.
type Global struct {
	// Block is a regular expression of messages to ignore everywhere.
	Block string `toml:"block"`
	// Rate is the default send rate limit.
	Rate Rate `toml:"rate"`
	// Emotes is the emotes and their weights to use everywhere.
	Emotes map[string]int `toml:"emotes"`
	// Allow is the set of user IDs permitted to invoke commands.
	Allow []string `toml:"allow"`
}

// Owner is metadata about the bot owner.
type Owner struct {
	// Name is the name of the owner. It does not need to be a username.
	Name string `toml:"name"`
	// Contact describes owner contact information.
	Contact string `toml:"contact"`
}

// GatewayCfg is the chat gateway configuration.
type GatewayCfg struct {
	// TokenFile is the path to a file containing the account token.
	TokenFile string `toml:"token"`
}

// AICfg is the AI auto-responder configuration.
type AICfg struct {
	// Enabled is whether the responder starts enabled.
	Enabled bool `toml:"enabled"`
	// Model is the model requested from the endpoint.
	Model string `toml:"model"`
	// Endpoint is the base URL of an OpenAI-compatible API. Empty means
	// the default OpenAI endpoint.
	Endpoint string `toml:"endpoint"`
	// TokenFile is the path to a file containing the API token.
	TokenFile string `toml:"token"`
	// MaxTokens bounds completion length.
	MaxTokens int `toml:"max-tokens"`
}

// HTTPCfg is the HTTP API configuration.
type HTTPCfg struct {
	// Listen is the address to bind.
	Listen string `toml:"listen"`
}

// DBCfg is the configuration of databases.
type DBCfg struct {
	// Rules is the directory of the Badger database holding rules.
	Rules string `toml:"rules"`
	// Activity is the SQLite DSN for activity records.
	Activity string `toml:"activity"`
	// Privacy is the SQLite DSN for the opt-out list.
	Privacy string `toml:"privacy"`
}

// Rate is a rate limit configuration.
type Rate struct {
	Every float64 `toml:"every"`
	Num   int     `toml:"num"`
}

type Privilege struct {
	// ID is the user ID.
	ID string `toml:"id"`
	// Level is the access level granted to the user. Valid values are the
	// empty string as the default capability, "ignore" to drop the user's
	// messages entirely, or "moderator" for moderator commands.
	Level string `toml:"level"`
}

func expandcfg(cfg *Config, expand func(s string) string) {
	fields := []*string{
		&cfg.SecretFile,
		&cfg.Owner.Name,
		&cfg.Owner.Contact,
		&cfg.DB.Rules,
		&cfg.DB.Activity,
		&cfg.DB.Privacy,
		&cfg.HTTP.Listen,
		&cfg.Gateway.TokenFile,
		&cfg.AI.Endpoint,
		&cfg.AI.TokenFile,
	}
	for _, f := range fields {
		*f = os.Expand(*f, expand)
	}
	for _, v := range cfg.Channels {
		v.ID = os.Expand(v.ID, expand)
	}
}
