package config

import (
	"fmt"
	"slices"
	"time"
	_ "time/tzdata" // schedule.timezone must resolve on hosts without zoneinfo

	"github.com/kalambet/popular/internal/replica"
	"github.com/kalambet/popular/internal/selection"
	"github.com/kalambet/popular/internal/wdqs"
	"github.com/kalambet/popular/internal/wiki"
)

const defaultUserAgent = "popular-items/1.0 (https://www.wikidata.org/wiki/Wikidata:Main_Page/Popular)"

type Config struct {
	Replica   ReplicaConfig
	Query     QueryConfig
	Wiki      WikiConfig
	Display   DisplayConfig
	Selection SelectionConfig
	Storage   StorageConfig
	Server    ServerConfig
	Schedule  ScheduleConfig
	Log       LogConfig
}

type ReplicaConfig struct {
	Driver   string
	Host     string
	Database string
	User     string
	Password string
	DSN      string
}

type QueryConfig struct {
	Endpoint  string
	UserAgent string
	Delay     time.Duration
}

type WikiConfig struct {
	APIURL      string
	Username    string
	Password    string
	PageTitle   string
	EditSummary string
}

type DisplayConfig struct {
	Namespace int
	Title     string
}

type SelectionConfig struct {
	Days             int
	MinActors        int
	Limit            int
	AutomatedMarker  string
	Blocklist        []string
	TechnicalClasses []string
}

type StorageConfig struct {
	DataDir string
}

type ServerConfig struct {
	Port  int
	Token string
}

type ScheduleConfig struct {
	Spec     string
	Timezone string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Replica: ReplicaConfig{
			Driver:   "mysql",
			Host:     "wikidatawiki.analytics.db.svc.wikimedia.cloud",
			Database: "wikidatawiki_p",
		},
		Query: QueryConfig{
			Endpoint:  wdqs.DefaultEndpoint,
			UserAgent: defaultUserAgent,
			Delay:     wdqs.DefaultDelay,
		},
		Wiki: WikiConfig{
			APIURL:      wiki.DefaultAPIURL,
			PageTitle:   wiki.DefaultPageTitle,
			EditSummary: wiki.DefaultEditSummary,
		},
		Display: DisplayConfig{
			Namespace: replica.DefaultNamespace,
			Title:     replica.DefaultTitle,
		},
		Selection: SelectionConfig{
			Days:             3,
			MinActors:        selection.DefaultMinActors,
			Limit:            selection.DefaultLimit,
			AutomatedMarker:  selection.DefaultAutomatedMarker,
			Blocklist:        slices.Clone(selection.DefaultBlocklist),
			TechnicalClasses: slices.Clone(wdqs.DefaultTechnicalClasses),
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Server: ServerConfig{
			Port: 4100,
		},
		Schedule: ScheduleConfig{
			Spec:     "@hourly",
			Timezone: "UTC",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the TOML file at path (DefaultPath when
// empty) and environment variables.
//
// Environment variables (POPULAR_*) override file values. Secrets
// (passwords, DSN, server token) are only read from the environment.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	return loadFromPath(path)
}

func loadFromPath(path string) (Config, error) {
	b, err := newFileBackend(path)
	if err != nil {
		return Config{}, err
	}
	return loadWith(b)
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Replica.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("invalid config: replica.driver must be mysql or sqlite, got %q", c.Replica.Driver)
	}
	if c.Replica.Driver == "sqlite" && c.Replica.DSN == "" {
		return fmt.Errorf("invalid config: replica.driver sqlite needs POPULAR_REPLICA_DSN set to the snapshot path")
	}
	if c.Selection.Days <= 0 {
		return fmt.Errorf("invalid config: selection.days must be positive, got %d", c.Selection.Days)
	}
	if c.Selection.MinActors < 1 {
		return fmt.Errorf("invalid config: selection.min_actors must be at least 1, got %d", c.Selection.MinActors)
	}
	if c.Selection.Limit <= 0 {
		return fmt.Errorf("invalid config: selection.limit must be positive, got %d", c.Selection.Limit)
	}
	if c.Selection.AutomatedMarker == "" {
		return fmt.Errorf("invalid config: selection.automated_marker must not be empty")
	}
	if c.Query.Delay < 0 {
		return fmt.Errorf("invalid config: query.delay must not be negative")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid config: schedule.timezone: %w", err)
	}
	return nil
}

// RequirePublisher reports whether the wiki credentials needed to publish
// are present.
func (c Config) RequirePublisher() error {
	if c.Wiki.Username == "" || c.Wiki.Password == "" {
		return fmt.Errorf("missing required config: wiki bot credentials. " +
			"Set wiki.username (or POPULAR_WIKI_USERNAME) and the environment variable POPULAR_WIKI_PASSWORD")
	}
	return nil
}
