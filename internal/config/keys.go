package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
	kList
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "replica.driver", typ: kString, env: "POPULAR_REPLICA_DRIVER",
		apply:   func(cfg *Config, v any) { cfg.Replica.Driver = v.(string) },
		extract: func(cfg Config) any { return cfg.Replica.Driver },
	},
	{
		key: "replica.host", typ: kString, env: "POPULAR_REPLICA_HOST",
		apply:   func(cfg *Config, v any) { cfg.Replica.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Replica.Host },
	},
	{
		key: "replica.database", typ: kString, env: "POPULAR_REPLICA_DATABASE",
		apply:   func(cfg *Config, v any) { cfg.Replica.Database = v.(string) },
		extract: func(cfg Config) any { return cfg.Replica.Database },
	},
	{
		key: "replica.user", typ: kString, env: "POPULAR_REPLICA_USER",
		apply:   func(cfg *Config, v any) { cfg.Replica.User = v.(string) },
		extract: func(cfg Config) any { return cfg.Replica.User },
	},
	{
		key: "replica.password", typ: kString, env: "POPULAR_REPLICA_PASSWORD",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Replica.Password = v.(string) },
		extract: func(cfg Config) any { return cfg.Replica.Password },
	},
	{
		key: "replica.dsn", typ: kString, env: "POPULAR_REPLICA_DSN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Replica.DSN = v.(string) },
		extract: func(cfg Config) any { return cfg.Replica.DSN },
	},
	{
		key: "query.endpoint", typ: kString, env: "POPULAR_QUERY_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Query.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Query.Endpoint },
	},
	{
		key: "query.user_agent", typ: kString, env: "POPULAR_QUERY_USER_AGENT",
		apply:   func(cfg *Config, v any) { cfg.Query.UserAgent = v.(string) },
		extract: func(cfg Config) any { return cfg.Query.UserAgent },
	},
	{
		key: "query.delay", typ: kDuration, env: "POPULAR_QUERY_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Query.Delay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Query.Delay },
	},
	{
		key: "wiki.api_url", typ: kString, env: "POPULAR_WIKI_API_URL",
		apply:   func(cfg *Config, v any) { cfg.Wiki.APIURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Wiki.APIURL },
	},
	{
		key: "wiki.username", typ: kString, env: "POPULAR_WIKI_USERNAME",
		apply:   func(cfg *Config, v any) { cfg.Wiki.Username = v.(string) },
		extract: func(cfg Config) any { return cfg.Wiki.Username },
	},
	{
		key: "wiki.password", typ: kString, env: "POPULAR_WIKI_PASSWORD",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Wiki.Password = v.(string) },
		extract: func(cfg Config) any { return cfg.Wiki.Password },
	},
	{
		key: "wiki.page_title", typ: kString, env: "POPULAR_WIKI_PAGE_TITLE",
		apply:   func(cfg *Config, v any) { cfg.Wiki.PageTitle = v.(string) },
		extract: func(cfg Config) any { return cfg.Wiki.PageTitle },
	},
	{
		key: "wiki.edit_summary", typ: kString, env: "POPULAR_WIKI_EDIT_SUMMARY",
		apply:   func(cfg *Config, v any) { cfg.Wiki.EditSummary = v.(string) },
		extract: func(cfg Config) any { return cfg.Wiki.EditSummary },
	},
	{
		key: "display.namespace", typ: kInt, env: "POPULAR_DISPLAY_NAMESPACE",
		apply:   func(cfg *Config, v any) { cfg.Display.Namespace = v.(int) },
		extract: func(cfg Config) any { return cfg.Display.Namespace },
	},
	{
		key: "display.title", typ: kString, env: "POPULAR_DISPLAY_TITLE",
		apply:   func(cfg *Config, v any) { cfg.Display.Title = v.(string) },
		extract: func(cfg Config) any { return cfg.Display.Title },
	},
	{
		key: "selection.days", typ: kInt, env: "POPULAR_SELECTION_DAYS",
		apply:   func(cfg *Config, v any) { cfg.Selection.Days = v.(int) },
		extract: func(cfg Config) any { return cfg.Selection.Days },
	},
	{
		key: "selection.min_actors", typ: kInt, env: "POPULAR_SELECTION_MIN_ACTORS",
		apply:   func(cfg *Config, v any) { cfg.Selection.MinActors = v.(int) },
		extract: func(cfg Config) any { return cfg.Selection.MinActors },
	},
	{
		key: "selection.limit", typ: kInt, env: "POPULAR_SELECTION_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Selection.Limit = v.(int) },
		extract: func(cfg Config) any { return cfg.Selection.Limit },
	},
	{
		key: "selection.automated_marker", typ: kString, env: "POPULAR_SELECTION_AUTOMATED_MARKER",
		apply:   func(cfg *Config, v any) { cfg.Selection.AutomatedMarker = v.(string) },
		extract: func(cfg Config) any { return cfg.Selection.AutomatedMarker },
	},
	{
		key: "selection.blocklist", typ: kList, env: "POPULAR_SELECTION_BLOCKLIST",
		apply:   func(cfg *Config, v any) { cfg.Selection.Blocklist = v.([]string) },
		extract: func(cfg Config) any { return cfg.Selection.Blocklist },
	},
	{
		key: "selection.technical_classes", typ: kList, env: "POPULAR_SELECTION_TECHNICAL_CLASSES",
		apply:   func(cfg *Config, v any) { cfg.Selection.TechnicalClasses = v.([]string) },
		extract: func(cfg Config) any { return cfg.Selection.TechnicalClasses },
	},
	{
		key: "storage.data_dir", typ: kString, env: "POPULAR_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "server.port", typ: kInt, env: "POPULAR_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "POPULAR_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "schedule.spec", typ: kString, env: "POPULAR_SCHEDULE_SPEC",
		apply:   func(cfg *Config, v any) { cfg.Schedule.Spec = v.(string) },
		extract: func(cfg Config) any { return cfg.Schedule.Spec },
	},
	{
		key: "schedule.timezone", typ: kString, env: "POPULAR_SCHEDULE_TIMEZONE",
		apply:   func(cfg *Config, v any) { cfg.Schedule.Timezone = v.(string) },
		extract: func(cfg Config) any { return cfg.Schedule.Timezone },
	},
	{
		key: "log.level", typ: kString, env: "POPULAR_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return fmt.Errorf("reading %s: %w", s.key, err)
				}
				s.apply(cfg, d)
			}
		case kList:
			v, ok, err := b.GetStrings(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kList:
			s.apply(cfg, splitList(raw))
		}
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}
