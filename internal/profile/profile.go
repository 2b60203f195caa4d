package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by the profile.
const EnvPrefix = "QUILLMATE"

// Profile is the configuration to start the companion server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string `mapstructure:"mode"`
	// Addr is the binding address for server
	Addr string `mapstructure:"addr"`
	// Port is the binding port for server
	Port int `mapstructure:"port"`
	// Data is the data directory (sqlite file lives here when DSN is empty)
	Data string `mapstructure:"data"`
	// Driver is the database driver (sqlite or postgres)
	Driver string `mapstructure:"driver"`
	// DSN points to where quillmate stores its own data
	DSN string `mapstructure:"dsn"`
	// Secret signs owner bearer tokens.
	Secret string `mapstructure:"secret"`

	Redis   RedisProfile   `mapstructure:"redis"`
	AI      AIProfile      `mapstructure:"ai"`
	Task    TaskProfile    `mapstructure:"task"`
	Memory  MemoryProfile  `mapstructure:"memory"`
	Session SessionProfile `mapstructure:"session"`
	RAG     RAGProfile     `mapstructure:"rag"`
	Events  EventsProfile  `mapstructure:"events"`
	Tools   ToolsProfile   `mapstructure:"tools"`
	Rate    RateProfile    `mapstructure:"rate"`
}

// RedisProfile configures the guest session store. Empty Addr selects the in-process cache.
type RedisProfile struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// AIProfile is the fallback model configuration used when none is enabled in the store.
type AIProfile struct {
	Provider       string  `mapstructure:"provider"`
	Model          string  `mapstructure:"model"`
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float32 `mapstructure:"temperature"`
}

// TaskProfile configures the background task client.
type TaskProfile struct {
	CharacterID      string `mapstructure:"character_id"`
	RequireCharacter bool   `mapstructure:"require_character"`
}

// MemoryProfile configures memory windows and the global-memory snapshot.
type MemoryProfile struct {
	WindowSize  int `mapstructure:"window_size"`
	GlobalLimit int `mapstructure:"global_limit"`
}

// SessionProfile configures session lifecycle.
type SessionProfile struct {
	GuestTTL      time.Duration `mapstructure:"guest_ttl"`
	PageMax       int           `mapstructure:"page_max"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RAGProfile configures retrieval augmentation for INIT plans.
type RAGProfile struct {
	Enabled    bool    `mapstructure:"enabled"`
	TopK       int     `mapstructure:"top_k"`
	Threshold  float64 `mapstructure:"threshold"`
	Collection string  `mapstructure:"collection"`
}

// EventsProfile sizes the async domain-event worker pool.
type EventsProfile struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// ToolsProfile lists the tools a turn may enable.
type ToolsProfile struct {
	Enabled []string `mapstructure:"enabled"`
}

// RateProfile bounds task executions per user and mode.
type RateProfile struct {
	TaskPerMinute int `mapstructure:"task_per_minute"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8081)
	v.SetDefault("data", ".")
	v.SetDefault("driver", "sqlite")
	v.SetDefault("redis.prefix", "quillmate:")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.embedding_model", "text-embedding-3-small")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("task.character_id", "task")
	v.SetDefault("task.require_character", true)
	v.SetDefault("memory.window_size", 20)
	v.SetDefault("memory.global_limit", 10)
	v.SetDefault("session.guest_ttl", 30*time.Minute)
	v.SetDefault("session.page_max", 50)
	v.SetDefault("session.sweep_interval", 10*time.Minute)
	v.SetDefault("rag.top_k", 4)
	v.SetDefault("rag.threshold", 0.75)
	v.SetDefault("rag.collection", "articles")
	v.SetDefault("events.workers", 4)
	v.SetDefault("events.queue_size", 256)
	v.SetDefault("tools.enabled", []string{"current_time", "list_global_memories"})
	v.SetDefault("rate.task_per_minute", 30)
}

// Load reads the profile from an optional config file and QUILLMATE_* environment variables.
func Load(v *viper.Viper, configFile string) (*Profile, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	p := &Profile{}
	if err := v.Unmarshal(p); err != nil {
		return nil, errors.Wrap(err, "failed to decode profile")
	}
	return p, nil
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// UsesRedis reports whether guest sessions live in redis.
func (p *Profile) UsesRedis() bool {
	return p.Redis.Addr != ""
}

func checkDataDir(dataDir string) (string, error) {
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and rejects unusable settings.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	switch p.Driver {
	case "sqlite", "postgres":
	default:
		return errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", p.Driver)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("quillmate_%s.db", p.Mode))
	}

	if p.Session.GuestTTL <= 0 {
		p.Session.GuestTTL = 30 * time.Minute
	}
	if p.Session.PageMax <= 0 {
		p.Session.PageMax = 50
	}
	if p.Memory.WindowSize <= 0 {
		p.Memory.WindowSize = 20
	}
	if p.Memory.GlobalLimit <= 0 {
		p.Memory.GlobalLimit = 10
	}
	if p.Events.Workers <= 0 {
		p.Events.Workers = 4
	}
	if p.Events.QueueSize <= 0 {
		p.Events.QueueSize = 256
	}
	if p.RAG.Enabled && p.RAG.Collection == "" {
		return errors.New("rag.collection is required when rag is enabled")
	}

	return nil
}
