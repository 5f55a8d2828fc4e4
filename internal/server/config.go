package server

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/holdemtable/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server    *ServerSettings    `hcl:"server,block"`
	Storage   *StorageSettings   `hcl:"storage,block"`
	Broadcast *BroadcastSettings `hcl:"broadcast,block"`
	Tables    []TableSettings    `hcl:"table,block"`
}

// ServerSettings contains process-level configuration
type ServerSettings struct {
	LogLevel       string `hcl:"log_level,optional"`
	MetricsAddress string `hcl:"metrics_address,optional"`
	ActionTimeout  string `hcl:"action_timeout,optional"`
	HandInterval   string `hcl:"hand_interval,optional"`
	Seed           int64  `hcl:"seed,optional"`
}

// StorageSettings selects and configures the persistence backend
type StorageSettings struct {
	Driver   string `hcl:"driver,optional"` // memory, file, redis or postgres
	Address  string `hcl:"address,optional"`
	Password string `hcl:"password,optional"`
	DB       int    `hcl:"db,optional"`
	Prefix   string `hcl:"prefix,optional"`
	DSN      string `hcl:"dsn,optional"`
	Path     string `hcl:"path,optional"`
}

// BroadcastSettings selects and configures the snapshot publisher
type BroadcastSettings struct {
	Driver string `hcl:"driver,optional"` // log or nats
	URL    string `hcl:"url,optional"`
}

// TableSettings defines one poker table
type TableSettings struct {
	Name       string `hcl:"name,label"`
	ID         string `hcl:"id,optional"`
	SmallBlind int    `hcl:"small_blind,optional"`
	BigBlind   int    `hcl:"big_blind,optional"`
	MinPlayers int    `hcl:"min_players,optional"`
	MaxPlayers int    `hcl:"max_players,optional"`
	MinBuyIn   int    `hcl:"min_buy_in,optional"`
	MaxBuyIn   int    `hcl:"max_buy_in,optional"`
}

const (
	defaultActionTimeout = "30s"
	defaultHandInterval  = "0s"
)

// DefaultServerConfig returns default server configuration with a single
// table named main
func DefaultServerConfig() *ServerConfig {
	config := &ServerConfig{}
	config.applyDefaults()
	return config
}

// LoadServerConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}
	return decodeConfig(file.Body)
}

// ParseServerConfig parses configuration from HCL source
func ParseServerConfig(src []byte, filename string) (*ServerConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return decodeConfig(file.Body)
}

func decodeConfig(body hcl.Body) (*ServerConfig, error) {
	var config ServerConfig
	if diags := gohcl.DecodeBody(body, nil, &config); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	config.applyDefaults()
	return &config, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ActionTimeout == "" {
		c.Server.ActionTimeout = defaultActionTimeout
	}
	if c.Server.HandInterval == "" {
		c.Server.HandInterval = defaultHandInterval
	}

	if c.Storage == nil {
		c.Storage = &StorageSettings{}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Driver == "redis" && c.Storage.Address == "" {
		c.Storage.Address = "localhost:6379"
	}

	if c.Broadcast == nil {
		c.Broadcast = &BroadcastSettings{}
	}
	if c.Broadcast.Driver == "" {
		c.Broadcast.Driver = "log"
	}

	if len(c.Tables) == 0 {
		c.Tables = []TableSettings{{Name: "main"}}
	}

	defaults := game.DefaultTableConfig()
	for i := range c.Tables {
		t := &c.Tables[i]
		if t.SmallBlind == 0 && t.BigBlind == 0 {
			t.SmallBlind = defaults.SmallBlind
			t.BigBlind = defaults.BigBlind
		} else if t.SmallBlind == 0 {
			t.SmallBlind = t.BigBlind / 2
		} else if t.BigBlind == 0 {
			t.BigBlind = t.SmallBlind * 2
		}
		if t.MinPlayers == 0 {
			t.MinPlayers = defaults.MinPlayers
		}
		if t.MaxPlayers == 0 {
			t.MaxPlayers = defaults.MaxPlayers
		}
		if t.MinBuyIn == 0 {
			t.MinBuyIn = t.BigBlind
		}
		if t.MaxBuyIn == 0 {
			t.MaxBuyIn = t.BigBlind * 10
		}
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.Server.LogLevel)
	}
	if d, err := time.ParseDuration(c.Server.ActionTimeout); err != nil || d < 0 {
		return fmt.Errorf("invalid action timeout %q", c.Server.ActionTimeout)
	}
	if d, err := time.ParseDuration(c.Server.HandInterval); err != nil || d < 0 {
		return fmt.Errorf("invalid hand interval %q", c.Server.HandInterval)
	}

	switch c.Storage.Driver {
	case "memory":
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("file storage requires a path")
		}
	case "redis":
		if c.Storage.Address == "" {
			return fmt.Errorf("redis storage requires an address")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("postgres storage requires a dsn")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Broadcast.Driver {
	case "log":
	case "nats":
		if c.Broadcast.URL == "" {
			return fmt.Errorf("nats broadcast requires a url")
		}
	default:
		return fmt.Errorf("unknown broadcast driver %q", c.Broadcast.Driver)
	}

	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}
	seen := make(map[string]bool, len(c.Tables))
	for _, table := range c.TableConfigs() {
		if seen[table.Name] {
			return fmt.Errorf("table %s: configured twice", table.Name)
		}
		seen[table.Name] = true
		if err := table.Validate(); err != nil {
			return fmt.Errorf("table %s: %w", table.Name, err)
		}
	}
	return nil
}

// LogLevel returns the parsed log level
func (c *ServerConfig) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Server.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// ActionTimeout returns how long a player has to act. Zero disables timeouts.
func (c *ServerConfig) ActionTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ActionTimeout)
	return d
}

// HandInterval returns the pause between a hand settling and the next deal
func (c *ServerConfig) HandInterval() time.Duration {
	d, _ := time.ParseDuration(c.Server.HandInterval)
	return d
}

// TableConfigs converts the table blocks to game configurations
func (c *ServerConfig) TableConfigs() []game.TableConfig {
	configs := make([]game.TableConfig, 0, len(c.Tables))
	for _, t := range c.Tables {
		configs = append(configs, game.TableConfig{
			ID:         t.ID,
			Name:       t.Name,
			SmallBlind: t.SmallBlind,
			BigBlind:   t.BigBlind,
			MinPlayers: t.MinPlayers,
			MaxPlayers: t.MaxPlayers,
			MinBuyIn:   t.MinBuyIn,
			MaxBuyIn:   t.MaxBuyIn,
		})
	}
	return configs
}

// ServiceOptions returns the game service settings from the configuration
func (c *ServerConfig) ServiceOptions() ServiceOptions {
	return ServiceOptions{
		ActionTimeout: c.ActionTimeout(),
		HandInterval:  c.HandInterval(),
		Seed:          c.Server.Seed,
	}
}
