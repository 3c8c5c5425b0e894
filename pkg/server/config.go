package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/gochat/pkg/datastore"
	"github.com/NicolasHaas/gochat/pkg/netconn"
)

// Config holds server configuration.
type Config struct {
	Host     string `yaml:"host" toml:"host"`           // bind host for the line protocol ("" = all interfaces)
	Port     int    `yaml:"port" toml:"port"`           // TCP port for the line protocol
	WSAddr   string `yaml:"ws_addr" toml:"ws_addr"`     // WebSocket bind address (empty = disabled)
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"` // ops endpoint bind address (empty = disabled)
	AuditDB  string `yaml:"audit_db" toml:"audit_db"`   // SQLite path for the block audit log (empty = in-memory)

	OutboundQueue      int           `yaml:"outbound_queue" toml:"outbound_queue"`
	WriteTimeout       time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	MaxLineLength      int           `yaml:"max_line_length" toml:"max_line_length"`
	NamePromptTimeout  time.Duration `yaml:"name_prompt_timeout" toml:"name_prompt_timeout"`
	MetricsLogInterval time.Duration `yaml:"metrics_log_interval" toml:"metrics_log_interval"`

	// Addresses refused from startup. Blocks issued at runtime are not written back.
	BlockedAddresses []string `yaml:"blocked_addresses" toml:"blocked_addresses"`

	// CLI-only action (run and exit)
	ExportBlocks bool `yaml:"-" toml:"-"` // print the block audit log as YAML and exit
}

// Environment variables read by ApplyEnv.
const (
	EnvHost     = "CHAT_HOST"
	EnvPort     = "CHAT_PORT"
	EnvWSAddr   = "CHAT_WS_ADDR"
	EnvHTTPAddr = "CHAT_HTTP_ADDR"
	EnvAuditDB  = "CHAT_AUDIT_DB"
	EnvBlocked  = "CHAT_BLOCKED"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:               8080,
		OutboundQueue:      64,
		WriteTimeout:       netconn.DefaultWriteTimeout,
		MaxLineLength:      netconn.DefaultMaxLineLength,
		NamePromptTimeout:  5 * time.Minute,
		MetricsLogInterval: 60 * time.Second,
	}
}

// ListenAddr is the host:port of the line-protocol listener.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.OutboundQueue <= 0 {
		return fmt.Errorf("config: outbound_queue must be positive, got %d", c.OutboundQueue)
	}
	if c.MaxLineLength <= 0 {
		return fmt.Errorf("config: max_line_length must be positive, got %d", c.MaxLineLength)
	}
	return nil
}

func (c Config) connOptions() netconn.Options {
	return netconn.Options{
		MaxLineLength: c.MaxLineLength,
		WriteTimeout:  c.WriteTimeout,
	}
}

// LoadConfig reads a YAML or TOML file, chosen by extension, over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return cfg, fmt.Errorf("config: read: %w", err)
	}
	if err := decodeConfig(path, data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decodeConfig(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse yaml: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("config: parse toml: %w", err)
		}
	default:
		return fmt.Errorf("config: unsupported file type %q", ext)
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with CHAT_* environment variables.
func ApplyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvHost); ok {
		cfg.Host = v
	}
	if v, ok := os.LookupEnv(EnvPort); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvPort, err)
		}
		cfg.Port = port
	}
	if v, ok := os.LookupEnv(EnvWSAddr); ok {
		cfg.WSAddr = v
	}
	if v, ok := os.LookupEnv(EnvHTTPAddr); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := os.LookupEnv(EnvAuditDB); ok {
		cfg.AuditDB = v
	}
	if v, ok := os.LookupEnv(EnvBlocked); ok {
		cfg.BlockedAddresses = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// BlockYAML is one audit entry in the YAML export.
type BlockYAML struct {
	ID         int64  `yaml:"id"`
	Address    string `yaml:"address"`
	TargetName string `yaml:"target"`
	BlockedBy  string `yaml:"blocked_by"`
	CreatedAt  string `yaml:"created_at"`
}

// BlocksExport is the top-level YAML for the block audit export.
type BlocksExport struct {
	Blocks []BlockYAML `yaml:"blocks"`
}

// ExportBlocksYAML exports the block audit log as YAML.
func ExportBlocksYAML(ctx context.Context, audit datastore.BlockLog) ([]byte, error) {
	records, err := audit.ListBlocks(ctx)
	if err != nil {
		return nil, err
	}

	export := BlocksExport{Blocks: []BlockYAML{}}
	for _, r := range records {
		export.Blocks = append(export.Blocks, BlockYAML{
			ID:         r.ID,
			Address:    r.Address,
			TargetName: r.TargetName,
			BlockedBy:  r.BlockedBy,
			CreatedAt:  r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return yaml.Marshal(&export)
}
