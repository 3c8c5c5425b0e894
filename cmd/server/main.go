package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/NicolasHaas/gochat/pkg/datastore"
	"github.com/NicolasHaas/gochat/pkg/logging"
	"github.com/NicolasHaas/gochat/pkg/server"
	"github.com/NicolasHaas/gochat/pkg/version"
)

func main() {
	defaults := server.DefaultConfig()

	configFile := flag.String("config", "", "YAML or TOML config file")
	envFile := flag.String("env-file", ".env", "dotenv file with CHAT_* variables (ignored if missing)")
	host := flag.String("host", defaults.Host, "bind host for the chat listener (empty = all interfaces)")
	port := flag.Int("port", defaults.Port, "TCP port for the chat listener")
	wsAddr := flag.String("ws", defaults.WSAddr, "WebSocket bind address (empty to disable)")
	httpAddr := flag.String("http", defaults.HTTPAddr, "ops HTTP bind address for /metrics, /sessions, /blocks (empty to disable)")
	auditDB := flag.String("audit-db", defaults.AuditDB, "SQLite file for the block audit log (empty = in-memory)")
	exportBlocks := flag.Bool("export-blocks", false, "Export the block audit log as YAML and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")

	logLevel := flag.String("log-level", "info", "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Banner("gochat-server"))
		return
	}

	// Configure structured logging
	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	// Precedence: defaults < config file < environment (.env included) < flags.
	cfg := defaults
	if *configFile != "" {
		loaded, err := server.LoadConfig(*configFile)
		if err != nil {
			slog.Error("load config", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if err := server.LoadEnvFile(*envFile); err != nil {
		slog.Error("load env file", "err", err)
		os.Exit(1)
	}
	if err := server.ApplyEnv(&cfg); err != nil {
		slog.Error("apply environment", "err", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = *host
		case "port":
			cfg.Port = *port
		case "ws":
			cfg.WSAddr = *wsAddr
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "audit-db":
			cfg.AuditDB = *auditDB
		}
	})
	cfg.ExportBlocks = *exportBlocks

	audit, err := openAudit(cfg.AuditDB)
	if err != nil {
		slog.Error("open audit log", "path", cfg.AuditDB, "err", err)
		os.Exit(1)
	}

	// Handle export command (run and exit)
	if cfg.ExportBlocks {
		data, err := server.ExportBlocksYAML(context.Background(), audit)
		_ = audit.Close()
		if err != nil {
			slog.Error("export blocks", "err", err)
			os.Exit(1)
		}
		fmt.Print(string(data))
		return
	}

	slog.Info(version.Banner("gochat-server"))
	srv := server.New(cfg, server.Dependencies{Audit: audit, Logger: slog.Default()})
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func openAudit(path string) (datastore.BlockLog, error) {
	if path == "" {
		return datastore.NewMemory(), nil
	}
	return datastore.NewSQLite(path)
}
