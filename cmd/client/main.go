package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/NicolasHaas/gochat/pkg/command"
	"github.com/NicolasHaas/gochat/pkg/logging"
	"github.com/NicolasHaas/gochat/pkg/version"
)

const defaultPort = 8080

func main() {
	host := flag.String("host", "", "server host (prompted when empty)")
	port := flag.Int("port", 0, "server port (prompted when zero)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Banner("gochat-client"))
		return
	}

	// Default to "warn" so logs stay out of the conversation; override with
	// GOCHAT_LOG_LEVEL (debug, info, warn, error).
	level := "warn"
	if v := os.Getenv("GOCHAT_LOG_LEVEL"); v != "" {
		level = v
	}
	_ = logging.Setup(logging.Options{
		Level:  level,
		Format: "text",
		Output: os.Stderr,
	})

	stdin := bufio.NewScanner(os.Stdin)
	if *host == "" {
		*host = prompt(stdin, "Introduce la IP del servidor (localhost o 127.0.0.1): ")
		if *host == "" {
			*host = "localhost"
		}
	}
	if *port == 0 {
		*port = parsePort(prompt(stdin, fmt.Sprintf("Introduce el puerto del servidor (%d): ", defaultPort)))
	}

	addr := net.JoinHostPort(*host, strconv.Itoa(*port))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error al conectar: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()
	slog.Info("connected", "addr", addr)
	fmt.Printf("Conexión establecida con %s\n", addr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := io.Copy(os.Stdout, conn); err != nil {
			slog.Debug("read from server", "err", err)
		}
		fmt.Println("Desconectado del servidor.")
	}()

	go func() {
		w := bufio.NewWriter(conn)
		for stdin.Scan() {
			line := stdin.Text()
			if _, err := w.WriteString(line + "\n"); err != nil {
				slog.Debug("write to server", "err", err)
				return
			}
			if err := w.Flush(); err != nil {
				slog.Debug("write to server", "err", err)
				return
			}
			if _, ok := command.Parse(line).(command.Exit); ok {
				return
			}
		}
		// stdin closed: half-close so the server sees EOF and cleans up.
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.CloseWrite()
		}
	}()

	<-done
}

func prompt(in *bufio.Scanner, question string) string {
	fmt.Print(question)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

// parsePort falls back to the default port on anything that is not a valid port number.
func parsePort(s string) int {
	p, err := strconv.Atoi(s)
	if err != nil || p <= 0 || p > 65535 {
		if s != "" {
			fmt.Printf("Puerto inválido. Usando %d por defecto.\n", defaultPort)
		}
		return defaultPort
	}
	return p
}
