package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"axisconnect/internal/assistant"
	"axisconnect/internal/config"
	"axisconnect/internal/logging"
	"axisconnect/internal/session"
	"axisconnect/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, logPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/axisconnect/config.yaml if not provided)")
	flag.StringVar(&logPath, "log", "", "Path to log file (default: <data_dir>/axisconnect.log)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// The chat surface owns the terminal, so logs go to a file.
	if logPath == "" {
		logPath = filepath.Join(cfg.Corpus.DataDir, "axisconnect.log")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		log.Fatalf("failed to create log directory: %v", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()
	logging.Init(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: logFile})
	logger := logging.Default()

	resources := session.NewResources(cfg)
	defer resources.Close()

	ctx := context.Background()

	// Build or load the policy index up front; a missing corpus degrades to
	// profile-only answers rather than blocking startup.
	index := resources.Index(ctx)
	if !index.Available() {
		logger.Warn("policy retrieval unavailable", "corpus", cfg.Corpus.Path)
	}
	ret, err := resources.Retriever()
	if err != nil {
		log.Fatalf("failed to build retriever: %v", err)
	}
	asm, err := resources.Assembler()
	if err != nil {
		log.Fatalf("failed to build assembler: %v", err)
	}
	gen, err := resources.Generator()
	if err != nil {
		log.Fatalf("failed to build chat client (set %s): %v", cfg.LLM.APIKeyEnv, err)
	}
	if _, err := resources.Directory(ctx); err != nil {
		log.Fatalf("failed to open employee directory: %v", err)
	}

	asst := assistant.New(index, ret, asm, gen, logger)

	m := tui.New(resources, asst)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
