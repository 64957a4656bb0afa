package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"creativegen/internal/bootstrap"
	"creativegen/internal/domain"
	"creativegen/internal/infra"
	"creativegen/internal/ledger"
	"creativegen/internal/report"
	"creativegen/internal/storage"
)

func main() {
	var (
		requestFlag string
		formatFlag  string
		ledgerFlag  string
		outFlag     string
	)
	flag.StringVar(&requestFlag, "request", "", "Path to a generation request JSON file (- for stdin)")
	flag.StringVar(&formatFlag, "format", "markdown", "Report format printed to stdout (markdown, json or html)")
	flag.StringVar(&ledgerFlag, "ledger", "", "Sqlite ledger path (defaults to LEDGER_DB_PATH)")
	flag.StringVar(&outFlag, "out", "", "Directory receiving report.json, report.md and report.html")
	flag.Parse()

	_ = godotenv.Load()

	format := strings.ToLower(strings.TrimSpace(formatFlag))
	switch format {
	case "markdown", "md", "json", "html":
	default:
		fmt.Fprintf(os.Stderr, "unsupported format %q\n", formatFlag)
		os.Exit(2)
	}
	if strings.TrimSpace(requestFlag) == "" {
		fmt.Fprintln(os.Stderr, "-request is required")
		os.Exit(2)
	}

	req, err := readRequest(requestFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logOpts := cfg.LogOptions("generate")
	logOpts.Out = os.Stderr
	logger := infra.NewLogger(logOpts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledgerPath := cfg.LedgerDBPath
	if strings.TrimSpace(ledgerFlag) != "" {
		ledgerPath = ledgerFlag
	}
	spend, err := ledger.OpenSQLite(ctx, ledgerPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("generate: open ledger")
	}
	defer spend.Close()

	orch, err := bootstrap.Orchestrator(ctx, cfg,
		bootstrap.Keys{Video: cfg.VideoAPIKey, OpenAI: cfg.OpenAIAPIKey},
		bootstrap.Deps{Store: spend},
		&logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("generate: configure pipeline")
	}

	rep, err := orch.Generate(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation aborted (%s): %v\n", domain.KindOf(err), err)
		os.Exit(1)
	}

	if outFlag != "" {
		store, err := storage.NewFileStore(outFlag)
		if err != nil {
			logger.Fatal().Err(err).Msg("generate: output directory")
		}
		if _, err := report.WriteArtifacts(ctx, store, "", rep); err != nil {
			logger.Error().Err(err).Msg("generate: write artifacts")
		}
	}

	out, err := render(rep, format)
	if err != nil {
		logger.Fatal().Err(err).Msg("generate: render report")
	}
	fmt.Println(out)
	if len(rep.Succeeded) == 0 {
		spend.Close()
		os.Exit(3)
	}
}

func readRequest(path string) (domain.GenerationRequest, error) {
	var req domain.GenerationRequest
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return req, fmt.Errorf("read request: %w", err)
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func render(rep *domain.Report, format string) (string, error) {
	switch format {
	case "json":
		body, err := report.JSON(rep)
		return string(body), err
	case "html":
		return report.HTML(rep)
	default:
		return report.Markdown(rep), nil
	}
}
