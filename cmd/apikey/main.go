package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"creativegen/internal/infra"
	"creativegen/internal/infra/credentials"
)

func main() {
	var (
		keyFlag      string
		providerFlag string
		listFlag     bool
		deleteFlag   bool
	)
	flag.StringVar(&keyFlag, "key", "", "API key for the selected provider (fallbacks to environment)")
	flag.StringVar(&providerFlag, "provider", credentials.ProviderVideo, "Provider to configure (video or openai)")
	flag.BoolVar(&listFlag, "list", false, "List stored providers with the last four key characters")
	flag.BoolVar(&deleteFlag, "delete", false, "Remove the stored key for the selected provider")
	flag.Parse()

	_ = godotenv.Load()

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	switch provider {
	case credentials.ProviderVideo, credentials.ProviderOpenAI:
	case "":
		provider = credentials.ProviderVideo
	default:
		fmt.Fprintf(os.Stderr, "unsupported provider %q\n", providerFlag)
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger(infra.LogOptions{Env: "cli", Service: "apikey", Out: os.Stderr}).With().Str("provider", provider).Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	switch {
	case listFlag:
		infos, err := store.List(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list api keys: %v\n", err)
			os.Exit(1)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PROVIDER\tKEY\tUPDATED")
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t…%s\t%s\n", info.Provider, info.Suffix, info.UpdatedAt.UTC().Format(time.RFC3339))
		}
		tw.Flush()
		return
	case deleteFlag:
		removed, err := store.Delete(ctx, provider)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to delete %s api key: %v\n", provider, err)
			os.Exit(1)
		}
		if !removed {
			fmt.Printf("no %s API key stored\n", strings.ToUpper(provider))
			return
		}
		fmt.Printf("%s API key removed\n", strings.ToUpper(provider))
		return
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		switch provider {
		case credentials.ProviderOpenAI:
			key = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		default:
			key = strings.TrimSpace(os.Getenv("VIDEO_API_KEY"))
		}
	}
	if key == "" {
		fmt.Fprintf(os.Stderr, "%s API key is required via -key or environment\n", strings.ToUpper(provider))
		os.Exit(1)
	}

	if err := store.Set(ctx, provider, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist %s api key: %v\n", provider, err)
		os.Exit(1)
	}
	fmt.Printf("%s API key stored successfully\n", strings.ToUpper(provider))
}
