package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"AstroPull/internal/domain/service"
	"AstroPull/internal/services/extraction"
	"AstroPull/pkg/config"
	applogger "AstroPull/pkg/logger"

	"github.com/spf13/cobra"
)

type extractorFactory func(cfg *config.Config, l *applogger.Logger) (service.FieldExtractor, error)

func buildExtractor(cfg *config.Config, l *applogger.Logger) (service.FieldExtractor, error) {
	if cfg.Extraction.CityTablePath == "" {
		return nil, fmt.Errorf("extraction.city_table_path is required")
	}
	cities, err := extraction.LoadCityTable(cfg.Extraction.CityTablePath, cfg.Extraction.CitySheet)
	if err != nil {
		return nil, fmt.Errorf("city table: %w", err)
	}
	return extraction.NewLLMExtractor(extraction.NewChatClient(cfg), cities, cfg.Extraction.DefaultTZ, l), nil
}

// loadConfig reads the YAML file without the server-only validation.
func loadConfig(path string) (*config.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

func newRootCmd(factory extractorFactory) *cobra.Command {
	var (
		configPath string
		text       string
		timeout    time.Duration
		debug      bool
	)

	cmd := &cobra.Command{
		Use:          "extract",
		Short:        "Extract a birth record from free text",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if text == "" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(b)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("no input text")
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			level := "warn"
			if debug {
				level = "debug"
			}
			l, err := applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stderr"})
			if err != nil {
				return err
			}

			ex, err := factory(cfg, l)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			d, err := ex.Extract(ctx, strings.TrimSpace(text))
			if errors.Is(err, service.ErrExtractionFailed) {
				l.Debug("extraction rejected", applogger.Error(err))
				_, werr := fmt.Fprintln(out, "False")
				return werr
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	cmd.Flags().StringVarP(&text, "text", "t", "", "free text to extract from (default: stdin)")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "extraction timeout")
	cmd.Flags().BoolVar(&debug, "debug", false, "verbose logging to stderr")
	return cmd
}
