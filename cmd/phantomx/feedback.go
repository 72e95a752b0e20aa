package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/phantomx-ai/phantomx/internal/config"
	"github.com/phantomx-ai/phantomx/internal/store"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Export the user feedback log as JSON lines",
	Long:  `Reads the feedback log from the configured Redis store and writes one JSON record per line, oldest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if cfg.Storage.Backend != "redis" {
			return errors.New("feedback export needs storage.backend=redis; the memory store does not outlive the server")
		}

		ctx := context.Background()
		st, err := buildStore(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer st.Close()
		return exportFeedback(ctx, st, cmd.OutOrStdout())
	},
}

func exportFeedback(ctx context.Context, st store.Store, out io.Writer) error {
	records, err := st.Feedback(ctx)
	if err != nil {
		return fmt.Errorf("read feedback log: %w", err)
	}
	enc := json.NewEncoder(out)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
