package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/concordtech/contact-api/config"
	"github.com/concordtech/contact-api/domain/contact"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/spf13/cobra"
)

const storageCommandTimeout = 30 * time.Second

func newSubmissionsCmd(logger *log.Logger) *cobra.Command {
	submissionsCmd := &cobra.Command{
		Use:   "submissions",
		Short: "Read contact submissions from the configured storage backend",
	}

	submissionsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every submission as JSON, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			backend, release, err := config.OpenStorage(logger)
			if err != nil {
				return err
			}
			defer release()

			submissions, err := contact.NewIntakeService(logger, backend).List(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(contact.SubmissionsResponse{
				Submissions: submissions,
				Count:       len(submissions),
			})
		},
	})

	return submissionsCmd
}

func newStorageCmd(logger *log.Logger) *cobra.Command {
	storageCmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect the configured storage backend",
	}

	storageCmd.AddCommand(&cobra.Command{
		Use:   "probe",
		Short: "Ping the backend and count stored submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			backend, release, err := config.OpenStorage(logger)
			if err != nil {
				return err
			}
			defer release()

			if err := backend.Ping(ctx); err != nil {
				return fmt.Errorf("ping %s: %w", backend.Name(), err)
			}

			submissions, err := backend.List(ctx)
			if err != nil {
				return fmt.Errorf("list %s: %w", backend.Name(), err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "backend=%s status=ok count=%d\n", backend.Name(), len(submissions))
			return err
		},
	})

	return storageCmd
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, storageCommandTimeout)
}
