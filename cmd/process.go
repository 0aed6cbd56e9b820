package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"typowatch/internal/config"
	"typowatch/pkg/domain"
	"typowatch/pkg/domainname"
)

// processCommand runs a single unit of work inline, outside the job queue.
func processCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Runs one delta or email unit of work immediately",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "domain <name>",
			Short: "Registers a domain and recomputes its delta report",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()

				name, err := domainname.Decode(args[0])
				if err != nil {
					return err //nolint: wrapcheck
				}

				store, closeStore := getStore(ctx, cfg, nil)
				defer closeStore()

				procs := newProcessors(ctx, cfg, store)
				if err := procs.repo.RegisterDomainForDelta(ctx, name); err != nil {
					return fmt.Errorf("could not register %s: %w", name, err)
				}
				if err := procs.deltas.ProcessDomain(ctx, name); err != nil {
					return fmt.Errorf("could not process %s: %w", name, err)
				}

				return nil
			},
		},
		&cobra.Command{
			Use:   "sub <id>",
			Short: "Registers the domain of a subscription or emails its report when due",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				id := domain.SubscriptionID(args[0])

				store, closeStore := getStore(ctx, cfg, nil)
				defer closeStore()

				// identity fields are filled from the stored subscription
				if err := newProcessors(ctx, cfg, store).notify.ProcessSub(ctx, id, domain.Subscription{ID: id}); err != nil {
					return fmt.Errorf("could not process subscription %s: %w", id, err)
				}

				return nil
			},
		},
	)

	return cmd
}
