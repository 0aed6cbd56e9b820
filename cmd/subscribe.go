package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"typowatch/internal/config"
	"typowatch/pkg/domain"
	"typowatch/pkg/domainname"
	"typowatch/pkg/logger"
)

// subscribeCommand subscribes one email address to a list of domains. The
// list is free-form: commas, spaces or newlines separate entries and URLs are
// reduced to their host.
func subscribeCommand(cfg *config.Config) *cobra.Command {
	var email, domains string

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribes an email address to the reports of one or more domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			names := domainname.ParseQuery(strings.Join(append([]string{domains}, args...), "\n"))
			if len(names) == 0 {
				return fmt.Errorf("no valid domain in %q", domains)
			}

			store, closeStore := getStore(ctx, cfg, nil)
			defer closeStore()
			procs := newProcessors(ctx, cfg, store)

			for _, name := range names {
				id := domain.SubscriptionID(uuid.NewString())
				if err := procs.repo.SubscribeEmail(ctx, id, email, name); err != nil {
					return fmt.Errorf("could not subscribe to %s: %w", name, err)
				}
				logger.Info(ctx, "subscribed", zap.String("id", string(id)), zap.String("domain", name))
				cmd.Printf("%s\t%s\n", id, name)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Subscriber email address")
	cmd.Flags().StringVar(&domains, "domains", "", "Domains to watch, separated by commas, spaces or newlines")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
