package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Harky911/ReolinkANPR/internal/logging"
	"github.com/Harky911/ReolinkANPR/internal/notify"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification on every enabled channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			results := notify.NewService(cfg, logging.NewNop()).Test(cmd.Context())
			if len(results) == 0 {
				fmt.Fprintln(out, "No notification channels are enabled")
				return nil
			}

			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)

			colorize := shouldColorize(out)
			failed := 0
			for _, name := range names {
				if err := results[name]; err != nil {
					failed++
					fmt.Fprintln(out, renderStatusLine(titleCaser.String(name), statusError, err.Error(), colorize))
					continue
				}
				fmt.Fprintln(out, renderStatusLine(titleCaser.String(name), statusOK, "test message sent", colorize))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d channels failed", failed, len(names))
			}
			return nil
		},
	}
}
