package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/igorsal/routewarden/internal/models"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

func newHistoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and replay previously sent requests",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the most recent requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.session.User() == nil {
				return pkgerrors.NewUnauthorizedError("history needs a user; set ROUTEWARDEN_USER_ID or --user")
			}
			entries := a.session.FetchHistory(cmd.Context())
			if a.jsonOutput() {
				return printJSON(a.out, entries)
			}
			printHistory(a.out, entries)
			return nil
		},
	})

	var include bool
	replay := &cobra.Command{
		Use:   "replay <number|id>",
		Short: "Load a history entry into the draft and send it again",
		Long: `Load a history entry into the draft and send it again.

History keeps requests as typed, so {{variables}} are resolved against the
--env environment at replay time.

Examples:
  routewarden history replay 1
  routewarden history replay 1 --env prod`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.session.User() == nil {
				return pkgerrors.NewUnauthorizedError("history needs a user; set ROUTEWARDEN_USER_ID or --user")
			}

			entry, err := pickHistoryEntry(a.session.FetchHistory(ctx), args[0])
			if err != nil {
				return err
			}
			if err := a.useEnvironment(ctx); err != nil {
				return err
			}

			a.session.LoadRequest(entry.Draft())
			return a.send(cmd, include)
		},
	}
	replay.Flags().BoolVarP(&include, "include", "i", false, "print response headers")
	cmd.AddCommand(replay)

	return cmd
}

// pickHistoryEntry accepts the 1-based position shown by history list or an entry id
func pickHistoryEntry(entries []models.HistoryEntry, ref string) (models.HistoryEntry, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(entries) {
			return models.HistoryEntry{}, pkgerrors.NewNotFoundError(fmt.Sprintf("history has no entry %d", n))
		}
		return entries[n-1], nil
	}

	for _, entry := range entries {
		if entry.ID == ref {
			return entry, nil
		}
	}
	return models.HistoryEntry{}, pkgerrors.NewNotFoundError(fmt.Sprintf("history entry %q not found", ref))
}
