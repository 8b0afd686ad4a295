package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/igorsal/routewarden/internal/models"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

func newCollectionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection", "col"},
		Short:   "Organize saved requests in collections",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List collections with their saved requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.session.User() == nil {
				return pkgerrors.NewUnauthorizedError("collections need a user; set ROUTEWARDEN_USER_ID or --user")
			}
			collections := a.session.FetchCollections(cmd.Context())
			if a.jsonOutput() {
				return printJSON(a.out, collections)
			}
			printCollections(a.out, collections)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session.CreateCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if c == nil {
				return pkgerrors.NewInternalError(fmt.Sprintf("collection %q could not be saved", args[0]))
			}
			fmt.Fprintf(a.out, "Created collection %s %s\n", bold.Sprint(c.Name), dim.Sprintf("(%s)", c.ID))
			return nil
		},
	})

	cmd.AddCommand(newCollectionSaveCommand(a), newCollectionRunCommand(a))
	return cmd
}

func newCollectionSaveCommand(a *app) *cobra.Command {
	var draft draftFlags

	cmd := &cobra.Command{
		Use:   "save <collection> <request-name> [url]",
		Short: "Save a request into a collection without sending it",
		Long: `Save a request into a collection without sending it. The request is
stored as typed, {{variables}} included.

Examples:
  routewarden collections save Products "list products" '{{base}}/products' -q limit=10
  routewarden collections save Products "add product" '{{base}}/products/add' -X POST -d '{"title":"foo"}'`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.findCollection(ctx, args[0])
			if err != nil {
				return err
			}

			url := ""
			if len(args) == 3 {
				url = args[2]
			}
			if err := draft.apply(a.session, url); err != nil {
				return err
			}

			item, err := a.session.SaveRequestToCollection(ctx, c.ID, args[1])
			if err != nil {
				return err
			}
			if item == nil {
				return pkgerrors.NewInternalError(fmt.Sprintf("request %q could not be saved", args[1]))
			}
			fmt.Fprintf(a.out, "Saved %s %s to %s\n", bold.Sprint(item.Method), item.Name, bold.Sprint(c.Name))
			return nil
		},
	}
	draft.register(cmd)
	return cmd
}

func newCollectionRunCommand(a *app) *cobra.Command {
	var include bool

	cmd := &cobra.Command{
		Use:   "run <collection> <request-name>",
		Short: "Load a saved request into the draft and send it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.findCollection(ctx, args[0])
			if err != nil {
				return err
			}

			item, err := findItem(*c, args[1])
			if err != nil {
				return err
			}
			if err := a.useEnvironment(ctx); err != nil {
				return err
			}

			a.session.LoadRequest(item.Draft())
			return a.send(cmd, include)
		},
	}
	cmd.Flags().BoolVarP(&include, "include", "i", false, "print response headers")
	return cmd
}

func findItem(c models.Collection, name string) (models.CollectionItem, error) {
	for _, item := range c.Items {
		if item.Name == name || item.ID == name {
			return item, nil
		}
	}
	return models.CollectionItem{}, pkgerrors.NewNotFoundError(fmt.Sprintf("request %q not found in %s", name, c.Name))
}
