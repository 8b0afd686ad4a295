package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/igorsal/routewarden/internal/models"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

func newEnvCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "env",
		Aliases: []string{"environments"},
		Short:   "Manage environments and their variables",
	}

	cmd.AddCommand(
		newEnvListCommand(a),
		newEnvShowCommand(a),
		newEnvCreateCommand(a),
		newEnvSetCommand(a),
		newEnvDeleteCommand(a),
		newEnvImportCommand(a),
		newEnvExportCommand(a),
	)
	return cmd
}

func newEnvListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List environments ordered by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.session.User() == nil {
				return pkgerrors.NewUnauthorizedError("environments need a user; set ROUTEWARDEN_USER_ID or --user")
			}
			envs := a.session.FetchEnvironments(cmd.Context())
			if a.jsonOutput() {
				return printJSON(a.out, envs)
			}
			printEnvironments(a.out, envs)
			return nil
		},
	}
}

func newEnvShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print the variables of an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.findEnvironment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(a.out, env)
			}
			printVariables(a.out, *env)
			return nil
		},
	}
}

func newEnvCreateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.createEnvironment(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created environment %s %s\n", bold.Sprint(env.Name), dim.Sprintf("(%s)", env.ID))
			return nil
		},
	}
}

func newEnvSetCommand(a *app) *cobra.Command {
	var unset, enable, disable []string

	cmd := &cobra.Command{
		Use:   "set <name> [key=value...]",
		Short: "Add or change variables of an environment",
		Long: `Add or change variables of an environment.

A key that already exists has its first occurrence updated; a new key is
appended. Order matters: when a key appears twice the first one is used
for {{key}} substitution.

Examples:
  routewarden env set dev base=https://dev.example.com token=abc
  routewarden env set dev --unset token
  routewarden env set dev --disable base`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := a.findEnvironment(ctx, args[0])
			if err != nil {
				return err
			}

			vars := env.Variables.Clone()
			for _, assignment := range args[1:] {
				key, value, ok := strings.Cut(assignment, "=")
				if !ok || key == "" {
					return pkgerrors.NewValidationError(fmt.Sprintf("invalid variable %q, expected key=value", assignment))
				}
				if err := setVariable(&vars, key, value); err != nil {
					return err
				}
			}
			for _, key := range unset {
				for id := findVariable(vars, key); id != ""; id = findVariable(vars, key) {
					vars.Remove(id)
				}
			}
			for _, key := range enable {
				if err := setActive(vars, key, true); err != nil {
					return err
				}
			}
			for _, key := range disable {
				if err := setActive(vars, key, false); err != nil {
					return err
				}
			}

			a.session.UpdateEnvironment(ctx, env.ID, vars)
			env.Variables = vars
			if a.jsonOutput() {
				return printJSON(a.out, env)
			}
			printVariables(a.out, *env)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringArrayVar(&unset, "unset", nil, "remove every variable with this key (repeatable)")
	fs.StringArrayVar(&enable, "enable", nil, "activate variables with this key (repeatable)")
	fs.StringArrayVar(&disable, "disable", nil, "deactivate variables with this key (repeatable)")
	return cmd
}

func newEnvDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.findEnvironment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.session.DeleteEnvironment(cmd.Context(), env.ID)
			fmt.Fprintf(a.out, "Deleted environment %s\n", bold.Sprint(env.Name))
			return nil
		},
	}
}

func newEnvImportCommand(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Replace an environment's variables with those of a YAML file",
		Long: `Replace an environment's variables with those of a YAML file. The
environment is created when it does not exist yet.

File layout:
  name: dev
  variables:
    - key: base
      value: https://dev.example.com
    - key: token
      value: abc
      active: false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to read environment file: %w", err)
			}
			defer f.Close()

			file, err := readEnvironmentFile(f)
			if err != nil {
				return err
			}
			if name == "" {
				name = file.Name
			}
			if name == "" {
				return pkgerrors.NewValidationError("environment name missing; set name in the file or pass --name")
			}

			env, err := a.findEnvironment(cmd.Context(), name)
			if pkgerrors.IsType(err, pkgerrors.ErrorTypeNotFound) {
				env, err = a.createEnvironment(cmd, name)
			}
			if err != nil {
				return err
			}

			vars := file.keyValues()
			a.session.UpdateEnvironment(cmd.Context(), env.ID, vars)
			fmt.Fprintf(a.out, "Imported %d variables into %s\n", len(vars), bold.Sprint(env.Name))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "target environment (defaults to the name in the file)")
	return cmd
}

func newEnvExportCommand(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Write an environment as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.findEnvironment(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var w io.Writer = a.out
			if path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				defer f.Close()
				w = f
			}
			return writeEnvironmentFile(w, *env)
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "write to a file instead of stdout")
	return cmd
}

// createEnvironment maps the session's nil result on a failed write to an error
func (a *app) createEnvironment(cmd *cobra.Command, name string) (*models.Environment, error) {
	env, err := a.session.CreateEnvironment(cmd.Context(), name)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, pkgerrors.NewInternalError(fmt.Sprintf("environment %q could not be saved", name))
	}
	return env, nil
}

func findVariable(vars models.KeyValueSet, key string) string {
	for _, v := range vars {
		if v.Key == key {
			return v.ID
		}
	}
	return ""
}

func setVariable(vars *models.KeyValueSet, key, value string) error {
	id := findVariable(*vars, key)
	if id == "" {
		id = vars.Add().ID
		if err := vars.Update(id, models.FieldKey, key); err != nil {
			return err
		}
	}
	return vars.Update(id, models.FieldValue, value)
}

func setActive(vars models.KeyValueSet, key string, active bool) error {
	found := false
	for _, v := range vars {
		if v.Key != key {
			continue
		}
		found = true
		if err := vars.Update(v.ID, models.FieldActive, strconv.FormatBool(active)); err != nil {
			return err
		}
	}
	if !found {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("variable %q not found", key))
	}
	return nil
}
