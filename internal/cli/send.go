package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/igorsal/routewarden/internal/models"
	"github.com/igorsal/routewarden/internal/services"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

// draftFlags edit the session draft from the command line
type draftFlags struct {
	method   string
	headers  []string
	params   []string
	body     string
	bodyFile string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.method, "method", "X", "", "HTTP method: GET, POST, PUT, PATCH or DELETE")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, `request header "Name: value" (repeatable)`)
	fs.StringArrayVarP(&f.params, "param", "q", nil, `query parameter "name=value" (repeatable)`)
	fs.StringVarP(&f.body, "data", "d", "", "JSON request body, may contain {{variables}}")
	fs.StringVar(&f.bodyFile, "data-file", "", "read the JSON request body from a file")
}

// apply replaces the draft with one built from url and the flags. Without a
// url the current draft is kept and only the flags are applied on top.
func (f *draftFlags) apply(session *services.Session, url string) error {
	if url != "" {
		session.LoadRequest(models.RequestDraft{URL: url, Method: models.MethodGet})
	}

	if f.method != "" {
		if err := session.SetMethod(f.method); err != nil {
			return err
		}
	}

	for _, raw := range f.headers {
		name, value, ok := strings.Cut(raw, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return pkgerrors.NewValidationError(fmt.Sprintf("invalid header %q, expected \"Name: value\"", raw))
		}
		pair := session.AddHeader()
		if err := session.UpdateHeader(pair.ID, models.FieldKey, strings.TrimSpace(name)); err != nil {
			return err
		}
		if err := session.UpdateHeader(pair.ID, models.FieldValue, strings.TrimSpace(value)); err != nil {
			return err
		}
	}

	for _, raw := range f.params {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return pkgerrors.NewValidationError(fmt.Sprintf("invalid param %q, expected name=value", raw))
		}
		pair := session.AddParam()
		if err := session.UpdateParam(pair.ID, models.FieldKey, name); err != nil {
			return err
		}
		if err := session.UpdateParam(pair.ID, models.FieldValue, value); err != nil {
			return err
		}
	}

	switch {
	case f.bodyFile != "":
		data, err := os.ReadFile(f.bodyFile)
		if err != nil {
			return fmt.Errorf("failed to read body file: %w", err)
		}
		session.SetBody(string(data))
	case f.body != "":
		session.SetBody(f.body)
	}

	return nil
}

func newSendCommand(a *app) *cobra.Command {
	var (
		draft   draftFlags
		include bool
	)

	cmd := &cobra.Command{
		Use:   "send [url]",
		Short: "Send a request through the relay",
		Long: `Send a request through the relay and print the response.

The URL, header values, parameter values and body may contain {{name}}
tokens, which are replaced with the variables of the --env environment.
Without a URL the built-in sample request is sent.

Examples:
  routewarden send https://dummyjson.com/products/1
  routewarden send '{{base}}/products' -q limit=5 --env dev
  routewarden send -X POST https://dummyjson.com/products/add -d '{"title":"foo"}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.useEnvironment(ctx); err != nil {
				return err
			}

			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			if err := draft.apply(a.session, url); err != nil {
				return err
			}

			return a.send(cmd, include)
		},
	}
	draft.register(cmd)
	cmd.Flags().BoolVarP(&include, "include", "i", false, "print response headers")

	return cmd
}

// ErrRequestFailed marks a send that ended in the Failed state; the reason
// has already been printed
var ErrRequestFailed = errors.New("request failed")

// send executes the session draft and prints the outcome
func (a *app) send(cmd *cobra.Command, includeHeaders bool) error {
	outcome := a.session.Send(cmd.Context())

	if a.jsonOutput() {
		if err := printJSON(a.out, outcome); err != nil {
			return err
		}
	} else if outcome.State == models.StateSucceeded {
		printResult(a.out, outcome.Result, includeHeaders)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", red.Sprint("Error:"), outcome.Error)
	}

	if outcome.State == models.StateFailed {
		return ErrRequestFailed
	}
	return nil
}
