package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/igorsal/routewarden/internal/models"
)

var (
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
)

// setColor only ever turns color off; fatih/color already disables it for
// non-terminal output
func setColor(enabled bool) {
	if !enabled {
		color.NoColor = true
		pterm.DisableColor()
	}
}

func statusColor(status int) *color.Color {
	switch {
	case status >= 500:
		return red
	case status >= 400:
		return yellow
	case status >= 300:
		return cyan
	default:
		return green
	}
}

// printJSON writes v indented, for --output json
func printJSON(w io.Writer, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func printResult(w io.Writer, result *models.ExecutionResult, includeHeaders bool) {
	status := statusColor(result.Status).Sprintf("%d %s", result.Status, result.StatusText)
	timing := result.Time
	if result.RelayTime != "" {
		timing = fmt.Sprintf("%s (relay %s)", result.Time, result.RelayTime)
	}
	fmt.Fprintf(w, "%s  %s  %s\n", bold.Sprint(status), dim.Sprint(timing), dim.Sprint(result.Size))

	if includeHeaders {
		names := make([]string, 0, len(result.Headers))
		for name := range result.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s: %s\n", cyan.Sprint(name), result.Headers[name])
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, formatData(result.Data))
}

// formatData pretty prints JSON data keeping the upstream key order. A JSON
// string is printed as its contents.
func formatData(data []byte) string {
	parsed := gjson.ParseBytes(data)
	if parsed.Type == gjson.String {
		return parsed.String()
	}

	out := pretty.Pretty(data)
	if !color.NoColor {
		out = pretty.Color(out, nil)
	}
	return strings.TrimRight(string(out), "\n")
}

// renderTable writes rows under header. pterm measures cells without their
// color codes, so colored cells stay aligned.
func renderTable(w io.Writer, header []string, rows [][]string) {
	data := pterm.TableData{header}
	data = append(data, rows...)

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		fmt.Fprintf(w, "failed to render table: %v\n", err)
		return
	}
	fmt.Fprintln(w, out)
}

func printHistory(w io.Writer, entries []models.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, dim.Sprint("No history yet"))
		return
	}

	rows := make([][]string, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			bold.Sprint(entry.Method),
			statusColor(entry.Status).Sprint(entry.Status),
			fmt.Sprintf("%d ms", entry.DurationMS),
			dim.Sprint(entry.CreatedAt.Local().Format(time.DateTime)),
			entry.URL,
		})
	}
	renderTable(w, []string{"#", "Method", "Status", "Duration", "Sent", "URL"}, rows)
}

func printCollections(w io.Writer, collections []models.Collection) {
	if len(collections) == 0 {
		fmt.Fprintln(w, dim.Sprint("No collections yet"))
		return
	}

	for _, c := range collections {
		fmt.Fprintf(w, "%s %s\n", bold.Sprint(c.Name), dim.Sprintf("(%s)", c.ID))
		if len(c.Items) == 0 {
			fmt.Fprintln(w, dim.Sprint("  empty"))
			continue
		}

		rows := make([][]string, 0, len(c.Items))
		for _, item := range c.Items {
			rows = append(rows, []string{bold.Sprint(item.Method), item.Name, dim.Sprint(item.URL)})
		}
		renderTable(w, []string{"Method", "Name", "URL"}, rows)
	}
}

func printEnvironments(w io.Writer, envs []models.Environment) {
	if len(envs) == 0 {
		fmt.Fprintln(w, dim.Sprint("No environments yet"))
		return
	}

	rows := make([][]string, 0, len(envs))
	for _, env := range envs {
		rows = append(rows, []string{bold.Sprint(env.Name), strconv.Itoa(len(env.Variables)), dim.Sprint(env.ID)})
	}
	renderTable(w, []string{"Name", "Variables", "ID"}, rows)
}

func printVariables(w io.Writer, env models.Environment) {
	fmt.Fprintln(w, bold.Sprint(env.Name))
	if len(env.Variables) == 0 {
		fmt.Fprintln(w, dim.Sprint("  no variables"))
		return
	}

	rows := make([][]string, 0, len(env.Variables))
	for _, v := range env.Variables {
		state := green.Sprint("active")
		if !v.Active {
			state = dim.Sprint("inactive")
		}
		rows = append(rows, []string{v.Key, v.Value, state})
	}
	renderTable(w, []string{"Key", "Value", "State"}, rows)
}
