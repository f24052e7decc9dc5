package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cconform/internal/config"
	"github.com/roach88/cconform/internal/harness"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Dir       string
	SourceExt string
	Recursive bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}
	defaults := config.Defaults()

	cmd := &cobra.Command{
		Use:   "list [names...]",
		Short: "List discovered test cases without compiling",
		Long: `List the test cases run would execute: every source file paired with
a validation script, in the order they would run.

Examples:
  cconform list
  cconform list --dir tests --recursive
  cconform list "argc loop_break" --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTests(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", defaults.Dir, "directory holding test sources and scripts")
	cmd.Flags().StringVar(&opts.SourceExt, "ext", defaults.SourceExt, "test source extension")
	cmd.Flags().BoolVarP(&opts.Recursive, "recursive", "r", false, "descend into subdirectories")

	return cmd
}

func listTests(cmd *cobra.Command, opts *ListOptions, args []string) error {
	opts.ensure()
	if !cmd.Flags().Changed("dir") {
		opts.Dir = opts.Config.Dir
	}
	if !cmd.Flags().Changed("ext") {
		opts.SourceExt = opts.Config.SourceExt
	}

	loader := opts.loader()
	cases, err := harness.Discover(opts.Dir, harness.DiscoverOptions{
		SourceExt:  opts.SourceExt,
		Names:      splitNames(args),
		Recursive:  opts.Recursive,
		Registered: loader.Registered,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "discover tests", err)
	}

	f := opts.formatter(cmd)
	if f.JSON() {
		if cases == nil {
			cases = []harness.TestCase{}
		}
		return f.Success(cases)
	}

	w := cmd.OutOrStdout()
	if len(cases) == 0 {
		fmt.Fprintln(w, "No tests found.")
		return nil
	}
	for _, tc := range cases {
		scriptPath := tc.ScriptPath
		if scriptPath == "" {
			scriptPath = "(registered)"
		}
		fmt.Fprintf(w, "%s\t%s\n", tc.Name, scriptPath)
	}
	fmt.Fprintf(w, "%d test(s)\n", len(cases))
	return nil
}
