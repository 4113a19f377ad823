package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/smarm/internal/manifest"
)

// ManifestOptions holds flags for the manifest command.
type ManifestOptions struct {
	*RootOptions
	List bool   // list available versions
	File string // validate an external manifest instead of a built-in version
}

// ManifestResult is the JSON form of a manifest.
type ManifestResult struct {
	ID     string   `json:"id"`
	Grants []string `json:"grants"`
	*manifest.Manifest
}

// NewManifestCommand creates the manifest command.
func NewManifestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ManifestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "manifest [version]",
		Short: "Show or validate an environment manifest",
		Long: `Show an environment manifest: its identity, allocation sizes, form
costs and every primitive with its arity, cost and grant.

With --file, the given CUE file is validated against the manifest schema
instead, which is how a new environment version is checked before it is
published.

Exit codes:
  0 - Manifest found and valid
  2 - Unknown version or invalid manifest

Examples:
  smarm manifest
  smarm manifest --list
  smarm manifest smarm/env/v1 --format json
  smarm manifest --file ./v2.cue`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			version := manifest.DefaultVersion
			if len(args) == 1 {
				version = args[0]
			}
			return runManifest(opts, version, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.List, "list", false, "list available environment versions")
	cmd.Flags().StringVar(&opts.File, "file", "", "validate a manifest file")

	return cmd
}

func runManifest(opts *ManifestOptions, version string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	if opts.List {
		versions := manifest.Versions()
		if out.Format == "json" {
			return out.Success(map[string][]string{"versions": versions})
		}
		return out.Success(strings.Join(versions, "\n"))
	}

	var (
		m   *manifest.Manifest
		err error
	)
	if opts.File != "" {
		src, readErr := os.ReadFile(opts.File)
		if readErr != nil {
			return inputError(opts.File, readErr)
		}
		m, err = manifest.Parse(opts.File, src)
	} else {
		m, err = manifest.Load(version)
	}
	if err != nil {
		_ = out.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid manifest", err)
	}

	if out.Format == "json" {
		return out.Success(ManifestResult{ID: m.ID(), Grants: m.Grants(), Manifest: m})
	}
	return writeManifestText(out, m)
}

func writeManifestText(out *OutputFormatter, m *manifest.Manifest) error {
	w := out.Writer
	fmt.Fprintf(w, "version: %s\n", m.Version)
	fmt.Fprintf(w, "id:      %s\n", m.ID())
	fmt.Fprintf(w, "depth:   %d\n", m.Limits.Depth)
	fmt.Fprintf(w, "length:  %d\n", m.Limits.Length)
	if grants := m.Grants(); len(grants) > 0 {
		fmt.Fprintf(w, "grants:  %s\n", strings.Join(grants, ", "))
	}
	fmt.Fprintf(w, "\nPrimitives (%d):\n", len(m.Primitives))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tARITY\tCOST\tGRANT")
	for _, p := range m.Primitives {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", p.Name, arityText(p), costText(p.Cost), p.Grant)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if out.Verbose {
		fmt.Fprintln(w)
		for _, p := range m.Primitives {
			fmt.Fprintf(w, "%s: %s\n", p.Name, p.Doc)
		}
	}
	return nil
}

func arityText(p manifest.Primitive) string {
	switch {
	case p.Max < 0:
		return fmt.Sprintf("%d+", p.Min)
	case p.Min == p.Max:
		return fmt.Sprintf("%d", p.Min)
	default:
		return fmt.Sprintf("%d-%d", p.Min, p.Max)
	}
}

func costText(c manifest.Cost) string {
	if c.Per == 0 {
		return fmt.Sprintf("%d", c.Base)
	}
	return fmt.Sprintf("%d+%d/%s", c.Base, c.Per, strings.TrimSuffix(c.Unit, "s"))
}
