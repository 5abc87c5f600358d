package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sagarc03/teststand"
	"github.com/sagarc03/teststand/config"
	"github.com/sagarc03/teststand/database"
	"github.com/sagarc03/teststand/host"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create and migrate ephemeral databases",
	Long: `Create an ephemeral copy of each database named by --stand, apply the
migrations from its directory and print the connection URLs of the copies.

Each --stand takes the form name=migrations_dir, where name selects the
databases.<name> table of the configuration. Provisioned databases are
never dropped.`,
	Example: `  teststand provision --stand app=./migrations
  teststand provision --stand app=./migrations --stand audit=./audit/migrations --format env`,
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().StringArray("stand", nil, "database to provision, as name=migrations_dir (repeatable)")
	provisionCmd.Flags().String("driver", "", "database driver: postgres, mysql, sqlite (default: inferred from each url)")
	provisionCmd.Flags().String("format", "yaml", "output format: yaml, env")
	_ = provisionCmd.MarkFlagRequired("stand")

	rootCmd.AddCommand(provisionCmd)
}

type standSpec struct {
	name          string
	migrationPath string
}

func parseStandSpecs(values []string) ([]standSpec, error) {
	specs := make([]standSpec, 0, len(values))
	seen := make(map[string]bool, len(values))

	for _, v := range values {
		name, dir, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		dir = strings.TrimSpace(dir)
		if !ok || name == "" || dir == "" {
			return nil, fmt.Errorf("invalid --stand %q: expected name=migrations_dir", v)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate --stand %q", name)
		}
		seen[name] = true
		specs = append(specs, standSpec{name: name, migrationPath: dir})
	}

	return specs, nil
}

func runProvision(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tree, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	values, _ := cmd.Flags().GetStringArray("stand")
	specs, err := parseStandSpecs(values)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format != "yaml" && format != "env" {
		return fmt.Errorf("unsupported format: %s", format)
	}

	driver, _ := cmd.Flags().GetString("driver")
	p, err := database.New(driver, slog.Default())
	if err != nil {
		return err
	}

	h := host.New(tree)
	for _, spec := range specs {
		h.Attach(teststand.New(spec.name, spec.migrationPath, p))
	}

	slog.Info("provisioning databases", "count", len(specs), "workers", h.Workers())

	ignited, err := h.Ignite(ctx)
	if err != nil {
		return err
	}

	urls := make(map[string]string, len(specs))
	for _, spec := range specs {
		urls[spec.name] = ignited.Config().GetString("databases." + spec.name + ".url")
	}

	if format == "env" {
		return writeEnv(cmd.OutOrStdout(), urls)
	}
	return writeYAML(cmd.OutOrStdout(), urls)
}

func writeYAML(w io.Writer, urls map[string]string) error {
	databases := make(map[string]map[string]string, len(urls))
	for name, url := range urls {
		databases[name] = map[string]string{"url": url}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"databases": databases}); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// writeEnv prints one TESTSTAND_DATABASES_<NAME>_URL line per database. Exported into
// the environment of a later run, each line overrides databases.<name>.url.
func writeEnv(w io.Writer, urls map[string]string) error {
	names := make([]string, 0, len(urls))
	for name := range urls {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := config.EnvPrefix + "_DATABASES_" + strings.ToUpper(name) + "_URL"
		if _, err := fmt.Fprintf(w, "%s=%s\n", key, urls[name]); err != nil {
			return fmt.Errorf("write env: %w", err)
		}
	}
	return nil
}
