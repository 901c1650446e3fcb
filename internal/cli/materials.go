package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/ifc-lca/internal/config"
	"github.com/mvp-joe/ifc-lca/internal/matcher"
	"github.com/mvp-joe/ifc-lca/internal/storage"
)

// errNoMatchingDatabase is returned by --match when matching.database_path is unset.
var errNoMatchingDatabase = errors.New("no environmental database configured (set matching.database_path)")

var (
	materialsProjectFlag string
	materialsMatchFlag   bool
	materialsJSONFlag    bool
)

// materialsCmd represents the materials command
var materialsCmd = &cobra.Command{
	Use:   "materials",
	Short: "List the materials of an imported project",
	Long: `Materials prints the unique materials of a project with their total volume
and the number of elements that use them. Run 'ifclca import' first.

With --match every material is matched against the environmental database
configured at matching.database_path and the best candidates are listed.

Examples:
  # Material totals of the configured project
  ifclca materials

  # Match against the environmental database, as JSON
  ifclca materials --match --json
`,
	Args: cobra.NoArgs,
	RunE: runMaterials,
}

func init() {
	rootCmd.AddCommand(materialsCmd)
	materialsCmd.Flags().StringVarP(&materialsProjectFlag, "project", "p", "", "Project name (default: project.name from config)")
	materialsCmd.Flags().BoolVarP(&materialsMatchFlag, "match", "m", false, "Match materials against the environmental database")
	materialsCmd.Flags().BoolVar(&materialsJSONFlag, "json", false, "Print JSON instead of a table")
}

// materialsOptions holds the flag values of one materials invocation.
type materialsOptions struct {
	Project string
	Match   bool
	JSON    bool
}

// materialsReport is the JSON shape of the materials command.
type materialsReport struct {
	Project   string                    `json:"project"`
	Materials []storage.MaterialSummary `json:"materials"`
	Matches   []matcher.MaterialMatch   `json:"matches,omitempty"`
}

func runMaterials(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rootDir, err := workingDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(rootDir)
	if err != nil {
		return err
	}

	db, err := openDatabase(rootDir, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return listMaterials(ctx, cmd.OutOrStdout(), rootDir, cfg, db, materialsOptions{
		Project: materialsProjectFlag,
		Match:   materialsMatchFlag,
		JSON:    materialsJSONFlag,
	})
}

// loadMatcher builds a Matcher from the configured environmental database.
// Returns errNoMatchingDatabase when none is configured.
func loadMatcher(ctx context.Context, rootDir string, cfg *config.Config) (matcher.Matcher, error) {
	if cfg.Matching.DatabasePath == "" {
		return nil, errNoMatchingDatabase
	}
	path := config.ResolvePath(rootDir, cfg.Matching.DatabasePath)
	m, err := matcher.NewFromFile(ctx, path, matcher.Options{
		MaxResults: cfg.Matching.MaxResults,
		CacheSize:  cfg.Matching.CacheSize,
		Fuzziness:  cfg.Matching.Fuzziness,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load matcher: %w", err)
	}
	return m, nil
}

// listMaterials writes the material aggregate of a project to out.
func listMaterials(ctx context.Context, out io.Writer, rootDir string, cfg *config.Config, db *sql.DB, opts materialsOptions) error {
	project := opts.Project
	if project == "" {
		project = cfg.Project.Name
	}

	materials, err := storage.NewReader(db).UniqueMaterials(ctx, project)
	if err != nil {
		return err
	}
	if materials == nil {
		materials = []storage.MaterialSummary{}
	}

	var matches []matcher.MaterialMatch
	if opts.Match {
		m, err := loadMatcher(ctx, rootDir, cfg)
		if err != nil {
			return err
		}
		defer m.Close()

		matches, err = m.MatchAll(ctx, materials)
		if err != nil {
			return fmt.Errorf("failed to match materials: %w", err)
		}
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(materialsReport{Project: project, Materials: materials, Matches: matches})
	}

	if len(materials) == 0 {
		fmt.Fprintf(out, "No materials stored for project %s. Run 'ifclca import' first.\n", project)
		return nil
	}
	return writeMaterialsTable(out, materials, matches)
}

func writeMaterialsTable(out io.Writer, materials []storage.MaterialSummary, matches []matcher.MaterialMatch) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	header := "MATERIAL\tVOLUME (m3)\tELEMENTS"
	if matches != nil {
		header += "\tBEST MATCH\tSCORE"
	}
	fmt.Fprintln(tw, header)

	for i, m := range materials {
		row := fmt.Sprintf("%s\t%.3f\t%s", m.Name, m.TotalVolume, formatNumber(m.ElementCount))
		if matches != nil {
			best, score := "-", "-"
			if i < len(matches) && len(matches[i].Candidates) > 0 {
				c := matches[i].Candidates[0]
				best = fmt.Sprintf("%s (%s)", c.Name, c.ID)
				score = fmt.Sprintf("%.2f", c.Score)
			}
			row += "\t" + best + "\t" + score
		}
		fmt.Fprintln(tw, row)
	}
	return tw.Flush()
}
