package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/sw33tLie/adscope/pkg/storage"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the adscope run history database",
}

func openExistingDB(cmd *cobra.Command) (*storage.DB, string, error) {
	dbPath, _ := cmd.Flags().GetString("dbpath")
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, dbPath, fmt.Errorf("database file not found: %s", dbPath)
	}
	db, err := storage.Open(dbPath)
	return db, dbPath, err
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	Long:  "Starts sqlite3 on the database when it is installed, a minimal built-in SQL prompt otherwise.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("dbpath")
		if dbPath == "" {
			dbPath = defaultDBPath
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", dbPath)
		}

		if sqlitePath, err := exec.LookPath("sqlite3"); err == nil {
			// Print schema first
			fmt.Println("--> Database schema:")
			schemaCmd := exec.Command(sqlitePath, dbPath, ".schema")
			schemaCmd.Stdout = os.Stdout
			schemaCmd.Stderr = os.Stderr
			if err := schemaCmd.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
			}
			fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

			c := exec.Command(sqlitePath, dbPath)
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			return c.Run()
		}

		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Println("--> sqlite3 not found in PATH, using the built-in prompt. One statement per line, Ctrl+D to exit.")
		return builtinShell(cmd.Context(), db)
	},
}

func builtinShell(ctx context.Context, db *storage.DB) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("adscope> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		stmt := strings.TrimSpace(scanner.Text())
		if stmt == "" {
			continue
		}
		if stmt == ".exit" || stmt == ".quit" {
			return nil
		}

		upper := strings.ToUpper(stmt)
		if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "PRAGMA") || strings.HasPrefix(upper, "WITH") {
			cols, rows, err := db.Query(ctx, stmt)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			printRows(cols, rows)
			continue
		}
		n, err := db.Exec(ctx, stmt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Printf("%d row(s) affected\n", n)
	}
}

func printRows(cols []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = runewidth.Truncate(c, 40, "...")
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints statistics about the runs and estimates in the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openExistingDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}

		if stats.Runs == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "INDUSTRY\tADS\tAVG SPEND\tAVG ROAS\t")
		for _, s := range stats.ByIndustry {
			fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t\n", runewidth.Truncate(s.Industry, 32, "..."), s.Ads, s.AvgSpend, s.AvgROAS)
		}
		fmt.Fprintln(w, " \t \t \t \t")
		fmt.Fprintf(w, "RUNS\t%d\t\t\t\n", stats.Runs)
		fmt.Fprintf(w, "ESTIMATES\t%d\t\t\t\n", stats.Estimates)
		fmt.Fprintf(w, "LOW CONFIDENCE\t%d\t\t\t\n", stats.LowConfidence)

		w.Flush()
		return nil
	},
}

// runsCmd lists the latest runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Lists the most recent estimation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db, _, err := openExistingDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tKEYWORD\tCOUNTRY\tINPUT\tESTIMATES\tLOW CONF\tTOTAL SPEND")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%.2f\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04"), runewidth.Truncate(r.Keyword, 24, "..."), r.Country,
				r.InputCount, r.EstimateCount, r.LowConfidenceCount, r.TotalSpend)
		}
		w.Flush()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(statsCmd)
	dbCmd.AddCommand(runsCmd)
	dbCmd.PersistentFlags().String("dbpath", defaultDBPath, "Path to SQLite DB file")
	runsCmd.Flags().Int("limit", 20, "Number of runs to list")
}
