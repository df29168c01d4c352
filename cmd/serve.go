package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/adscope/internal/metrics"
	"github.com/sw33tLie/adscope/internal/server"
	"github.com/sw33tLie/adscope/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run history over a JSON API and accept new runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		dbPath, _ := cmd.Flags().GetString("dbpath")
		outputDir, _ := cmd.Flags().GetString("output-dir")

		db, err := openDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		m := metrics.New()
		p, err := newPipeline(db, m)
		if err != nil {
			return err
		}
		srv := server.New(db, m, viper.GetString("server.username"), viper.GetString("server.password"), utils.Log)
		srv.Runner = p
		srv.OutputDir = outputDir
		return srv.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("dbpath", defaultDBPath, "Path to SQLite DB file")
	serveCmd.Flags().String("output-dir", ".", "Directory for the CSV files of runs posted to /api/runs")
}
