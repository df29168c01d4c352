package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/adscope/internal/utils"
	"github.com/sw33tLie/adscope/pkg/estimate"
	"github.com/sw33tLie/adscope/pkg/pipeline"
	"github.com/sw33tLie/adscope/pkg/storage"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate spend, reach and ROAS for scraped ads",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		htmlPath, _ := cmd.Flags().GetString("html")
		output, _ := cmd.Flags().GetString("output")
		lowPath, _ := cmd.Flags().GetString("low-confidence")
		saveDB, _ := cmd.Flags().GetBool("db")
		dbPath, _ := cmd.Flags().GetString("dbpath")
		keyword, _ := cmd.Flags().GetString("keyword")
		country, _ := cmd.Flags().GetString("country")
		if f := cmd.Flags().Lookup("training-file"); f != nil && f.Changed {
			v, _ := cmd.Flags().GetString("training-file")
			viper.Set("estimate.training_file", v)
		}

		list, err := loadAds(cmd.Context(), input, htmlPath, 0)
		if err != nil {
			return err
		}
		utils.Log.Infof("Running estimation for %d ads", len(list))

		var store *storage.DB
		if saveDB {
			store, err = openDB(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
		}

		p, err := newPipeline(store, nil)
		if err != nil {
			return err
		}
		source := input
		if htmlPath != "" {
			source = htmlPath
		}
		runAndReport(cmd.Context(), p, list, pipeline.RunOptions{
			OutputPath:        output,
			LowConfidencePath: lowPath,
			Keyword:           keyword,
			Country:           country,
			Source:            source,
		})
		return nil
	},
}

func printEstimates(records []estimate.Record) {
	if len(records) == 0 {
		return
	}
	fmt.Println("\nAd Metrics Estimates:")
	for i, m := range records {
		fmt.Printf("Ad #%d:\n", i+1)
		fmt.Printf("  Advertiser: %s\n", m.Advertiser)
		fmt.Printf("  Industry: %s\n", m.Industry)
		fmt.Printf("  CPC: ₹%.2f\n", m.CPC)
		fmt.Printf("  CTR: %.2f%%\n", m.CTR)
		fmt.Printf("  Conversion Rate: %.2f%%\n", m.ConvRate)
		fmt.Printf("  Estimated Spend: ₹%.2f\n", m.Spend)
		fmt.Printf("  Estimated Reach: %.2f\n", m.Reach)
		fmt.Printf("  ROAS: %.2fx\n", m.ROAS)
		if m.Note != "" {
			fmt.Printf("  Note: %s\n", m.Note)
		}
		fmt.Println()
	}
}

func init() {
	rootCmd.AddCommand(estimateCmd)
	estimateCmd.Flags().StringP("input", "i", "meta_ads_ranked.csv", "Ads CSV written by the scrape command")
	estimateCmd.Flags().String("html", "", "Saved results page to parse instead of reading --input")
	estimateCmd.Flags().StringP("output", "o", pipeline.DefaultOutputPath, "Estimates CSV file")
	estimateCmd.Flags().String("low-confidence", pipeline.DefaultLowConfidencePath, "CSV file for ads needing manual review")
	estimateCmd.Flags().Bool("db", false, "Save the run to the SQLite database")
	estimateCmd.Flags().String("dbpath", defaultDBPath, "Path to SQLite DB file")
	estimateCmd.Flags().String("training-file", "", "Labeled impressions CSV for the regression strategy (overrides estimate.training_file)")
	estimateCmd.Flags().String("keyword", "", "Keyword recorded with the run")
	estimateCmd.Flags().String("country", "", "Country recorded with the run")
}
