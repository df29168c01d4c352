package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/adscope/internal/utils"
	"github.com/sw33tLie/adscope/pkg/adlibrary"
	"github.com/sw33tLie/adscope/pkg/pipeline"
	"github.com/sw33tLie/adscope/pkg/report"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract ads from an ad library results page",
	Long: `Parses a rendered ad library results page, saved to disk with --html or fetched
statically with --url, and writes every sponsored card to a CSV file.

Without --html or --url the keyword search URL is fetched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		keyword, _ := cmd.Flags().GetString("keyword")
		country, _ := cmd.Flags().GetString("country")
		htmlPath, _ := cmd.Flags().GetString("html")
		pageURL, _ := cmd.Flags().GetString("url")
		output, _ := cmd.Flags().GetString("output")
		debugLog, _ := cmd.Flags().GetString("debug-log")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		topN, _ := cmd.Flags().GetInt("top")
		download, _ := cmd.Flags().GetBool("download")
		mediaDir, _ := cmd.Flags().GetString("media-dir")
		runEstimate, _ := cmd.Flags().GetBool("estimate")

		ctx := cmd.Context()
		var res *adlibrary.ParseResult
		var err error
		source := htmlPath

		if htmlPath != "" {
			res, err = parseHTMLFile(ctx, htmlPath, concurrency)
		} else {
			if pageURL == "" {
				pageURL = adlibrary.SearchURL(keyword, country)
			}
			source = pageURL
			res, err = fetchAndParse(cmd, pageURL, concurrency)
		}
		if err != nil {
			return err
		}

		utils.Log.Infof("Total ads extracted: %d", len(res.Ads))
		if len(res.Ads) == 0 {
			utils.Log.Warn("No data to save.")
			return nil
		}

		w := report.NewWriter(report.Options{Log: utils.Log})
		if err := w.WriteAds(output, res.Ads); err != nil {
			return fmt.Errorf("saving ads: %w", err)
		}
		utils.Log.Infof("Saved %d ads to %s", len(res.Ads), output)
		if len(res.Failures) > 0 {
			if err := w.WriteDebugLog(debugLog, res.Failures); err != nil {
				utils.Log.Errorf("Failed to write debug log: %v", err)
			} else {
				utils.Log.Infof("Logged %d card error(s) to %s", len(res.Failures), debugLog)
			}
		}

		if err := showTop(ctx, res.Ads, topN, download, mediaDir); err != nil {
			return err
		}

		if !runEstimate {
			return nil
		}
		p, err := newPipeline(nil, nil)
		if err != nil {
			return err
		}
		runAndReport(ctx, p, res.Ads, pipeline.RunOptions{Keyword: keyword, Country: country, Source: source})
		return nil
	},
}

func fetchAndParse(cmd *cobra.Command, pageURL string, concurrency int) (*adlibrary.ParseResult, error) {
	fetcher, err := newFetcher()
	if err != nil {
		return nil, err
	}
	utils.Log.Infof("Fetching %s", pageURL)
	page, err := fetcher.FetchPage(cmd.Context(), pageURL)
	if err != nil {
		return nil, err
	}
	utils.Log.Debugf("Page title: %s", page.Title)

	parser := adlibrary.NewParser(adlibrary.ParserConfig{Concurrency: concurrency, Log: utils.Log})
	return parser.Parse(cmd.Context(), strings.NewReader(page.Body))
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.Flags().StringP("keyword", "k", "Spain Incorporation", "Search keyword")
	scrapeCmd.Flags().StringP("country", "c", "IN", "Country code, empty for ALL")
	scrapeCmd.Flags().String("html", "", "Saved results page to parse instead of fetching")
	scrapeCmd.Flags().StringP("url", "u", "", "Results page URL to fetch (defaults to the keyword search)")
	scrapeCmd.Flags().StringP("output", "o", "meta_ads_ranked.csv", "Output CSV file")
	scrapeCmd.Flags().String("debug-log", "scrape_debug_log.csv", "CSV file for cards that failed extraction")
	scrapeCmd.Flags().Int("concurrency", 5, "Number of concurrent card extractors")
	scrapeCmd.Flags().Int("top", 5, "Number of top ads to print")
	scrapeCmd.Flags().Bool("download", false, "Download images and videos of the top ads")
	scrapeCmd.Flags().String("media-dir", "ad_media", "Folder for downloaded media")
	scrapeCmd.Flags().Bool("estimate", false, "Run the metric estimation on the scraped ads")
}
