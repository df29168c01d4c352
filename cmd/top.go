package cmd

import (
	"context"
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/sw33tLie/adscope/internal/utils"
	"github.com/sw33tLie/adscope/pkg/adlibrary"
	"github.com/sw33tLie/adscope/pkg/ads"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Rank scraped ads by active time",
	Long:  "Prints the longest running ads of a scrape, one per ad link, and optionally downloads their creatives.",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		n, _ := cmd.Flags().GetInt("n")
		download, _ := cmd.Flags().GetBool("download")
		mediaDir, _ := cmd.Flags().GetString("media-dir")

		list, err := loadAds(cmd.Context(), input, "", 0)
		if err != nil {
			return err
		}
		return showTop(cmd.Context(), list, n, download, mediaDir)
	},
}

// showTop prints the top n ads and downloads their media when asked to.
func showTop(ctx context.Context, list []ads.RawAd, n int, download bool, mediaDir string) error {
	if len(list) == 0 {
		utils.Log.Warn("No ads to rank.")
		return nil
	}
	top := adlibrary.TopN(list, n)
	if len(top) == 0 {
		utils.Log.Warn("No ads with valid text to rank.")
		return nil
	}

	fmt.Printf("\nTop %d Ads Based on Active Time:\n", len(top))
	for i, ad := range top {
		domain, ok := adlibrary.LandingDomain(ad.Link)
		if !ok {
			domain = "-"
		}
		fmt.Printf("%d. Advertiser: %s\n", i+1, ad.Advertiser)
		fmt.Printf("   Ad Text: %s\n", runewidth.Truncate(ad.Text, 100, "..."))
		fmt.Printf("   Ad Link: %s (%s)\n", ad.Link, domain)
		fmt.Printf("   Page ID: %s\n", ad.PageID)
		fmt.Printf("   Active Time: %s (%.2f days active)\n", ad.ActiveTime, ad.DaysActive)
		fmt.Printf("   Ad Variations: %d\n", ad.VariationCount())
		fmt.Printf("   Images: %d found\n", len(ad.ImageURLs))
		fmt.Printf("   Videos: %d found\n\n", len(ad.VideoURLs))
	}

	if !download {
		return nil
	}
	fetcher, err := newFetcher()
	if err != nil {
		return err
	}
	saved := adlibrary.NewDownloader(fetcher, mediaDir, utils.Log).DownloadAll(ctx, top)
	utils.Log.Infof("Saved %d media file(s) to %s", len(saved), mediaDir)
	return nil
}

func init() {
	rootCmd.AddCommand(topCmd)
	topCmd.Flags().StringP("input", "i", "meta_ads_ranked.csv", "Ads CSV written by the scrape command")
	topCmd.Flags().IntP("n", "n", 5, "Number of ads to show")
	topCmd.Flags().Bool("download", false, "Download images and videos of the ranked ads")
	topCmd.Flags().String("media-dir", "ad_media", "Folder for downloaded media")
}
