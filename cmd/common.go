package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/viper"
	"github.com/sw33tLie/adscope/internal/metrics"
	"github.com/sw33tLie/adscope/internal/utils"
	"github.com/sw33tLie/adscope/pkg/adlibrary"
	"github.com/sw33tLie/adscope/pkg/ads"
	"github.com/sw33tLie/adscope/pkg/estimate"
	"github.com/sw33tLie/adscope/pkg/industry"
	"github.com/sw33tLie/adscope/pkg/pipeline"
	"github.com/sw33tLie/adscope/pkg/report"
	"github.com/sw33tLie/adscope/pkg/storage"
	"github.com/sw33tLie/adscope/pkg/textnorm"
)

const defaultDBPath = "adscope.sqlite"

// proxiedClient returns a retrying client routed through --proxy, or nil when
// no proxy is set so every adapter builds its own default client.
func proxiedClient(timeout time.Duration) (*http.Client, error) {
	proxy, _ := rootCmd.PersistentFlags().GetString("proxy")
	if proxy == "" {
		return nil, nil
	}
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy string %q: %w", proxy, err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 3
	retryClient.HTTPClient.Timeout = timeout
	retryClient.HTTPClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	return retryClient.StandardClient(), nil
}

func newFetcher() (*adlibrary.Fetcher, error) {
	client, err := proxiedClient(30 * time.Second)
	if err != nil {
		return nil, err
	}
	return adlibrary.NewFetcher(adlibrary.FetchConfig{HTTPClient: client}), nil
}

// newZeroShot builds the configured provider. Failures are logged and yield a
// nil model, which the classifier treats as unavailable.
func newZeroShot(client *http.Client) industry.ZeroShot {
	model, err := industry.NewZeroShot(industry.Config{
		Provider:   viper.GetString("classifier.provider"),
		APIKey:     viper.GetString("classifier.api_key"),
		Model:      viper.GetString("classifier.model"),
		Endpoint:   viper.GetString("classifier.endpoint"),
		MaxBatch:   viper.GetInt("classifier.max_batch"),
		HTTPClient: client,
	})
	if err != nil {
		utils.Log.Warnf("Error loading zero-shot classifier: %v. Falling back to default metrics.", err)
		return nil
	}
	return model
}

func newNormalizer(client *http.Client) *textnorm.Normalizer {
	var translator textnorm.Translator
	if viper.GetBool("translator.enabled") {
		translator = textnorm.NewHTTPTranslator(textnorm.TranslatorConfig{
			Endpoint:   viper.GetString("translator.endpoint"),
			HTTPClient: client,
		})
	}
	return textnorm.New(textnorm.WhatlangDetector{}, translator, utils.Log)
}

// newPipeline wires the estimation pipeline from config. store may be nil.
func newPipeline(store *storage.DB, m *metrics.Pipeline) (*pipeline.Pipeline, error) {
	client, err := proxiedClient(60 * time.Second)
	if err != nil {
		return nil, err
	}

	rule := estimate.RuleBased{PerDayPerVariation: viper.GetFloat64("estimate.impressions_per_day")}
	return pipeline.New(pipeline.Options{
		Model:             newZeroShot(client),
		Normalizer:        newNormalizer(client),
		Threshold:         viper.GetFloat64("estimate.confidence_threshold"),
		Impressions:       estimate.NewStrategy(rule, viper.GetString("estimate.training_file"), utils.Log),
		DefaultActiveDays: viper.GetFloat64("estimate.default_active_days"),
		Store:             store,
		Metrics:           m,
		Log:               utils.Log,
	}), nil
}

// runAndReport runs the pipeline and prints the estimates. Output failures are
// logged rather than returned: the CSV writers already fall back to the temp
// dir, and a run that produced estimates must not exit non-zero.
func runAndReport(ctx context.Context, p *pipeline.Pipeline, list []ads.RawAd, opts pipeline.RunOptions) *pipeline.Result {
	res, err := p.Run(ctx, list, opts)
	if err != nil {
		utils.Log.Errorf("Run finished with errors: %v", err)
	}
	if res != nil {
		utils.Log.Infof("Metrics calculated: %d entries", len(res.Records))
		printEstimates(res.Records)
	}
	return res
}

// parseHTMLFile runs the card parser over a saved results page.
func parseHTMLFile(ctx context.Context, path string, concurrency int) (*adlibrary.ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	parser := adlibrary.NewParser(adlibrary.ParserConfig{Concurrency: concurrency, Log: utils.Log})
	return parser.Parse(ctx, f)
}

// loadAds reads ads from a saved HTML page when htmlPath is set, from an ads
// CSV otherwise.
func loadAds(ctx context.Context, input, htmlPath string, concurrency int) ([]ads.RawAd, error) {
	if htmlPath != "" {
		res, err := parseHTMLFile(ctx, htmlPath, concurrency)
		if err != nil {
			return nil, err
		}
		if len(res.Failures) > 0 {
			utils.Log.Warnf("%d card(s) could not be fully extracted", len(res.Failures))
		}
		return res.Ads, nil
	}
	list, err := report.ReadAds(input)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", input, err)
	}
	return list, nil
}

func openDB(path string) (*storage.DB, error) {
	if path == "" {
		path = defaultDBPath
	}
	return storage.Open(path)
}
