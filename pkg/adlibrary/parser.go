package adlibrary

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sw33tLie/adscope/internal/utils"
	"github.com/sw33tLie/adscope/pkg/ads"
	"golang.org/x/net/html"
)

const (
	advertiserSelector = "span[class*='x1lliihq'], span[class*='x193iq5w'], span[class*='page']"
	textSelector       = "div[class*='body'], div[class*='text'], div[class*='content'], div[class*='_7jyr'], div[class*='description']"
	linkSelector       = "a[class*='link'], a[href*='fbclid'], a[href*='facebook.com']"
)

// ParserConfig configures a Parser.
type ParserConfig struct {
	Concurrency int // defaults to 5 if <= 0
	Log         utils.Logger
	// Now anchors "Started running on" dates. Defaults to time.Now.
	Now func() time.Time
}

// Parser extracts ad cards from an ad library results page.
type Parser struct {
	concurrency int
	log         utils.Logger
	now         func() time.Time
}

// ParseResult holds the ads in document order plus any cards that could not
// be fully extracted. Failed cards are still present in Ads.
type ParseResult struct {
	Ads      []ads.RawAd
	Failures []ads.ParseFailure
}

func NewParser(cfg ParserConfig) *Parser {
	p := &Parser{
		concurrency: cfg.Concurrency,
		log:         utils.OrNop(cfg.Log),
		now:         cfg.Now,
	}
	if p.concurrency <= 0 {
		p.concurrency = 5
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Parse reads an HTML page and returns every sponsored card it contains.
// Variations are counted across the page. No deduplication happens here.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*ParseResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	cards := findCards(doc)
	p.log.Debugf("Found %d sponsored card(s)", len(cards))

	now := p.now()
	extracted, err := p.extractConcurrently(ctx, cards, now)
	if err != nil {
		return nil, err
	}

	res := &ParseResult{Ads: make([]ads.RawAd, 0, len(extracted))}
	for i, c := range extracted {
		res.Ads = append(res.Ads, c.ad)
		if c.failure != "" {
			res.Failures = append(res.Failures, ads.ParseFailure{Index: i + 1, Partial: c.ad, Err: c.failure, RawHTML: c.rawHTML})
		}
	}
	res.Ads = CountVariations(res.Ads)
	for i := range res.Failures {
		res.Failures[i].Partial.Variations = res.Ads[res.Failures[i].Index-1].Variations
	}
	return res, nil
}

func sponsoredLabels(s *goquery.Selection) *goquery.Selection {
	return s.Find("span").FilterFunction(func(_ int, span *goquery.Selection) bool {
		return strings.Contains(ownText(span), "Sponsored")
	})
}

// findCards returns one selection per card, in document order. A card is the
// closest div around a "Sponsored" label that also holds ad copy, or the
// closest div when none does. The search never crosses into a div holding
// another card's label.
func findCards(doc *goquery.Document) []*goquery.Selection {
	seen := make(map[*html.Node]bool)
	var cards []*goquery.Selection

	sponsoredLabels(doc.Selection).Each(func(_ int, label *goquery.Selection) {
		divs := label.ParentsFiltered("div")
		if divs.Length() == 0 {
			return
		}
		card := divs.First()
		divs.EachWithBreak(func(_ int, d *goquery.Selection) bool {
			if sponsoredLabels(d).Length() > 1 {
				return false
			}
			if d.Find(textSelector).Length() > 0 {
				card = d
				return false
			}
			return true
		})
		node := card.Get(0)
		if seen[node] {
			return
		}
		seen[node] = true
		cards = append(cards, card)
	})
	return cards
}

type extractedCard struct {
	ad      ads.RawAd
	failure string
	rawHTML string
}

// extractConcurrently extracts cards using a worker pool. Results keep card order.
func (p *Parser) extractConcurrently(ctx context.Context, cards []*goquery.Selection, now time.Time) ([]extractedCard, error) {
	out := make([]extractedCard, len(cards))
	if len(cards) == 0 {
		return out, nil
	}

	idxChan := make(chan int, len(cards))
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range idxChan {
				if ctx.Err() != nil {
					continue
				}
				out[idx] = extractCard(cards[idx], now)
			}
		}()
	}

	for i := range cards {
		idxChan <- i
	}
	close(idxChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func extractCard(card *goquery.Selection, now time.Time) extractedCard {
	var c extractedCard
	ad := ads.RawAd{
		Advertiser: ads.UnknownAdvertiser,
		ActiveTime: ads.UnknownActiveTime,
	}

	if s := card.Find(advertiserSelector).First(); s.Length() > 0 {
		if name := collapse(s.Text()); name != "" {
			ad.Advertiser = name
		}
	}

	var problems []string
	if s := card.Find(textSelector).First(); s.Length() > 0 {
		ad.Text = collapse(s.Text())
	} else {
		problems = append(problems, "no ad text element")
	}

	if s := card.Find(linkSelector).First(); s.Length() > 0 {
		ad.Link, _ = s.Attr("href")
	}

	card.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
		t := s.Text()
		return strings.Contains(t, "Started running on") || strings.Contains(t, " - ")
	}).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		ad.ActiveTime = collapse(s.Text())
		return false
	})

	card.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src, _ := s.Attr("src"); src != "" && !strings.HasSuffix(src, ".gif") {
			ad.ImageURLs = append(ad.ImageURLs, src)
		}
	})
	card.Find("video[src]").Each(func(_ int, s *goquery.Selection) {
		if src, _ := s.Attr("src"); src != "" {
			ad.VideoURLs = append(ad.VideoURLs, src)
		}
	})

	ad.PageID = ExtractPageID(ad.Link)
	if ad.ActiveTime != ads.UnknownActiveTime {
		ad.DaysActive = ParseActiveTime(ad.ActiveTime, now)
	}
	if ad.Advertiser == ads.UnknownAdvertiser {
		problems = append(problems, "no advertiser element")
	}

	c.ad = ad
	if len(problems) > 0 {
		c.failure = strings.Join(problems, "; ")
		c.rawHTML, _ = goquery.OuterHtml(card)
	}
	return c
}

// ownText is the text of s's direct text children.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	for n := s.Get(0).FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
