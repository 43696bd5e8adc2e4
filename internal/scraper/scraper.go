package scraper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pricetracker/internal/config"
)

// Failure classes of an extraction attempt. Callers branch with errors.Is;
// concrete messages carry the wrapped detail.
var (
	ErrNetwork           = errors.New("network failure")
	ErrUnsupportedDomain = errors.New("unsupported domain")
	ErrParse             = errors.New("parse failure")
)

// Desktop browser identification; some shops serve scrapers an empty shell otherwise.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Selectors locate the name and price elements on a site's product pages.
type Selectors struct {
	Name  string
	Price string
}

// Scraper fetches product pages and extracts (name, price) using the
// selector table it was configured with.
type Scraper struct {
	client    *http.Client
	selectors map[string]Selectors
}

// New wires an HTTP client and the per-domain selector table. A nil client
// gets a default one with a 10 second timeout.
func New(client *http.Client, sites []config.SiteConfig) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	selectors := make(map[string]Selectors, len(sites))
	for _, site := range sites {
		selectors[site.Domain] = Selectors{Name: site.NameSelector, Price: site.PriceSelector}
	}
	return &Scraper{client: client, selectors: selectors}
}

// Domain resolves the host part of a product URL.
func Domain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return parsed.Host, nil
}

// Extract fetches the page at rawURL and returns the product name and its
// current price. Every failure is reported as an error wrapping one of
// ErrNetwork, ErrUnsupportedDomain or ErrParse; nothing is ever panicked
// past this boundary.
func (s *Scraper) Extract(ctx context.Context, rawURL string) (string, float64, error) {
	domain, err := Domain(rawURL)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrParse, err)
	}

	sel, ok := s.selectors[domain]
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", ErrUnsupportedDomain, domain)
	}

	doc, err := s.fetchDocument(ctx, rawURL)
	if err != nil {
		return "", 0, err
	}

	nameEl := doc.Find(sel.Name).First()
	priceEl := doc.Find(sel.Price).First()
	if nameEl.Length() == 0 || priceEl.Length() == 0 {
		return "", 0, fmt.Errorf("%w: name or price element not found on %s", ErrParse, rawURL)
	}

	name := strings.TrimSpace(nameEl.Text())
	if name == "" {
		return "", 0, fmt.Errorf("%w: empty product name on %s", ErrParse, rawURL)
	}

	price, err := parsePrice(priceEl.Text())
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return name, price, nil
}

func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrNetwork, pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse document: %v", ErrParse, err)
	}

	return doc, nil
}

// parsePrice normalizes raw price text ("1 299,50 ₽", "$1,299.50") into a
// non-negative float. Digits are kept, comma and dot both count as
// separators, the last separator is the decimal point and earlier ones are
// dropped as thousands grouping.
func parsePrice(text string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == ',' || r == '.':
			return '.'
		default:
			return -1
		}
	}, text)

	if i := strings.LastIndexByte(cleaned, '.'); i >= 0 {
		cleaned = strings.ReplaceAll(cleaned[:i], ".", "") + cleaned[i:]
	}
	if cleaned == "" || cleaned == "." {
		return 0, fmt.Errorf("no digits in price text %q", text)
	}

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price text %q: %v", text, err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, fmt.Errorf("price %q is not a non-negative number", text)
	}
	return price, nil
}
