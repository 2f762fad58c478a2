// Package news supplies the "world" section of a morning gist.
package news

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jimdaga/morning-gist/internal/models"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"
)

// MaxItems caps the world section.
const MaxItems = 3

const maxImplicationRunes = 200

// textOnly drops every element, along with script and style bodies.
var textOnly = newTextOnlyPolicy()

func newTextOnlyPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// FeedsConfig maps a news domain (e.g. "Tech") to RSS or Atom feed URLs.
type FeedsConfig struct {
	Domains map[string][]string `yaml:"domains"`
}

// LoadFeeds reads a feeds YAML file. Unknown keys are rejected.
func LoadFeeds(path string) (*FeedsConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading feeds file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var cfg FeedsConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing feeds file: %w", err)
	}
	return &cfg, nil
}

// Placeholders is the fixed world section used when no feed yields items.
func Placeholders() []models.WorldItem {
	return []models.WorldItem{
		{
			Headline:    "Headline placeholder — one-line implication.",
			Implication: "Why it matters: a plain-language takeaway that prevents doomscrolling.",
		},
		{
			Headline:    "Headline placeholder — one-line implication.",
			Implication: "Why it matters: signal vs noise in one sentence.",
		},
	}
}

// Source turns configured feeds into world items.
type Source struct {
	feeds  map[string][]string // keyed by lower-cased domain
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewSource creates a source. A nil cfg always yields placeholders.
func NewSource(cfg *FeedsConfig, logger *slog.Logger) *Source {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 15 * time.Second}

	s := &Source{
		feeds:  make(map[string][]string),
		parser: parser,
		logger: logger,
	}
	if cfg != nil {
		for domain, urls := range cfg.Domains {
			key := strings.ToLower(strings.TrimSpace(domain))
			s.feeds[key] = append(s.feeds[key], urls...)
		}
	}
	return s
}

// Items returns up to MaxItems headlines, one per domain in order. It never
// fails; feed errors are logged and the placeholders stand in.
func (s *Source) Items(ctx context.Context, domains []string) []models.WorldItem {
	var items []models.WorldItem

	for _, domain := range domains {
		if len(items) >= MaxItems {
			break
		}
		urls := s.feeds[strings.ToLower(strings.TrimSpace(domain))]
		if item, ok := s.firstItem(ctx, domain, urls); ok {
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		return Placeholders()
	}
	return items
}

func (s *Source) firstItem(ctx context.Context, domain string, urls []string) (models.WorldItem, bool) {
	for _, url := range urls {
		feed, err := s.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			s.logger.Warn("Failed to fetch news feed", "domain", domain, "url", url, "error", err)
			continue
		}
		for _, it := range feed.Items {
			if it == nil || strings.TrimSpace(it.Title) == "" {
				continue
			}
			return toWorldItem(domain, it), true
		}
	}
	return models.WorldItem{}, false
}

func toWorldItem(domain string, it *gofeed.Item) models.WorldItem {
	sentence := firstSentence(it.Description)
	if sentence == "" {
		sentence = firstSentence(it.Content)
	}
	if sentence == "" {
		sentence = fmt.Sprintf("one to watch in %s.", domain)
	}
	return models.WorldItem{
		Headline:    strings.TrimSpace(html.UnescapeString(it.Title)),
		Implication: "Why it matters: " + sentence,
	}
}

// firstSentence strips markup and returns the text up to the first sentence
// terminator, bounded in length.
func firstSentence(s string) string {
	text := strings.Join(strings.Fields(html.UnescapeString(textOnly.Sanitize(s))), " ")
	if text == "" {
		return ""
	}

	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next == len(text) || text[next] == ' ' {
			text = text[:next]
			break
		}
	}

	if utf8.RuneCountInString(text) > maxImplicationRunes {
		text = string([]rune(text)[:maxImplicationRunes]) + "…"
	}
	return text
}
