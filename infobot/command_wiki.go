package infobot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"github.com/tidwall/gjson"
)

const (
	wikiNotFoundMessage = "I couldn't find that on wikipedia."
	wikiLogoURL         = "https://upload.wikimedia.org/wikipedia/commons/thumb/8/80/Wikipedia-logo-v2.svg/2244px-Wikipedia-logo-v2.svg.png"
	wikiMaxBodySize     = 1 << 20
)

var ErrWikiNotFound = errors.New("wikipedia page not found")

// WikiSummary is the summary of a Wikipedia page
type WikiSummary struct {
	Title     string
	Extract   string
	URL       string
	Thumbnail string
}

// WikiClient fetches page summaries from the Wikipedia REST API
type WikiClient struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string
}

func NewWikiClient(baseURL string, client *http.Client, userAgent string) *WikiClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &WikiClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    client,
		UserAgent: userAgent,
	}
}

func wikiTitle(query string) string {
	return url.PathEscape(strings.ReplaceAll(strings.TrimSpace(query), " ", "_"))
}

// Summary returns the summary of the page matching query, following
// redirects. ErrWikiNotFound is returned if there's no such page.
func (w *WikiClient) Summary(ctx context.Context, query string) (*WikiSummary, error) {
	endpoint := fmt.Sprintf("%s/page/summary/%s?redirect=true", w.BaseURL, wikiTitle(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if w.UserAgent != "" {
		req.Header.Set("User-Agent", w.UserAgent)
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrWikiNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status from %s: %s", endpoint, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, wikiMaxBodySize))
	if err != nil {
		return nil, err
	}
	return parseWikiSummary(body)
}

func parseWikiSummary(body []byte) (*WikiSummary, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid wikipedia response")
	}
	result := gjson.ParseBytes(body)
	extract := strings.TrimSpace(result.Get("extract").String())
	if extract == "" {
		return nil, ErrWikiNotFound
	}
	return &WikiSummary{
		Title:     result.Get("title").String(),
		Extract:   extract,
		URL:       result.Get("content_urls.desktop.page").String(),
		Thumbnail: result.Get("thumbnail.source").String(),
	}, nil
}

func wikiEmbed(query string, s *WikiSummary) *discordgo.MessageEmbed {
	thumbnail := s.Thumbnail
	if thumbnail == "" {
		thumbnail = wikiLogoURL
	}
	return &discordgo.MessageEmbed{
		Title:       truncate(fmt.Sprintf("Wikipedia - %s", query), 256),
		URL:         s.URL,
		Description: shortenString(s.Extract, discordMaxEmbedDescriptionSize),
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: thumbnail},
	}
}

func (ib *InfoBot) commandWiki(ctx context.Context, handler InteractionHandler, _ *User) {
	_, opts := commandOptions(handler.GetInteraction().ApplicationCommandData().Options)
	query := strings.TrimSpace(stringPointerValue(optionString(opts, wikiOptionQuery)))
	if query == "" {
		_ = respondContent(ctx, handler, true, wikiNotFoundMessage)
		return
	}
	if err := deferResponse(ctx, handler, false); err != nil {
		return
	}

	summary, err := ib.wiki.Summary(ctx, query)
	if err != nil {
		if !errors.Is(err, ErrWikiNotFound) {
			handler.Logger().ErrorContext(ctx, "error fetching wikipedia summary", tint.Err(err))
		}
		_ = editContent(ctx, handler, wikiNotFoundMessage)
		return
	}
	_ = editEmbeds(ctx, handler, wikiEmbed(query, summary))
}
