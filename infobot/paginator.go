package infobot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	customIDSeparator       = ":"
	paginatorCustomIDPrefix = "page"
	defaultPaginatorTTL     = 15 * time.Minute

	pageActionFirst = "first"
	pageActionPrev  = "prev"
	pageActionNext  = "next"
	pageActionLast  = "last"
	pageActionStop  = "stop"

	paginatorNotOwnerMessage = "This menu isn't for you."
	paginatorExpiredMessage  = "This menu has expired."
)

// pager is the state behind a single paginated message
type pager struct {
	ownerID string
	pages   []*discordgo.MessageEmbed
	current int
	expires time.Time
}

// paginator keeps the pages of paginated messages, so buttons on them
// can flip between pages until they expire
type paginator struct {
	ttl    time.Duration
	mu     sync.Mutex
	pagers map[string]*pager
}

func newPaginator(ttl time.Duration) *paginator {
	if ttl <= 0 {
		ttl = defaultPaginatorTTL
	}
	return &paginator{ttl: ttl, pagers: map[string]*pager{}}
}

// add stores pages owned by the given user, returning the pager's ID
func (p *paginator) add(ownerID string, pages []*discordgo.MessageEmbed, now time.Time) (string, error) {
	id, err := generateRandomHexString(8)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pagers[id] = &pager{
		ownerID: ownerID,
		pages:   pages,
		expires: now.Add(p.ttl),
	}
	return id, nil
}

// respond sends the first page as the interaction's response, with
// navigation buttons if there's more than one page
func (p *paginator) respond(
	ctx context.Context,
	handler InteractionHandler,
	ownerID string,
	pages []*discordgo.MessageEmbed,
) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages")
	}
	setPageFooters(pages)
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{pages[0]},
	}
	if len(pages) > 1 {
		id, err := p.add(ownerID, pages, time.Now())
		if err != nil {
			return err
		}
		data.Components = pagerComponents(id, 0, len(pages))
	}
	return handler.Respond(
		ctx,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		},
	)
}

// setPageFooters appends "Page N/M" to the footer of each page
func setPageFooters(pages []*discordgo.MessageEmbed) {
	if len(pages) < 2 {
		return
	}
	for n, page := range pages {
		text := fmt.Sprintf("Page %d/%d", n+1, len(pages))
		if page.Footer == nil {
			page.Footer = &discordgo.MessageEmbedFooter{Text: text}
			continue
		}
		if !strings.HasSuffix(page.Footer.Text, text) {
			page.Footer.Text = strings.TrimSpace(page.Footer.Text + " • " + text)
		}
	}
}

func pagerCustomID(id string, action string) string {
	return strings.Join([]string{paginatorCustomIDPrefix, id, action}, customIDSeparator)
}

func parsePagerCustomID(customID string) (id string, action string, ok bool) {
	parts := strings.Split(customID, customIDSeparator)
	if len(parts) != 3 || parts[0] != paginatorCustomIDPrefix {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func pagerComponents(id string, current int, total int) []discordgo.MessageComponent {
	atStart := current == 0
	atEnd := current >= total-1
	buttons := []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "⏮",
			Style:    discordgo.SecondaryButton,
			CustomID: pagerCustomID(id, pageActionFirst),
			Disabled: atStart,
		},
		discordgo.Button{
			Label:    "◀",
			Style:    discordgo.PrimaryButton,
			CustomID: pagerCustomID(id, pageActionPrev),
			Disabled: atStart,
		},
		discordgo.Button{
			Label:    "▶",
			Style:    discordgo.PrimaryButton,
			CustomID: pagerCustomID(id, pageActionNext),
			Disabled: atEnd,
		},
		discordgo.Button{
			Label:    "⏭",
			Style:    discordgo.SecondaryButton,
			CustomID: pagerCustomID(id, pageActionLast),
			Disabled: atEnd,
		},
		discordgo.Button{
			Label:    "⏹",
			Style:    discordgo.DangerButton,
			CustomID: pagerCustomID(id, pageActionStop),
		},
	}
	rows := make([]discordgo.MessageComponent, 0, 1)
	for _, row := range chunkItems(discordMaxButtonsPerActionRow, buttons...) {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}
	return rows
}

// turn applies action to the pager with the given ID on behalf of
// userID, returning the response to send
func (p *paginator) turn(
	id string,
	action string,
	userID string,
	now time.Time,
) *discordgo.InteractionResponse {
	p.mu.Lock()
	defer p.mu.Unlock()

	pg, ok := p.pagers[id]
	if !ok || now.After(pg.expires) {
		delete(p.pagers, id)
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Content:    paginatorExpiredMessage,
				Components: []discordgo.MessageComponent{},
			},
		}
	}
	if pg.ownerID != userID {
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: paginatorNotOwnerMessage,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}
	}

	last := len(pg.pages) - 1
	switch action {
	case pageActionFirst:
		pg.current = 0
	case pageActionPrev:
		pg.current = max(pg.current-1, 0)
	case pageActionNext:
		pg.current = min(pg.current+1, last)
	case pageActionLast:
		pg.current = last
	case pageActionStop:
		delete(p.pagers, id)
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Embeds:     []*discordgo.MessageEmbed{pg.pages[pg.current]},
				Components: []discordgo.MessageComponent{},
			},
		}
	}
	pg.expires = now.Add(p.ttl)

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{pg.pages[pg.current]},
			Components: pagerComponents(id, pg.current, len(pg.pages)),
		},
	}
}

func (p *paginator) handleComponent(
	ctx context.Context,
	handler InteractionHandler,
	u *discordgo.User,
	customID string,
) {
	id, action, ok := parsePagerCustomID(customID)
	if !ok {
		handler.Logger().WarnContext(ctx, "invalid pager custom id", "custom_id", customID)
		return
	}
	_ = handler.Respond(ctx, p.turn(id, action, u.ID, time.Now()))
}

// sweep removes expired pagers, returning the number removed
func (p *paginator) sweep(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for id, pg := range p.pagers {
		if now.After(pg.expires) {
			delete(p.pagers, id)
			removed++
		}
	}
	return removed
}

// listPages splits lines into embeds of perPage lines each, using
// newPage to build each embed from its lines. There's always at
// least one page.
func listPages(
	lines []string,
	perPage int,
	newPage func(lines []string) *discordgo.MessageEmbed,
) []*discordgo.MessageEmbed {
	chunks := chunkItems(perPage, lines...)
	if len(chunks) == 0 {
		chunks = [][]string{nil}
	}
	pages := make([]*discordgo.MessageEmbed, 0, len(chunks))
	for _, chunk := range chunks {
		pages = append(pages, newPage(chunk))
	}
	return pages
}
