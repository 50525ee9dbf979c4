package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"CampaignScraper/internal/models"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var errNoChannel = errors.New("no channel configured")

// DiscordOptions configures the Discord channel.
type DiscordOptions struct {
	ChannelID     string
	UserID        string // only this user may answer prompts; empty allows anyone
	CleanupMinAge time.Duration
	CleanupMaxAge time.Duration
	CleanupLimit  int
	DeleteRate    float64 // deletions per second during cleanup
}

// Discord posts notifications and prompts to one text channel through a bot session.
type Discord struct {
	session *discordgo.Session
	opts    DiscordOptions
	limiter *rate.Limiter
	now     func() time.Time

	addHandler func(answerHandler) func()
}

type answerHandler func(*discordgo.Session, *discordgo.InteractionCreate)

// NewDiscordSession creates a bot session for token. The caller opens the
// gateway with Open when prompts need to receive button interactions.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("discord token is empty")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	return s, nil
}

// NewDiscord wraps an existing session.
func NewDiscord(session *discordgo.Session, opts DiscordOptions) *Discord {
	if opts.CleanupLimit <= 0 || opts.CleanupLimit > 100 {
		opts.CleanupLimit = 100
	}
	if opts.DeleteRate <= 0 {
		opts.DeleteRate = 2
	}
	return &Discord{
		session: session,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.DeleteRate), 1),
		now:     time.Now,
		addHandler: func(h answerHandler) func() {
			return session.AddHandler((func(*discordgo.Session, *discordgo.InteractionCreate))(h))
		},
	}
}

func (d *Discord) Name() string { return "discord" }

// Send posts msg to the configured channel, with an embed when a product is attached.
func (d *Discord) Send(ctx context.Context, msg Message) error {
	if d.opts.ChannelID == "" {
		return &ChannelNotFoundError{Err: errNoChannel}
	}
	data := &discordgo.MessageSend{Content: msg.Text}
	if embed := productEmbed(msg.Product); embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{embed}
	}
	if _, err := d.session.ChannelMessageSendComplex(d.opts.ChannelID, data, discordgo.WithContext(ctx)); err != nil {
		return d.wrapErr(err)
	}
	return nil
}

// Ask posts the prompt with Yes/No buttons and waits for the configured user to press one.
func (d *Discord) Ask(ctx context.Context, p Prompt) (bool, error) {
	if d.opts.ChannelID == "" {
		return false, &ChannelNotFoundError{Err: errNoChannel}
	}

	token := uuid.NewString()
	yesID, noID := "order_yes_"+token, "order_no_"+token

	data := &discordgo.MessageSend{
		Content: p.Text,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Yes", Style: discordgo.SuccessButton, CustomID: yesID},
				discordgo.Button{Label: "No", Style: discordgo.DangerButton, CustomID: noID},
			}},
		},
	}
	product := p.Product
	if embed := productEmbed(&product); embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{embed}
	}

	answers := make(chan bool, 1)
	remove := d.addHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		yes, ok := d.matchAnswer(i, yesID, noID)
		if !ok {
			return
		}
		select {
		case answers <- yes:
		default:
			return
		}
		reply := fmt.Sprintf("Ordering **%s**...", p.Product.Title)
		if !yes {
			reply = fmt.Sprintf("Skipped **%s**.", p.Product.Title)
		}
		if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: reply, Flags: discordgo.MessageFlagsEphemeral},
		}); err != nil {
			log.Printf("[discord] failed to acknowledge answer for %q: %v", p.Product.Title, err)
		}
	})
	defer remove()

	// The handler is registered first so an immediate press is not lost.
	msg, err := d.session.ChannelMessageSendComplex(d.opts.ChannelID, data, discordgo.WithContext(ctx))
	if err != nil {
		return false, d.wrapErr(err)
	}

	select {
	case yes := <-answers:
		return yes, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
			defer cancel()
			if _, err := d.session.ChannelMessageSendReply(d.opts.ChannelID,
				fmt.Sprintf("Time is over for **%s**.", p.Product.Title), msg.Reference(),
				discordgo.WithContext(replyCtx)); err != nil {
				log.Printf("[discord] failed to post timeout reply: %v", err)
			}
		}
		return false, ctx.Err()
	}
}

// matchAnswer reports whether i is a button press on this prompt by the allowed user.
func (d *Discord) matchAnswer(i *discordgo.InteractionCreate, yesID, noID string) (yes bool, ok bool) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionMessageComponent {
		return false, false
	}
	if d.opts.UserID != "" {
		user := i.User
		if i.Member != nil && i.Member.User != nil {
			user = i.Member.User
		}
		if user == nil || user.ID != d.opts.UserID {
			return false, false
		}
	}
	switch i.MessageComponentData().CustomID {
	case yesID:
		return true, true
	case noID:
		return false, true
	default:
		return false, false
	}
}

// CleanupExpired deletes bot messages older than CleanupMinAge and younger
// than CleanupMaxAge among the most recent CleanupLimit messages.
func (d *Discord) CleanupExpired(ctx context.Context) (int, error) {
	if d.opts.ChannelID == "" {
		return 0, &ChannelNotFoundError{Err: errNoChannel}
	}
	messages, err := d.session.ChannelMessages(d.opts.ChannelID, d.opts.CleanupLimit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, d.wrapErr(err)
	}

	var botID string
	if d.session.State != nil && d.session.State.User != nil {
		botID = d.session.State.User.ID
	}

	now := d.now()
	deleted := 0
	for _, m := range messages {
		if m.Author == nil || !m.Author.Bot {
			continue
		}
		if botID != "" && m.Author.ID != botID {
			continue
		}
		age := now.Sub(m.Timestamp)
		if age <= d.opts.CleanupMinAge || (d.opts.CleanupMaxAge > 0 && age >= d.opts.CleanupMaxAge) {
			continue
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return deleted, err
		}
		if err := d.session.ChannelMessageDelete(d.opts.ChannelID, m.ID, discordgo.WithContext(ctx)); err != nil {
			log.Printf("[discord] failed to delete message %s: %v", m.ID, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (d *Discord) wrapErr(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return &ChannelNotFoundError{ChannelID: d.opts.ChannelID, Err: err}
	}
	return err
}

func productEmbed(p *models.EventProduct) *discordgo.MessageEmbed {
	if p == nil || (p.ImageURL == "" && p.Price == "") {
		return nil
	}
	embed := &discordgo.MessageEmbed{Title: p.Title, URL: p.Href}
	if p.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: p.ImageURL}
	}
	if p.Price != "" {
		embed.Description = "Price: " + strings.TrimSpace(p.Price)
	}
	return embed
}
