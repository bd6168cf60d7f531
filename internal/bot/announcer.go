package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/flaree/BallsDex-DiscordBot/internal/ball"
	"github.com/flaree/BallsDex-DiscordBot/internal/game"
)

const catchButtonId = "catch_button"

// Announcer posts spawn announcements over the Discord REST API and maps
// the transport errors onto the game's failure sentinels.
type Announcer struct {
	s       *discordgo.Session
	catalog *ball.Catalog
}

var _ game.Announcer = (*Announcer)(nil)

func NewAnnouncer(s *discordgo.Session, catalog *ball.Catalog) *Announcer {
	return &Announcer{s: s, catalog: catalog}
}

func (a *Announcer) PostAnnouncement(ctx context.Context, channelId string, b ball.Ball, sp *ball.Special) (string, error) {
	embed := &discordgo.MessageEmbed{
		Title:       "A wild countryball appeared!",
		Description: "Catch it by clicking the button below, or by replying to this message with its name!",
		Color:       ball.ColorForTier(ball.Tier(b, a.catalog.Enabled())),
	}
	if b.Image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: b.Image}
	}
	if sp != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("✨ %s event ✨", sp.Name)}
	}

	msg, err := a.s.ChannelMessageSendComplex(channelId, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Catch me!",
						Style:    discordgo.PrimaryButton,
						CustomID: catchButtonId,
					},
				},
			},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapRESTError(err)
	}
	return msg.ID, nil
}

func mapRESTError(err error) error {
	rerr, ok := err.(*discordgo.RESTError)
	if !ok || rerr.Message == nil {
		return err
	}
	switch rerr.Message.Code {
	case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
		return fmt.Errorf("%w: %v", game.ErrAnnounceForbidden, err)
	case discordgo.ErrCodeUnknownChannel:
		return fmt.Errorf("%w: %v", game.ErrChannelGone, err)
	}
	return err
}
