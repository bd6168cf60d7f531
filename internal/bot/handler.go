package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/flaree/BallsDex-DiscordBot/internal/ball"
	"github.com/flaree/BallsDex-DiscordBot/internal/game"
	"github.com/flaree/BallsDex-DiscordBot/internal/session"
	"github.com/flaree/BallsDex-DiscordBot/internal/store"
)

const catchModalPrefix = "catch_modal:"

type module struct {
	s          *discordgo.Session
	appId      string
	scopeGuild string
	core       *game.Core
	store      store.Store
}

func Setup(
	sess *discordgo.Session,
	appId, scopeGuild string,
	core *game.Core,
	st store.Store,
) (func(), error) {

	m := &module{
		s:          sess,
		appId:      appId,
		scopeGuild: scopeGuild,
		core:       core,
		store:      st,
	}

	cmds := commandDefs()

	created, err := sess.ApplicationCommandBulkOverwrite(appId, scopeGuild, cmds)
	if err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	for _, c := range created {
		log.Printf("command active: %s (%s)", c.Name, c.Description)
	}

	removeMsg := sess.AddHandler(m.onMessageCreate)
	removeInt := sess.AddHandler(m.onInteraction)

	return func() {
		removeMsg()
		removeInt()
	}, nil
}

func (m *module) onMessageCreate(s *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.GuildID == "" {
		return
	}
	isBot := msg.Author.Bot || msg.WebhookID != ""

	// A reply to a spawn announcement is a catch attempt.
	if !isBot && msg.MessageReference != nil && msg.MessageReference.MessageID != "" {
		m.handleReplyAttempt(s, msg)
	}

	ev, err := m.core.OnMessage(context.Background(), game.Message{
		GuildId:   toInt64(msg.GuildID),
		ChannelId: msg.ChannelID,
		AuthorId:  toInt64(msg.Author.ID),
		IsBot:     isBot,
	})
	if err != nil {
		log.Printf("spawn failed in guild %s: %v", msg.GuildID, err)
		return
	}
	if ev != nil {
		log.Printf("spawned %s in guild %d (session %s)", ev.Ball.Country, ev.GuildId, ev.Key)
	}
}

func (m *module) handleReplyAttempt(s *discordgo.Session, msg *discordgo.MessageCreate) {
	result, caught, err := m.core.OnCatchAttempt(
		context.Background(),
		msg.MessageReference.MessageID,
		msg.Content,
		toInt64(msg.Author.ID),
	)
	if err != nil {
		log.Printf("catch attempt failed: %v", err)
		m.reply(s, msg, "Something went wrong, try again!")
		return
	}

	switch result {
	case session.ResultAccepted:
		m.reply(s, msg, caughtText(msg.Author.Mention(), caught))
		m.disableCatchButton(s, msg.ChannelID, msg.MessageReference.MessageID)
	case session.ResultAlreadyCaught:
		m.reply(s, msg, "I was caught already!")
	case session.ResultWrongName:
		m.reply(s, msg, fmt.Sprintf("Wrong name! You tried: %s", msg.Content))
	}
	// NoSuchSession: the reply wasn't aimed at a live spawn, stay quiet.
}

func (m *module) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "config":
			m.handleConfig(s, i)
		case "spawnstate":
			m.handleSpawnState(s, i)
		case "reload":
			m.handleReload(s, i)
		case "leaderboard":
			m.handleLeaderboard(s, i)
		}
	case discordgo.InteractionMessageComponent:
		if i.MessageComponentData().CustomID == catchButtonId {
			m.openCatchModal(s, i)
		}
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		if key, ok := strings.CutPrefix(data.CustomID, catchModalPrefix); ok {
			m.handleModalAttempt(s, i, key, modalInput(data))
		}
	}
}

func (m *module) openCatchModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: catchModalPrefix + i.Message.ID,
			Title:    "Catch this countryball!",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "ball_name",
							Label:       "Name of this countryball",
							Style:       discordgo.TextInputShort,
							Required:    true,
							MaxLength:   100,
							Placeholder: "Brazil",
						},
					},
				},
			},
		},
	})
	if err != nil {
		logREST("modal open failed", err)
	}
}

func (m *module) handleModalAttempt(s *discordgo.Session, i *discordgo.InteractionCreate, key, candidate string) {
	authorId := interactionUserId(i)

	result, caught, err := m.core.OnCatchAttempt(context.Background(), key, candidate, toInt64(authorId))
	if err != nil {
		log.Printf("catch attempt failed: %v", err)
		respondEphemeral(s, i, "Something went wrong, try again!")
		return
	}

	switch result {
	case session.ResultAccepted:
		respondPublic(s, i, caughtText("<@"+authorId+">", caught))
		m.disableCatchButton(s, i.ChannelID, key)
	case session.ResultAlreadyCaught:
		respondEphemeral(s, i, "I was caught already!")
	case session.ResultWrongName:
		respondEphemeral(s, i, fmt.Sprintf("Wrong name! You tried: %s", candidate))
	case session.ResultNoSuchSession:
		respondEphemeral(s, i, "This countryball is gone!")
	}
}

func (m *module) handleConfig(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}
	guildId := toInt64(i.GuildID)
	sub := i.ApplicationCommandData().Options[0]

	switch sub.Name {
	case "channel":
		ch := sub.Options[0].ChannelValue(s)
		if ch == nil || ch.Type != discordgo.ChannelTypeGuildText {
			respondEphemeral(s, i, "Pick a text channel.")
			return
		}
		if err := m.core.AdminSetSpawnChannel(context.Background(), guildId, ch.ID); err != nil {
			log.Printf("config channel failed: %v", err)
			respondEphemeral(s, i, "Failed to save the configuration.")
			return
		}
		respondEphemeral(s, i, fmt.Sprintf("Countryballs will now spawn in <#%s>.", ch.ID))
	case "enable":
		if err := m.core.AdminSetEnabled(context.Background(), guildId, true); err != nil {
			log.Printf("config enable failed: %v", err)
			respondEphemeral(s, i, "Failed to save the configuration.")
			return
		}
		respondEphemeral(s, i, "Countryball spawning enabled.")
	case "disable":
		if err := m.core.AdminSetEnabled(context.Background(), guildId, false); err != nil {
			log.Printf("config disable failed: %v", err)
			respondEphemeral(s, i, "Failed to save the configuration.")
			return
		}
		respondEphemeral(s, i, "Countryball spawning disabled.")
	}
}

func (m *module) handleSpawnState(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}
	snap, ok := m.core.ExplainGuildState(toInt64(i.GuildID))
	if !ok {
		respondEphemeral(s, i, "No spawn state yet - no messages seen for this server.")
		return
	}
	respondEphemeral(s, i, snap.String())
}

func (m *module) handleReload(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := m.core.LoadCaches(context.Background()); err != nil {
		log.Printf("reload failed: %v", err)
		respondEphemeral(s, i, "Reload failed, check the logs.")
		return
	}
	respondEphemeral(s, i, "Caches reloaded.")
}

func (m *module) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		logREST("defer response failed", err)
		return
	}

	rows, err := m.store.TopCatchers(context.Background(), toInt64(i.GuildID), 10)
	if err != nil {
		log.Printf("leaderboard query failed: %v", err)
		editResponseText(s, i, "Error loading leaderboard.")
		return
	}
	if len(rows) == 0 {
		editResponseText(s, i, "No countryballs caught here yet!")
		return
	}

	desc := strings.Builder{}
	for idx, r := range rows {
		grammar := "countryballs"
		if r.Count == 1 {
			grammar = "countryball"
		}
		desc.WriteString(fmt.Sprintf("**#%d** <@%d> — %d %s\n", idx+1, r.PlayerId, r.Count, grammar))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Leaderboard - Top Catchers",
		Description: desc.String(),
		Color:       0xF1C40F,
	}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	}); err != nil {
		logREST("edit failed", err)
	}
}

func (m *module) disableCatchButton(s *discordgo.Session, channelId, messageId string) {
	disabled := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Caught!",
					Style:    discordgo.SecondaryButton,
					CustomID: catchButtonId,
					Disabled: true,
				},
			},
		},
	}
	if _, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelId,
		ID:         messageId,
		Components: &disabled,
	}); err != nil {
		logREST("disable button failed", err)
	}
}

func (m *module) reply(s *discordgo.Session, msg *discordgo.MessageCreate, content string) {
	if _, err := s.ChannelMessageSendReply(msg.ChannelID, content, msg.Reference()); err != nil {
		logREST("reply failed", err)
	}
}

func caughtText(mention string, c *ball.Caught) string {
	text := fmt.Sprintf("%s caught **%s!** `(#%X, %+d%%/%+d%%)`\n", mention, c.Country, c.Id, c.AttackBonus, c.HealthBonus)
	if c.CatchPhrase != "" {
		text += fmt.Sprintf("\n*%s*", c.CatchPhrase)
	}
	if c.FirstOwned {
		text += "\nThis is a **new countryball** that has been added to your completion!"
	}
	return text
}

func modalInput(data discordgo.ModalSubmitInteractionData) string {
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range ar.Components {
			if in, ok := comp.(*discordgo.TextInput); ok {
				return in.Value
			}
		}
	}
	return ""
}

func interactionUserId(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logREST("respond failed", err)
	}
}

func respondPublic(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: msg},
	})
	if err != nil {
		logREST("respond failed", err)
	}
}

func editResponseText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, _ = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
}

func logREST(msg string, err error) {
	if rerr, ok := err.(*discordgo.RESTError); ok && rerr.Message != nil {
		log.Printf("%s: code=%d msg=%s", msg, rerr.Message.Code, rerr.Message.Message)
	} else {
		log.Printf("%s: %v", msg, err)
	}
}

func toInt64(snowflake string) int64 {
	n, _ := strconv.ParseInt(snowflake, 10, 64)
	return n
}
