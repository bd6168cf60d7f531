package bot

import "github.com/bwmarrin/discordgo"

func commandDefs() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionManageServer)
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "config",
			Description:              "Configure countryball spawning for this server",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "channel",
					Description: "Set the channel where countryballs spawn",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "The spawn channel",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "enable",
					Description: "Enable countryball spawning",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "disable",
					Description: "Disable countryball spawning",
				},
			},
		},
		{
			Name:                     "spawnstate",
			Description:              "Show the spawn trigger state for this server",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:                     "reload",
			Description:              "Reload the ball catalog and caches",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:        "leaderboard",
			Description: "Show who caught the most countryballs here",
		},
	}
}
