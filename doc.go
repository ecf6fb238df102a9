// Package prometheus is a moderation and community bot engine for Discord
// guilds.
//
// A Bot watches guild messages and member joins. It provides:
//
//   - Malicious link reports backed by Google Safe Browsing
//   - Natural-language commands classified by wit.ai
//   - Per-guild feature toggles guarded by the manage-guild permission
//   - Rendered welcome cards for new members
//   - A cache-aside configuration store over Postgres, MongoDB or SQLite
//
// # Quick Start
//
//	import (
//	    "github.com/toastnco/prometheus"
//	    "github.com/toastnco/prometheus/store/memory"
//	)
//
//	bot := prometheus.New(memory.New(),
//	    prometheus.WithClassifier(witClient),
//	    prometheus.WithLinkChecker(safetyClient),
//	    prometheus.WithCompositor(compositor),
//	    prometheus.WithPlatform(platform),
//	)
//	if err := bot.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer bot.Stop(ctx)
//
// The discord package adapts a discordgo session into a Platform and feeds
// its events to the Bot.
//
// # Commands
//
// A message starting with the prefix (default ".") is a command. The rest of
// the text is classified and the top intent decides what happens. Intents
// named "<feature>_enable" and "<feature>_disable" toggle a feature:
//
//	.turn on welcome in #general
//
// enables welcome cards in #general when the author may manage the guild.
//
// # Outcomes
//
// HandleMessage and HandleMemberJoin return an Outcome naming what was done,
// tagged with an "evt_" TypeID that also appears in logs and plugin hooks.
package prometheus
