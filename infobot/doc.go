// Package infobot implements a Discord bot providing informational
// slash commands: documentation lookups, user/server/emoji/role info,
// todo lists, AFK statuses and a handful of utilities.
//
// The centerpiece is RTFM, a fuzzy search over Sphinx documentation
// inventories ("objects.inv"). Each configured DocSet is fetched,
// decompressed and indexed the first time it's searched, and the index
// is kept for the lifetime of the process.
//
// Key components of the package include:
//
//   - InfoBot: The main struct, which owns the Discord session, database
//     and runtime configuration.
//   - IndexCache: Lazily builds and holds DocSet inventories.
//   - ParseInventory and FuzzySearch: The inventory parser and matcher
//     behind RTFM.
//   - Database: Persists users, todo items, AFK statuses and RuntimeConfig.
//
// Commands are registered as Discord application commands and received
// over the gateway:
//
//   - /rtfm: Searches a documentation set (with autocomplete).
//   - /todo: Manages a personal todo list.
//   - /afk, /autoafk: Sets an AFK status, reported when you're mentioned.
//   - /userinfo, /avatar, /banner, /serverinfo, /roleinfo, /emojiinfo,
//     /emotelist, /memberlist: Discord entity lookups.
//   - /ping, /uptime, /servers, /messages, /translate, /wiki: Utilities.
package infobot
