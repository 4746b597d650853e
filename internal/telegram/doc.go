// Package telegram provides Telegram Bot API integration for sending typhoon
// day-off change notifications.
//
// Messages are sent with HTML parse mode via plain HTTP requests to the Bot
// API; the formatter escapes page text before embedding it.
//
// Authentication requires a bot token (from @BotFather) and chat ID.
package telegram
