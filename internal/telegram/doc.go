// Package telegram posts new fish plant digests to a Telegram chat.
//
// Messages are sent through the Bot API sendMessage method with HTML formatting.
// Authentication requires a bot token (from @BotFather) and chat ID, read from
// TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID.
package telegram
