// ABOUTME: Discord reply channel for discord://<channelID> URIs.
// ABOUTME: Example of an integrator-registered factory beyond the two built-ins.

package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const discordScheme = "discord://"

// Discord caps message content at 2000 characters; longer payloads are sent
// as a file attachment instead.
const discordMessageLimit = 2000

// DiscordFactory builds channels that post messages to a Discord channel.
type DiscordFactory struct {
	session *discordgo.Session
}

// NewDiscordFactory creates a factory from a bot token. The session is opened
// lazily by discordgo on first REST call; no gateway connection is needed for
// sending.
func NewDiscordFactory(token string) (*DiscordFactory, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	return &DiscordFactory{session: session}, nil
}

// Matches reports whether the URI uses the discord:// scheme.
func (f *DiscordFactory) Matches(uri string) bool {
	return strings.HasPrefix(uri, discordScheme)
}

// Create builds a channel posting to the Discord channel id in the URI.
func (f *DiscordFactory) Create(uri string) (Channel, error) {
	channelID := strings.TrimPrefix(uri, discordScheme)
	channelID = strings.TrimPrefix(channelID, "/")
	if channelID == "" {
		return nil, errors.New("discord uri has no channel id")
	}
	return &discordChannel{session: f.session, channelID: channelID}, nil
}

type discordChannel struct {
	session   *discordgo.Session
	channelID string
}

func (c *discordChannel) Send(ctx context.Context, payload []byte) error {
	content := "```json\n" + string(payload) + "\n```"
	if len(content) > discordMessageLimit {
		_, err := c.session.ChannelFileSend(c.channelID, "message.json",
			strings.NewReader(string(payload)), discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("sending discord file to %s: %w", c.channelID, err)
		}
		return nil
	}

	if _, err := c.session.ChannelMessageSend(c.channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("sending discord message to %s: %w", c.channelID, err)
	}
	return nil
}
