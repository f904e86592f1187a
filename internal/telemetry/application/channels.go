package application

import (
	"strings"
)

// Channel is a control-panel input and the tag names bound to it.
type Channel struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// DefaultChannels are the panel inputs recognized out of the box.
func DefaultChannels() []Channel {
	names := []string{"Vry", "Vyb", "Vbr", "Cr", "Cy", "Cb", "Freq", "Temp", "Watts"}
	channels := make([]Channel, 0, len(names))
	for _, name := range names {
		channels = append(channels, Channel{Name: name})
	}
	return channels
}

// ChannelCatalog resolves tag names to channels.
type ChannelCatalog struct {
	byTag map[string]string
}

// NewChannelCatalog indexes channel names and aliases case-insensitively.
// Later channels do not override an alias already claimed.
func NewChannelCatalog(channels []Channel) ChannelCatalog {
	byTag := make(map[string]string)
	for _, ch := range channels {
		name := strings.TrimSpace(ch.Name)
		if name == "" {
			continue
		}
		for _, key := range append([]string{name}, ch.Aliases...) {
			key = normalizeTagName(key)
			if key == "" {
				continue
			}
			if _, taken := byTag[key]; !taken {
				byTag[key] = name
			}
		}
	}
	return ChannelCatalog{byTag: byTag}
}

// Bind returns the channel a tag name is bound to.
func (c ChannelCatalog) Bind(tagName string) (string, bool) {
	channel, ok := c.byTag[normalizeTagName(tagName)]
	return channel, ok
}

func normalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
