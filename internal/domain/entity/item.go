package entity

import "time"

// MaxDescriptionRunes is the persisted description length cap (§4.5
// step 3), counted in runes rather than bytes.
const MaxDescriptionRunes = 200

// MaxImageLinkLength rejects item images whose URL exceeds this length;
// the item then inherits the channel's image instead.
const MaxImageLinkLength = 1000

// Item is a single entry within a Channel.
type Item struct {
	ID          int64
	ChannelID   int64
	Link        string
	Title       string
	Description string
	Author      string
	PubDate     *time.Time // naive local time at fixed offset +09:00
	Rank        int
	ImageLink   string
}

// Truncate returns s truncated to maxRunes runes (callers persisting a
// description pass MaxDescriptionRunes).
func Truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes])
}
