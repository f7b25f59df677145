package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, Truncate(short, MaxDescriptionRunes))

	long := strings.Repeat("가", 300) // multi-byte runes, exercises rune counting not byte counting
	got := Truncate(long, MaxDescriptionRunes)
	assert.Equal(t, MaxDescriptionRunes, len([]rune(got)))
}

func TestItem_ZeroValue(t *testing.T) {
	var i Item
	assert.Equal(t, int64(0), i.ChannelID)
	assert.Nil(t, i.PubDate)
	assert.Equal(t, "", i.ImageLink)
}
