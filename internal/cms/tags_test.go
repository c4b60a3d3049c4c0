package cms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllTags(t *testing.T) {
	tags := AllTags()
	assert.Len(t, tags, 13)
	assert.NotContains(t, tags, TagAll)

	tags[0] = "mutated"
	assert.Equal(t, TagTheme, AllTags()[0])
}

func TestExpandTags(t *testing.T) {
	assert.Len(t, ExpandTags([]string{TagAll}), 13)
	assert.Len(t, ExpandTags([]string{TagNews, TagAll, "custom"}), 14)
	assert.Equal(t, []string{TagNews, "custom"}, ExpandTags([]string{TagNews, "", "custom", TagNews}))
	assert.Empty(t, ExpandTags(nil))
}
