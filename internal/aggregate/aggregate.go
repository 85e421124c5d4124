// Package aggregate reduces search matches to the distinct channels they
// were posted in.
package aggregate

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/linkerlin/mentiondigest/internal/types"
)

// PlaceholderPrefix names channels the searching user cannot resolve.
const PlaceholderPrefix = "private-channel-"

// Aggregation is the result of Channels.
type Aggregation struct {
	Channels []types.ChannelSummary
	Skipped  int // matches without a channel id
}

// Aggregator dedupes matches by channel id and orders channels by name.
type Aggregator struct {
	tag language.Tag
}

// New creates an Aggregator collating names for locale, a BCP 47 tag.
// Unparseable tags fall back to the root collation.
func New(locale string) *Aggregator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Aggregator{tag: tag}
}

// Channels returns one summary per distinct channel id. The last name seen
// for an id wins; ids without a name get PlaceholderPrefix+id.
func (a *Aggregator) Channels(matches []types.MessageMatch) Aggregation {
	var res Aggregation
	byID := make(map[string]string)
	for _, m := range matches {
		if m.ChannelID == "" {
			res.Skipped++
			continue
		}
		name := m.ChannelName
		if name == "" {
			name = PlaceholderPrefix + m.ChannelID
		}
		byID[m.ChannelID] = name
	}

	res.Channels = make([]types.ChannelSummary, 0, len(byID))
	for id, name := range byID {
		res.Channels = append(res.Channels, types.ChannelSummary{ID: id, Name: name})
	}

	// collate.Collator is not safe for concurrent use; build one per call.
	col := collate.New(a.tag)
	sort.Slice(res.Channels, func(i, j int) bool {
		ci, cj := res.Channels[i], res.Channels[j]
		if c := col.CompareString(ci.Name, cj.Name); c != 0 {
			return c < 0
		}
		return ci.ID < cj.ID
	})
	return res
}
