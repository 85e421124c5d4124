package search

import "github.com/linkerlin/mentiondigest/internal/types"

// searchResponse is the search.messages payload.
type searchResponse struct {
	OK       bool           `json:"ok"`
	Error    string         `json:"error,omitempty"`
	Messages *messagesBlock `json:"messages,omitempty"`
}

type messagesBlock struct {
	Matches    []matchPayload `json:"matches"`
	Pagination pagination     `json:"pagination"`
}

type pagination struct {
	PageCount  int `json:"page_count"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
}

type matchPayload struct {
	Channel struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"channel"`
	Text      string `json:"text"`
	TS        string `json:"ts"`
	Username  string `json:"username"`
	Permalink string `json:"permalink"`
}

// narrow converts the payload into domain matches. An ok response without a
// messages object counts as zero matches.
func (r *searchResponse) narrow() []types.MessageMatch {
	if r.Messages == nil {
		return nil
	}
	out := make([]types.MessageMatch, 0, len(r.Messages.Matches))
	for _, m := range r.Messages.Matches {
		out = append(out, types.MessageMatch{
			ChannelID:   m.Channel.ID,
			ChannelName: m.Channel.Name,
			Text:        m.Text,
			Timestamp:   m.TS,
			Username:    m.Username,
			Permalink:   m.Permalink,
		})
	}
	return out
}
