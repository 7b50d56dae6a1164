package models

import "time"

// ShortLinkEngagement records one resolved redirect. The client address is
// stored only as a sha256 hex hash.
type ShortLinkEngagement struct {
	ID                int64     `json:"id"`
	ShortLinkID       int64     `json:"short_link_id"`
	ClientAddressHash string    `json:"client_address_hash"`
	UserAgent         string    `json:"user_agent,omitempty"`
	Referer           string    `json:"referer,omitempty"`
	Country           string    `json:"country,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// EngagementSummary is the grouped click report for one user's links over a
// time range. Empty countries and referers are bucketed under "?".
type EngagementSummary struct {
	TotalClicks  int64            `json:"total_clicks"`
	TotalClients int64            `json:"total_clients"`
	Countries    map[string]int64 `json:"countries"`
	Referers     map[string]int64 `json:"referers"`
	From         time.Time        `json:"from"`
	To           time.Time        `json:"to"`
}

// EngagementFilter narrows engagement listings.
type EngagementFilter struct {
	ShortLinkID     *int64
	IncludeInactive bool
	From            time.Time
	To              time.Time
	Skip            *int
	Take            *int
}
