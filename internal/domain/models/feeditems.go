package models

import "time"

// Raw feed items as returned by the thin per-source clients. Mapping them to
// confidence-scored DataPoints is the collectors' job.

type SocialPost struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Followers int       `json:"followers"`
	Verified  bool      `json:"verified"`
	Likes     int       `json:"likes"`
	Reposts   int       `json:"reposts"`
	Replies   int       `json:"replies"`
}

type InsiderFiling struct {
	Symbol          string    `json:"symbol"`
	Insider         string    `json:"insider"`
	Role            string    `json:"role"` // "ceo", "cfo", "director", "officer", "10% owner"
	TransactionType string    `json:"transaction_type"` // "buy" or "sell"
	Shares          float64   `json:"shares"`
	Value           float64   `json:"value"`
	TransactionDate time.Time `json:"transaction_date"`
	FiledAt         time.Time `json:"filed_at"`
}

type CongressTrade struct {
	Symbol          string    `json:"symbol"`
	Member          string    `json:"member"`
	Chamber         string    `json:"chamber"` // "house" or "senate"
	TransactionType string    `json:"transaction_type"`
	AmountMin       float64   `json:"amount_min"`
	AmountMax       float64   `json:"amount_max"`
	TransactionDate time.Time `json:"transaction_date"`
	DisclosedAt     time.Time `json:"disclosed_at"`
	Committees      []string  `json:"committees"`
}

type NewsArticle struct {
	ID          string    `json:"id"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	Outlet      string    `json:"outlet"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Breaking    bool      `json:"breaking"`
	ImpactScore float64   `json:"impact_score"` // externally supplied assessment, [0,1]
}
