package service

import (
	"context"

	"SignalFuse/internal/domain/models"
)

// Per-source feed boundaries. Implementations are thin request/response
// wrappers over third-party financial APIs and are swappable.

type SocialFeed interface {
	FetchPosts(ctx context.Context, symbol string) ([]models.SocialPost, error)
}

type InsiderFeed interface {
	FetchFilings(ctx context.Context, symbol string) ([]models.InsiderFiling, error)
}

type CongressFeed interface {
	FetchTrades(ctx context.Context, symbol string) ([]models.CongressTrade, error)
}

type NewsFeed interface {
	FetchArticles(ctx context.Context, symbol string) ([]models.NewsArticle, error)
}
