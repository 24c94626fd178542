package notification

import (
	"context"
	"strings"

	"github.com/niklvrr/ReviewRoom/internal/domain"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/googlechat"
	"go.uber.org/zap"
)

// MemberFetcher достает email -> id участников пространства из Chat API
type MemberFetcher interface {
	ListMemberIDs(ctx context.Context, spaceID, accessToken string) (map[string]string, error)
}

type Resolver struct {
	fetcher MemberFetcher
	cache   MemberCache
	log     *zap.Logger
}

func NewResolver(fetcher MemberFetcher, cache MemberCache, log *zap.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		cache:   cache,
		log:     log,
	}
}

// MentionToken - упоминание пользователя в Google Chat.
// Без известного id используется email, Chat принимает его как алиас.
func MentionToken(email, userID string) string {
	if userID = strings.TrimPrefix(userID, "users/"); userID != "" {
		return "<users/" + userID + ">"
	}
	return "<users/" + email + ">"
}

// ResolveMentionTokens превращает emails в упоминания через пробел, в порядке входа.
// Дубликаты не убираются. Ошибки Chat API не возвращаются: упоминание откатывается на email.
func (r *Resolver) ResolveMentionTokens(ctx context.Context, emails []string, directory []domain.RoomMember, webhookURL, accessToken string) string {
	ids := directoryIDs(directory)
	if len(ids) == 0 && webhookURL != "" && accessToken != "" {
		ids = r.fetchIDs(ctx, webhookURL, accessToken)
	}

	tokens := make([]string, 0, len(emails))
	for _, email := range emails {
		tokens = append(tokens, MentionToken(email, ids[domain.NormalizeEmail(email)]))
	}
	return strings.Join(tokens, " ")
}

func directoryIDs(directory []domain.RoomMember) map[string]string {
	ids := make(map[string]string, len(directory))
	for _, m := range directory {
		if id := strings.TrimSpace(m.GoogleChatUserId); id != "" {
			ids[domain.NormalizeEmail(m.Email)] = id
		}
	}
	return ids
}

func (r *Resolver) fetchIDs(ctx context.Context, webhookURL, accessToken string) map[string]string {
	hook, err := googlechat.ParseWebhookURL(webhookURL)
	if err != nil {
		r.log.Warn("skip member lookup: bad webhook url", zap.Error(err))
		return nil
	}

	if r.cache != nil {
		if ids, ok := r.cache.Get(hook.SpaceID); ok {
			memberLookupsTotal.WithLabelValues("cache").Inc()
			return ids
		}
	}
	if r.fetcher == nil {
		return nil
	}

	ids, err := r.fetcher.ListMemberIDs(ctx, hook.SpaceID, accessToken)
	if err != nil {
		memberLookupsTotal.WithLabelValues("failed").Inc()
		r.log.Warn("member lookup failed, falling back to email mentions",
			zap.String("space_id", hook.SpaceID),
			zap.Error(err),
		)
		return nil
	}
	memberLookupsTotal.WithLabelValues("api").Inc()

	if r.cache != nil {
		r.cache.Set(hook.SpaceID, ids)
	}
	return ids
}
