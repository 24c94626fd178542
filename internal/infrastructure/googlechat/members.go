package googlechat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	chat "google.golang.org/api/chat/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const membersPageSize = 1000

var (
	ErrInsufficientScope  = errors.New("access token lacks chat.memberships.readonly scope")
	ErrChatAPIUnavailable = errors.New("google chat api is not available for this account")
)

// MembersClient читает участников пространства через Chat API от имени пользователя
type MembersClient struct {
	client   *http.Client
	endpoint string
	log      *zap.Logger
}

func NewMembersClient(client *http.Client, endpoint string, log *zap.Logger) *MembersClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &MembersClient{
		client:   client,
		endpoint: endpoint,
		log:      log,
	}
}

func (c *MembersClient) ListMembers(ctx context.Context, spaceID, accessToken string) ([]*chat.Membership, error) {
	if spaceID == "" || accessToken == "" {
		return nil, fmt.Errorf("list chat members: space and access token are required")
	}

	// oauth2 берет базовый транспорт из контекста
	base := context.WithValue(ctx, oauth2.HTTPClient, c.client)
	httpClient := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := chat.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create chat service: %w", err)
	}

	var memberships []*chat.Membership
	err = svc.Spaces.Members.List("spaces/"+spaceID).
		PageSize(membersPageSize).
		Pages(ctx, func(page *chat.ListMembershipsResponse) error {
			memberships = append(memberships, page.Memberships...)
			return nil
		})
	if err != nil {
		classified := classifyAPIError(err)
		c.log.Warn("failed to list chat members",
			zap.String("space_id", spaceID),
			zap.Error(classified),
		)
		return nil, classified
	}

	c.log.Debug("chat members listed",
		zap.String("space_id", spaceID),
		zap.Int("members", len(memberships)),
	)
	return memberships, nil
}

// ListMemberIDs возвращает email -> id пользователя Chat для тех участников,
// у которых email можно определить
func (c *MembersClient) ListMemberIDs(ctx context.Context, spaceID, accessToken string) (map[string]string, error) {
	memberships, err := c.ListMembers(ctx, spaceID, accessToken)
	if err != nil {
		return nil, err
	}
	return MemberIDsByEmail(memberships), nil
}

// MemberIDsByEmail строит email -> id для участников-людей с известным email
func MemberIDsByEmail(memberships []*chat.Membership) map[string]string {
	ids := make(map[string]string, len(memberships))
	for _, m := range memberships {
		if m == nil || m.Member == nil || m.Member.Type == "BOT" {
			continue
		}
		id := strings.TrimPrefix(m.Member.Name, "users/")
		if email := MemberEmail(m); id != "" && email != "" {
			ids[email] = id
		}
	}
	return ids
}

// MemberEmail - email участника в нижнем регистре или пустая строка.
// Chat API не отдает email напрямую: он берется из алиаса users/{email}
// или из displayName, если тот похож на email.
func MemberEmail(m *chat.Membership) string {
	if m == nil || m.Member == nil {
		return ""
	}
	if id := strings.TrimPrefix(m.Member.Name, "users/"); strings.Contains(id, "@") {
		return strings.ToLower(id)
	}
	if name := strings.TrimSpace(m.Member.DisplayName); strings.Contains(name, "@") {
		return strings.ToLower(name)
	}
	return ""
}

func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("list chat members: %w", err)
	}

	msg := strings.ToLower(apiErr.Message + " " + apiErr.Body)
	switch {
	case apiErr.Code == http.StatusForbidden && strings.Contains(msg, "scope"):
		return fmt.Errorf("%w: %s", ErrInsufficientScope, apiErr.Message)
	case apiErr.Code == http.StatusNotFound,
		strings.Contains(msg, "has not been used"),
		strings.Contains(msg, "is disabled"),
		strings.Contains(msg, "not available"),
		strings.Contains(msg, "google chat app not found"):
		return fmt.Errorf("%w: %s", ErrChatAPIUnavailable, apiErr.Message)
	}
	return fmt.Errorf("list chat members: %w", err)
}
