package middleware

import (
	"context"
	"net/http"
	"strings"
)

const (
	// UserEmailHeader выставляет OAuth-прокси перед сервисом
	UserEmailHeader = "X-User-Email"
	// AccessTokenHeader - необязательный токен пользователя для чтения участников Chat
	AccessTokenHeader = "X-Chat-Access-Token"
)

type ctxKey int

const (
	userEmailKey ctxKey = iota
	accessTokenKey
)

// Identity переносит email пользователя и его токен Chat из заголовков в контекст.
// Проверку наличия email делают сервисы.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if email := strings.TrimSpace(r.Header.Get(UserEmailHeader)); email != "" {
			ctx = context.WithValue(ctx, userEmailKey, strings.ToLower(email))
		}
		if token := strings.TrimSpace(r.Header.Get(AccessTokenHeader)); token != "" {
			ctx = context.WithValue(ctx, accessTokenKey, strings.TrimPrefix(token, "Bearer "))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserEmail(ctx context.Context) string {
	email, _ := ctx.Value(userEmailKey).(string)
	return email
}

func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey).(string)
	return token
}
