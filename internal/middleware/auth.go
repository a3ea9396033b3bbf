// Package middleware содержит HTTP middleware сайта: сессию администратора,
// сжатие и журналирование запросов.
package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	sessionCookieName = "vibes_admin"
	sessionSubject    = "admin"
	// DefaultSessionTTL задаёт срок жизни сессии администратора.
	DefaultSessionTTL = 12 * time.Hour
)

// AuthMiddleware проверяет сессию администратора по подписанному cookie.
// Значение cookie: срок действия в секундах Unix и HMAC-подпись.
type AuthMiddleware struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// Пустой секрет заменяется случайным: сессии тогда не переживают перезапуск.
func NewAuthMiddleware(secret string, ttl time.Duration) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("vibes-admin-secret")
		}
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &AuthMiddleware{
		secretKey: key,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Middleware пропускает запрос дальше только с действующей сессией администратора.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if !a.validSession(cookie.Value) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie выдаёт cookie сессии администратора.
func (a *AuthMiddleware) SetSessionCookie(w http.ResponseWriter) {
	expires := a.now().Add(a.ttl)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.sign(strconv.FormatInt(expires.Unix(), 10)),
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie удаляет cookie сессии.
func (a *AuthMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) sign(expires string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(sessionSubject + "|" + expires))
	return expires + "." + hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) validSession(value string) bool {
	expires, _, ok := strings.Cut(value, ".")
	if !ok {
		return false
	}

	if !hmac.Equal([]byte(value), []byte(a.sign(expires))) {
		return false
	}

	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}

	return a.now().Before(time.Unix(unix, 0))
}
