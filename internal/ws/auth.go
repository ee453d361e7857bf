package ws

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var errNoTenant = errors.New("ws: no resolvable ingenio for connection")

// ingenioFromRequest attributes an ingenio to a connecting client from its
// session token (query parameter "token" or an Authorization bearer header).
// Connections without a resolvable ingenio are refused; there are no
// anonymous broadcast recipients.
func ingenioFromRequest(r *http.Request, secret string) (int64, error) {
	tokenStr := strings.TrimSpace(r.URL.Query().Get("token"))
	if tokenStr == "" {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenStr = strings.TrimSpace(parts[1])
		}
	}
	if tokenStr == "" {
		return 0, errNoTenant
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenInvalidClaims
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, errNoTenant
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errNoTenant
	}
	return extractIngenioID(claims)
}

func extractIngenioID(claims jwt.MapClaims) (int64, error) {
	switch v := claims["ingenio_id"].(type) {
	case float64:
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ws: bad ingenio_id claim: %w", err)
		}
		return id, nil
	default:
		return 0, errNoTenant
	}
}
