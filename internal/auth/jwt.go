package auth

import (
	"errors"

	"royalty-split-manager/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens are minted by the external auth service; this package only
// verifies them and extracts the claims the admin routes need.

func VerifyJWT(tokenString string) (*jwt.Token, error) {
	jwtToken, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if !jwtToken.Valid {
		return nil, errors.New("token invalid")
	}

	return jwtToken, nil
}

// GetDataFromToken pulls the user id and role claims out of a verified token.
func GetDataFromToken(token *jwt.Token) (uint64, string, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errors.New("invalid token claims")
	}

	rawID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", errors.New("user_id claim missing")
	}

	role, _ := claims["role"].(string)

	return uint64(rawID), role, nil
}
