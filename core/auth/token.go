package auth

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core/account"
)

const audience = "madrasa-portal"

var errInvalidToken = errors.New("invalid session token")

// Claims represents the authorization claims transmitted via a JWT.
// Id is the session ID and Subject the account ID.
type Claims struct {
	jwt.StandardClaims
	Role account.Role `json:"role"`
}

// TokenCodec signs and parses session tokens (HS256).
type TokenCodec struct {
	key    []byte
	issuer string
}

func NewTokenCodec(secretKey, issuer string) *TokenCodec {
	return &TokenCodec{key: []byte(secretKey), issuer: issuer}
}

func (c *TokenCodec) Sign(sess Session) (string, error) {
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        sess.ID,
			Issuer:    c.issuer,
			Subject:   sess.AccountID,
			Audience:  audience,
			ExpiresAt: sess.ExpiresAt.Unix(),
			IssuedAt:  sess.IssuedAt.Unix(),
		},
		Role: sess.Role,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (c *TokenCodec) Parse(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.key, nil
	})
	if err != nil {
		return nil, errors.Wrap(errInvalidToken, err.Error())
	}
	if !token.Valid ||
		!claims.VerifyIssuer(c.issuer, true) ||
		!claims.VerifyAudience(audience, true) ||
		claims.Id == "" || claims.Subject == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}
