package ai

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signAssertion builds the RS256 JWT the OAuth token endpoint exchanges for
// an access token on behalf of the service account
func (c *TTSClient) signAssertion() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   c.account.ClientEmail,
		"scope": ttsScope,
		"aud":   c.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("error signing service account assertion: %w", err)
	}
	return signed, nil
}
