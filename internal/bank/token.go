package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AccessToken is a short-lived bearer credential for the bank API.
type AccessToken struct {
	Token     string
	TokenType string
	ExpiresIn time.Duration
}

// FetchAccessToken performs the OAuth client-credentials exchange. The branch
// code rides in a client_claims form field as JSON. Tokens are not cached:
// each gateway call fetches a fresh one, which keeps this path stateless at
// the cost of an extra round trip.
func (c *Client) FetchAccessToken(ctx context.Context, clientID, clientSecret, branchCode string) (*AccessToken, error) {
	claims, err := json.Marshal(map[string]string{"branch_code": branchCode})
	if err != nil {
		return nil, &AuthError{Message: fmt.Sprintf("encode client claims: %v", err)}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("client_claims", string(claims))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthError{Message: fmt.Sprintf("build token request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &AuthError{Message: fmt.Sprintf("token endpoint unreachable: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read token response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		var failed failedTokenResponse
		if err := json.Unmarshal(body, &failed); err == nil && failed.ErrorDescription != "" {
			return nil, &AuthError{StatusCode: resp.StatusCode, Message: failed.ErrorDescription}
		}
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var token accessTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode token response: %v", err)}
	}
	if token.AccessToken == "" {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: "token response carried no access_token"}
	}

	return &AccessToken{
		Token:     token.AccessToken,
		TokenType: token.TokenType,
		ExpiresIn: time.Duration(token.ExpiresIn) * time.Second,
	}, nil
}
