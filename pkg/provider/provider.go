package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrReconnectRequired means the user's stored grant is dead (revoked or
// expired refresh token). Callers surface a reconnect message; nothing
// retries this silently.
var ErrReconnectRequired = errors.New("provider: account reconnect required")

// ErrNoAccount means the user has no connected account for the provider.
var ErrNoAccount = errors.New("provider: no connected account")

// Account is one connected external account as stored for a user.
type Account struct {
	Email        string
	Provider     string
	RefreshToken string
	Primary      bool
}

// Credential is a live, short-lived token bound to one account.
type Credential struct {
	AccessToken string
	Email       string
}

// AccountSource lists a user's connected accounts. Implemented by the
// provider account repository.
type AccountSource interface {
	AccountsByUser(ctx context.Context, userId uuid.UUID) ([]Account, error)
}

// TokenExchanger turns a stored refresh token into a live access token.
type TokenExchanger interface {
	AccessToken(ctx context.Context, refreshToken string) (string, error)
}

// AccountResolver picks which connected account a tool call should act as
// and returns a live credential for it. The hint is the model's optional
// "account" argument; resolvers may ignore it.
type AccountResolver interface {
	Resolve(ctx context.Context, userId uuid.UUID, hint string) (*Credential, error)
}

// GoogleExchanger refreshes Google access tokens via the standard OAuth
// endpoint, using the app's client credentials from the environment.
type GoogleExchanger struct {
	conf *oauth2.Config
}

func NewGoogleExchanger() *GoogleExchanger {
	return &GoogleExchanger{
		conf: &oauth2.Config{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			Endpoint:     google.Endpoint,
		},
	}
}

func (g *GoogleExchanger) AccessToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrReconnectRequired
	}

	ts := g.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := ts.Token()
	if err != nil {
		if isDeadGrant(err) {
			return "", fmt.Errorf("%w: %v", ErrReconnectRequired, err)
		}
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	return token.AccessToken, nil
}

// isDeadGrant distinguishes "this grant will never work again" from
// transient refresh failures.
func isDeadGrant(err error) bool {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.ErrorCode == "invalid_grant" {
			return true
		}
		if rerr.Response != nil && rerr.Response.StatusCode == 401 {
			return true
		}
		return strings.Contains(string(rerr.Body), "invalid_grant")
	}
	return false
}

// PrimaryAccountResolver always acts as the user's primary account and
// ignores hints. The single-account deployment shape.
type PrimaryAccountResolver struct {
	source    AccountSource
	exchanger TokenExchanger
}

func NewPrimaryAccountResolver(source AccountSource, exchanger TokenExchanger) *PrimaryAccountResolver {
	return &PrimaryAccountResolver{source: source, exchanger: exchanger}
}

func (r *PrimaryAccountResolver) Resolve(ctx context.Context, userId uuid.UUID, hint string) (*Credential, error) {
	accounts, err := r.source.AccountsByUser(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	account := primaryOf(accounts)
	if account == nil {
		return nil, ErrNoAccount
	}
	return mint(ctx, r.exchanger, account)
}

// HintedAccountResolver resolves an optional account hint (an email address
// or a unique substring of one) against the user's connected accounts and
// falls back to the primary when the hint is absent or ambiguous.
type HintedAccountResolver struct {
	source    AccountSource
	exchanger TokenExchanger
}

func NewHintedAccountResolver(source AccountSource, exchanger TokenExchanger) *HintedAccountResolver {
	return &HintedAccountResolver{source: source, exchanger: exchanger}
}

func (r *HintedAccountResolver) Resolve(ctx context.Context, userId uuid.UUID, hint string) (*Credential, error) {
	accounts, err := r.source.AccountsByUser(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccount
	}

	if hint = strings.TrimSpace(strings.ToLower(hint)); hint != "" {
		var matched *Account
		for i := range accounts {
			if strings.Contains(strings.ToLower(accounts[i].Email), hint) {
				if matched != nil {
					matched = nil // ambiguous, fall back to primary
					break
				}
				matched = &accounts[i]
			}
		}
		if matched != nil {
			return mint(ctx, r.exchanger, matched)
		}
	}

	account := primaryOf(accounts)
	if account == nil {
		account = &accounts[0]
	}
	return mint(ctx, r.exchanger, account)
}

func primaryOf(accounts []Account) *Account {
	for i := range accounts {
		if accounts[i].Primary {
			return &accounts[i]
		}
	}
	if len(accounts) == 1 {
		return &accounts[0]
	}
	return nil
}

func mint(ctx context.Context, exchanger TokenExchanger, account *Account) (*Credential, error) {
	token, err := exchanger.AccessToken(ctx, account.RefreshToken)
	if err != nil {
		return nil, err
	}
	return &Credential{AccessToken: token, Email: account.Email}, nil
}
