package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/flemzord/mategen/internal/security"
)

// Scopes requested for the token source.
var Scopes = []string{
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/documents",
}

const defaultTokenURL = "https://oauth2.googleapis.com/token"

// authorizedUser is the token file written by the Google installed-app
// consent flow.
type authorizedUser struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenURI     string    `json:"token_uri"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Scopes       []string  `json:"scopes"`
	Expiry       time.Time `json:"expiry"`
}

// LoadTokenSource reads an authorized-user token file and returns a
// refreshing token source. The refresh token and client secret are
// registered in creds when it is non-nil.
func LoadTokenSource(ctx context.Context, path string, creds *security.CredentialStore) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store.drive: read credentials: %w", err)
	}
	var au authorizedUser
	if err := json.Unmarshal(data, &au); err != nil {
		return nil, fmt.Errorf("store.drive: parse credentials %s: %w", path, err)
	}
	if au.RefreshToken == "" || au.ClientID == "" {
		return nil, fmt.Errorf("store.drive: credentials %s lack client_id or refresh_token", path)
	}
	if creds != nil {
		creds.Set("DRIVE_REFRESH_TOKEN", au.RefreshToken)
		creds.Set("DRIVE_CLIENT_SECRET", au.ClientSecret)
		creds.Set("DRIVE_ACCESS_TOKEN", au.Token)
	}
	if au.TokenURI == "" {
		au.TokenURI = defaultTokenURL
	}
	scopes := au.Scopes
	if len(scopes) == 0 {
		scopes = Scopes
	}

	cfg := &oauth2.Config{
		ClientID:     au.ClientID,
		ClientSecret: au.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: au.TokenURI},
		Scopes:       scopes,
	}
	tok := &oauth2.Token{
		AccessToken:  au.Token,
		RefreshToken: au.RefreshToken,
		Expiry:       au.Expiry,
	}
	return cfg.TokenSource(ctx, tok), nil
}
