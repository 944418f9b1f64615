// Package identity adapts Discord OAuth2 login and guild membership checks.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

var DiscordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

type UserInfo struct {
	ID          string
	DisplayName string
	Avatar      string
	InGuild     bool
}

type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	GuildID      string
	APIBaseURL   string
	Endpoint     oauth2.Endpoint
	HTTPClient   *http.Client
}

type DiscordProvider struct {
	oauth   *oauth2.Config
	apiBase string
	guildID string
	client  *http.Client
}

func NewDiscordProvider(cfg DiscordConfig) *DiscordProvider {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = DiscordEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &DiscordProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify", "guilds.members.read"},
			Endpoint:     endpoint,
		},
		apiBase: strings.TrimRight(cfg.APIBaseURL, "/"),
		guildID: cfg.GuildID,
		client:  client,
	}
}

func (p *DiscordProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "none"))
}

func (p *DiscordProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	return p.oauth.Exchange(ctx, code)
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

type discordGuildMember struct {
	Nick string `json:"nick"`
}

// FetchUserInfo loads the Discord user and whether it belongs to the guild.
func (p *DiscordProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	client := p.oauth.Client(ctx, token)

	var user discordUser
	status, err := p.getJSON(ctx, client, "/users/@me", &user)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || user.ID == "" {
		return nil, fmt.Errorf("discord userinfo status: %d", status)
	}
	info := &UserInfo{ID: user.ID, DisplayName: user.GlobalName, Avatar: user.Avatar}
	if info.DisplayName == "" {
		info.DisplayName = user.Username
	}

	var member discordGuildMember
	status, err = p.getJSON(ctx, client, "/users/@me/guilds/"+p.guildID+"/member", &member)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		info.InGuild = true
		if member.Nick != "" {
			info.DisplayName = member.Nick
		}
	case http.StatusNotFound, http.StatusForbidden:
		info.InGuild = false
	default:
		return nil, fmt.Errorf("discord guild member status: %d", status)
	}
	return info, nil
}

func (p *DiscordProvider) getJSON(ctx context.Context, client *http.Client, path string, dst any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("discord request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return resp.StatusCode, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return resp.StatusCode, errors.Join(fmt.Errorf("decode discord response %s", path), err)
	}
	return resp.StatusCode, nil
}
