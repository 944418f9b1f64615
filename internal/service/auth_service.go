package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/identity"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"
	"github.com/Dakheel-code/arena-run-sub001/internal/repository"
	"github.com/Dakheel-code/arena-run-sub001/internal/security"

	"golang.org/x/oauth2"
)

var (
	ErrNotGuildMember   = errors.New("not a member of the guild")
	ErrMemberNotAllowed = errors.New("member is not allowed to sign in")
)

type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*identity.UserInfo, error)
}

type TokenIssuer interface {
	Issue(claims security.Claims) (string, error)
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Member    *domain.Member
}

type AuthService struct {
	provider      OAuthProvider
	members       repository.MemberRepository
	tokens        TokenIssuer
	autoProvision bool
}

func NewAuthService(provider OAuthProvider, members repository.MemberRepository, tokens TokenIssuer, autoProvision bool) *AuthService {
	return &AuthService{provider: provider, members: members, tokens: tokens, autoProvision: autoProvision}
}

func (s *AuthService) LoginURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

func (s *AuthService) HandleCallback(ctx context.Context, code string) (*LoginResult, error) {
	result, err := s.handleCallback(ctx, code)
	status := "success"
	if err != nil {
		status = "failure"
	}
	observability.RecordAuthLogin("discord", status)
	return result, err
}

func (s *AuthService) handleCallback(ctx context.Context, code string) (*LoginResult, error) {
	tok, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	info, err := s.provider.FetchUserInfo(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	if !info.InGuild {
		return nil, ErrNotGuildMember
	}

	member, err := s.members.FindByID(ctx, info.ID)
	switch {
	case errors.Is(err, repository.ErrMemberNotFound):
		if !s.autoProvision {
			return nil, ErrMemberNotAllowed
		}
		member = &domain.Member{ID: info.ID, DisplayName: info.DisplayName, Avatar: info.Avatar, IsActive: true}
		if err := s.members.Create(ctx, member); err != nil {
			return nil, fmt.Errorf("provision member: %w", err)
		}
	case err != nil:
		return nil, err
	default:
		if !member.IsActive {
			return nil, ErrMemberNotAllowed
		}
		if member.DisplayName != info.DisplayName || member.Avatar != info.Avatar {
			if err := s.members.UpdateProfile(ctx, member.ID, info.DisplayName, info.Avatar); err != nil {
				return nil, fmt.Errorf("update member profile: %w", err)
			}
			member.DisplayName = info.DisplayName
			member.Avatar = info.Avatar
		}
	}

	role := member.Role
	if role == "" {
		role = "member"
	}
	raw, err := s.tokens.Issue(security.Claims{
		Subject: member.ID,
		Name:    member.DisplayName,
		Avatar:  member.Avatar,
		Role:    role,
		IsAdmin: member.IsAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: raw, ExpiresAt: time.Now().Add(security.TokenTTL), Member: member}, nil
}
