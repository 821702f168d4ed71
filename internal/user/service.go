package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/AgriDirect/AgriDirect/internal/common/auth"
	"github.com/AgriDirect/AgriDirect/internal/common/config"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service 封装用户注册/登录用例（不依赖 HTTP），便于复用和测试。
type Service struct {
	repo    *Repo
	authCfg config.AuthConfig
}

func NewService(repo *Repo, authCfg config.AuthConfig) *Service {
	return &Service{repo: repo, authCfg: authCfg}
}

// SignupInput 注册入参。
type SignupInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Role     string `json:"role"`
}

// AuthResult 注册/登录返回：用户信息 + access token。
type AuthResult struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))

	if in.Username == "" {
		return nil, apperr.Validationf("username required")
	}
	if in.Password == "" {
		return nil, apperr.Validationf("password required")
	}
	if !ValidRole(in.Role) {
		return nil, apperr.Validationf("invalid role %q", in.Role)
	}

	salt, err := GenerateSaltHex()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password, salt)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: hash,
		PasswordSalt: salt,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Location:     strings.TrimSpace(in.Location),
		Role:         in.Role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validationf("username already taken")
		}
		return nil, err
	}

	return s.issueToken(u)
}

// Login 按用户名+密码+角色登录（角色必须与注册时一致，与原客户端行为对齐）。
func (s *Service) Login(ctx context.Context, username, password, role string) (*AuthResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validationf("username/password required")
	}

	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
		}
		return nil, err
	}
	if !VerifyPassword(password, u.PasswordSalt, u.PasswordHash) {
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}
	if role != "" && !strings.EqualFold(role, u.Role) {
		return nil, fmt.Errorf("role mismatch: %w", apperr.ErrUnauthorized)
	}

	return s.issueToken(u)
}

// GetByID 查询单个用户。
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("user %s", id)
		}
		return nil, err
	}
	return u, nil
}

// ListDrivers 列出全部司机（农户发起配送邀请时的候选集）。
func (s *Service) ListDrivers(ctx context.Context) ([]User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListByRole(ctx, RoleDriver)
}

func (s *Service) issueToken(u *User) (*AuthResult, error) {
	ttl := time.Duration(s.authCfg.TokenTTLHours) * time.Hour
	token, expiresAt, err := auth.GenerateAccessToken(s.authCfg, u.ID, u.Role, ttl)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Token: token, ExpiresAt: expiresAt}, nil
}
