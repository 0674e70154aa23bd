package service

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
	jwtutil "gameshop-hub/pkg/jwt"
)

const (
	defaultAccessTokenTTL  = 2 * time.Hour
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrRefreshTokenInvalid = errors.New("refresh token invalid")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrAdminUserNotFound   = errors.New("admin user not found")
	ErrInvalidAdminInput   = errors.New("invalid admin user input")
)

type AuthService struct {
	adminRepo  repository.AdminUserRepository
	auditRepo  repository.AuditRepository
	pool       *pgxpool.Pool
	privateKey *rsa.PrivateKey
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(
	adminRepo repository.AdminUserRepository,
	auditRepo repository.AuditRepository,
	pool *pgxpool.Pool,
	privateKey *rsa.PrivateKey,
) *AuthService {
	return &AuthService{
		adminRepo:  adminRepo,
		auditRepo:  auditRepo,
		pool:       pool,
		privateKey: privateKey,
		accessTTL:  defaultAccessTokenTTL,
		refreshTTL: defaultRefreshTokenTTL,
	}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error) {
	if s.privateKey == nil {
		return "", "", errors.New("private key is nil")
	}

	user, err := s.adminRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err = s.issueTokens(ctx, user)
	if err != nil {
		return "", "", err
	}

	s.writeAudit(ctx, &user.ID, "admin.login")
	return accessToken, refreshToken, nil
}

// RefreshToken rotates the refresh token: the presented token is
// consumed and a new pair is issued under a row lock, so a replayed
// token fails.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (newAccessToken, newRefreshToken string, err error) {
	if s.privateKey == nil {
		return "", "", errors.New("private key is nil")
	}
	if refreshToken == "" {
		return "", "", ErrRefreshTokenInvalid
	}

	tokenHash := hashToken(refreshToken)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", "", err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var userID uuid.UUID
	var username string
	var role model.AdminRole
	var expiresAt time.Time

	query := `
		SELECT rt.user_id, rt.expires_at, u.username, u.role
		FROM admin_refresh_tokens rt
		JOIN admin_users u ON u.id = rt.user_id
		WHERE rt.token_hash = $1
		FOR UPDATE
	`
	err = tx.QueryRow(ctx, query, tokenHash).Scan(&userID, &expiresAt, &username, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", ErrRefreshTokenInvalid
		}
		return "", "", err
	}

	now := time.Now().UTC()
	if !expiresAt.After(now) {
		if _, delErr := tx.Exec(ctx, `DELETE FROM admin_refresh_tokens WHERE token_hash = $1`, tokenHash); delErr != nil {
			return "", "", delErr
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			return "", "", commitErr
		}
		return "", "", ErrRefreshTokenExpired
	}

	claims := jwtutil.NewClaims(userID.String(), username, string(role), s.accessTTL)
	newAccessToken, err = jwtutil.GenerateAccessToken(claims, s.privateKey)
	if err != nil {
		return "", "", err
	}

	newRefreshToken, err = jwtutil.GenerateRefreshToken()
	if err != nil {
		return "", "", err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM admin_refresh_tokens WHERE token_hash = $1`, tokenHash); err != nil {
		return "", "", err
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO admin_refresh_tokens (token_hash, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		hashToken(newRefreshToken),
		userID,
		now.Add(s.refreshTTL),
		now,
	); err != nil {
		return "", "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", "", err
	}

	return newAccessToken, newRefreshToken, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrRefreshTokenInvalid
	}

	var userID uuid.UUID
	err := s.pool.QueryRow(
		ctx,
		`DELETE FROM admin_refresh_tokens WHERE token_hash = $1 RETURNING user_id`,
		hashToken(refreshToken),
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	s.writeAudit(ctx, &userID, "admin.logout")
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPwd, newPwd string) error {
	if len(newPwd) < 8 {
		return ErrInvalidAdminInput
	}

	user, err := s.adminRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAdminUserNotFound
		}
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPwd)) != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(
		ctx,
		`UPDATE admin_users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		userID,
		string(hashed),
		time.Now().UTC(),
	); err != nil {
		return err
	}

	// Existing sessions are revoked with the old password.
	if _, err := s.pool.Exec(ctx, `DELETE FROM admin_refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return err
	}

	s.writeAudit(ctx, &userID, "admin.change_password")
	return nil
}

func (s *AuthService) CreateAdminUser(
	ctx context.Context,
	username, password string,
	email *string,
	role model.AdminRole,
) (*model.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 8 {
		return nil, ErrInvalidAdminInput
	}
	if role == "" {
		role = model.AdminRoleAdmin
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &model.AdminUser{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hashed),
		Email:        email,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.adminRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, &user.ID, "admin.create")
	return user, nil
}

func (s *AuthService) FindByID(ctx context.Context, userID uuid.UUID) (*model.AdminUser, error) {
	user, err := s.adminRepo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAdminUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *model.AdminUser) (string, string, error) {
	claims := jwtutil.NewClaims(user.ID.String(), user.Username, string(user.Role), s.accessTTL)
	accessToken, err := jwtutil.GenerateAccessToken(claims, s.privateKey)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := jwtutil.GenerateRefreshToken()
	if err != nil {
		return "", "", err
	}

	now := time.Now().UTC()
	if _, err := s.pool.Exec(
		ctx,
		`INSERT INTO admin_refresh_tokens (token_hash, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		hashToken(refreshToken),
		user.ID,
		now.Add(s.refreshTTL),
		now,
	); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (s *AuthService) writeAudit(ctx context.Context, userID *uuid.UUID, action string) {
	if s.auditRepo == nil {
		return
	}

	var resourceID *string
	if userID != nil {
		v := userID.String()
		resourceID = &v
	}

	_ = s.auditRepo.Create(ctx, &model.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: stringPtr("admin_user"),
		ResourceID:   resourceID,
		CreatedAt:    time.Now().UTC(),
	})
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
