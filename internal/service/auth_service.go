// Package service implements account registration, credential checks and
// session token issuance on top of an account store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/iliyamo/lang-learner-backend/internal/logging"
	"github.com/iliyamo/lang-learner-backend/internal/metrics"
	"github.com/iliyamo/lang-learner-backend/internal/model"
	"github.com/iliyamo/lang-learner-backend/internal/queue"
	"github.com/iliyamo/lang-learner-backend/internal/repository"
	"github.com/iliyamo/lang-learner-backend/internal/utils"
)

// Error classes returned by AuthService. Handlers map each to one status.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrMalformedRequest = errors.New("malformed request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAmbiguousAccount = errors.New("ambiguous account")
	ErrPersistence      = errors.New("persistence failure")
	ErrTokenIssue       = errors.New("token issue failure")
)

// AccountStore is the persistence capability the flows need. The SQL
// implementation is repository.UserRepo.
type AccountStore interface {
	Insert(ctx context.Context, a model.NewAccount) (int64, error)
	FindByCredentials(ctx context.Context, login, digest string) ([]model.Account, error)
}

// AuthService holds no per-request state; it is safe for concurrent use.
type AuthService struct {
	accounts AccountStore
	tokens   *utils.TokenIssuer
	events   EventPublisher
	log      *slog.Logger
	now      func() time.Time
}

// NewAuthService wires the flows. tokens must come from NewTokenIssuer so
// the key has already been validated. A nil events publisher disables
// events.
func NewAuthService(accounts AccountStore, tokens *utils.TokenIssuer, events EventPublisher, log *slog.Logger) *AuthService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AuthService{accounts: accounts, tokens: tokens, events: events, log: log, now: time.Now}
}

// Register validates req, digests the password and persists the account.
// Nothing is written when validation fails. Store failures are returned as
// ErrPersistence and are not retried.
func (s *AuthService) Register(ctx context.Context, req model.RegistrationRequest) error {
	locale, err := model.ParseLocale(req.LocaleCode)
	if err != nil {
		metrics.RecordRegistration(metrics.StatusInvalid)
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if req.Login == "" || req.Password == "" {
		metrics.RecordRegistration(metrics.StatusInvalid)
		return fmt.Errorf("%w: login and password are required", ErrInvalidInput)
	}

	n, err := s.accounts.Insert(ctx, model.NewAccount{
		Login:            req.Login,
		CredentialDigest: utils.HashPassword(req.Password),
		DisplayName:      req.Name,
		Locale:           locale,
	})
	if err != nil {
		code := "ACCOUNT_INSERT_FAILED"
		if errors.Is(err, repository.ErrLoginExists) {
			code = "ACCOUNT_LOGIN_EXISTS"
		}
		wrapped := oops.Code(code).
			With("login", req.Login).
			Wrap(fmt.Errorf("%w: %w", ErrPersistence, err))
		logging.LogError(ctx, s.log, "create account failed", wrapped)
		metrics.RecordRegistration(metrics.StatusError)
		return wrapped
	}
	s.log.DebugContext(ctx, "account created", "login", req.Login, "rows", n)
	metrics.RecordRegistration(metrics.StatusSuccess)

	ev := queue.AccountRegisteredEvent{
		Login:        req.Login,
		DisplayName:  req.Name,
		Language:     locale.String(),
		RegisteredAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishAccountRegistered(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "publish account.registered failed", "login", req.Login, "error", err)
	}
	return nil
}

// Login checks the credentials in req and returns the matching account.
// Exactly one stored row must match both login and digest: none is
// ErrUnauthorized, more than one is ErrAmbiguousAccount.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthenticatedAccount, error) {
	if !req.Complete() {
		metrics.RecordLogin(metrics.StatusMalformed)
		return model.AuthenticatedAccount{}, fmt.Errorf("%w: login and password are required", ErrMalformedRequest)
	}

	digest := utils.HashPassword(req.Password)
	rows, err := s.accounts.FindByCredentials(ctx, req.Login, digest)
	if err != nil {
		wrapped := oops.Code("ACCOUNT_LOOKUP_FAILED").
			With("login", req.Login).
			Wrap(fmt.Errorf("%w: %w", ErrPersistence, err))
		logging.LogError(ctx, s.log, "login lookup failed", wrapped)
		metrics.RecordLogin(metrics.StatusError)
		return model.AuthenticatedAccount{}, wrapped
	}

	// Collations may compare case-insensitively; keep only exact matches.
	var matches []model.Account
	for _, a := range rows {
		if a.Login == req.Login && utils.VerifyPassword(a.CredentialDigest, req.Password) {
			matches = append(matches, a)
		}
	}

	switch len(matches) {
	case 0:
		metrics.RecordLogin(metrics.StatusUnauthorized)
		return model.AuthenticatedAccount{}, ErrUnauthorized
	case 1:
		metrics.RecordLogin(metrics.StatusSuccess)
		return matches[0].Public(), nil
	}
	ids := make([]int64, 0, len(matches))
	for _, a := range matches {
		ids = append(ids, a.ID)
	}
	s.log.ErrorContext(ctx, "duplicate accounts share login and credential",
		"login", req.Login, "account_ids", ids)
	metrics.RecordLogin(metrics.StatusAmbiguous)
	return model.AuthenticatedAccount{}, fmt.Errorf("%w: %d rows for login %q", ErrAmbiguousAccount, len(matches), req.Login)
}

// IssueTokens signs an access and a refresh token for acc. A signing
// failure here means the validated key broke at runtime; it is logged and
// returned as ErrTokenIssue.
func (s *AuthService) IssueTokens(ctx context.Context, acc model.AuthenticatedAccount) (utils.TokenPair, error) {
	pair, err := s.tokens.Issue(acc)
	if err != nil {
		wrapped := oops.Code("TOKEN_SIGN_FAILED").
			With("account_id", acc.ID).
			Wrap(fmt.Errorf("%w: %w", ErrTokenIssue, err))
		logging.LogError(ctx, s.log, "token issue failed", wrapped)
		return utils.TokenPair{}, wrapped
	}
	metrics.RecordTokenIssued(string(utils.TokenAccess))
	metrics.RecordTokenIssued(string(utils.TokenRefresh))
	return pair, nil
}

// Authenticate runs Login and, on success, IssueTokens.
func (s *AuthService) Authenticate(ctx context.Context, req model.LoginRequest) (utils.TokenPair, error) {
	acc, err := s.Login(ctx, req)
	if err != nil {
		return utils.TokenPair{}, err
	}
	return s.IssueTokens(ctx, acc)
}

// Refresh exchanges a valid refresh token for a new pair minted from the
// claims it carries. The store is not consulted and nothing is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (utils.TokenPair, error) {
	if refreshToken == "" {
		metrics.RecordRefresh(metrics.StatusMalformed)
		return utils.TokenPair{}, fmt.Errorf("%w: refresh_token is required", ErrMalformedRequest)
	}
	claims, err := s.tokens.Parse(refreshToken, utils.TokenRefresh)
	if err != nil {
		s.log.DebugContext(ctx, "refresh token rejected", "error", err)
		metrics.RecordRefresh(metrics.StatusUnauthorized)
		return utils.TokenPair{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	pair, err := s.IssueTokens(ctx, claims.Account())
	if err != nil {
		metrics.RecordRefresh(metrics.StatusError)
		return utils.TokenPair{}, err
	}
	metrics.RecordRefresh(metrics.StatusSuccess)
	return pair, nil
}

// VerifyAccess parses an access token for protected routes.
func (s *AuthService) VerifyAccess(raw string) (*utils.SessionClaims, error) {
	claims, err := s.tokens.Parse(raw, utils.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return claims, nil
}
