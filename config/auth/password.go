package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ccccccmd/nacos-config-sdk/config"
	"github.com/ccccccmd/nacos-config-sdk/config/transport"
)

const loginTimeout = 5 * time.Second

var (
	minRefreshInterval = 30 * time.Second
	maxRefreshInterval = 300 * time.Second
)

// PasswordSession is the username/password auth variant: stateful, with
// an initial login and a background refresh task whose period tracks the
// server-issued token TTL.
type PasswordSession struct {
	addrs       []string
	contextPath string
	sender      transport.Sender
	username    string
	password    string
	logger      *zap.SugaredLogger

	token *config.TokenInfo
	sg    singleflight.Group

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewPasswordSession builds a PasswordSession. addrs must already be
// normalized (http(s):// prefixed, no trailing slash).
func NewPasswordSession(addrs []string, contextPath string, sender transport.Sender, username, password string, logger *zap.SugaredLogger) *PasswordSession {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &PasswordSession{
		addrs:       addrs,
		contextPath: contextPath,
		sender:      sender,
		username:    username,
		password:    password,
		logger:      logger,
		token:       config.NewTokenInfo(),
		stopCh:      make(chan struct{}),
	}
}

func (s *PasswordSession) IsEnabled() bool { return true }

// Initialize performs the first login and starts the background refresh
// task. It never returns an error for a failed login -- failures are
// logged, and the subsequent CRUD calls surface the server's 403.
func (s *PasswordSession) Initialize(ctx context.Context) error {
	s.loginOnce(ctx)
	s.wg.Add(1)
	go s.refreshLoop()
	return nil
}

// EnsureAuthenticated performs a login when the current token is invalid,
// collapsing concurrent callers into a single network round trip.
func (s *PasswordSession) EnsureAuthenticated(ctx context.Context) error {
	if s.token.IsValid() {
		return nil
	}
	s.loginOnce(ctx)
	return nil
}

func (s *PasswordSession) loginOnce(ctx context.Context) {
	if s.token.IsValid() {
		return
	}
	_, _, _ = s.sg.Do("login", func() (interface{}, error) {
		// Double-checked: another goroutine may have refreshed the token
		// while we were waiting to enter the singleflight group.
		if s.token.IsValid() {
			return nil, nil
		}
		s.login(ctx)
		return nil, nil
	})
}

func (s *PasswordSession) login(ctx context.Context) {
	for _, addr := range s.addrs {
		attemptCtx, cancel := context.WithTimeout(ctx, loginTimeout)
		accessToken, tokenTtl, err := s.attemptLogin(attemptCtx, addr)
		cancel()
		if err != nil {
			s.logger.Warnw("login attempt failed", "server", addr, "err", err)
			continue
		}
		s.token.Update(accessToken, tokenTtl)
		return
	}
	s.logger.Warnw("login failed on every configured server", "servers", s.addrs)
}

func (s *PasswordSession) attemptLogin(ctx context.Context, addr string) (string, int64, error) {
	form := url.Values{}
	form.Set("username", s.username)
	form.Set("password", s.password)

	fullURL := addr + "/" + s.contextPath + "/v1/auth/users/login"
	resp, err := s.sender.Send(ctx, "POST", fullURL, nil, form)
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode != 200 {
		return "", 0, fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"accessToken"`
		TokenTtl    int64  `json:"tokenTtl"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return "", 0, fmt.Errorf("malformed login response: %w", err)
	}
	return parsed.AccessToken, parsed.TokenTtl, nil
}

func (s *PasswordSession) refreshLoop() {
	defer s.wg.Done()

	for {
		period := clampRefreshPeriod(s.token.TTL())
		timer := time.NewTimer(period)
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.loginOnce(context.Background())
		}
	}
}

func clampRefreshPeriod(tokenTtlSeconds int64) time.Duration {
	period := time.Duration(float64(tokenTtlSeconds)*0.8) * time.Second
	if period < minRefreshInterval {
		return minRefreshInterval
	}
	if period > maxRefreshInterval {
		return maxRefreshInterval
	}
	return period
}

func (s *PasswordSession) ApplyToRequest(headers map[string]string) {
	headers["accessToken"] = s.token.AccessToken()
}

func (s *PasswordSession) ApplyToParams(params url.Values, _ config.ConfigKey) {
	params.Set("accessToken", s.token.AccessToken())
}

func (s *PasswordSession) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}
