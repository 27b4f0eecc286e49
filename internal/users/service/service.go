package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/snapeat/internal/users/domain"
	"github.com/fjod/snapeat/internal/users/repository"
	"github.com/fjod/snapeat/pkg/circuitbreaker"
)

var ErrUnavailable = errors.New("user store unavailable")

// Service reads user profiles through a circuit breaker. Missing profiles
// do not count as failures.
type Service struct {
	repo    repository.UserRepository
	breaker *circuitbreaker.Breaker[*domain.User]
	timeout time.Duration
}

func NewService(repo repository.UserRepository, timeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo: repo,
		breaker: circuitbreaker.New[*domain.User]("users", circuitbreaker.Options{
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, domain.ErrUserNotFound)
			},
			Logger: logger,
		}),
		timeout: timeout,
	}
}

func (s *Service) GetUser(ctx context.Context, uid string) (*domain.User, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	user, err := s.breaker.Execute(func() (*domain.User, error) {
		return s.repo.GetUser(ctx, uid)
	})
	if circuitbreaker.IsOpen(err) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return user, err
}
