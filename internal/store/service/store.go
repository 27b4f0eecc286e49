package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	catalog "github.com/fjod/snapeat/internal/catalog/domain"
	"github.com/fjod/snapeat/internal/store/domain"
	users "github.com/fjod/snapeat/internal/users/domain"
	"github.com/fjod/snapeat/pkg/logger"
)

// Persister receives the session blob after every mutation.
type Persister interface {
	Save(ctx context.Context, sessionID string, snap domain.Snapshot) error
}

type UserFetcher interface {
	GetUser(ctx context.Context, uid string) (*users.User, error)
}

// Store is the state of one browser session. Every method is safe for
// concurrent use; mutations are serialised and persisted in order.
type Store struct {
	mu        sync.Mutex
	sessionID string
	state     domain.State
	persister Persister
	users     UserFetcher
	logger    *slog.Logger
}

func NewStore(sessionID string, snap domain.Snapshot, persister Persister, users UserFetcher, logger *slog.Logger) *Store {
	return &Store{
		sessionID: sessionID,
		state:     domain.State{Snapshot: snap.Normalize()},
		persister: persister,
		users:     users,
		logger:    logger,
	}
}

func (s *Store) SessionID() string {
	return s.sessionID
}

// AddToCart adds one unit of p. A selected variation found on the product
// overrides its prices and stock flag.
func (s *Store) AddToCart(ctx context.Context, p catalog.Product) {
	if priced, err := p.WithVariation(p.SelectedVariation); err == nil {
		p = priced
	}
	key := domain.KeyFor(p)

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.state.CartProduct
	if i := indexOfKey(cart, key); i >= 0 {
		cart[i].Quantity++
	} else {
		s.state.CartProduct = append(cart, domain.CartLine{Product: p, Quantity: 1})
	}
	s.persistLocked(ctx)
}

// DecreaseQuantity removes one unit from the line at key and drops the line
// when it reaches zero. It reports whether a line matched.
func (s *Store) DecreaseQuantity(ctx context.Context, key domain.CartKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.state.CartProduct
	i := indexOfKey(cart, key)
	if i < 0 {
		return false
	}
	if cart[i].Quantity > 1 {
		cart[i].Quantity--
	} else {
		s.state.CartProduct = append(cart[:i], cart[i+1:]...)
	}
	s.persistLocked(ctx)
	return true
}

func (s *Store) RemoveFromCart(ctx context.Context, key domain.CartKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.state.CartProduct
	i := indexOfKey(cart, key)
	if i < 0 {
		return false
	}
	s.state.CartProduct = append(cart[:i], cart[i+1:]...)
	s.persistLocked(ctx)
	return true
}

func (s *Store) ResetCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CartProduct = []domain.CartLine{}
	s.persistLocked(ctx)
}

// AddToFavorite is a no-op for a product id already present.
func (s *Store) AddToFavorite(ctx context.Context, p catalog.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOfProduct(s.state.FavoriteProduct, p.ID) >= 0 {
		return false
	}
	s.state.FavoriteProduct = append(s.state.FavoriteProduct, p)
	s.persistLocked(ctx)
	return true
}

func (s *Store) RemoveFromFavorite(ctx context.Context, productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, removed := removeProduct(s.state.FavoriteProduct, productID)
	if !removed {
		return false
	}
	s.state.FavoriteProduct = list
	s.persistLocked(ctx)
	return true
}

func (s *Store) AddToCompare(ctx context.Context, p catalog.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOfProduct(s.state.CompareProducts, p.ID) >= 0 {
		return false
	}
	s.state.CompareProducts = append(s.state.CompareProducts, p)
	s.persistLocked(ctx)
	return true
}

func (s *Store) RemoveFromCompare(ctx context.Context, productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, removed := removeProduct(s.state.CompareProducts, productID)
	if !removed {
		return false
	}
	s.state.CompareProducts = list
	s.persistLocked(ctx)
	return true
}

func (s *Store) ClearCompare(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CompareProducts = []catalog.Product{}
	s.persistLocked(ctx)
}

// GetUserInfo loads the profile for uid into the session. Lookup failures
// leave the session without a current user and are only logged.
func (s *Store) GetUserInfo(ctx context.Context, uid string) *users.User {
	s.mu.Lock()
	s.state.IsLoading = true
	s.mu.Unlock()

	var user *users.User
	if uid != "" && s.users != nil {
		u, err := s.users.GetUser(ctx, uid)
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			s.logger.InfoContext(ctx, "user profile not found", "user", logger.HashID(uid))
		case err != nil:
			s.logger.ErrorContext(ctx, "failed to fetch user profile", "user", logger.HashID(uid), "error", err)
		default:
			user = u
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentUser = user
	s.state.IsLoading = false
	return user
}

func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot.Clone()
}

func (s *Store) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.State{
		Snapshot:  s.state.Snapshot.Clone(),
		IsLoading: s.state.IsLoading,
	}
	if s.state.CurrentUser != nil {
		u := *s.state.CurrentUser
		st.CurrentUser = &u
	}
	return st
}

func (s *Store) persistLocked(ctx context.Context) {
	if s.persister == nil {
		return
	}
	// a cancelled request must not lose a mutation that already happened
	ctx = context.WithoutCancel(ctx)
	if err := s.persister.Save(ctx, s.sessionID, s.state.Snapshot.Clone()); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist session", "session", logger.HashID(s.sessionID), "error", err)
	}
}

func indexOfKey(cart []domain.CartLine, key domain.CartKey) int {
	for i, l := range cart {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

func indexOfProduct(list []catalog.Product, id int64) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func removeProduct(list []catalog.Product, id int64) ([]catalog.Product, bool) {
	i := indexOfProduct(list, id)
	if i < 0 {
		return list, false
	}
	return append(list[:i], list[i+1:]...), true
}
