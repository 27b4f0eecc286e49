package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/snapeat/internal/checkout/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrDuplicateCheckout = errors.New("checkout session already exists")
	ErrIllegalTransition = errors.New("illegal transition of checkout status")
	ErrNoRowsAffected    = errors.New("no rows affected")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type CheckoutSession struct {
	ID             string
	Receipt        string
	GatewayOrderID *string
	UserID         string
	COD            bool
	CartSnapshot   []byte
	Status         d.SessionStatus
	PaymentID      *string
	TotalAmount    decimal.Decimal
	Currency       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OutboxEvent struct {
	ID          int
	AggregateId string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

type RepoInterface interface {
	CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error
	CreateCODSession(ctx context.Context, session *CheckoutSession, payload []byte) error
	GetSessionByGatewayOrderID(ctx context.Context, orderID string) (*CheckoutSession, error)
	CompleteCheckoutSession(ctx context.Context, id, paymentID string, payload []byte) error
	RejectCheckoutSession(ctx context.Context, id string) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
	Ping(ctx context.Context) error
	Close() error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

// NewRepositoryFromDB wraps an already opened handle.
func NewRepositoryFromDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "checkout_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

const insertSessionQuery = `INSERT INTO checkout_sessions
	(id, receipt, gateway_order_id, user_id, cod, cart_snapshot, status, payment_id, total_amount, currency, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`

const insertOutboxQuery = `INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at)
	VALUES ($1, $2, $3, NOW())`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSession(ctx context.Context, ex execer, s *CheckoutSession) error {
	_, err := ex.ExecContext(ctx, insertSessionQuery,
		s.ID,
		s.Receipt,
		s.GatewayOrderID,
		s.UserID,
		s.COD,
		s.CartSnapshot,
		s.Status,
		s.PaymentID,
		s.TotalAmount,
		s.Currency)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

// CreateCheckoutSession stores a prepaid session, always as PENDING.
func (r *Repository) CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error {
	session.Status = d.SessionStatusPending
	return insertSession(ctx, r.db, session)
}

// CreateCODSession stores a cash-on-delivery session together with its
// confirmation event.
func (r *Repository) CreateCODSession(ctx context.Context, session *CheckoutSession, payload []byte) error {
	session.Status = d.SessionStatusCOD

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertSession(ctx, tx, session); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, insertOutboxQuery, session.ID, d.EventTypeCheckoutConfirmed, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) GetSessionByGatewayOrderID(ctx context.Context, orderID string) (*CheckoutSession, error) {
	query := `SELECT id, receipt, gateway_order_id, user_id, cod, cart_snapshot, status, payment_id, total_amount, currency, created_at, updated_at
	          FROM checkout_sessions WHERE gateway_order_id = $1`

	var s CheckoutSession
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&s.ID,
		&s.Receipt,
		&s.GatewayOrderID,
		&s.UserID,
		&s.COD,
		&s.CartSnapshot,
		&s.Status,
		&s.PaymentID,
		&s.TotalAmount,
		&s.Currency,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout session: %w", err)
	}
	return &s, nil
}

// CompleteCheckoutSession moves a PENDING session to VERIFIED and writes the
// confirmation event in the same transaction.
func (r *Repository) CompleteCheckoutSession(ctx context.Context, id, paymentID string, payload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE checkout_sessions SET status = $1, payment_id = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		d.SessionStatusVerified, paymentID, id, d.SessionStatusPending)
	if err != nil {
		return fmt.Errorf("update checkout session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrIllegalTransition
	}

	if _, err := tx.ExecContext(ctx, insertOutboxQuery, id, d.EventTypeCheckoutConfirmed, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) RejectCheckoutSession(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE checkout_sessions SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		d.SessionStatusRejected, id, d.SessionStatusPending)
	if err != nil {
		return fmt.Errorf("reject checkout session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrIllegalTransition
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events WHERE processed = FALSE
	          ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateId, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed = TRUE, processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}
