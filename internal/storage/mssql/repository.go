// Package mssql implements storage.Repository on SQL Server, for
// deployments that keep monitoring data in an existing MSSQL instance.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/TheOneAtFault/auction-monitor/internal/observability"
	"github.com/TheOneAtFault/auction-monitor/internal/storage"
)

const schema = `
IF OBJECT_ID('listeners', 'U') IS NULL
CREATE TABLE listeners (
	id          BIGINT IDENTITY(1,1) PRIMARY KEY,
	email       NVARCHAR(320) NOT NULL,
	search_term NVARCHAR(255) NOT NULL,
	created_at  DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME(),
	active      BIT NOT NULL DEFAULT 1,
	CONSTRAINT uq_listeners_email_term UNIQUE (email, search_term)
);

IF OBJECT_ID('auction_items', 'U') IS NULL
CREATE TABLE auction_items (
	id          BIGINT IDENTITY(1,1) PRIMARY KEY,
	title       NVARCHAR(512) NOT NULL,
	url         NVARCHAR(900) NOT NULL CONSTRAINT uq_auction_items_url UNIQUE,
	description NVARCHAR(MAX),
	price       NVARCHAR(128),
	end_time    NVARCHAR(128),
	image_url   NVARCHAR(900),
	scraped_at  DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()
);

IF OBJECT_ID('notifications', 'U') IS NULL
CREATE TABLE notifications (
	id              BIGINT IDENTITY(1,1) PRIMARY KEY,
	listener_id     BIGINT NOT NULL REFERENCES listeners(id),
	auction_item_id BIGINT NOT NULL REFERENCES auction_items(id),
	sent_at         DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME(),
	CONSTRAINT uq_notifications_pair UNIQUE (listener_id, auction_item_id)
);
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeoutMS int, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Repository{
		db:             db,
		commandTimeout: time.Duration(commandTimeoutMS) * time.Millisecond,
		logger:         logger,
	}, nil
}

func (r *Repository) GetActiveListeners(ctx context.Context) ([]storage.Listener, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, search_term, created_at, active FROM listeners WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query listeners: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err.Error())
		}
	}()

	return scanListeners(rows)
}

func (r *Repository) CreateListener(ctx context.Context, email, searchTerm string) (*storage.Listener, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	// Conditional insert keeps the unique pair invariant without bouncing a
	// constraint violation back to the caller.
	query := `
		IF NOT EXISTS (SELECT 1 FROM listeners WHERE email = @Email AND search_term = @SearchTerm)
		INSERT INTO listeners (email, search_term, active)
		OUTPUT INSERTED.id
		VALUES (@Email, @SearchTerm, 1);`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		sql.Named("Email", email),
		sql.Named("SearchTerm", searchTerm),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert listener: %w", err)
	}

	return &storage.Listener{
		ID:         id,
		Email:      email,
		SearchTerm: searchTerm,
		CreatedAt:  time.Now().UTC(),
		Active:     true,
	}, true, nil
}

func (r *Repository) GetListenersByEmail(ctx context.Context, email string) ([]storage.Listener, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, search_term, created_at, active FROM listeners
		 WHERE email = @Email AND active = 1 ORDER BY id`,
		sql.Named("Email", email))
	if err != nil {
		return nil, fmt.Errorf("failed to query listeners by email: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err.Error())
		}
	}()

	return scanListeners(rows)
}

func (r *Repository) DeactivateListener(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE listeners SET active = 0 WHERE id = @ID AND active = 1`,
		sql.Named("ID", id))
	if err != nil {
		return false, fmt.Errorf("failed to deactivate listener: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *Repository) URLExists(ctx context.Context, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM auction_items WHERE url = @URL`,
		sql.Named("URL", url)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query url existence: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) SaveItem(ctx context.Context, item *storage.AuctionItem) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	scrapedAt := time.Now().UTC()
	query := `
		IF NOT EXISTS (SELECT 1 FROM auction_items WHERE url = @URL)
		INSERT INTO auction_items (title, url, description, price, end_time, image_url, scraped_at)
		OUTPUT INSERTED.id
		VALUES (@Title, @URL, @Description, @Price, @EndTime, @ImageURL, @ScrapedAt);`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		sql.Named("Title", item.Title),
		sql.Named("URL", item.URL),
		sql.Named("Description", item.Description),
		sql.Named("Price", item.Price),
		sql.Named("EndTime", item.EndTime),
		sql.Named("ImageURL", item.ImageURL),
		sql.Named("ScrapedAt", scrapedAt),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// Duplicate URL; the stored row wins and stays untouched.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert item: %w", err)
	}

	item.ID = id
	item.ScrapedAt = scrapedAt
	return true, nil
}

func (r *Repository) GetItemsSince(ctx context.Context, since time.Time) ([]storage.AuctionItem, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, url, description, price, end_time, image_url, scraped_at
		 FROM auction_items WHERE scraped_at >= @Since ORDER BY scraped_at DESC`,
		sql.Named("Since", since.UTC()))
	if err != nil {
		return nil, fmt.Errorf("failed to query recent items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err.Error())
		}
	}()

	var items []storage.AuctionItem
	for rows.Next() {
		var it storage.AuctionItem
		if err := rows.Scan(&it.ID, &it.Title, &it.URL, &it.Description,
			&it.Price, &it.EndTime, &it.ImageURL, &it.ScrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

func (r *Repository) CountItems(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM auction_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func (r *Repository) AlreadySent(ctx context.Context, listenerID, itemID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE listener_id = @ListenerID AND auction_item_id = @ItemID`,
		sql.Named("ListenerID", listenerID),
		sql.Named("ItemID", itemID)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query notifications: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) RecordSent(ctx context.Context, listenerID, itemID int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		IF NOT EXISTS (SELECT 1 FROM notifications WHERE listener_id = @ListenerID AND auction_item_id = @ItemID)
		INSERT INTO notifications (listener_id, auction_item_id)
		VALUES (@ListenerID, @ItemID);`

	_, err := r.db.ExecContext(ctx, query,
		sql.Named("ListenerID", listenerID),
		sql.Named("ItemID", itemID))
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

func (r *Repository) CountNotifications(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func scanListeners(rows *sql.Rows) ([]storage.Listener, error) {
	var listeners []storage.Listener
	for rows.Next() {
		var l storage.Listener
		if err := rows.Scan(&l.ID, &l.Email, &l.SearchTerm, &l.CreatedAt, &l.Active); err != nil {
			return nil, fmt.Errorf("failed to scan listener: %w", err)
		}
		listeners = append(listeners, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listeners: %w", err)
	}
	return listeners, nil
}
