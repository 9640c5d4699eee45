// Package sqlite implements storage.Repository on an embedded SQLite
// database via modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/TheOneAtFault/auction-monitor/internal/observability"
	"github.com/TheOneAtFault/auction-monitor/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS listeners (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	email       TEXT NOT NULL,
	search_term TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT (datetime('now')),
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	UNIQUE(email, search_term)
);

CREATE TABLE IF NOT EXISTS auction_items (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	url         TEXT UNIQUE NOT NULL,
	description TEXT,
	price       TEXT,
	end_time    TEXT,
	image_url   TEXT,
	scraped_at  TIMESTAMP NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS notifications (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	listener_id     INTEGER NOT NULL REFERENCES listeners(id),
	auction_item_id INTEGER NOT NULL REFERENCES auction_items(id),
	sent_at         TIMESTAMP NOT NULL DEFAULT (datetime('now')),
	UNIQUE(listener_id, auction_item_id)
);

CREATE INDEX IF NOT EXISTS idx_listeners_email ON listeners(email);
CREATE INDEX IF NOT EXISTS idx_notifications_listener ON notifications(listener_id);
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeoutMS int, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to exec %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
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
		`SELECT id, email, search_term, created_at, active FROM listeners WHERE active = TRUE ORDER BY id`)
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

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO listeners (email, search_term, active) VALUES (?, ?, TRUE)
		 ON CONFLICT(email, search_term) DO NOTHING`,
		email, searchTerm)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert listener: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// The (email, search_term) pair already exists.
		return nil, false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get insert id: %w", err)
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
		 WHERE email = ? AND active = TRUE ORDER BY id`, email)
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
		`UPDATE listeners SET active = FALSE WHERE id = ? AND active = TRUE`, id)
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
		`SELECT COUNT(*) FROM auction_items WHERE url = ?`, url).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query url existence: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) SaveItem(ctx context.Context, item *storage.AuctionItem) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	scrapedAt := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO auction_items (title, url, description, price, end_time, image_url, scraped_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		item.Title, item.URL, item.Description, item.Price, item.EndTime, item.ImageURL, scrapedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Duplicate URL; the stored row wins and stays untouched.
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get insert id: %w", err)
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
		 FROM auction_items WHERE scraped_at >= ? ORDER BY scraped_at DESC`,
		since.UTC())
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
		`SELECT COUNT(*) FROM notifications WHERE listener_id = ? AND auction_item_id = ?`,
		listenerID, itemID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query notifications: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) RecordSent(ctx context.Context, listenerID, itemID int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (listener_id, auction_item_id) VALUES (?, ?)
		 ON CONFLICT(listener_id, auction_item_id) DO NOTHING`,
		listenerID, itemID)
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
