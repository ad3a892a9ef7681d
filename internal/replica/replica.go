// Package replica reads edit history and page links from a MediaWiki
// database replica.
package replica

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/kalambet/popular/internal/selection"
)

const (
	DefaultNamespace = 4
	DefaultTitle     = "Main_Page/Popular"

	// timestampLayout is the MediaWiki binary(14) timestamp format.
	timestampLayout = "20060102150405"
)

// Options describes how to reach the replica.
type Options struct {
	Driver   string // "mysql" or "sqlite"
	DSN      string // used verbatim when set
	Host     string
	Database string
	User     string
	Password string
}

// dsn returns the data source name for o. For mysql it is assembled from
// the individual fields unless o.DSN is set.
func (o Options) dsn() string {
	if o.DSN != "" || o.Driver != "mysql" {
		return o.DSN
	}
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = o.Host
	cfg.DBName = o.Database
	cfg.User = o.User
	cfg.Passwd = o.Password
	return cfg.FormatDSN()
}

// Replica runs the read-only queries the selection needs.
type Replica struct {
	db      *sql.DB
	dialect dialect
	page    DisplayPage
}

// DisplayPage identifies the page whose links form the already-displayed set.
type DisplayPage struct {
	Namespace int
	Title     string // without namespace prefix, underscores for spaces
}

// Open connects to the replica. page selects the display page for
// DisplayedItems; zero values fall back to the defaults.
func Open(opts Options, page DisplayPage) (*Replica, error) {
	if opts.Driver == "" {
		opts.Driver = "mysql"
	}
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}
	dsn := opts.dsn()
	if dsn == "" {
		return nil, fmt.Errorf("replica: empty data source for driver %q", opts.Driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening replica: %w", err)
	}
	if d.driver == "sqlite" {
		// Each connection to :memory: would otherwise see its own database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging replica: %w", err)
	}
	return newReplica(db, d, page), nil
}

func newReplica(db *sql.DB, d dialect, page DisplayPage) *Replica {
	if page.Title == "" {
		page.Title = DefaultTitle
		page.Namespace = DefaultNamespace
	}
	return &Replica{db: db, dialect: d, page: page}
}

// Close closes the underlying connection pool.
func (r *Replica) Close() error {
	return r.db.Close()
}

// Revisions returns the qualifying main-namespace edits newer than since,
// ordered by record id.
func (r *Replica) Revisions(ctx context.Context, since time.Time) ([]selection.EditRecord, error) {
	query := `SELECT
  rc_id,
  ` + r.dialect.text("rc_title") + ` AS item_id,
  ` + r.dialect.text("comment_text") + ` AS edit_summary,
  actor_id
FROM
  recentchanges
    JOIN actor_recentchanges ON rc_actor=actor_id
    JOIN comment_recentchanges ON rc_comment_id=comment_id
WHERE
  rc_namespace=0
  AND rc_new_len>rc_old_len
  AND rc_bot=0
  AND actor_user IS NOT NULL
  AND rc_deleted=0
  AND rc_source='mw.edit'
  AND rc_timestamp>?
ORDER BY rc_id ASC`

	rows, err := r.db.QueryContext(ctx, query, since.UTC().Format(timestampLayout))
	if err != nil {
		return nil, fmt.Errorf("querying revisions: %w", err)
	}
	defer rows.Close()

	var records []selection.EditRecord
	for rows.Next() {
		var rec selection.EditRecord
		var summary sql.NullString
		if err := rows.Scan(&rec.RecordID, &rec.ItemID, &summary, &rec.ContributorID); err != nil {
			return nil, fmt.Errorf("scanning revision: %w", err)
		}
		rec.RawSummary = summary.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading revisions: %w", err)
	}
	return records, nil
}

// ChangeTags returns every tag attached to a change with id >= minID.
func (r *Replica) ChangeTags(ctx context.Context, minID int64) ([]selection.ChangeTag, error) {
	query := `SELECT
  rc_id,
  ` + r.dialect.text("ctd_name") + ` AS tag_name
FROM
  recentchanges
    JOIN change_tag ON rc_id=ct_rc_id
    JOIN change_tag_def ON ct_tag_id=ctd_id
WHERE
  rc_id>=?`

	rows, err := r.db.QueryContext(ctx, query, minID)
	if err != nil {
		return nil, fmt.Errorf("querying change tags: %w", err)
	}
	defer rows.Close()

	var tags []selection.ChangeTag
	for rows.Next() {
		var t selection.ChangeTag
		if err := rows.Scan(&t.RecordID, &t.Name); err != nil {
			return nil, fmt.Errorf("scanning change tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading change tags: %w", err)
	}
	return tags, nil
}

// DisplayedItems returns the main-namespace titles linked from the display
// page.
func (r *Replica) DisplayedItems(ctx context.Context) ([]string, error) {
	query := `SELECT
  ` + r.dialect.text("lt_title") + ` AS lt_title
FROM
  pagelinks
    JOIN page ON pl_from=page_id
    JOIN linktarget ON pl_target_id=lt_id
WHERE
  page_namespace=?
  AND page_title=?
  AND lt_namespace=0`

	rows, err := r.db.QueryContext(ctx, query, r.page.Namespace, r.page.Title)
	if err != nil {
		return nil, fmt.Errorf("querying displayed items: %w", err)
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scanning displayed item: %w", err)
		}
		items = append(items, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading displayed items: %w", err)
	}
	return items, nil
}
