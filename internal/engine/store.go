package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/HendryAvila/episodic/internal/bitmap"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFile is the SQLite database filename under the data directory.
const DBFile = "episodic.db"

// Store is the persistent entity store backed by SQLite.
type Store struct {
	db *sql.DB
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, so row helpers work
// inside and outside transactions.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// NewStore opens (creating if needed) the engine database under dataDir,
// applies the SQLite pragmas, and runs migrations.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("engine: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(dataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("engine: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("engine: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("engine: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// --- Migrations ---

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS episodes (
			episode_id  TEXT PRIMARY KEY,
			status      TEXT NOT NULL DEFAULT 'UNDECIDED',
			ref_type    TEXT NOT NULL,
			ref_locator TEXT NOT NULL,
			created_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS candidates (
			candidate_id TEXT PRIMARY KEY,
			episode_id   TEXT    NOT NULL,
			proposed_by  TEXT    NOT NULL,
			bits         INTEGER NOT NULL,
			facets       TEXT    NOT NULL DEFAULT '[]',
			note         TEXT,
			confidence   INTEGER NOT NULL DEFAULT 0,
			status       TEXT    NOT NULL DEFAULT 'PENDING',
			backbone_id  TEXT,
			proposed_at  TEXT    NOT NULL,
			FOREIGN KEY (episode_id) REFERENCES episodes(episode_id)
		);

		CREATE INDEX IF NOT EXISTS idx_candidate_episode_status ON candidates(episode_id, status);
		CREATE INDEX IF NOT EXISTS idx_candidate_proposed_at    ON candidates(proposed_at);

		CREATE TABLE IF NOT EXISTS backbones (
			backbone_id   TEXT PRIMARY KEY,
			episode_id    TEXT    NOT NULL,
			bits_a        INTEGER NOT NULL,
			bits_b        INTEGER NOT NULL,
			bits_c        INTEGER NOT NULL,
			bits_d        INTEGER NOT NULL,
			combined_bits INTEGER NOT NULL,
			role          TEXT    NOT NULL,
			deprecated    INTEGER NOT NULL DEFAULT 0,
			adopted_at    TEXT    NOT NULL,
			FOREIGN KEY (episode_id) REFERENCES episodes(episode_id)
		);

		CREATE INDEX IF NOT EXISTS idx_backbone_a       ON backbones(bits_a);
		CREATE INDEX IF NOT EXISTS idx_backbone_b       ON backbones(bits_b);
		CREATE INDEX IF NOT EXISTS idx_backbone_c       ON backbones(bits_c);
		CREATE INDEX IF NOT EXISTS idx_backbone_d       ON backbones(bits_d);
		CREATE INDEX IF NOT EXISTS idx_backbone_episode ON backbones(episode_id, deprecated);

		CREATE TABLE IF NOT EXISTS facets (
			facet_uuid TEXT PRIMARY KEY,
			episode_id TEXT    NOT NULL,
			facet_id   INTEGER NOT NULL,
			value      INTEGER NOT NULL,
			FOREIGN KEY (episode_id) REFERENCES episodes(episode_id)
		);

		CREATE INDEX IF NOT EXISTS idx_facet_lookup  ON facets(facet_id, value);
		CREATE INDEX IF NOT EXISTS idx_facet_episode ON facets(episode_id, facet_id);

		CREATE TABLE IF NOT EXISTS events (
			event_id   TEXT PRIMARY KEY,
			episode_id TEXT,
			type       TEXT NOT NULL,
			payload    TEXT NOT NULL DEFAULT '{}',
			at         TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_event_type_at         ON events(type, at);
		CREATE INDEX IF NOT EXISTS idx_event_episode_type_at ON events(episode_id, type, at);

		CREATE TABLE IF NOT EXISTS notifications (
			message_id       TEXT PRIMARY KEY,
			episode_id       TEXT,
			priority         TEXT NOT NULL,
			type             TEXT NOT NULL,
			intent           TEXT NOT NULL,
			content          TEXT NOT NULL,
			required_context TEXT,
			status           TEXT NOT NULL DEFAULT 'PENDING',
			created_at       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_notify_priority_status ON notifications(status, priority, created_at);
		CREATE INDEX IF NOT EXISTS idx_notify_dedupe          ON notifications(intent, episode_id, status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// --- Episodes ---

func insertEpisode(x dbtx, ep *Episode) error {
	_, err := x.Exec(
		`INSERT INTO episodes (episode_id, status, ref_type, ref_locator, created_at) VALUES (?, ?, ?, ?, ?)`,
		ep.ID, ep.Status, ep.Ref.Type, ep.Ref.Locator, ep.CreatedAt,
	)
	return err
}

func getEpisode(x dbtx, id string) (*Episode, error) {
	row := x.QueryRow(
		`SELECT episode_id, status, ref_type, ref_locator, created_at FROM episodes WHERE episode_id = ?`, id,
	)
	var ep Episode
	if err := row.Scan(&ep.ID, &ep.Status, &ep.Ref.Type, &ep.Ref.Locator, &ep.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Entity: "episode", ID: id}
		}
		return nil, fmt.Errorf("loading episode %q: %w", id, err)
	}
	return &ep, nil
}

// GetEpisode retrieves an episode by ID.
func (s *Store) GetEpisode(id string) (*Episode, error) {
	return getEpisode(s.db, id)
}

func setEpisodeStatus(x dbtx, id string, status EpisodeStatus) error {
	_, err := x.Exec(`UPDATE episodes SET status = ? WHERE episode_id = ?`, status, id)
	return err
}

// --- Candidates ---

func insertCandidate(x dbtx, c *Candidate) error {
	facets, err := marshalJSON(c.Facets)
	if err != nil {
		return err
	}
	_, err = x.Exec(
		`INSERT INTO candidates (candidate_id, episode_id, proposed_by, bits, facets, note, confidence, status, proposed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.EpisodeID, c.ProposedBy, c.Bits, facets, nullableString(c.Note), c.Confidence, c.Status, c.ProposedAt,
	)
	return err
}

func scanCandidate(row *sql.Row) (*Candidate, error) {
	var c Candidate
	var facets string
	var note, backboneID sql.NullString
	err := row.Scan(&c.ID, &c.EpisodeID, &c.ProposedBy, &c.Bits, &facets, &note, &c.Confidence, &c.Status, &backboneID, &c.ProposedAt)
	if err != nil {
		return nil, err
	}
	c.Note = note.String
	c.BackboneID = backboneID.String
	if c.Facets, err = unmarshalFacets(facets); err != nil {
		return nil, err
	}
	return &c, nil
}

func getCandidate(x dbtx, id string) (*Candidate, error) {
	row := x.QueryRow(
		`SELECT candidate_id, episode_id, proposed_by, bits, facets, note, confidence, status, backbone_id, proposed_at
		 FROM candidates WHERE candidate_id = ?`, id,
	)
	c, err := scanCandidate(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Entity: "candidate", ID: id}
		}
		return nil, fmt.Errorf("loading candidate %q: %w", id, err)
	}
	return c, nil
}

// GetCandidate retrieves a candidate by ID.
func (s *Store) GetCandidate(id string) (*Candidate, error) {
	return getCandidate(s.db, id)
}

// ListCandidates returns all candidates of an episode, oldest first.
func (s *Store) ListCandidates(episodeID string) ([]Candidate, error) {
	rows, err := s.db.Query(
		`SELECT candidate_id, episode_id, proposed_by, bits, facets, note, confidence, status, backbone_id, proposed_at
		 FROM candidates WHERE episode_id = ? ORDER BY proposed_at ASC, candidate_id ASC`, episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	defer rows.Close()

	var result []Candidate
	for rows.Next() {
		var c Candidate
		var facets string
		var note, backboneID sql.NullString
		if err := rows.Scan(&c.ID, &c.EpisodeID, &c.ProposedBy, &c.Bits, &facets, &note, &c.Confidence, &c.Status, &backboneID, &c.ProposedAt); err != nil {
			return nil, err
		}
		c.Note = note.String
		c.BackboneID = backboneID.String
		if c.Facets, err = unmarshalFacets(facets); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func markCandidateAdopted(x dbtx, candidateID, backboneID string) error {
	_, err := x.Exec(
		`UPDATE candidates SET status = ?, backbone_id = ? WHERE candidate_id = ?`,
		CandidateAdopted, backboneID, candidateID,
	)
	return err
}

func markCandidateRejected(x dbtx, candidateID string) error {
	_, err := x.Exec(`UPDATE candidates SET status = ? WHERE candidate_id = ?`, CandidateRejected, candidateID)
	return err
}

// --- Backbones ---

func insertBackbone(x dbtx, b *Backbone) error {
	_, err := x.Exec(
		`INSERT INTO backbones (backbone_id, episode_id, bits_a, bits_b, bits_c, bits_d, combined_bits, role, deprecated, adopted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.EpisodeID, b.Code.A, b.Code.B, b.Code.C, b.Code.D, b.Code.Bits, b.Role, boolToInt(b.Deprecated), b.AdoptedAt,
	)
	return err
}

func getBackbone(x dbtx, id string) (*Backbone, error) {
	row := x.QueryRow(
		`SELECT backbone_id, episode_id, bits_a, bits_b, bits_c, bits_d, combined_bits, role, deprecated, adopted_at
		 FROM backbones WHERE backbone_id = ?`, id,
	)
	var b Backbone
	var deprecated int
	if err := row.Scan(&b.ID, &b.EpisodeID, &b.Code.A, &b.Code.B, &b.Code.C, &b.Code.D, &b.Code.Bits, &b.Role, &deprecated, &b.AdoptedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Entity: "backbone", ID: id}
		}
		return nil, fmt.Errorf("loading backbone %q: %w", id, err)
	}
	b.Deprecated = deprecated != 0
	return &b, nil
}

// GetBackbone retrieves a backbone by ID.
func (s *Store) GetBackbone(id string) (*Backbone, error) {
	return getBackbone(s.db, id)
}

func activeBackbones(x dbtx, episodeID string) ([]Backbone, error) {
	rows, err := x.Query(
		`SELECT backbone_id, episode_id, bits_a, bits_b, bits_c, bits_d, combined_bits, role, deprecated, adopted_at
		 FROM backbones WHERE episode_id = ? AND deprecated = 0 ORDER BY adopted_at ASC, backbone_id ASC`, episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing active backbones: %w", err)
	}
	defer rows.Close()

	var result []Backbone
	for rows.Next() {
		var b Backbone
		var deprecated int
		if err := rows.Scan(&b.ID, &b.EpisodeID, &b.Code.A, &b.Code.B, &b.Code.C, &b.Code.D, &b.Code.Bits, &b.Role, &deprecated, &b.AdoptedAt); err != nil {
			return nil, err
		}
		b.Deprecated = deprecated != 0
		result = append(result, b)
	}
	return result, rows.Err()
}

// ActiveBackbones returns the non-deprecated backbones of an episode,
// oldest first.
func (s *Store) ActiveBackbones(episodeID string) ([]Backbone, error) {
	return activeBackbones(s.db, episodeID)
}

func countActiveBackbones(x dbtx, episodeID string) (int, error) {
	var n int
	err := x.QueryRow(
		`SELECT COUNT(*) FROM backbones WHERE episode_id = ? AND deprecated = 0`, episodeID,
	).Scan(&n)
	return n, err
}

func markBackboneDeprecated(x dbtx, backboneID string) error {
	_, err := x.Exec(`UPDATE backbones SET deprecated = 1 WHERE backbone_id = ?`, backboneID)
	return err
}

// --- Facets ---

// setFacet writes a (facet-id, value) pair on an episode. Singleton facet
// ids overwrite the existing row; all other ids append a new row.
func setFacet(x dbtx, episodeID string, id bitmap.FacetID, value uint8) error {
	if bitmap.Singleton(id) {
		res, err := x.Exec(
			`UPDATE facets SET value = ? WHERE episode_id = ? AND facet_id = ?`,
			value, episodeID, id,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
	}
	_, err := x.Exec(
		`INSERT INTO facets (facet_uuid, episode_id, facet_id, value) VALUES (?, ?, ?, ?)`,
		newID("f"), episodeID, id, value,
	)
	return err
}

func getFacet(x dbtx, episodeID string, id bitmap.FacetID) (*Facet, error) {
	row := x.QueryRow(
		`SELECT facet_uuid, episode_id, facet_id, value FROM facets WHERE episode_id = ? AND facet_id = ? LIMIT 1`,
		episodeID, id,
	)
	var f Facet
	if err := row.Scan(&f.UUID, &f.EpisodeID, &f.ID, &f.Value); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("loading facet 0x%X: %w", uint8(id), err)
	}
	return &f, nil
}

// EpisodeFacets returns all facet rows of an episode.
func (s *Store) EpisodeFacets(episodeID string) ([]Facet, error) {
	rows, err := s.db.Query(
		`SELECT facet_uuid, episode_id, facet_id, value FROM facets WHERE episode_id = ? ORDER BY facet_id ASC, facet_uuid ASC`,
		episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing facets: %w", err)
	}
	defer rows.Close()

	var result []Facet
	for rows.Next() {
		var f Facet
		if err := rows.Scan(&f.UUID, &f.EpisodeID, &f.ID, &f.Value); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// --- Events ---

func appendEvent(x dbtx, t EventType, episodeID string, payload map[string]any) error {
	raw, err := marshalJSON(payload)
	if err != nil {
		return err
	}
	if raw == "" {
		raw = "{}"
	}
	_, err = x.Exec(
		`INSERT INTO events (event_id, episode_id, type, payload, at) VALUES (?, ?, ?, ?, ?)`,
		newID("evt"), nullableString(episodeID), t, raw, now(),
	)
	return err
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	defer rows.Close()
	var result []Event
	for rows.Next() {
		var e Event
		var episodeID sql.NullString
		var payload string
		if err := rows.Scan(&e.ID, &episodeID, &e.Type, &payload, &e.At); err != nil {
			return nil, err
		}
		e.EpisodeID = episodeID.String
		m, err := unmarshalMap(payload)
		if err != nil {
			return nil, err
		}
		e.Payload = m
		result = append(result, e)
	}
	return result, rows.Err()
}

// RecentEvents returns the newest events first, up to limit.
func (s *Store) RecentEvents(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT event_id, episode_id, type, payload, at FROM events ORDER BY at DESC, event_id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return scanEvents(rows)
}

// EpisodeEvents returns all events of an episode, oldest first.
func (s *Store) EpisodeEvents(episodeID string) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT event_id, episode_id, type, payload, at FROM events WHERE episode_id = ? ORDER BY at ASC, event_id ASC`,
		episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing episode events: %w", err)
	}
	return scanEvents(rows)
}

// CountEvents returns the number of events of one type for an episode.
func (s *Store) CountEvents(episodeID string, t EventType) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM events WHERE episode_id = ? AND type = ?`, episodeID, t,
	).Scan(&n)
	return n, err
}

// --- Notification queue ---

// EnqueueNotification inserts a notification unless a PENDING one with
// the same (intent, episode id) already exists; in that case it returns
// the existing row's id with existing=true and does not grow the queue.
func (s *Store) EnqueueNotification(p EnqueueParams) (id string, existing bool, err error) {
	if err := ValidatePriority(p.Priority); err != nil {
		return "", false, err
	}
	if err := ValidateNotificationType(p.Type); err != nil {
		return "", false, err
	}
	if strings.TrimSpace(p.Intent) == "" {
		return "", false, fmt.Errorf("notification intent is required")
	}

	err = s.withTx(func(tx *sql.Tx) error {
		row := tx.QueryRow(
			`SELECT message_id FROM notifications
			 WHERE intent = ? AND ifnull(episode_id, '') = ? AND status = ?
			 LIMIT 1`,
			p.Intent, p.EpisodeID, NotificationPending,
		)
		var existingID string
		scanErr := row.Scan(&existingID)
		if scanErr == nil {
			id, existing = existingID, true
			return nil
		}
		if scanErr != sql.ErrNoRows {
			return fmt.Errorf("dedup lookup: %w", scanErr)
		}

		ctx, mErr := marshalJSON(p.Context)
		if mErr != nil {
			return mErr
		}

		id = newID("msg")
		_, insErr := tx.Exec(
			`INSERT INTO notifications (message_id, episode_id, priority, type, intent, content, required_context, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, nullableString(p.EpisodeID), p.Priority, p.Type, p.Intent, p.Content, nullableString(ctx), NotificationPending, now(),
		)
		return insErr
	})
	if err != nil {
		return "", false, err
	}
	return id, existing, nil
}

// PendingNotifications returns all PENDING rows ordered by priority
// ascending (P1 first) then creation time ascending.
func (s *Store) PendingNotifications() ([]Notification, error) {
	rows, err := s.db.Query(
		`SELECT message_id, episode_id, priority, type, intent, content, required_context, status, created_at
		 FROM notifications WHERE status = ? ORDER BY priority ASC, created_at ASC, message_id ASC`,
		NotificationPending,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending notifications: %w", err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var n Notification
		var episodeID, ctx sql.NullString
		if err := rows.Scan(&n.ID, &episodeID, &n.Priority, &n.Type, &n.Intent, &n.Content, &ctx, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.EpisodeID = episodeID.String
		m, err := unmarshalMap(ctx.String)
		if err != nil {
			return nil, err
		}
		n.Context = m
		result = append(result, n)
	}
	return result, rows.Err()
}

// MarkServed flips the given notification rows to SERVED in one
// transaction, so a batched delivery retires all its rows atomically.
func (s *Store) MarkServed(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`UPDATE notifications SET status = 'SERVED' WHERE message_id IN (`+placeholders+`)`, args...,
		)
		return err
	})
}

// QueueCounts returns the number of PENDING notifications per tier.
func (s *Store) QueueCounts() (map[Priority]int, error) {
	counts := map[Priority]int{P1: 0, P2: 0, P3: 0, P4: 0}
	rows, err := s.db.Query(
		`SELECT priority, COUNT(*) FROM notifications WHERE status = ? GROUP BY priority`, NotificationPending,
	)
	if err != nil {
		return nil, fmt.Errorf("counting queue: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Priority
		var n int
		if err := rows.Scan(&p, &n); err != nil {
			return nil, err
		}
		counts[p] = n
	}
	return counts, rows.Err()
}

// --- Helpers ---

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
