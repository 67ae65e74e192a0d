package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"yatube.dev/yatube/models"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// SQLStore is the Store over database/sql. The same queries run on
// PostgreSQL (lib/pq) in production and on SQLite (go-sqlite3) for tests
// and single-node runs; both enforce the schema's cascades.
type SQLStore struct {
	db *sql.DB

	mu  sync.Mutex
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// SetClock replaces the timestamp source used for pub_date and created.
func (s *SQLStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// timestamp is truncated to the microsecond precision Postgres keeps, so a
// value handed back to the caller equals the one read later.
func (s *SQLStore) timestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().UTC().Truncate(time.Microsecond)
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Constraint)
		}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %s", ErrDuplicate, liteErr.Error())
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %s", ErrNotFound, liteErr.Error())
		}
	}
	return err
}

func (s *SQLStore) CreateUser(ctx context.Context, u *models.User) error {
	created := s.timestamp()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, display_name, email, password, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		u.Username, u.DisplayName, u.Email, u.Password, created,
	).Scan(&u.ID)
	if err != nil {
		return translate(err)
	}
	u.CreatedAt = created
	return nil
}

func (s *SQLStore) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, `WHERE username = $1`, username)
}

func (s *SQLStore) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, display_name, email, password, created_at
		FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.Password, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *SQLStore) DeleteUser(ctx context.Context, id int) error {
	return s.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (s *SQLStore) CreateGroup(ctx context.Context, g *models.Group) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO post_groups (title, slug, description)
		VALUES ($1, $2, $3)
		RETURNING id`,
		g.Title, g.Slug, g.Description,
	).Scan(&g.ID)
	return translate(err)
}

func (s *SQLStore) GetGroupByID(ctx context.Context, id int) (*models.Group, error) {
	return s.getGroup(ctx, `WHERE id = $1`, id)
}

func (s *SQLStore) GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	return s.getGroup(ctx, `WHERE slug = $1`, slug)
}

func (s *SQLStore) getGroup(ctx context.Context, where string, arg interface{}) (*models.Group, error) {
	var g models.Group
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, slug, description FROM post_groups `+where, arg).
		Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

func (s *SQLStore) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, slug, description FROM post_groups ORDER BY title, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *SQLStore) DeleteGroup(ctx context.Context, id int) error {
	return s.execOne(ctx, `DELETE FROM post_groups WHERE id = $1`, id)
}

func (s *SQLStore) CreatePost(ctx context.Context, p *models.Post) error {
	pubDate := s.timestamp()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (text, pub_date, group_id, author_id, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		p.Text, pubDate, nullInt(p.GroupID), p.AuthorID, p.Image,
	).Scan(&p.ID)
	if err != nil {
		return translate(err)
	}
	p.PubDate = pubDate
	return nil
}

const postColumns = `
	SELECT p.id, p.text, p.pub_date, p.group_id, p.author_id, p.image,
	       u.username, u.display_name,
	       COALESCE(g.slug, ''), COALESCE(g.title, '')
	FROM posts p
	JOIN users u ON p.author_id = u.id
	LEFT JOIN post_groups g ON p.group_id = g.id`

func (s *SQLStore) GetPost(ctx context.Context, id int) (*models.PostWithAuthor, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, postColumns+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// UpdatePost rewrites the editable columns; pub_date and author are left alone.
func (s *SQLStore) UpdatePost(ctx context.Context, p *models.Post) error {
	return s.execOne(ctx, `
		UPDATE posts SET text = $1, group_id = $2, image = $3
		WHERE id = $4`,
		p.Text, nullInt(p.GroupID), p.Image, p.ID)
}

func (s *SQLStore) DeletePost(ctx context.Context, id int) error {
	return s.execOne(ctx, `DELETE FROM posts WHERE id = $1`, id)
}

func postWhere(f models.PostFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	add := func(clause string, v int) {
		args = append(args, v)
		clauses = append(clauses, strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if f.GroupID != 0 {
		add("p.group_id = ?", f.GroupID)
	}
	if f.AuthorID != 0 {
		add("p.author_id = ?", f.AuthorID)
	}
	if f.FollowerID != 0 {
		add("p.author_id IN (SELECT author_id FROM follows WHERE user_id = ?)", f.FollowerID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *SQLStore) CountPosts(ctx context.Context, f models.PostFilter) (int, error) {
	where, args := postWhere(f)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&n)
	return n, err
}

func (s *SQLStore) ListPosts(ctx context.Context, f models.PostFilter, limit, offset int) ([]models.PostWithAuthor, error) {
	where, args := postWhere(f)
	args = append(args, limit, offset)
	query := postColumns + where + fmt.Sprintf(`
		ORDER BY p.pub_date DESC, p.id DESC
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.PostWithAuthor
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row scanner) (*models.PostWithAuthor, error) {
	var p models.PostWithAuthor
	var groupID sql.NullInt64
	if err := row.Scan(&p.ID, &p.Text, &p.PubDate, &groupID, &p.AuthorID, &p.Image,
		&p.Username, &p.DisplayName, &p.GroupSlug, &p.GroupTitle); err != nil {
		return nil, err
	}
	if groupID.Valid {
		id := int(groupID.Int64)
		p.GroupID = &id
	}
	return &p, nil
}

func (s *SQLStore) CreateComment(ctx context.Context, c *models.Comment) error {
	created := s.timestamp()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (post_id, author_id, text, created)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		c.PostID, c.AuthorID, c.Text, created,
	).Scan(&c.ID)
	if err != nil {
		return translate(err)
	}
	c.Created = created
	return nil
}

func (s *SQLStore) GetComment(ctx context.Context, id int) (*models.Comment, error) {
	var c models.Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, post_id, author_id, text, created FROM comments WHERE id = $1`, id).
		Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.Created)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *SQLStore) ListComments(ctx context.Context, postID int) ([]models.CommentWithUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.post_id, c.author_id, c.text, c.created,
		       u.username, u.display_name
		FROM comments c
		JOIN users u ON c.author_id = u.id
		WHERE c.post_id = $1
		ORDER BY c.created ASC, c.id ASC`,
		postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.CommentWithUser
	for rows.Next() {
		var c models.CommentWithUser
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.Created,
			&c.Username, &c.DisplayName); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *SQLStore) DeleteComment(ctx context.Context, id int) error {
	return s.execOne(ctx, `DELETE FROM comments WHERE id = $1`, id)
}

func (s *SQLStore) CreateFollow(ctx context.Context, f *models.Follow) error {
	created := s.timestamp()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO follows (user_id, author_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`,
		f.UserID, f.AuthorID, created,
	).Scan(&f.ID)
	if err != nil {
		return translate(err)
	}
	f.CreatedAt = created
	return nil
}

func (s *SQLStore) FollowExists(ctx context.Context, userID, authorID int) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM follows WHERE user_id = $1 AND author_id = $2)`,
		userID, authorID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) DeleteFollow(ctx context.Context, userID, authorID int) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM follows WHERE user_id = $1 AND author_id = $2`,
		userID, authorID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (s *SQLStore) FollowStats(ctx context.Context, userID int) (models.FollowStats, error) {
	var stats models.FollowStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM follows WHERE author_id = $1) AS followers,
			(SELECT COUNT(*) FROM follows WHERE user_id = $1) AS following`,
		userID).Scan(&stats.FollowersCount, &stats.FollowingCount)
	return stats, err
}

func (s *SQLStore) RegisterDeviceToken(ctx context.Context, userID int, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO device_tokens (user_id, token, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id, token)
		DO UPDATE SET updated_at = excluded.updated_at`,
		userID, token, s.timestamp())
	return translate(err)
}

func (s *SQLStore) ListDeviceTokens(ctx context.Context, userID int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token FROM device_tokens
		WHERE user_id = $1 AND token != ''`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (s *SQLStore) DeleteDeviceToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = $1`, token)
	return err
}

func (s *SQLStore) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
