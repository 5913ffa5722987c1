package index_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// existingChunkSize keeps each existence query at 400 bind parameters, below
// the smallest limit of the supported engines (999 on old SQLite builds).
const existingChunkSize = 200

type dialect struct {
	name        string
	createTable string
	placeholder func(n int) string
}

// SQLIndex implements Index on top of database/sql.
type SQLIndex struct {
	db       *sql.DB
	location string
	dialect  dialect
	lg       *zap.Logger
}

func newSQLIndex(db *sql.DB, location string, d dialect, lg *zap.Logger) *SQLIndex {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &SQLIndex{
		db:       db,
		location: location,
		dialect:  d,
		lg:       lg.With(zap.String("index", d.name)),
	}
}

func (i *SQLIndex) Location() string {
	return i.location
}

func (i *SQLIndex) EnsureSchema(ctx context.Context) (string, error) {
	if _, err := i.db.ExecContext(ctx, i.dialect.createTable); err != nil {
		return "", fmt.Errorf("create s3_keys table: %w", err)
	}
	return i.location, nil
}

func (i *SQLIndex) Existing(ctx context.Context, ids []Identity) (map[Identity]struct{}, error) {
	found := make(map[Identity]struct{})
	if len(ids) == 0 {
		return found, nil
	}
	if _, err := i.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	for start := 0; start < len(ids); start += existingChunkSize {
		end := min(start+existingChunkSize, len(ids))
		if err := i.existingChunk(ctx, ids[start:end], found); err != nil {
			return nil, err
		}
	}

	return found, nil
}

func (i *SQLIndex) existingChunk(ctx context.Context, ids []Identity, found map[Identity]struct{}) error {
	tuples := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids)*2)
	for n, id := range ids {
		tuples = append(tuples, "("+i.dialect.placeholder(2*n+1)+", "+i.dialect.placeholder(2*n+2)+")")
		args = append(args, id.Bucket, id.Key)
	}

	rows, err := i.db.QueryContext(ctx,
		`SELECT bucket, key FROM s3_keys WHERE (bucket, key) IN (`+strings.Join(tuples, ", ")+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("query existing keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id Identity
		if err := rows.Scan(&id.Bucket, &id.Key); err != nil {
			return fmt.Errorf("scan existing key: %w", err)
		}
		found[id] = struct{}{}
	}

	return rows.Err()
}

// Save skips stored identities and inserts the rest in one transaction. When
// the transaction fails it is rolled back and every pending row is inserted
// on its own; rows that still fail are returned in SaveResult.Failures.
func (i *SQLIndex) Save(ctx context.Context, objs []Object) (SaveResult, error) {
	var res SaveResult
	if len(objs) == 0 {
		return res, nil
	}

	ids := make([]Identity, 0, len(objs))
	for _, obj := range objs {
		ids = append(ids, obj.Identity())
	}
	existing, err := i.Existing(ctx, ids)
	if err != nil {
		return res, err
	}

	pending := make([]Object, 0, len(objs))
	for _, obj := range objs {
		if _, ok := existing[obj.Identity()]; ok {
			res.Skipped++
			continue
		}
		pending = append(pending, obj)
	}
	if len(pending) == 0 {
		return res, nil
	}

	err = i.insertBatch(ctx, pending)
	if err == nil {
		res.Inserted = len(pending)
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}

	i.lg.Warn("batch insert failed, inserting rows one by one",
		zap.Error(err),
		zap.Int("rows", len(pending)),
	)
	for _, obj := range pending {
		if err := i.insertOne(ctx, obj); err != nil {
			rowErr := RowError{Object: obj, Err: err}
			i.lg.Warn("failed to save key",
				zap.String("bucket", obj.Bucket),
				zap.String("key", obj.Key),
				zap.Bool("conflict", rowErr.Conflict()),
				zap.Error(err),
			)
			res.Failures = append(res.Failures, rowErr)
			continue
		}
		res.Inserted++
	}

	return res, nil
}

func (i *SQLIndex) insertSQL() string {
	return `INSERT INTO s3_keys (bucket, key, last_modified) VALUES (` +
		i.dialect.placeholder(1) + `, ` + i.dialect.placeholder(2) + `, ` + i.dialect.placeholder(3) + `)`
}

func (i *SQLIndex) insertBatch(ctx context.Context, objs []Object) (err error) {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				i.lg.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, i.insertSQL())
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, obj := range objs {
		if _, err = stmt.ExecContext(ctx, obj.Bucket, obj.Key, obj.LastModified); err != nil {
			return fmt.Errorf("insert %s/%s: %w", obj.Bucket, obj.Key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (i *SQLIndex) insertOne(ctx context.Context, obj Object) error {
	_, err := i.db.ExecContext(ctx, i.insertSQL(), obj.Bucket, obj.Key, obj.LastModified)
	return err
}

func (i *SQLIndex) Search(ctx context.Context, query string) ([]Object, error) {
	if _, err := i.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	rows, err := i.db.QueryContext(ctx,
		`SELECT bucket, key, last_modified FROM s3_keys
		WHERE key LIKE `+i.dialect.placeholder(1)+` ESCAPE '\'
		ORDER BY id`,
		"%"+escapeLike(query)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("search keys: %w", err)
	}
	defer rows.Close()

	var objs []Object
	for rows.Next() {
		var obj Object
		var lastModified sql.NullString
		if err := rows.Scan(&obj.Bucket, &obj.Key, &lastModified); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		obj.LastModified = lastModified.String
		objs = append(objs, obj)
	}

	return objs, rows.Err()
}

func (i *SQLIndex) Get(ctx context.Context, id Identity) (*Object, error) {
	if _, err := i.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	obj := Object{Bucket: id.Bucket, Key: id.Key}
	var lastModified sql.NullString
	err := i.db.QueryRowContext(ctx,
		`SELECT last_modified FROM s3_keys WHERE bucket = `+i.dialect.placeholder(1)+` AND key = `+i.dialect.placeholder(2),
		id.Bucket, id.Key,
	).Scan(&lastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key %s/%s: %w", id.Bucket, id.Key, err)
	}
	obj.LastModified = lastModified.String

	return &obj, nil
}

func (i *SQLIndex) Count(ctx context.Context) (int, error) {
	if _, err := i.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	var n int
	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM s3_keys`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count keys: %w", err)
	}
	return n, nil
}

func (i *SQLIndex) Close() error {
	return i.db.Close()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes query match literally inside a LIKE pattern.
func escapeLike(query string) string {
	return likeEscaper.Replace(query)
}

var _ Index = (*SQLIndex)(nil)
