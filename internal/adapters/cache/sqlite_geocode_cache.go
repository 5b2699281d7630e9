package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"geosort-service/internal/domain"
	"geosort-service/internal/platform/db"
	"geosort-service/internal/platform/obs"
)

// SQLite backed cache mapping address strings to geographic coordinates.
// Address keys are expected to be consistent (e.g., normalized)
// by the caller.
type SqliteGeocodeCache struct {
	DB *sql.DB
}

func NewSqliteGeocodeCache(db *sql.DB) *SqliteGeocodeCache {
	return &SqliteGeocodeCache{DB: db}
}

// NewSessionGeocodeCache opens a private in-memory database with the cache schema.
// Close the returned cache to release it.
func NewSessionGeocodeCache(ctx context.Context) (*SqliteGeocodeCache, error) {
	handle, err := db.OpenMemory()
	if err != nil {
		return nil, eris.Wrap(err, "session geocode cache")
	}

	if err := InitSchema(ctx, handle); err != nil {
		_ = handle.Close()
		return nil, eris.Wrap(err, "session geocode cache")
	}

	return NewSqliteGeocodeCache(handle), nil
}

// Close releases the underlying database.
func (s *SqliteGeocodeCache) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// GetMany returns the cached coordinates of addresses. Blank and repeated keys are
// ignored and misses are simply absent from the result.
func (s *SqliteGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	keys := cacheKeys(addresses)
	if len(keys) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	// The key set travels as one JSON array parameter, expanded by json_each.
	arg, err := json.Marshal(keys)
	if err != nil {
		return nil, eris.Wrap(err, "geocode cache lookup: encode keys")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT c.address, c.lon, c.lat
	FROM geocode_cache AS c
	JOIN json_each(?) AS k ON k.value = c.address;
	`, string(arg))
	if err != nil {
		return nil, eris.Wrap(err, "geocode cache lookup: query")
	}
	defer rows.Close()

	hits := make(map[string]domain.Coordinates, len(keys))
	for rows.Next() {
		var (
			addr string
			c    domain.Coordinates
		)
		if err := rows.Scan(&addr, &c.Lon, &c.Lat); err != nil {
			return nil, eris.Wrap(err, "geocode cache lookup: scan")
		}
		hits[addr] = c
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geocode cache lookup: rows")
	}

	return hits, nil
}

// cacheKeys trims addresses and returns the distinct non-blank ones, sorted.
func cacheKeys(addresses []string) []string {
	keys := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if a = strings.TrimSpace(a); a != "" {
			keys = append(keys, a)
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// Store address -> coordinate mappings in the cache.
func (s *SqliteGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) error {
	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "insert geocode cache: db begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO geocode_cache (
        address,
        lon,
        lat
    )
    VALUES (?, ?, ?);
	`)
	if err != nil {
		return eris.Wrap(err, "insert geocode cache: db prepare")
	}
	defer stmt.Close()

	for addr, c := range results {
		if strings.TrimSpace(addr) == "" {
			return errors.New("insert geocode cache: empty address key")
		}

		if _, err := stmt.ExecContext(ctx, addr, c.Lon, c.Lat); err != nil {
			return eris.Wrapf(err, "insert geocode cache address=%q", addr)
		}
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "insert geocode cache commit")
	}

	return nil
}
