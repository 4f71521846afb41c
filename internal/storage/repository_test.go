package storage_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/ecobalance/internal/destination"
	"github.com/neexbeast/ecobalance/internal/storage"
)

// ---- mock Querier ----

type mockQuerier struct {
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFn(ctx, sql, args...)
}
func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}

// mockDB adds Begin to mockQuerier.
type mockDB struct {
	mockQuerier
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockDB) Begin(ctx context.Context) (pgx.Tx, error) { return m.beginFn(ctx) }

// ---- mock pgx.Row ----

type fakeRow struct {
	scanFn func(dest ...any) error
}

func (f *fakeRow) Scan(dest ...any) error { return f.scanFn(dest...) }

func errRow(err error) *fakeRow {
	return &fakeRow{scanFn: func(...any) error { return err }}
}

// valuesRow scans vals positionally into the destinations.
func valuesRow(vals ...any) *fakeRow {
	return &fakeRow{scanFn: func(dest ...any) error {
		for i, d := range dest {
			if i >= len(vals) {
				break
			}
			switch v := d.(type) {
			case *int:
				*v = vals[i].(int)
			case *int64:
				*v = vals[i].(int64)
			case *bool:
				*v = vals[i].(bool)
			case *string:
				*v = vals[i].(string)
			case *[]byte:
				*v = vals[i].([]byte)
			case **int64:
				if vals[i] == nil {
					*v = nil
				} else {
					n := vals[i].(int64)
					*v = &n
				}
			case *time.Time:
				*v = vals[i].(time.Time)
			default:
				return fmt.Errorf("unsupported scan target %T", d)
			}
		}
		return nil
	}}
}

// ---- mock pgx.Tx ----

type mockTx struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error

	committed  bool
	rolledBack bool
}

func (t *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.execFn(ctx, sql, args...)
}
func (t *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if t.queryRowFn == nil {
		return valuesRow(false)
	}
	return t.queryRowFn(ctx, sql, args...)
}
func (t *mockTx) Commit(ctx context.Context) error {
	t.committed = true
	if t.commitFn == nil {
		return nil
	}
	return t.commitFn(ctx)
}
func (t *mockTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	if t.rollbackFn == nil {
		return nil
	}
	return t.rollbackFn(ctx)
}

// pgx.Tx has many more methods; stub them all out.
func (t *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (t *mockTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *mockTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *mockTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *mockTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *mockTx) Conn() *pgx.Conn { return nil }

func okExec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

// ---- helpers ----

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSQLFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func poolWith(tx *mockTx) *mockDB {
	return &mockDB{beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil }}
}

// ---- LoadLive tests ----

func TestLoadLive_Found(t *testing.T) {
	fetched := time.Now().UTC().Truncate(time.Second)
	data, err := json.Marshal(destination.MetricsUpdate{
		NoiseDB: 55, SoilPPM: 61, EcoStress: 72,
		Status: destination.StatusRisky, LastSync: "10:00:05",
		LocalSignals: []string{"Avoid the north trail"},
	})
	require.NoError(t, err)

	var gotID any
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
			gotID = args[0]
			return valuesRow(int64(17), data, fetched)
		},
	}

	repo := storage.NewLiveSnapshotRepositoryWithQuerier(q)
	snap, err := repo.LoadLive(context.Background(), "demo-place-live")
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, "demo-place-live", gotID)
	assert.Equal(t, uint64(17), snap.Seq)
	assert.Equal(t, fetched, snap.FetchedAt)
	assert.Equal(t, 72.0, snap.Update.EcoStress)
	assert.Equal(t, destination.StatusRisky, snap.Update.Status)
}

func TestLoadLive_NotFound(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row { return errRow(pgx.ErrNoRows) },
	}

	repo := storage.NewLiveSnapshotRepositoryWithQuerier(q)
	snap, err := repo.LoadLive(context.Background(), "demo-place-live")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestLoadLive_DBError(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row { return errRow(fmt.Errorf("connection reset")) },
	}

	repo := storage.NewLiveSnapshotRepositoryWithQuerier(q)
	_, err := repo.LoadLive(context.Background(), "demo-place-live")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying live snapshot")
}

func TestLoadLive_BadJSON(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return valuesRow(int64(1), []byte("not-valid-json"), time.Now())
		},
	}

	repo := storage.NewLiveSnapshotRepositoryWithQuerier(q)
	_, err := repo.LoadLive(context.Background(), "demo-place-live")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

func TestLoadLive_UnknownStatusFailsClosed(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return valuesRow(int64(3), []byte(`{"noise_db":12,"status":"Totally Fine"}`), time.Now())
		},
	}

	repo := storage.NewLiveSnapshotRepositoryWithQuerier(q)
	snap, err := repo.LoadLive(context.Background(), "demo-place-live")
	require.NoError(t, err)
	assert.Equal(t, destination.StatusRecommended, snap.Update.Status)
	assert.Equal(t, 12.0, snap.Update.NoiseDB)
}

// ---- SaveLive tests ----

func TestSaveLive_Applied(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	q := &mockQuerier{
		execFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			gotSQL, gotArgs = sql, args
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}

	fetched := time.Now()
	repo := storage.NewLiveSnapshotRepositoryWithQuerier(q)
	applied, err := repo.SaveLive(context.Background(), destination.LiveSnapshot{
		DestinationID: "demo-place-live",
		Seq:           9,
		Update:        destination.MetricsUpdate{EcoStress: 40, Status: destination.StatusCaution},
		FetchedAt:     fetched,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	assert.Contains(t, gotSQL, "WHERE live_destinations.seq < EXCLUDED.seq")
	require.Len(t, gotArgs, 4)
	assert.Equal(t, "demo-place-live", gotArgs[0])
	assert.Equal(t, int64(9), gotArgs[1])
	assert.JSONEq(t, `{"noise_db":0,"soil_ppm":0,"eco_stress":40,"status":"Caution Advised","last_sync":"","local_signals":null}`, string(gotArgs[2].([]byte)))
	assert.Equal(t, fetched, gotArgs[3])
}

func TestSaveLive_Superseded(t *testing.T) {
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		},
	}

	repo := storage.NewLiveSnapshotRepositoryWithQuerier(q)
	applied, err := repo.SaveLive(context.Background(), destination.LiveSnapshot{DestinationID: "demo-place-live", Seq: 2})
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestSaveLive_DBError(t *testing.T) {
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("db error")
		},
	}

	repo := storage.NewLiveSnapshotRepositoryWithQuerier(q)
	_, err := repo.SaveLive(context.Background(), destination.LiveSnapshot{DestinationID: "demo-place-live", Seq: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upserting live snapshot")
}

func TestNewLiveSnapshotRepository_NotNil(t *testing.T) {
	assert.NotNil(t, storage.NewLiveSnapshotRepository(nil))
}

// ---- RunMigrations tests ----

func TestRunMigrations_MissingDir(t *testing.T) {
	err := storage.RunMigrations(context.Background(), nil, "/nonexistent/dir", discardLogger())
	require.Error(t, err)
}

func TestRunMigrations_EmptyDir(t *testing.T) {
	err := storage.RunMigrations(context.Background(), nil, t.TempDir(), discardLogger())
	require.NoError(t, err)
}

func TestRunMigrations_Success(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	var recorded []any
	tx := &mockTx{
		execFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			if strings.Contains(sql, "INSERT INTO schema_migrations") {
				recorded = args
			}
			return pgconn.CommandTag{}, nil
		},
	}

	err := storage.RunMigrations(context.Background(), poolWith(tx), dir, discardLogger())
	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.Equal(t, []any{"001_test.sql"}, recorded)
}

func TestRunMigrations_SkipsApplied(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	var ran bool
	tx := &mockTx{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			if sql == "SELECT 1;" {
				ran = true
			}
			return pgconn.CommandTag{}, nil
		},
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row { return valuesRow(true) },
	}

	err := storage.RunMigrations(context.Background(), poolWith(tx), dir, discardLogger())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestRunMigrations_BeginError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	pool := &mockDB{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return nil, fmt.Errorf("cannot begin") },
	}

	err := storage.RunMigrations(context.Background(), pool, dir, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executing migration")
}

func TestRunMigrations_ExecError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "INVALID SQL;")

	tx := &mockTx{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			if sql == "INVALID SQL;" {
				return pgconn.CommandTag{}, fmt.Errorf("syntax error")
			}
			return pgconn.CommandTag{}, nil
		},
	}

	err := storage.RunMigrations(context.Background(), poolWith(tx), dir, discardLogger())
	require.Error(t, err)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestRunMigrations_CommitError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	tx := &mockTx{
		execFn:   okExec,
		commitFn: func(_ context.Context) error { return fmt.Errorf("commit failed") },
	}

	err := storage.RunMigrations(context.Background(), poolWith(tx), dir, discardLogger())
	require.Error(t, err)
}

func TestRunMigrations_SortsFilesLexicographically(t *testing.T) {
	dir := t.TempDir()
	var order []string
	writeSQLFile(t, dir, "003_c.sql", "SELECT 3;")
	writeSQLFile(t, dir, "001_a.sql", "SELECT 1;")
	writeSQLFile(t, dir, "002_b.sql", "SELECT 2;")
	writeSQLFile(t, dir, "README.md", "not a migration")

	tx := &mockTx{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			if strings.HasPrefix(sql, "SELECT") {
				order = append(order, sql)
			}
			return pgconn.CommandTag{}, nil
		},
	}

	err := storage.RunMigrations(context.Background(), poolWith(tx), dir, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1;", "SELECT 2;", "SELECT 3;"}, order)
}

func TestRunMigrations_RepoSchema(t *testing.T) {
	var executed []string
	tx := &mockTx{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			executed = append(executed, sql)
			return pgconn.CommandTag{}, nil
		},
	}

	err := storage.RunMigrations(context.Background(), poolWith(tx), "../../migrations", discardLogger())
	require.NoError(t, err)

	all := strings.Join(executed, "\n")
	for _, table := range []string{"live_destinations", "users", "bookings"} {
		assert.Contains(t, all, "CREATE TABLE IF NOT EXISTS "+table)
	}
}

// ---- Connect tests ----

func TestConnect_BadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := storage.Connect(ctx, "postgres://invalid-host-xyz:5432/db?sslmode=disable")
	require.Error(t, err)
}
