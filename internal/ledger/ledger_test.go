package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lkparity/internal/testutil"
)

// createTestLedger opens a ledger with predictable ids and timestamps.
func createTestLedger(t *testing.T) (*Ledger, *testutil.ManualClock) {
	t.Helper()
	clock := testutil.NewManualClock()
	ids := testutil.NewSequentialIDs("run")
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"),
		WithIDGenerator(ids.Next),
		WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, clock
}

func TestOpen_CreatesDatabaseAndParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "ledger.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	for i := 0; i < 3; i++ {
		l, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		l.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	l, _ := createTestLedger(t)

	var mode string
	require.NoError(t, l.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, l.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	var version int
	require.NoError(t, l.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestDefaultRunIDsAreUUIDv7(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer l.Close()

	id, err := l.BeginRun(context.Background(), "views")
	require.NoError(t, err)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	l, clock := createTestLedger(t)

	id, err := l.BeginRun(ctx, "tests/input_files/views")
	require.NoError(t, err)
	assert.Equal(t, "run-000001", id)

	run, err := l.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)
	assert.True(t, run.FinishedAt.IsZero())
	assert.True(t, run.StartedAt.Equal(testutil.Epoch))

	clock.Advance(90 * time.Second)
	require.NoError(t, l.FinishRun(ctx, id, StatusFailed, 3, 2, 1))

	run, err = l.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, 3, run.Total)
	assert.Equal(t, 2, run.Passed)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 90*time.Second, run.FinishedAt.Sub(run.StartedAt))
}

func TestFinishUnknownRun(t *testing.T) {
	l, _ := createTestLedger(t)

	err := l.FinishRun(context.Background(), "nope", StatusPassed, 0, 0, 0)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestGetUnknownRun(t *testing.T) {
	l, _ := createTestLedger(t)

	_, err := l.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRecordAndReadCases(t *testing.T) {
	ctx := context.Background()
	l, _ := createTestLedger(t)

	id, err := l.BeginRun(ctx, "views")
	require.NoError(t, err)

	cases := []Case{
		{
			RunID: id, CaseKey: "users.json", Fixture: "views/users.view.lkml", Status: CasePass,
			CandidatePath: "out/candidate/users.json", ReferencePath: "out/reference/users.json",
			CandidateDigest: "aa", ReferenceDigest: "aa",
			CandidateMedian: 2 * time.Millisecond, ReferenceMedian: 9 * time.Millisecond,
		},
		{
			RunID: id, CaseKey: "orders.json", Fixture: "views/orders.view.lkml", Status: CaseFail,
			Kind: "MISMATCH", Message: "views[0].name: \"orders\" != \"order\"",
		},
	}
	for _, c := range cases {
		require.NoError(t, l.RecordCase(ctx, c))
	}

	got, err := l.ReadCases(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, cases[1], got[0], "ordered by case key")
	assert.Equal(t, cases[0], got[1])
}

func TestRecordCaseReplaces(t *testing.T) {
	ctx := context.Background()
	l, _ := createTestLedger(t)
	id, err := l.BeginRun(ctx, "views")
	require.NoError(t, err)

	require.NoError(t, l.RecordCase(ctx, Case{RunID: id, CaseKey: "a.json", Fixture: "a", Status: CaseFail}))
	require.NoError(t, l.RecordCase(ctx, Case{RunID: id, CaseKey: "a.json", Fixture: "a", Status: CasePass}))

	got, err := l.ReadCases(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, CasePass, got[0].Status)
}

func TestRecordCaseRequiresRun(t *testing.T) {
	l, _ := createTestLedger(t)

	err := l.RecordCase(context.Background(), Case{RunID: "missing", CaseKey: "a.json", Fixture: "a", Status: CasePass})
	assert.Error(t, err, "foreign key must reject orphan cases")
}

func TestReadCasesEmpty(t *testing.T) {
	l, _ := createTestLedger(t)

	got, err := l.ReadCases(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	l, clock := createTestLedger(t)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := l.BeginRun(ctx, "views")
		require.NoError(t, err)
		ids = append(ids, id)
		clock.Advance(time.Minute)
	}

	runs, err := l.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	runs, err = l.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestCloseNil(t *testing.T) {
	var l *Ledger
	assert.NoError(t, l.Close())
}
