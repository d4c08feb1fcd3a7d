/*
sqlite_test.go - Tests for the SQLite roster and ladder store

Tests for:
- Member upsert, lookup, freeze and delete
- Seniority key uniqueness
- Ladder replacement and ordering
- Running a simulation straight off the store
*/
package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/promotion-engine/promotion"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testLadder() promotion.Ladder {
	return promotion.NewLadder(
		promotion.Tier{Rank: "A", Capacity: 1},
		promotion.Tier{Rank: "B", Capacity: 2},
		promotion.Tier{Rank: "C", Capacity: 3},
	)
}

func testRoster() []promotion.Member {
	return []promotion.Member{
		{ID: "m1", Name: "Alice", DateOfBirth: "15-03-1965", Rank: "A", OrderIndex: 1},
		{ID: "m2", Name: "Bob", DateOfBirth: "10-06-1970", Rank: "B", OrderIndex: 2},
		{ID: "m3", Name: "Carol", DateOfBirth: "20-08-1968", Rank: "B", OrderIndex: 3},
		{ID: "m4", Name: "Dan", DateOfBirth: "05-01-1975", Rank: "C", OrderIndex: 4},
	}
}

// memberByID reads the roster back and returns one member, nil if absent.
func memberByID(t *testing.T, store *Store, id promotion.MemberID) *promotion.Member {
	t.Helper()
	roster, err := store.Roster(context.Background())
	require.NoError(t, err)
	for i := range roster {
		if roster[i].ID == id {
			return &roster[i]
		}
	}
	return nil
}

func TestStore_SaveMemberRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m := promotion.Member{ID: "m1", Name: "Alice", DateOfBirth: "15-03-1965", Rank: "A", OrderIndex: 1, Frozen: true}
	require.NoError(t, store.SaveMember(ctx, m))

	got := memberByID(t, store, "m1")
	require.NotNil(t, got)
	assert.Equal(t, m, *got)
	assert.Nil(t, memberByID(t, store, "nobody"))
}

func TestStore_SaveMemberUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m := promotion.Member{ID: "m1", Name: "Alice", DateOfBirth: "15-03-1965", Rank: "B", OrderIndex: 1}
	require.NoError(t, store.SaveMember(ctx, m))

	m.Rank = "A"
	m.Name = "Alice Smith"
	require.NoError(t, store.SaveMember(ctx, m))

	roster, err := store.Roster(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, promotion.Rank("A"), roster[0].Rank)
	assert.Equal(t, "Alice Smith", roster[0].Name)
}

func TestStore_KeepsMalformedDOB(t *testing.T) {
	// GIVEN: A member whose DOB does not parse
	// THEN: The store keeps it verbatim so the run can report it per record
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMember(ctx, promotion.Member{ID: "x", DateOfBirth: "31-02-1970", Rank: "A", OrderIndex: 1}))

	got := memberByID(t, store, "x")
	require.NotNil(t, got)
	assert.Equal(t, "31-02-1970", got.DateOfBirth)
}

func TestStore_SeniorityKeyIsUnique(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMember(ctx, promotion.Member{ID: "m1", DateOfBirth: "01-01-1970", Rank: "A", OrderIndex: 1}))
	err := store.SaveMember(ctx, promotion.Member{ID: "m2", DateOfBirth: "01-01-1970", Rank: "A", OrderIndex: 1})
	assert.ErrorIs(t, err, promotion.ErrDuplicateSeniority)
}

func TestStore_RosterIsSeniorityOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	roster := testRoster()
	// Insert in reverse
	for i := len(roster) - 1; i >= 0; i-- {
		require.NoError(t, store.SaveMember(ctx, roster[i]))
	}

	got, err := store.Roster(ctx)
	require.NoError(t, err)
	assert.Equal(t, roster, got)
}

func TestStore_SaveRosterIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bad := testRoster()
	bad[3].OrderIndex = 1 // clashes with m1

	err := store.SaveRoster(ctx, bad)
	assert.ErrorIs(t, err, promotion.ErrDuplicateSeniority)

	got, err := store.Roster(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_SetFrozen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveRoster(ctx, testRoster()))

	require.NoError(t, store.SetFrozen(ctx, "m2", true))
	assert.True(t, memberByID(t, store, "m2").Frozen)

	require.NoError(t, store.SetFrozen(ctx, "m2", false))
	assert.False(t, memberByID(t, store, "m2").Frozen)

	assert.ErrorIs(t, store.SetFrozen(ctx, "nobody", true), promotion.ErrMemberNotFound)
}

func TestStore_DeleteMember(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveRoster(ctx, testRoster()))

	require.NoError(t, store.DeleteMember(ctx, "m3"))
	roster, err := store.Roster(ctx)
	require.NoError(t, err)
	assert.Len(t, roster, 3)

	assert.ErrorIs(t, store.DeleteMember(ctx, "m3"), promotion.ErrMemberNotFound)
}

func TestStore_LadderRoundTripKeepsOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	has, err := store.HasLadder(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.SaveLadder(ctx, testLadder()))

	got, err := store.Ladder(ctx)
	require.NoError(t, err)
	assert.Equal(t, []promotion.Rank{"A", "B", "C"}, got.Ranks())
	assert.Equal(t, 2, got.Capacity("B"))

	has, err = store.HasLadder(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestStore_SaveLadderReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLadder(ctx, testLadder()))
	require.NoError(t, store.SaveLadder(ctx, promotion.NewLadder(
		promotion.Tier{Rank: "X", Capacity: 5},
		promotion.Tier{Rank: "Y", Capacity: 10},
	)))

	got, err := store.Ladder(ctx)
	require.NoError(t, err)
	assert.Equal(t, []promotion.Rank{"X", "Y"}, got.Ranks())
}

func TestStore_SaveLadderRejectsDuplicateRank(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveLadder(ctx, testLadder()))

	err := store.SaveLadder(ctx, promotion.NewLadder(
		promotion.Tier{Rank: "X", Capacity: 1},
		promotion.Tier{Rank: "X", Capacity: 2},
	))
	assert.ErrorIs(t, err, promotion.ErrDuplicateRank)

	// Previous ladder survives the failed replace
	got, err := store.Ladder(ctx)
	require.NoError(t, err)
	assert.Equal(t, []promotion.Rank{"A", "B", "C"}, got.Ranks())
}

func TestStore_FeedsSimulation(t *testing.T) {
	// GIVEN: A roster and ladder persisted in SQLite
	// WHEN: Loading a simulation from the store
	// THEN: The cascade matches the in-memory run of the same data
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveLadder(ctx, testLadder()))
	require.NoError(t, store.SaveRoster(ctx, testRoster()))

	res, err := promotion.Load(ctx, store, store, promotion.DefaultRetirementAge)
	require.NoError(t, err)

	want, err := promotion.BuildFullSimulation(testRoster(), testLadder(), promotion.DefaultRetirementAge)
	require.NoError(t, err)

	assert.Equal(t, want.Occupancy(), res.Occupancy())
	assert.Equal(t, want.Ledger().Len(), res.Ledger().Len())
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveLadder(ctx, testLadder()))
	require.NoError(t, store.SaveRoster(ctx, testRoster()))

	require.NoError(t, store.Reset(ctx))

	roster, err := store.Roster(ctx)
	require.NoError(t, err)
	assert.Empty(t, roster)
	has, err := store.HasLadder(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}
