package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudents_CRUD(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	missing, err := db.GetStudent(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing, "unknown uid returns nil, nil")

	empty, err := db.GetStudent(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	s := &Student{
		UID: "S1", Name: "Asha", Section: "A", Nationality: "Domestic",
		Department: "Physics", HODContact: "hod@x", AdminContact: "admin@x", FeesStatus: "Paid",
	}
	require.NoError(t, db.UpsertStudent(ctx, s))

	got, err := db.GetStudent(ctx, " S1 ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *s, *got)

	s.FeesStatus = "Pending"
	require.NoError(t, db.UpsertStudent(ctx, s))
	got, err = db.GetStudent(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "Pending", got.FeesStatus, "upsert replaces the record")

	count, err := db.CountStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	deleted, err := db.DeleteStudent(ctx, "S1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = db.DeleteStudent(ctx, "S1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUpsertStudent_RequiresUID(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	assert.Error(t, db.UpsertStudent(context.Background(), &Student{Name: "No UID"}))
	assert.Error(t, db.UpsertStudent(context.Background(), nil))
}

func TestListStudents_Search(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.SeedSampleStudents(ctx)
	require.NoError(t, err)
	require.NoError(t, db.UpsertStudent(ctx, &Student{UID: "X_1", Name: "Under Score"}))

	all, err := db.ListStudents(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "24MCI10020", all[0].UID, "ordered by uid")

	sharma, err := db.ListStudents(ctx, "sharma")
	require.NoError(t, err)
	assert.Len(t, sharma, 2)

	// "_" must match literally, not as a LIKE wildcard.
	literal, err := db.ListStudents(ctx, "X_")
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "X_1", literal[0].UID)
}

func TestSeedSampleStudents(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	n, err := db.SeedSampleStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(SampleStudents), n)

	yash, err := db.GetStudent(ctx, "24MCI10030")
	require.NoError(t, err)
	require.NotNil(t, yash)
	assert.Equal(t, "Yash Singh", yash.Name)
	assert.Equal(t, "24MAM-4", yash.Section)
	assert.Equal(t, "Paid", yash.FeesStatus)

	again, err := db.SeedSampleStudents(ctx)
	require.NoError(t, err)
	assert.Zero(t, again, "seeding skips a non-empty table")
}

func TestContainsPattern(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"plain":   "%plain%",
		"50%":     `%50\%%`,
		"a_b":     `%a\_b%`,
		`back\sl`: `%back\\sl%`,
	} {
		assert.Equal(t, want, containsPattern(in), "input %q", in)
	}
}
