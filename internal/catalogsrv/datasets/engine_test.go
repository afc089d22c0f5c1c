package datasets

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/datacatalog/internal/catalogsrv/blobstore"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/dberror"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/memstore"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

// tickClock advances one second on every reading so records get distinct,
// ordered timestamps.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type testEnv struct {
	engine *Engine
	store  *memstore.Store
	blobs  *blobstore.LocalStore
	clock  *tickClock
}

func newTestEnv(t *testing.T, opts ...Options) *testEnv {
	t.Helper()
	store := memstore.New()
	blobs, err := blobstore.NewLocalStore(t.TempDir(), "test-signing-key", "http://catalog.test")
	require.NoError(t, err)
	clock := &tickClock{t: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
	o := Options{}
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Now = clock.Now
	return &testEnv{
		engine: NewEngine(store, blobs, o),
		store:  store,
		blobs:  blobs,
		clock:  clock,
	}
}

func (env *testEnv) create(t *testing.T, name string, tags ...string) *models.Dataset {
	t.Helper()
	d, err := env.engine.Create(context.Background(), CreateParams{
		Name:        name,
		Description: "description of " + name,
		Tags:        tags,
		CreatedBy:   "alice",
	})
	require.Nil(t, err)
	return d
}

func (env *testEnv) version(t *testing.T, parent *models.Dataset) *models.Dataset {
	t.Helper()
	d, err := env.engine.CreateVersion(context.Background(), parent.ID, nil, nil, "alice")
	require.Nil(t, err)
	return d
}

func TestCreateFamilyAndVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.create(t, "Sales Data", "Sales", "monthly")
	assert.Equal(t, "Sales Data", first.Name)
	assert.Equal(t, "Sales Data", first.BaseName)
	assert.Equal(t, 1, first.Version)
	assert.Nil(t, first.ParentID)
	assert.False(t, first.IsProduction)
	assert.Empty(t, first.Files)

	second, err := env.engine.Create(ctx, CreateParams{
		Description: "second cut",
		CreatedBy:   "bob",
		ParentID:    &first.ID,
	})
	require.Nil(t, err)
	assert.Equal(t, "Sales Data", second.BaseName)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, "Sales Data v2", second.Name)
	require.NotNil(t, second.ParentID)
	assert.Equal(t, first.ID, *second.ParentID)
	assert.Equal(t, "bob", second.CreatedBy)

	stored, err := env.engine.Get(ctx, second.ID)
	require.Nil(t, err)
	assert.Equal(t, second, stored)
}

func TestVersionSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.create(t, "Inventory")
	family := []*models.Dataset{root}
	parent := root
	for i := 0; i < 4; i++ {
		parent = env.version(t, parent)
		family = append(family, parent)
	}
	// branch from the root as well
	family = append(family, env.version(t, root))

	seen := map[int]bool{}
	for _, d := range family {
		assert.False(t, seen[d.Version], "duplicate version %d", d.Version)
		seen[d.Version] = true
		if d.Version == 1 {
			assert.Equal(t, "Inventory", d.Name)
		} else {
			assert.Equal(t, "Inventory v"+strconv.Itoa(d.Version), d.Name)
		}
	}
	for v := 1; v <= len(family); v++ {
		assert.True(t, seen[v], "missing version %d", v)
	}

	versions, err := env.engine.Versions(ctx, "Inventory", false)
	require.Nil(t, err)
	require.Len(t, versions, len(family))
	assert.Equal(t, len(family), versions[0].Version)
	assert.Equal(t, 1, versions[len(versions)-1].Version)
}

func TestVersionNumbersAreNotReused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v1 := env.create(t, "Logs")
	v2 := env.version(t, v1)
	_, err := env.engine.SoftDelete(ctx, v2.ID, "alice")
	require.Nil(t, err)

	v3 := env.version(t, v1)
	assert.Equal(t, 3, v3.Version)
	assert.Equal(t, "Logs v3", v3.Name)
}

func TestCreateErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	existing := env.create(t, "Foo")
	missing := uuid.New()

	tests := []struct {
		name   string
		params CreateParams
		want   apperrors.Error
	}{
		{"empty name", CreateParams{Name: "  ", CreatedBy: "alice"}, ErrInvalidName},
		{"too short", CreateParams{Name: "ab", CreatedBy: "alice"}, ErrInvalidName},
		{"bad characters", CreateParams{Name: "sales/2024", CreatedBy: "alice"}, ErrInvalidName},
		{"leading special", CreateParams{Name: "-sales", CreatedBy: "alice"}, ErrInvalidName},
		{"consecutive specials", CreateParams{Name: "sales__data", CreatedBy: "alice"}, ErrInvalidName},
		{"active name taken", CreateParams{Name: "Foo", CreatedBy: "bob"}, ErrNameConflict},
		{"missing creator", CreateParams{Name: "Bar"}, ErrInvalidRequest},
		{"parent not found", CreateParams{CreatedBy: "alice", ParentID: &missing}, ErrParentNotFound},
		{"base name mismatch", CreateParams{CreatedBy: "alice", ParentID: &existing.ID, BaseName: "Other"}, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := env.engine.Create(ctx, tt.params)
			assert.Nil(t, d)
			require.NotNil(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNameReusableAfterDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	foo := env.create(t, "Foo")
	_, err := env.engine.Create(ctx, CreateParams{Name: "Foo", CreatedBy: "bob"})
	assert.ErrorIs(t, err, ErrNameConflict)

	_, err = env.engine.SoftDelete(ctx, foo.ID, "alice")
	require.Nil(t, err)

	again, err := env.engine.Create(ctx, CreateParams{Name: "Foo", CreatedBy: "bob"})
	require.Nil(t, err)
	assert.NotEqual(t, foo.ID, again.ID)
	assert.Equal(t, 1, again.Version)
}

func TestCreateVersionInheritsMetadata(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	parent := env.create(t, "Weather", "climate", "daily")

	child := env.version(t, parent)
	assert.Equal(t, parent.Description, child.Description)
	assert.Equal(t, parent.Tags, child.Tags)

	desc := "hourly readings"
	child2, err := env.engine.CreateVersion(ctx, parent.ID, &desc, []string{"hourly"}, "alice")
	require.Nil(t, err)
	assert.Equal(t, desc, child2.Description)
	assert.Equal(t, []string{"hourly"}, child2.Tags)

	_, err = env.engine.CreateVersion(ctx, uuid.New(), nil, nil, "alice")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLineage(t *testing.T) {
	ctx := context.Background()

	t.Run("nearest ancestor first", func(t *testing.T) {
		env := newTestEnv(t)
		v1 := env.create(t, "Chain")
		v2 := env.version(t, v1)
		v3 := env.version(t, v2)

		lineage, err := env.engine.Lineage(ctx, v3)
		require.Nil(t, err)
		require.Len(t, lineage, 2)
		assert.Equal(t, v2.ID, lineage[0].ID)
		assert.Equal(t, v1.ID, lineage[1].ID)

		lineage, err = env.engine.Lineage(ctx, v1)
		require.Nil(t, err)
		assert.Empty(t, lineage)
	})

	t.Run("broken chain stops", func(t *testing.T) {
		env := newTestEnv(t)
		v1 := env.create(t, "Broken")
		missing := uuid.New()
		orphan := v1.Clone()
		orphan.ID = uuid.New()
		orphan.Version = 2
		orphan.ParentID = &missing
		require.Nil(t, env.store.CreateDataset(ctx, orphan))

		lineage, err := env.engine.Lineage(ctx, orphan)
		require.Nil(t, err)
		assert.Empty(t, lineage)
	})

	t.Run("cycle terminates", func(t *testing.T) {
		env := newTestEnv(t)
		v1 := env.create(t, "Cycle")
		v2 := env.version(t, v1)
		looped := v1.Clone()
		looped.ParentID = &v2.ID
		require.Nil(t, env.store.ReplaceDataset(ctx, looped))

		lineage, err := env.engine.Lineage(ctx, v2)
		require.Nil(t, err)
		require.Len(t, lineage, 1)
		assert.Equal(t, v1.ID, lineage[0].ID)
	})

	t.Run("self reference terminates", func(t *testing.T) {
		env := newTestEnv(t)
		v1 := env.create(t, "Self")
		self := v1.Clone()
		self.ParentID = &self.ID
		require.Nil(t, env.store.ReplaceDataset(ctx, self))

		lineage, err := env.engine.Lineage(ctx, self)
		require.Nil(t, err)
		assert.Empty(t, lineage)
	})

	t.Run("depth cap", func(t *testing.T) {
		env := newTestEnv(t, Options{MaxLineageDepth: 2})
		d := env.create(t, "Deep")
		for i := 0; i < 4; i++ {
			d = env.version(t, d)
		}
		lineage, err := env.engine.Lineage(ctx, d)
		require.Nil(t, err)
		assert.Len(t, lineage, 2)
	})
}

func activeProduction(t *testing.T, env *testEnv, baseName string) []*models.Dataset {
	t.Helper()
	list, err := env.store.QueryDatasets(context.Background(), models.DatasetQuery{
		BaseName:   baseName,
		Deleted:    models.BoolPtr(false),
		Production: models.BoolPtr(true),
	})
	require.Nil(t, err)
	return list
}

func TestSetProduction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v1 := env.create(t, "Orders")
	v2 := env.version(t, v1)
	v3 := env.version(t, v2)

	for _, step := range []struct {
		id         uuid.UUID
		production bool
	}{
		{v1.ID, true},
		{v2.ID, true},
		{v3.ID, true},
		{v3.ID, true},
		{v1.ID, true},
		{v1.ID, false},
		{v2.ID, true},
	} {
		d, err := env.engine.SetProduction(ctx, step.id, step.production, "carol")
		require.Nil(t, err)
		assert.Equal(t, step.production, d.IsProduction)
		assert.LessOrEqual(t, len(activeProduction(t, env, "Orders")), 1)
	}

	prod := activeProduction(t, env, "Orders")
	require.Len(t, prod, 1)
	assert.Equal(t, v2.ID, prod[0].ID)
	assert.Equal(t, "carol", prod[0].ProductionSetBy)
	assert.NotNil(t, prod[0].ProductionSetAt)

	old, err := env.engine.Get(ctx, v1.ID)
	require.Nil(t, err)
	assert.False(t, old.IsProduction)
	assert.Empty(t, old.ProductionSetBy)
	assert.Nil(t, old.ProductionSetAt)

	_, err = env.engine.SetProduction(ctx, uuid.New(), true, "carol")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestSetProductionOnDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	only := env.create(t, "Lonely")
	_, err := env.engine.SoftDelete(ctx, only.ID, "alice")
	require.Nil(t, err)

	d, err := env.engine.SetProduction(ctx, only.ID, true, "alice")
	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrForbiddenOnDeleted)

	_, err = env.engine.SetProduction(ctx, only.ID, false, "alice")
	assert.ErrorIs(t, err, ErrForbiddenOnDeleted)
}

func TestRestoreKeepsSingleProduction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v1 := env.create(t, "Metrics")
	v2 := env.version(t, v1)
	_, err := env.engine.SetProduction(ctx, v1.ID, true, "alice")
	require.Nil(t, err)
	_, err = env.engine.SoftDelete(ctx, v1.ID, "alice")
	require.Nil(t, err)
	_, err = env.engine.SetProduction(ctx, v2.ID, true, "alice")
	require.Nil(t, err)
	_, err = env.engine.Restore(ctx, v1.ID, "alice")
	require.Nil(t, err)

	prod := activeProduction(t, env, "Metrics")
	require.Len(t, prod, 1)
	assert.Equal(t, v2.ID, prod[0].ID)
}

func TestSoftDeleteRestore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	x := env.create(t, "Reversible", "a", "b")
	_, err := env.engine.SetProduction(ctx, x.ID, true, "alice")
	require.Nil(t, err)
	x, err = env.engine.Get(ctx, x.ID)
	require.Nil(t, err)

	deleted, err := env.engine.SoftDelete(ctx, x.ID, "dave")
	require.Nil(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, "dave", deleted.DeletedBy)
	require.NotNil(t, deleted.DeletedAt)

	again, err := env.engine.SoftDelete(ctx, x.ID, "erin")
	require.Nil(t, err)
	assert.Equal(t, deleted, again)

	restored, err := env.engine.Restore(ctx, x.ID, "dave")
	require.Nil(t, err)
	assert.Equal(t, x, restored)

	_, err = env.engine.Restore(ctx, x.ID, "dave")
	assert.ErrorIs(t, err, ErrNotDeleted)

	_, err = env.engine.Restore(ctx, uuid.New(), "dave")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	_, err = env.engine.SoftDelete(ctx, uuid.New(), "dave")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.create(t, "First")
	b := env.create(t, "Second")
	_, err := env.engine.SoftDelete(ctx, a.ID, "alice")
	require.Nil(t, err)

	list, err := env.engine.List(ctx, false)
	require.Nil(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	list, err = env.engine.List(ctx, true)
	require.Nil(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestUpdateMetadata(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "Editable", "one", "two")

	tests := []struct {
		name        string
		user        string
		description string
		tags        []string
		want        apperrors.Error
	}{
		{"not the creator", "mallory", "new", nil, ErrPermissionDenied},
		{"empty description", "alice", "  ", nil, ErrInvalidRequest},
		{"same tags in other order", "alice", d.Description, []string{"two", "one"}, ErrNoChanges},
		{"tag change", "alice", d.Description, []string{"one", "three"}, nil},
		{"description change", "alice", "rewritten", []string{"one", "three"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.engine.UpdateMetadata(ctx, d.ID, tt.user, tt.description, tt.tags)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, tt.user, got.UpdatedBy)
			assert.NotNil(t, got.UpdatedAt)
			assert.ElementsMatch(t, tt.tags, got.Tags)
		})
	}

	_, err := env.engine.SoftDelete(ctx, d.ID, "alice")
	require.Nil(t, err)
	_, err = env.engine.UpdateMetadata(ctx, d.ID, "alice", "after delete", nil)
	assert.ErrorIs(t, err, ErrForbiddenOnDeleted)
}

func TestGroupByBaseName(t *testing.T) {
	env := newTestEnv(t)
	a1 := env.create(t, "Alpha")
	b1 := env.create(t, "Beta")
	a2 := env.version(t, a1)

	groups := GroupByBaseName([]*models.Dataset{a1, b1, a2})
	require.Len(t, groups, 2)
	assert.Equal(t, []*models.Dataset{a1, a2}, groups[0])
	assert.Equal(t, []*models.Dataset{b1}, groups[1])
}

// failingActivities rejects every activity write.
type failingActivities struct {
	*memstore.Store
}

func (failingActivities) CreateActivity(ctx context.Context, a *models.Activity) apperrors.Error {
	return dberror.ErrDatabase.Msg("activity table unavailable")
}

func TestActivityFailureDoesNotAbort(t *testing.T) {
	store := failingActivities{memstore.New()}
	blobs, err := blobstore.NewLocalStore(t.TempDir(), "key", "")
	require.NoError(t, err)
	engine := NewEngine(store, blobs, Options{})
	ctx := context.Background()

	d, aerr := engine.Create(ctx, CreateParams{Name: "Audited", CreatedBy: "alice"})
	require.Nil(t, aerr)
	_, aerr = engine.SoftDelete(ctx, d.ID, "alice")
	require.Nil(t, aerr)
	_, aerr = engine.Restore(ctx, d.ID, "alice")
	require.Nil(t, aerr)
}

func TestActivitiesRecorded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v1 := env.create(t, "Tracked")
	v2 := env.version(t, v1)
	_, err := env.engine.SetProduction(ctx, v2.ID, true, "bob")
	require.Nil(t, err)
	_, err = env.engine.SoftDelete(ctx, v1.ID, "bob")
	require.Nil(t, err)

	all, err := env.engine.Activities().Recent(ctx, "", 10)
	require.Nil(t, err)
	var types []string
	for _, a := range all {
		types = append(types, a.ActivityType)
	}
	assert.Equal(t, []string{
		ActivityDatasetDelete,
		ActivityProductionSet,
		ActivityDatasetVersionCreated,
		ActivityDatasetCreated,
	}, types)

	mine, err := env.engine.Activities().Recent(ctx, "bob", 0)
	require.Nil(t, err)
	require.Len(t, mine, 2)
	require.NotNil(t, mine[0].DatasetID)
	assert.Equal(t, v1.ID, *mine[0].DatasetID)
}
