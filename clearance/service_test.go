package clearance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clearance-server-go/db"
	"clearance-server-go/models"
)

var (
	admin = models.Actor{Kind: models.ActorAdmin, Label: "Admin"}
	guest = models.Guest
)

func setupService(t *testing.T) (*Service, *db.MemoryStore) {
	t.Helper()
	store := db.NewMemoryStore(db.DefaultKeys(), zap.NewNop())
	svc := NewService(store, zap.NewNop())
	require.NoError(t, svc.Load(context.Background()))
	return svc, store
}

func TestService_Load_SeedsDefaults(t *testing.T) {
	svc, _ := setupService(t)

	assert.Len(t, svc.Departments(), 5)
	students := svc.Students()
	require.Len(t, students, 2)
	assert.Equal(t, "FPB/2024/001", students[0].ID)

	sum := svc.Summary()
	assert.Equal(t, Summary{Total: 2, FullyCleared: 0, Departments: 5}, sum)
}

func TestService_Load_CorruptRecordPropagates(t *testing.T) {
	store := db.NewMemoryStore(db.DefaultKeys(), zap.NewNop())
	store.SetRaw(db.DefaultKeys().Departments, "[{")

	err := NewService(store, zap.NewNop()).Load(context.Background())
	assert.ErrorIs(t, err, db.ErrCorruptRecord)
}

func TestService_ClearanceScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.AddStudent(ctx, NewStudent{ID: "FPB/2024/003", Name: "Hauwa Bala", Level: "ND I", Programme: "Accountancy"})
	require.NoError(t, err)

	var s models.Student
	for _, d := range svc.Departments() {
		s, err = svc.SetDeptStatus(ctx, "FPB/2024/003", d.ID, models.StatusCleared, admin)
		require.NoError(t, err)
	}
	assert.True(t, AllCleared(s, svc.Departments()))
	assert.Nil(t, s.FinalStatus, "final clearance still needs the admin")

	s, err = svc.AdminDeclare(ctx, "FPB/2024/003", admin)
	require.NoError(t, err)
	require.NotNil(t, s.FinalStatus)
	assert.Equal(t, models.StatusCleared, *s.FinalStatus)
	assert.Equal(t, 1, svc.Summary().FullyCleared)

	// Any later department edit withdraws final clearance, even re-marking Cleared
	s, err = svc.SetDeptStatus(ctx, "FPB/2024/003", 2, models.StatusCleared, guest)
	require.NoError(t, err)
	assert.Nil(t, s.FinalStatus)
	assert.Equal(t, StateAllDeptsClearedPendingAdmin, Evaluate(s, svc.Departments()))

	s, err = svc.SetDeptStatus(ctx, "FPB/2024/003", 3, models.StatusPending, guest)
	require.NoError(t, err)
	assert.Equal(t, StatePending, Evaluate(s, svc.Departments()))
}

func TestService_SetDeptStatus_PersistsAndClearsFinal(t *testing.T) {
	ctx := context.Background()
	svc, store := setupService(t)

	// Plant a finally cleared student with one pending department
	st := models.Student{ID: "A", Name: "Ada", Status: map[int]models.ClearanceStatus{1: models.StatusPending}, FinalStatus: models.Cleared()}
	require.NoError(t, store.SaveStudents(ctx, []models.Student{st}))

	updated, err := svc.SetDeptStatus(ctx, "A", 1, models.StatusPending, guest)
	require.NoError(t, err)
	assert.Nil(t, updated.FinalStatus)

	persisted, err := store.LoadStudents(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Nil(t, persisted[0].FinalStatus)

	cached, err := svc.Student("A")
	require.NoError(t, err)
	assert.Nil(t, cached.FinalStatus)
}

func TestService_SetDeptStatus_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.SetDeptStatus(ctx, "nobody", 1, models.StatusCleared, admin)
	assert.ErrorIs(t, err, ErrStudentNotFound)

	_, err = svc.SetDeptStatus(ctx, "FPB/2024/001", 99, models.StatusCleared, admin)
	assert.ErrorIs(t, err, ErrUnknownDepartment)

	_, err = svc.SetDeptStatus(ctx, "FPB/2024/001", 1, "Maybe", admin)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_AdminDeclare_NotAllClearedIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, store := setupService(t)

	before, err := store.LoadStudents(ctx)
	require.NoError(t, err)

	// FPB/2024/001 still has Accounts pending
	_, err = svc.AdminDeclare(ctx, "FPB/2024/001", admin)
	assert.ErrorIs(t, err, ErrNotAllCleared)

	after, err := store.LoadStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	s, err := svc.Student("FPB/2024/001")
	require.NoError(t, err)
	assert.Nil(t, s.FinalStatus)

	_, err = svc.AdminDeclare(ctx, "missing", admin)
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestService_AddStudent(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	s, err := svc.AddStudent(ctx, NewStudent{ID: " FPB/2024/010 ", Name: "Sani", Level: "HND II", Programme: "Civil Engineering"})
	require.NoError(t, err)
	assert.Equal(t, "FPB/2024/010", s.ID)
	assert.Nil(t, s.FinalStatus)
	assert.Len(t, s.Status, 5)
	for _, d := range svc.Departments() {
		assert.Equal(t, models.StatusPending, s.Status[d.ID])
	}

	students := svc.Students()
	require.Len(t, students, 3)
	assert.Equal(t, "FPB/2024/010", students[0].ID, "new students go first")
}

func TestService_AddStudent_Validation(t *testing.T) {
	ctx := context.Background()
	svc, store := setupService(t)
	before, err := store.LoadStudents(ctx)
	require.NoError(t, err)

	for _, in := range []NewStudent{
		{ID: "", Name: "No Matric"},
		{ID: "FPB/2024/011", Name: ""},
		{ID: "   ", Name: "Blank"},
	} {
		_, err := svc.AddStudent(ctx, in)
		assert.ErrorIs(t, err, ErrValidation)
	}

	_, err = svc.AddStudent(ctx, NewStudent{ID: "FPB/2024/001", Name: "Duplicate"})
	assert.ErrorIs(t, err, ErrStudentExists)

	after, err := store.LoadStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, svc.Students(), 2)
}

func TestService_ImportStudents(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	res, err := svc.ImportStudents(ctx, []NewStudent{
		{ID: "FPB/2024/020", Name: "First"},
		{ID: "", Name: "Missing matric"},
		{ID: "FPB/2024/001", Name: "Already there"},
		{ID: "FPB/2024/021", Name: "Second"},
		{ID: "FPB/2024/020", Name: "Repeated in file"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Skipped, 3)
	assert.Equal(t, 2, res.Skipped[0].Row)
	assert.ErrorIs(t, res.Skipped[0].Err, ErrValidation)
	assert.ErrorIs(t, res.Skipped[1].Err, ErrStudentExists)
	assert.Equal(t, 5, res.Skipped[2].Row)

	students := svc.Students()
	require.Len(t, students, 4)
	assert.Equal(t, "FPB/2024/021", students[0].ID)
	assert.Equal(t, "FPB/2024/020", students[1].ID)
}

func TestService_ReturnsCopies(t *testing.T) {
	svc, _ := setupService(t)

	s, err := svc.Student("FPB/2024/001")
	require.NoError(t, err)
	s.Status[3] = models.StatusCleared

	again, err := svc.Student("FPB/2024/001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status[3])
}

func TestService_Watch_SyncsExternalWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := db.NewMemoryStore(db.DefaultKeys(), zap.NewNop())
	watcher := NewService(store, zap.NewNop())
	require.NoError(t, watcher.Load(ctx))

	done := make(chan error, 1)
	go func() { done <- watcher.Watch(ctx) }()

	// Watch subscribes asynchronously; keep writing until the watcher sees it
	other := NewService(store.Share(), zap.NewNop())
	require.NoError(t, other.Load(ctx))

	require.Eventually(t, func() bool {
		_, _ = other.SetDeptStatus(ctx, "FPB/2024/001", 3, models.StatusCleared, admin)
		s, err := watcher.Student("FPB/2024/001")
		return err == nil && s.Status[3] == models.StatusCleared
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
