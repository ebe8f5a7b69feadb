package registrar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/student"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

var errStoreDown = errors.New("store down")

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// flakyStudentRepo fails the student-side relationship writes on demand,
// leaving one-sided states behind like a dropped connection would.
type flakyStudentRepo struct {
	student.Repository
	failAdd    bool
	failRemove bool
}

func (repo *flakyStudentRepo) AddEnrollment(ctx context.Context, studentID, courseID string) error {
	if repo.failAdd {
		return errStoreDown
	}
	return repo.Repository.AddEnrollment(ctx, studentID, courseID)
}

func (repo *flakyStudentRepo) RemoveEnrollment(ctx context.Context, studentID, courseID string) error {
	if repo.failRemove {
		return errStoreDown
	}
	return repo.Repository.RemoveEnrollment(ctx, studentID, courseID)
}

type testDeps struct {
	courseSvc  *course.Service
	studentSvc *student.Service
	reg        *Service
	flaky      *flakyStudentRepo
}

func setup(t *testing.T) testDeps {
	t.Helper()

	db, err := inmemdb.Open()
	require.NoError(t, err)

	flaky := &flakyStudentRepo{Repository: inmemdb.NewStudentRepository(db)}
	studentSvc := student.NewService(flaky)
	courseSvc := course.NewService(inmemdb.NewCourseRepository(db), nil, nil)
	return testDeps{
		courseSvc:  courseSvc,
		studentSvc: studentSvc,
		reg:        NewService(courseSvc, studentSvc, nopLogger{}),
		flaky:      flaky,
	}
}

func (deps testDeps) seed(t *testing.T, ctx context.Context) (course.Course, student.Student) {
	t.Helper()
	crs, err := deps.courseSvc.Create(ctx, course.NewCourse{
		ID: "1234", Name: "Algorithms", Instructor: "Ada Lovelace", Day: "Monday", Time: "10:00",
	})
	require.NoError(t, err)
	stu, err := deps.studentSvc.Create(ctx, student.NewStudent{
		FirstName: "Alan", LastName: "Turing",
		Email: "alan@example.com", BirthDate: time.Date(1912, 6, 23, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return crs, stu
}

func Test_Service_Enroll(t *testing.T) {
	ctx := context.Background()

	t.Run("records both sides", func(t *testing.T) {
		deps := setup(t)
		crs, stu := deps.seed(t, ctx)

		require.NoError(t, deps.reg.Enroll(ctx, crs.ID, stu.ID))

		courseSide, err := deps.courseSvc.Enrollments(ctx, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{stu.ID}, courseSide)

		studentSide, err := deps.studentSvc.Enrollments(ctx, stu.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{crs.ID}, studentSide)
	})

	t.Run("idempotent", func(t *testing.T) {
		deps := setup(t)
		crs, stu := deps.seed(t, ctx)

		require.NoError(t, deps.reg.Enroll(ctx, crs.ID, stu.ID))
		require.NoError(t, deps.reg.Enroll(ctx, crs.ID, stu.ID))

		got, err := deps.courseSvc.GetByID(ctx, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{stu.ID}, got.StudentIDs)

		gotStu, err := deps.studentSvc.GetByID(ctx, stu.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{crs.ID}, gotStu.EnrolledCourses)
	})

	t.Run("unknown student leaves the course untouched", func(t *testing.T) {
		deps := setup(t)
		crs, _ := deps.seed(t, ctx)

		err := deps.reg.Enroll(ctx, crs.ID, "missing")
		require.Error(t, err)

		got, err := deps.courseSvc.GetByID(ctx, crs.ID)
		require.NoError(t, err)
		assert.Empty(t, got.StudentIDs)
	})

	t.Run("student-side failure yields PartialError", func(t *testing.T) {
		deps := setup(t)
		crs, stu := deps.seed(t, ctx)

		deps.flaky.failAdd = true
		err := deps.reg.Enroll(ctx, crs.ID, stu.ID)

		var pErr *PartialError
		require.True(t, errors.As(err, &pErr), "want *PartialError, got %v", err)
		assert.Equal(t, "enroll", pErr.Op)
		assert.Equal(t, CourseSide, pErr.Done)
		assert.Equal(t, errStoreDown, pErr.Err)

		// course side applied, student side did not
		courseSide, err := deps.courseSvc.Enrollments(ctx, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{stu.ID}, courseSide)
		studentSide, err := deps.studentSvc.Enrollments(ctx, stu.ID)
		require.NoError(t, err)
		assert.Empty(t, studentSide)
	})
}

func Test_Service_EnrollAll(t *testing.T) {
	ctx := context.Background()
	deps := setup(t)
	crs, stu := deps.seed(t, ctx)
	stu2, err := deps.studentSvc.Create(ctx, student.NewStudent{
		FirstName: "Grace", LastName: "Hopper",
		Email: "grace@example.com", BirthDate: time.Date(1906, 12, 9, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// the batch stops at the unknown ID; what was enrolled is reported
	enrolled, err := deps.reg.EnrollAll(ctx, crs.ID, []string{stu.ID, "missing", stu2.ID})
	require.Error(t, err)
	assert.Equal(t, []string{stu.ID}, enrolled)

	courseSide, err := deps.courseSvc.Enrollments(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{stu.ID}, courseSide)
}

func Test_Service_SyncCourse(t *testing.T) {
	ctx := context.Background()

	t.Run("completes a partial enroll", func(t *testing.T) {
		deps := setup(t)
		crs, stu := deps.seed(t, ctx)

		deps.flaky.failAdd = true
		require.Error(t, deps.reg.Enroll(ctx, crs.ID, stu.ID))
		deps.flaky.failAdd = false

		got, err := deps.reg.SyncCourse(ctx, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{stu.ID}, got.StudentIDs)

		studentSide, err := deps.studentSvc.Enrollments(ctx, stu.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{crs.ID}, studentSide)
	})

	t.Run("drops references to deleted students", func(t *testing.T) {
		deps := setup(t)
		crs, stu := deps.seed(t, ctx)
		require.NoError(t, deps.reg.Enroll(ctx, crs.ID, stu.ID))

		// delete the student behind the registrar's back
		require.NoError(t, deps.studentSvc.Delete(ctx, stu.ID))

		got, err := deps.reg.SyncCourse(ctx, crs.ID)
		require.NoError(t, err)
		assert.Empty(t, got.StudentIDs)
	})
}

func Test_Service_SyncStudent(t *testing.T) {
	ctx := context.Background()

	t.Run("completes a partial unenroll", func(t *testing.T) {
		deps := setup(t)
		crs, stu := deps.seed(t, ctx)
		require.NoError(t, deps.reg.Enroll(ctx, crs.ID, stu.ID))

		deps.flaky.failRemove = true
		err := deps.reg.Unenroll(ctx, crs.ID, stu.ID)
		var pErr *PartialError
		require.True(t, errors.As(err, &pErr), "want *PartialError, got %v", err)
		assert.Equal(t, "unenroll", pErr.Op)
		deps.flaky.failRemove = false

		got, err := deps.reg.SyncStudent(ctx, stu.ID)
		require.NoError(t, err)
		assert.Empty(t, got.EnrolledCourses)
	})

	t.Run("drops references to deleted courses", func(t *testing.T) {
		deps := setup(t)
		crs, stu := deps.seed(t, ctx)
		require.NoError(t, deps.reg.Enroll(ctx, crs.ID, stu.ID))

		// delete the course behind the registrar's back
		require.NoError(t, deps.courseSvc.Delete(ctx, crs.ID))

		got, err := deps.reg.SyncStudent(ctx, stu.ID)
		require.NoError(t, err)
		assert.Empty(t, got.EnrolledCourses)
	})
}

func Test_Service_DeleteCourse(t *testing.T) {
	ctx := context.Background()
	deps := setup(t)
	crs, stu := deps.seed(t, ctx)
	require.NoError(t, deps.reg.Enroll(ctx, crs.ID, stu.ID))

	require.NoError(t, deps.reg.DeleteCourse(ctx, crs.ID))

	_, err := deps.courseSvc.GetByID(ctx, crs.ID)
	assert.Equal(t, course.ErrNotFound, err)

	// no dangling reference on the student side
	got, err := deps.studentSvc.GetByID(ctx, stu.ID)
	require.NoError(t, err)
	assert.Empty(t, got.EnrolledCourses)
}

func Test_Service_DeleteStudent(t *testing.T) {
	ctx := context.Background()
	deps := setup(t)
	crs, stu := deps.seed(t, ctx)
	require.NoError(t, deps.reg.Enroll(ctx, crs.ID, stu.ID))

	require.NoError(t, deps.reg.DeleteStudent(ctx, stu.ID))

	_, err := deps.studentSvc.GetByID(ctx, stu.ID)
	assert.Equal(t, student.ErrNotFound, err)

	got, err := deps.courseSvc.GetByID(ctx, crs.ID)
	require.NoError(t, err)
	assert.Empty(t, got.StudentIDs)
}
