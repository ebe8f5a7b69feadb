package student

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
)

// fakeRepository keeps students in a map; only what the service exercises.
type fakeRepository struct {
	Repository
	students map[string]Student
	creates  int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{students: make(map[string]Student)}
}

func (repo *fakeRepository) CheckIDUniqueness(_ context.Context, id string) error {
	if _, ok := repo.students[id]; ok {
		return ErrIDExists
	}
	return nil
}

func (repo *fakeRepository) CreateStudent(_ context.Context, stu Student) (Student, error) {
	repo.creates++
	repo.students[stu.ID] = stu
	return stu, nil
}

func (repo *fakeRepository) GetStudentByID(_ context.Context, id string) (Student, error) {
	stu, ok := repo.students[id]
	if !ok {
		return Student{}, ErrNotFound
	}
	return stu, nil
}

func Test_Service_Create(t *testing.T) {
	ctx := context.Background()
	birth := time.Date(1912, 6, 23, 0, 0, 0, 0, time.UTC)

	t.Run("explicit id", func(t *testing.T) {
		repo := newFakeRepository()
		svc := NewService(repo)

		stu, err := svc.Create(ctx, NewStudent{
			ID: "123456789", FirstName: "Alan", LastName: "Turing",
			Email: "alan@example.com", BirthDate: birth,
		})
		require.NoError(t, err)
		assert.Equal(t, "123456789", stu.ID)
		assert.NotNil(t, stu.EnrolledCourses)
	})

	t.Run("duplicate id rejected before any write", func(t *testing.T) {
		repo := newFakeRepository()
		svc := NewService(repo)

		_, err := svc.Create(ctx, NewStudent{
			ID: "123456789", FirstName: "Alan", LastName: "Turing",
			Email: "alan@example.com", BirthDate: birth,
		})
		require.NoError(t, err)
		require.Equal(t, 1, repo.creates)

		_, err = svc.Create(ctx, NewStudent{
			ID: "123456789", FirstName: "Imposter", LastName: "Turing",
			Email: "fake@example.com", BirthDate: birth,
		})
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "want *core.ValidationError, got %v", err)
		assert.Equal(t, "id", vErr.Fields[0].Field)

		// the store never saw the second write
		assert.Equal(t, 1, repo.creates)
		stu, err := svc.GetByID(ctx, "123456789")
		require.NoError(t, err)
		assert.Equal(t, "Alan", stu.FirstName)
	})

	t.Run("generates an id when absent", func(t *testing.T) {
		repo := newFakeRepository()
		svc := NewService(repo)

		stu, err := svc.Create(ctx, NewStudent{
			FirstName: "Grace", LastName: "Hopper",
			Email: "grace@example.com", BirthDate: birth,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, stu.ID)
	})
}

func Test_Service_StudentEmails(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	svc := NewService(repo)

	repo.students["s1"] = Student{ID: "s1", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"}
	repo.students["s2"] = Student{ID: "s2", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}

	// unknown IDs are skipped, not fatal
	addrs, err := svc.StudentEmails(ctx, []string{"s1", "missing", "s2"})
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.Equal(t, "Alan Turing", addrs[0].Name)
	assert.Equal(t, "alan@example.com", addrs[0].Address)
	assert.Equal(t, "grace@example.com", addrs[1].Address)
}

func Test_Student_enrollment(t *testing.T) {
	stu := Student{ID: "s1"}.EnrollInCourse("1234")

	t.Run("re-enroll is a no-op", func(t *testing.T) {
		assert.Equal(t, []string{"1234"}, stu.EnrollInCourse("1234").EnrolledCourses)
	})

	t.Run("enroll copies the slice", func(t *testing.T) {
		two := stu.EnrollInCourse("5678")
		assert.Equal(t, []string{"1234"}, stu.EnrolledCourses)
		assert.Equal(t, []string{"1234", "5678"}, two.EnrolledCourses)
	})

	t.Run("leave is idempotent", func(t *testing.T) {
		gone := stu.LeaveCourse("1234")
		assert.Empty(t, gone.EnrolledCourses)
		assert.Equal(t, gone, gone.LeaveCourse("1234"))
		assert.True(t, stu.IsEnrolledIn("1234"))
		assert.False(t, gone.IsEnrolledIn("1234"))
	})
}
