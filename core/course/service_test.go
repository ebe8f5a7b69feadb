package course

import (
	"context"
	"net/mail"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
)

// fakeRepository keeps courses in a map; only what the service exercises.
type fakeRepository struct {
	Repository
	courses map[string]Course
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{courses: make(map[string]Course)}
}

func (repo *fakeRepository) CreateCourse(_ context.Context, crs Course) (Course, error) {
	if _, ok := repo.courses[crs.ID]; ok {
		return Course{}, ErrIDExists
	}
	repo.courses[crs.ID] = crs
	return crs, nil
}

func (repo *fakeRepository) QueryCourseIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(repo.courses))
	for id := range repo.courses {
		ids = append(ids, id)
	}
	return ids, nil
}

func (repo *fakeRepository) GetCourseByID(_ context.Context, id string) (Course, error) {
	crs, ok := repo.courses[id]
	if !ok {
		return Course{}, ErrNotFound
	}
	return crs, nil
}

func (repo *fakeRepository) CreateMessage(_ context.Context, courseID string, msg Message) (Message, error) {
	crs, ok := repo.courses[courseID]
	if !ok {
		return Message{}, ErrNotFound
	}
	repo.courses[courseID] = crs.AddMessage(msg)
	return msg, nil
}

type fakeEmailService struct {
	sent []*core.EmailMessage
}

func (svc *fakeEmailService) SendMessages(messages ...*core.EmailMessage) {
	svc.sent = append(svc.sent, messages...)
}

type fakeDirectory map[string]mail.Address

func (d fakeDirectory) StudentEmails(_ context.Context, studentIDs []string) ([]mail.Address, error) {
	addrs := make([]mail.Address, 0, len(studentIDs))
	for _, id := range studentIDs {
		if addr, ok := d[id]; ok {
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, nil, nil)
}

func Test_Service_generateID(t *testing.T) {
	idRx := regexp.MustCompile(`^\d{4}$`)

	t.Run("4 digits", func(t *testing.T) {
		svc := newTestService(newFakeRepository())
		svc.Seed(42)
		for i := 0; i < 100; i++ {
			id, err := svc.generateID(nil)
			require.NoError(t, err)
			assert.Regexp(t, idRx, id)
		}
	})

	t.Run("deterministic when seeded", func(t *testing.T) {
		svc1 := newTestService(newFakeRepository())
		svc2 := newTestService(newFakeRepository())
		svc1.Seed(7)
		svc2.Seed(7)
		for i := 0; i < 10; i++ {
			id1, err1 := svc1.generateID(nil)
			id2, err2 := svc2.generateID(nil)
			require.NoError(t, err1)
			require.NoError(t, err2)
			assert.Equal(t, id1, id2)
		}
	})

	t.Run("re-samples on collision", func(t *testing.T) {
		svc := newTestService(newFakeRepository())
		svc.Seed(7)
		first, err := svc.generateID(nil)
		require.NoError(t, err)

		svc.Seed(7) // same sequence; first sample now collides
		id, err := svc.generateID([]string{first})
		require.NoError(t, err)
		assert.NotEqual(t, first, id)
	})

	t.Run("exhausted space", func(t *testing.T) {
		existing := make([]string, 0, idMax-idMin+1)
		for i := idMin; i <= idMax; i++ {
			existing = append(existing, strconv.Itoa(i))
		}
		svc := newTestService(newFakeRepository())
		_, err := svc.generateID(existing)
		assert.Equal(t, ErrIDSpaceExhausted, err)
	})
}

func Test_Service_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("generates an id when absent", func(t *testing.T) {
		svc := newTestService(newFakeRepository())
		svc.Seed(42)

		crs, err := svc.Create(ctx, NewCourse{Name: "Algorithms", Instructor: "Ada", Day: "Monday", Time: "10:00"})
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^\d{4}$`), crs.ID)
		assert.NotNil(t, crs.Assignments)
		assert.NotNil(t, crs.Messages)
		assert.NotNil(t, crs.StudentIDs)
	})

	t.Run("100 generated ids are pairwise distinct", func(t *testing.T) {
		svc := newTestService(newFakeRepository())
		svc.Seed(42)

		// each created course's id joins the existing set the next sample is
		// checked against
		seen := make(map[string]struct{}, 100)
		for i := 0; i < 100; i++ {
			crs, err := svc.Create(ctx, NewCourse{Name: "Algorithms", Instructor: "Ada", Day: "Monday", Time: "10:00"})
			require.NoError(t, err)
			_, dup := seen[crs.ID]
			require.False(t, dup, "duplicate id %s on creation %d", crs.ID, i)
			seen[crs.ID] = struct{}{}
		}
	})

	t.Run("explicit id collision", func(t *testing.T) {
		svc := newTestService(newFakeRepository())
		_, err := svc.Create(ctx, NewCourse{ID: "1234", Name: "Algorithms", Instructor: "Ada", Day: "Monday", Time: "10:00"})
		require.NoError(t, err)

		_, err = svc.Create(ctx, NewCourse{ID: "1234", Name: "Copycat", Instructor: "Ada", Day: "Monday", Time: "10:00"})
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "want *core.ValidationError, got %v", err)
		assert.Equal(t, "id", vErr.Fields[0].Field)
	})
}

func Test_Service_AddMessage(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	mailSvc := &fakeEmailService{}
	directory := fakeDirectory{
		"s1": {Name: "Alan Turing", Address: "alan@example.com"},
	}
	svc := NewService(repo, mailSvc, directory)

	crs, err := svc.Create(ctx, NewCourse{ID: "1234", Name: "Algorithms", Instructor: "Ada", Day: "Monday", Time: "10:00"})
	require.NoError(t, err)
	repo.courses[crs.ID] = crs.EnrollStudent("s1")

	before := time.Now().UTC()
	msg, err := svc.AddMessage(ctx, "1234", NewMessage{Title: "Welcome", Content: "See you Monday.", Sender: "Ada"})
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.Before(before), "timestamp should default to now")

	// enrolled students get notified
	require.Len(t, mailSvc.sent, 1)
	require.Len(t, mailSvc.sent[0].To, 1)
	assert.Equal(t, "alan@example.com", mailSvc.sent[0].To[0].Address)
	assert.Contains(t, mailSvc.sent[0].Subject, "Welcome")
}

func Test_Service_UpdateAssignment_notFound(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	svc := newTestService(repo)

	_, err := svc.Create(ctx, NewCourse{ID: "1234", Name: "Algorithms", Instructor: "Ada", Day: "Monday", Time: "10:00"})
	require.NoError(t, err)

	title := "Nope"
	_, err = svc.UpdateAssignment(ctx, "1234", "missing", UpdateAssignment{Title: &title})
	assert.Equal(t, ErrAssignmentNotFound, err)
}
