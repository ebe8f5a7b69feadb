package student

import (
	"context"
	"errors"
	"net/mail"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound = errors.New("student not found")
	ErrIDExists = errors.New("a student with this id already exists")
)

type (
	Repository interface {
		// CheckIDUniqueness returns ErrIDExists when a student with this ID
		// already exists. The store itself would silently overwrite on a key
		// collision, so this check always runs before a create.
		CheckIDUniqueness(ctx context.Context, id string) error
		CreateStudent(ctx context.Context, stu Student) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		// GetStudentByID derives EnrolledCourses from the enrollment markers
		// rather than trusting the document's array.
		GetStudentByID(ctx context.Context, id string) (Student, error)
		UpdateStudent(ctx context.Context, stu Student) (Student, error)
		// DeleteStudent removes the student document and its enrollment markers.
		// Reciprocal course references are NOT touched here; the registrar owns that.
		DeleteStudent(ctx context.Context, id string) error

		// AddEnrollment writes the enrollment marker then adds courseID to the
		// student's EnrolledCourses. Two writes; the store offers no transaction.
		AddEnrollment(ctx context.Context, studentID, courseID string) error
		RemoveEnrollment(ctx context.Context, studentID, courseID string) error
		QueryEnrollments(ctx context.Context, studentID string) ([]string, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	id := ns.ID
	if id != "" {
		// reject duplicates before any write reaches the store
		if err := svc.repo.CheckIDUniqueness(ctx, id); err != nil {
			if errors.Is(err, ErrIDExists) {
				return Student{}, core.NewValidationError(err, core.FieldError{Field: "id", Error: err.Error()})
			}
			return Student{}, err
		}
	} else {
		id = uuid.New().String()
	}

	stu := Student{
		ID:              id,
		FirstName:       ns.FirstName,
		LastName:        ns.LastName,
		Email:           ns.Email,
		BirthDate:       ns.BirthDate.UTC(),
		EnrolledCourses: []string{},
	}
	return svc.repo.CreateStudent(ctx, stu)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	stu, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	stu.FirstName = us.FirstName
	stu.LastName = us.LastName
	stu.Email = us.Email
	stu.BirthDate = us.BirthDate.UTC()
	return svc.repo.UpdateStudent(ctx, stu)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}

// EnrollInCourse records the student side of an enrollment: marker + EnrolledCourses.
// The course side is a separate call; the registrar sequences the two.
func (svc *Service) EnrollInCourse(ctx context.Context, studentID, courseID string) error {
	return svc.repo.AddEnrollment(ctx, studentID, courseID)
}

// RemoveFromCourse records the student side of an unenrollment.
func (svc *Service) RemoveFromCourse(ctx context.Context, studentID, courseID string) error {
	return svc.repo.RemoveEnrollment(ctx, studentID, courseID)
}

// Enrollments returns the course IDs recorded in the student's enrollment markers.
func (svc *Service) Enrollments(ctx context.Context, studentID string) ([]string, error) {
	return svc.repo.QueryEnrollments(ctx, studentID)
}

// StudentEmails resolves the given students' addresses, skipping unknown IDs.
// It satisfies course.StudentDirectory.
func (svc *Service) StudentEmails(ctx context.Context, studentIDs []string) ([]mail.Address, error) {
	addrs := make([]mail.Address, 0, len(studentIDs))
	for _, id := range studentIDs {
		stu, err := svc.repo.GetStudentByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		addrs = append(addrs, mail.Address{Name: stu.FullName(), Address: stu.Email})
	}
	return addrs, nil
}
