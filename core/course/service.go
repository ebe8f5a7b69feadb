package course

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/mail"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound           = errors.New("course not found")
	ErrIDExists           = errors.New("a course with this id already exists")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrIDSpaceExhausted   = errors.New("could not generate a unique course id")
)

// display-ID space; generation re-samples on collision with a bounded number
// of attempts instead of looping forever.
const (
	idMin         = 1000
	idMax         = 9999
	maxIDAttempts = 100
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		QueryCourseIDs(ctx context.Context) ([]string, error)
		// GetCourseByID returns the course with its assignments and messages loaded.
		GetCourseByID(ctx context.Context, id string) (Course, error)
		// UpdateCourse saves top-level fields only; sub-resources are left untouched.
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		// DeleteCourse removes the course document and its sub-resources.
		// Reciprocal student references are NOT touched here; the registrar owns that.
		DeleteCourse(ctx context.Context, id string) error

		CreateAssignment(ctx context.Context, courseID string, a Assignment) (Assignment, error)
		UpdateAssignment(ctx context.Context, courseID string, a Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, courseID, assignmentID string) error

		CreateMessage(ctx context.Context, courseID string, msg Message) (Message, error)
		DeleteMessage(ctx context.Context, courseID, messageID string) error

		// AddEnrollment writes the enrollment marker then adds studentID to the
		// course's StudentIDs. Two writes; the store offers no transaction.
		AddEnrollment(ctx context.Context, courseID, studentID string) error
		RemoveEnrollment(ctx context.Context, courseID, studentID string) error
		QueryEnrollments(ctx context.Context, courseID string) ([]string, error)
	}

	// StudentDirectory resolves students' email addresses for notifications.
	StudentDirectory interface {
		StudentEmails(ctx context.Context, studentIDs []string) ([]mail.Address, error)
	}

	Service struct {
		repo      Repository
		mailSvc   core.EmailService
		directory StudentDirectory
		rand      *rand.Rand
	}
)

func NewService(repo Repository, mailSvc core.EmailService, directory StudentDirectory) *Service {
	return &Service{
		repo:      repo,
		mailSvc:   mailSvc,
		directory: directory,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed reseeds the display-ID generator; tests use it for determinism.
func (svc *Service) Seed(seed int64) {
	svc.rand = rand.New(rand.NewSource(seed))
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	existing, err := svc.repo.QueryCourseIDs(ctx)
	if err != nil {
		return Course{}, err
	}

	id := nc.ID
	if id == "" {
		if id, err = svc.generateID(existing); err != nil {
			return Course{}, err
		}
	} else {
		for _, eid := range existing {
			if eid == id {
				return Course{}, core.NewValidationError(ErrIDExists, core.FieldError{Field: "id", Error: ErrIDExists.Error()})
			}
		}
	}

	crs := Course{
		ID:          id,
		Name:        nc.Name,
		Instructor:  nc.Instructor,
		Day:         nc.Day,
		Time:        nc.Time,
		Descr:       nc.Descr,
		Assignments: []Assignment{},
		Messages:    []Message{},
		StudentIDs:  []string{},
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	crs.Name = uc.Name
	crs.Instructor = uc.Instructor
	crs.Day = uc.Day
	crs.Time = uc.Time
	crs.Descr = uc.Descr
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *Service) AddAssignment(ctx context.Context, courseID string, na NewAssignment) (Assignment, error) {
	a := Assignment{
		ID:          uuid.New().String(),
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate.UTC(),
	}
	return svc.repo.CreateAssignment(ctx, courseID, a)
}

func (svc *Service) UpdateAssignment(ctx context.Context, courseID, assignmentID string, ua UpdateAssignment) (Assignment, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Assignment{}, err
	}
	a, ok := crs.UpdateAssignment(assignmentID, ua).Assignment(assignmentID)
	if !ok {
		return Assignment{}, ErrAssignmentNotFound
	}
	return svc.repo.UpdateAssignment(ctx, courseID, a)
}

func (svc *Service) DeleteAssignment(ctx context.Context, courseID, assignmentID string) error {
	return svc.repo.DeleteAssignment(ctx, courseID, assignmentID)
}

func (svc *Service) AddMessage(ctx context.Context, courseID string, nm NewMessage) (Message, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Message{}, err
	}

	tstamp := nm.Timestamp.UTC()
	if nm.Timestamp.IsZero() {
		tstamp = time.Now().UTC()
	}
	msg := Message{
		ID:        uuid.New().String(),
		Title:     nm.Title,
		Content:   nm.Content,
		Sender:    nm.Sender,
		Timestamp: tstamp,
	}
	if msg, err = svc.repo.CreateMessage(ctx, courseID, msg); err != nil {
		return Message{}, err
	}

	svc.notifyStudents(ctx, crs, msg)
	return msg, nil
}

func (svc *Service) DeleteMessage(ctx context.Context, courseID, messageID string) error {
	return svc.repo.DeleteMessage(ctx, courseID, messageID)
}

// EnrollStudent records the course side of an enrollment: marker + StudentIDs.
// The student side is a separate call; the registrar sequences the two.
func (svc *Service) EnrollStudent(ctx context.Context, courseID, studentID string) error {
	return svc.repo.AddEnrollment(ctx, courseID, studentID)
}

// RemoveStudent records the course side of an unenrollment.
func (svc *Service) RemoveStudent(ctx context.Context, courseID, studentID string) error {
	return svc.repo.RemoveEnrollment(ctx, courseID, studentID)
}

// Enrollments returns the student IDs recorded in the course's enrollment markers.
func (svc *Service) Enrollments(ctx context.Context, courseID string) ([]string, error) {
	return svc.repo.QueryEnrollments(ctx, courseID)
}

// notifyStudents emails the course's enrolled students about a new message.
// Best effort: a failed lookup never fails the post itself.
func (svc *Service) notifyStudents(ctx context.Context, crs Course, msg Message) {
	if svc.mailSvc == nil || svc.directory == nil || len(crs.StudentIDs) == 0 {
		return
	}
	to, err := svc.directory.StudentEmails(ctx, crs.StudentIDs)
	if err != nil || len(to) == 0 {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("%s: %s", crs.Name, msg.Title),
		BodyStr: fmt.Sprintf("%s\n\n- %s", msg.Content, msg.Sender),
	})
}

// generateID samples 4-digit display IDs until one misses the existing set.
// Collisions are only checked client-side; the store's insert rejects the
// rare racing duplicate instead of overwriting it.
func (svc *Service) generateID(existing []string) (string, error) {
	ids := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		ids[id] = struct{}{}
	}
	for i := 0; i < maxIDAttempts; i++ {
		id := strconv.Itoa(idMin + svc.rand.Intn(idMax-idMin+1))
		if _, ok := ids[id]; !ok {
			return id, nil
		}
	}
	return "", ErrIDSpaceExhausted
}
