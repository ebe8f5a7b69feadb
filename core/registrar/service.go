// Package registrar owns the course <-> student relationship. The two sides
// live in independently-updatable documents with no store transaction across
// them, so every link/unlink runs as an ordered dual write here, and one-sided
// leftovers are repaired at read time.
package registrar

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/student"
)

// Side identifies which half of a dual write completed.
type Side string

const (
	CourseSide  Side = "course"
	StudentSide Side = "student"
)

// PartialError reports a dual write that completed on one side only.
// It is distinct from a clean write failure because recovery differs: only
// the missing side needs a retry, and SyncCourse/SyncStudent repair it on
// the next load.
type PartialError struct {
	Op        string // "enroll" | "unenroll"
	CourseID  string
	StudentID string
	Done      Side // the side whose write succeeded
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s of student %s / course %s applied on %s side only: %v",
		e.Op, e.StudentID, e.CourseID, e.Done, e.Err)
}

// Unwrap exposes the failed side's store error to errors.As/Is. There is
// deliberately no Cause method: errors.Cause must stop here so boundaries can
// tell a one-sided write apart from a clean failure.
func (e *PartialError) Unwrap() error { return e.Err }

type Service struct {
	courseSvc  *course.Service
	studentSvc *student.Service
	logger     core.Logger
}

func NewService(courseSvc *course.Service, studentSvc *student.Service, logger core.Logger) *Service {
	return &Service{
		courseSvc:  courseSvc,
		studentSvc: studentSvc,
		logger:     logger,
	}
}

// Enroll links both sides in a fixed order: course side first, then student
// side. Both sides are idempotent, so retrying a partially-applied enroll is
// always safe.
func (svc *Service) Enroll(ctx context.Context, courseID, studentID string) error {
	if _, err := svc.studentSvc.GetByID(ctx, studentID); err != nil {
		return errors.Wrap(err, "looking up student")
	}
	if err := svc.courseSvc.EnrollStudent(ctx, courseID, studentID); err != nil {
		return errors.Wrap(err, "enrolling on course side")
	}
	if err := svc.studentSvc.EnrollInCourse(ctx, studentID, courseID); err != nil {
		return &PartialError{Op: "enroll", CourseID: courseID, StudentID: studentID, Done: CourseSide, Err: err}
	}
	return nil
}

// Unenroll unlinks both sides, course side first (same order as Enroll, so a
// one-sided state always means: course side done, student side pending).
func (svc *Service) Unenroll(ctx context.Context, courseID, studentID string) error {
	if err := svc.courseSvc.RemoveStudent(ctx, courseID, studentID); err != nil {
		return errors.Wrap(err, "unenrolling on course side")
	}
	if err := svc.studentSvc.RemoveFromCourse(ctx, studentID, courseID); err != nil {
		return &PartialError{Op: "unenroll", CourseID: courseID, StudentID: studentID, Done: CourseSide, Err: err}
	}
	return nil
}

// EnrollAll enrolls the given students one at a time, never in parallel, so a
// failure stops the batch instead of scattering half-applied writes.
// It returns the IDs that were fully enrolled along with the first error.
func (svc *Service) EnrollAll(ctx context.Context, courseID string, studentIDs []string) ([]string, error) {
	enrolled := make([]string, 0, len(studentIDs))
	for _, sid := range studentIDs {
		if err := svc.Enroll(ctx, courseID, sid); err != nil {
			return enrolled, err
		}
		enrolled = append(enrolled, sid)
	}
	return enrolled, nil
}

// SyncCourse reconciles a course's relationships at read time and returns the
// repaired course. Because dual writes always run course side first, a student
// listed on the course without the reciprocal reference is a partial enroll:
// the student side is completed. A listed student that no longer exists is an
// orphaned reference and is dropped.
func (svc *Service) SyncCourse(ctx context.Context, courseID string) (course.Course, error) {
	crs, err := svc.courseSvc.GetByID(ctx, courseID)
	if err != nil {
		return course.Course{}, err
	}

	var repaired bool
	for _, sid := range crs.StudentIDs {
		stu, err := svc.studentSvc.GetByID(ctx, sid)
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				if err = svc.courseSvc.RemoveStudent(ctx, courseID, sid); err != nil {
					return course.Course{}, errors.Wrap(err, "dropping orphaned student reference")
				}
				svc.logger.Warn(fmt.Sprintf("course %s: dropped reference to missing student %s", courseID, sid))
				repaired = true
				continue
			}
			return course.Course{}, errors.Wrap(err, "looking up enrolled student")
		}
		if !stu.IsEnrolledIn(crs.ID) {
			if err = svc.studentSvc.EnrollInCourse(ctx, sid, courseID); err != nil {
				return course.Course{}, errors.Wrap(err, "completing partial enrollment")
			}
			svc.logger.Info(fmt.Sprintf("course %s: completed partial enrollment of student %s", courseID, sid))
			repaired = true
		}
	}

	if repaired {
		return svc.courseSvc.GetByID(ctx, courseID)
	}
	return crs, nil
}

// SyncStudent reconciles a student's relationships at read time and returns
// the repaired student. A course referenced by the student that no longer
// lists them is a partial unenroll (the course side is always removed first):
// the student side is removed too. A reference to a deleted course is dropped.
func (svc *Service) SyncStudent(ctx context.Context, studentID string) (student.Student, error) {
	stu, err := svc.studentSvc.GetByID(ctx, studentID)
	if err != nil {
		return student.Student{}, err
	}

	var repaired bool
	for _, cid := range stu.EnrolledCourses {
		crs, err := svc.courseSvc.GetByID(ctx, cid)
		if err != nil {
			if errors.Cause(err) == course.ErrNotFound {
				if err = svc.studentSvc.RemoveFromCourse(ctx, studentID, cid); err != nil {
					return student.Student{}, errors.Wrap(err, "dropping reference to deleted course")
				}
				svc.logger.Warn(fmt.Sprintf("student %s: dropped reference to missing course %s", studentID, cid))
				repaired = true
				continue
			}
			return student.Student{}, errors.Wrap(err, "looking up enrolled course")
		}
		if !crs.HasStudent(studentID) {
			if err = svc.studentSvc.RemoveFromCourse(ctx, studentID, cid); err != nil {
				return student.Student{}, errors.Wrap(err, "completing partial unenrollment")
			}
			svc.logger.Info(fmt.Sprintf("student %s: completed partial unenrollment from course %s", studentID, cid))
			repaired = true
		}
	}

	if repaired {
		return svc.studentSvc.GetByID(ctx, studentID)
	}
	return stu, nil
}

// DeleteCourse removes every enrolled student's reciprocal reference before
// deleting the course document and its sub-resources.
func (svc *Service) DeleteCourse(ctx context.Context, courseID string) error {
	crs, err := svc.courseSvc.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	for _, sid := range crs.StudentIDs {
		if err = svc.studentSvc.RemoveFromCourse(ctx, sid, courseID); err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				continue
			}
			return errors.Wrapf(err, "detaching student %s", sid)
		}
	}
	return svc.courseSvc.Delete(ctx, courseID)
}

// DeleteStudent removes the student from every course they reference before
// deleting the student document.
func (svc *Service) DeleteStudent(ctx context.Context, studentID string) error {
	stu, err := svc.studentSvc.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	for _, cid := range stu.EnrolledCourses {
		if err = svc.courseSvc.RemoveStudent(ctx, cid, studentID); err != nil {
			if errors.Cause(err) == course.ErrNotFound {
				continue
			}
			return errors.Wrapf(err, "detaching from course %s", cid)
		}
	}
	return svc.studentSvc.Delete(ctx, studentID)
}
