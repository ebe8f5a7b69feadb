package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Student is an immutable value: update methods return a fresh copy.
// The ID is externally assigned (e.g. a national ID) and never changes.
type Student struct {
	ID              string    `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	BirthDate       time.Time `json:"birth_date"`
	EnrolledCourses []string  `json:"enrolled_courses"` // references; reciprocal of Course.StudentIDs
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// EnrollInCourse returns a copy of the student with the course ID appended.
// Re-enrolling in a present course is a silent no-op.
func (s Student) EnrollInCourse(courseID string) Student {
	for _, id := range s.EnrolledCourses {
		if id == courseID {
			return s
		}
	}
	ids := make([]string, 0, len(s.EnrolledCourses)+1)
	ids = append(ids, s.EnrolledCourses...)
	s.EnrolledCourses = append(ids, courseID)
	return s
}

// LeaveCourse returns a copy of the student without the course ID;
// an absent ID returns the student unchanged.
func (s Student) LeaveCourse(courseID string) Student {
	ids := make([]string, 0, len(s.EnrolledCourses))
	for _, id := range s.EnrolledCourses {
		if id != courseID {
			ids = append(ids, id)
		}
	}
	if len(ids) == len(s.EnrolledCourses) {
		return s
	}
	s.EnrolledCourses = ids
	return s
}

// IsEnrolledIn reports whether the student references the course.
func (s Student) IsEnrolledIn(courseID string) bool {
	for _, id := range s.EnrolledCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

// NewStudent contains information needed to create a new Student.
// The ID is the student's own identifier (9 digits) when supplied;
// otherwise the store assigns one.
type NewStudent struct {
	ID        string    `json:"id" validate:"omitempty,len=9,numeric"`
	FirstName string    `json:"first_name" validate:"required"`
	LastName  string    `json:"last_name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	BirthDate time.Time `json:"birth_date" validate:"required"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.ID = core.CleanString(ns.ID)
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an
// existing Student; the ID and enrollments are not updatable here.
type UpdateStudent struct {
	FirstName string    `json:"first_name" validate:"required"`
	LastName  string    `json:"last_name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	BirthDate time.Time `json:"birth_date" validate:"required"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.FirstName = core.CleanString(us.FirstName)
	us.LastName = core.CleanString(us.LastName)
	us.Email = core.CleanString(us.Email, true /* lower */)
	return validate.Struct(us)
}
