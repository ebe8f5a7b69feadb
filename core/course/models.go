package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type Assignment struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"` // UTC
}

type Message struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"` // UTC; defaults to creation time
}

// Course is an immutable value: all update methods return a fresh copy and
// leave the receiver untouched, so views holding "the same" course never
// observe a surprise mutation from another view's action.
type Course struct {
	ID          string       `json:"id"` // 4-digit display ID
	Name        string       `json:"name"`
	Instructor  string       `json:"instructor"`
	Day         string       `json:"day"`
	Time        string       `json:"time"`
	Descr       string       `json:"descr"`
	Assignments []Assignment `json:"assignments"`
	Messages    []Message    `json:"messages"`
	StudentIDs  []string     `json:"student_ids"` // references; reciprocal of Student.EnrolledCourses
}

// AddAssignment returns a copy of the course with `a` appended.
func (c Course) AddAssignment(a Assignment) Course {
	assignments := make([]Assignment, 0, len(c.Assignments)+1)
	assignments = append(assignments, c.Assignments...)
	c.Assignments = append(assignments, a)
	return c
}

// RemoveAssignment returns a copy of the course without the matching assignment.
// Removal is idempotent: an absent ID returns the course unchanged.
func (c Course) RemoveAssignment(id string) Course {
	assignments := make([]Assignment, 0, len(c.Assignments))
	for _, a := range c.Assignments {
		if a.ID != id {
			assignments = append(assignments, a)
		}
	}
	if len(assignments) == len(c.Assignments) {
		return c
	}
	c.Assignments = assignments
	return c
}

// UpdateAssignment merges only the set fields of `up` into the matching
// assignment; an absent ID returns the course unchanged.
func (c Course) UpdateAssignment(id string, up UpdateAssignment) Course {
	assignments := make([]Assignment, len(c.Assignments))
	var found bool
	for i, a := range c.Assignments {
		if a.ID == id {
			found = true
			if up.Title != nil {
				a.Title = *up.Title
			}
			if up.Description != nil {
				a.Description = *up.Description
			}
			if up.DueDate != nil {
				a.DueDate = up.DueDate.UTC()
			}
		}
		assignments[i] = a
	}
	if !found {
		return c
	}
	c.Assignments = assignments
	return c
}

// Assignment returns the assignment with the given ID, if present.
func (c Course) Assignment(id string) (Assignment, bool) {
	for _, a := range c.Assignments {
		if a.ID == id {
			return a, true
		}
	}
	return Assignment{}, false
}

// AddMessage returns a copy of the course with `m` appended.
func (c Course) AddMessage(m Message) Course {
	messages := make([]Message, 0, len(c.Messages)+1)
	messages = append(messages, c.Messages...)
	c.Messages = append(messages, m)
	return c
}

// RemoveMessage returns a copy of the course without the matching message;
// an absent ID returns the course unchanged.
func (c Course) RemoveMessage(id string) Course {
	messages := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if m.ID != id {
			messages = append(messages, m)
		}
	}
	if len(messages) == len(c.Messages) {
		return c
	}
	c.Messages = messages
	return c
}

// EnrollStudent returns a copy of the course with the student ID appended.
// Re-enrolling a present student is a silent no-op. The reciprocal
// Student.EnrolledCourses update is owned by the registrar, never here.
func (c Course) EnrollStudent(studentID string) Course {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return c
		}
	}
	ids := make([]string, 0, len(c.StudentIDs)+1)
	ids = append(ids, c.StudentIDs...)
	c.StudentIDs = append(ids, studentID)
	return c
}

// RemoveStudent returns a copy of the course without the student ID;
// an absent ID returns the course unchanged.
func (c Course) RemoveStudent(studentID string) Course {
	ids := make([]string, 0, len(c.StudentIDs))
	for _, id := range c.StudentIDs {
		if id != studentID {
			ids = append(ids, id)
		}
	}
	if len(ids) == len(c.StudentIDs) {
		return c
	}
	c.StudentIDs = ids
	return c
}

// HasStudent reports whether the student is listed on the course.
func (c Course) HasStudent(studentID string) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	ID         string `json:"id" validate:"omitempty,len=4,numeric"` // optional; generated when empty
	Name       string `json:"name" validate:"required,alphanum_"`
	Instructor string `json:"instructor" validate:"required"`
	Day        string `json:"day" validate:"required"`
	Time       string `json:"time" validate:"required"`
	Descr      string `json:"descr"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.ID = core.CleanString(nc.ID)
	nc.Name = core.CleanString(nc.Name)
	nc.Instructor = core.CleanString(nc.Instructor)
	nc.Day = core.CleanString(nc.Day)
	nc.Time = core.CleanString(nc.Time)
	nc.Descr = core.CleanString(nc.Descr)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing
// Course. Sub-resources and enrollments are managed by their own operations.
type UpdateCourse struct {
	Name       string `json:"name" validate:"required,alphanum_"`
	Instructor string `json:"instructor" validate:"required"`
	Day        string `json:"day" validate:"required"`
	Time       string `json:"time" validate:"required"`
	Descr      string `json:"descr"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Instructor = core.CleanString(uc.Instructor)
	uc.Day = core.CleanString(uc.Day)
	uc.Time = core.CleanString(uc.Time)
	uc.Descr = core.CleanString(uc.Descr)
	return validate.Struct(uc)
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required,futuredate"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// UpdateAssignment carries a partial update: nil fields are left untouched.
type UpdateAssignment struct {
	Title       *string    `json:"title" validate:"omitempty,min=1"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date" validate:"omitempty,futuredate"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	if ua.Title != nil {
		title := core.CleanString(*ua.Title)
		ua.Title = &title
	}
	if ua.Description != nil {
		descr := core.CleanString(*ua.Description)
		ua.Description = &descr
	}
	return validate.Struct(ua)
}

// NewMessage contains information needed to post a new Message.
type NewMessage struct {
	Title     string    `json:"title" validate:"required"`
	Content   string    `json:"content" validate:"required"`
	Sender    string    `json:"sender" validate:"required"`
	Timestamp time.Time `json:"timestamp"` // optional; defaults to now
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Content = core.CleanString(nm.Content)
	nm.Sender = core.CleanString(nm.Sender)
	return validate.Struct(nm)
}
