package portal

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/registrar"
)

// CourseView is the detail view for one course. It keeps its own copy of the
// entity; every mutation writes to the store first and patches the copy only
// on success (never patch-then-write), then pushes the fresh value to the
// parent through OnCourseUpdate.
type CourseView struct {
	mu  sync.Mutex
	crs course.Course

	courseSvc *course.Service
	reg       *registrar.Service

	// OnCourseUpdate propagates every successful local patch to the parent
	// view holding a sibling copy of the same course.
	OnCourseUpdate func(course.Course)

	saveGate submitGate // one in-flight dialog submission at a time

	deletingAssignment map[string]bool
	deletingMessage    map[string]bool
	removingStudent    map[string]bool
	addingStudents     bool
}

func NewCourseView(crs course.Course, courseSvc *course.Service, reg *registrar.Service) *CourseView {
	return &CourseView{
		crs:                crs,
		courseSvc:          courseSvc,
		reg:                reg,
		deletingAssignment: make(map[string]bool),
		deletingMessage:    make(map[string]bool),
		removingStudent:    make(map[string]bool),
	}
}

// Course returns the view's current copy.
func (v *CourseView) Course() course.Course {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.crs
}

// Submitting reports whether a dialog submission is in flight; confirm and
// cancel controls stay disabled while it is.
func (v *CourseView) Submitting() bool {
	return v.saveGate.Submitting()
}

func (v *CourseView) AddAssignment(ctx context.Context, na course.NewAssignment) (course.Assignment, error) {
	if !v.saveGate.Begin() {
		return course.Assignment{}, ErrSubmitting
	}
	defer v.saveGate.End()

	a, err := v.courseSvc.AddAssignment(ctx, v.courseID(), na)
	if err != nil {
		return course.Assignment{}, err
	}
	v.patch(func(c course.Course) course.Course { return c.AddAssignment(a) })
	return a, nil
}

func (v *CourseView) UpdateAssignment(ctx context.Context, assignmentID string, ua course.UpdateAssignment) (course.Assignment, error) {
	if !v.saveGate.Begin() {
		return course.Assignment{}, ErrSubmitting
	}
	defer v.saveGate.End()

	a, err := v.courseSvc.UpdateAssignment(ctx, v.courseID(), assignmentID, ua)
	if err != nil {
		return course.Assignment{}, err
	}
	v.patch(func(c course.Course) course.Course { return c.UpdateAssignment(assignmentID, ua) })
	return a, nil
}

func (v *CourseView) DeleteAssignment(ctx context.Context, assignmentID string) error {
	if !v.begin(v.deletingAssignment, assignmentID) {
		return ErrSubmitting
	}
	defer v.end(v.deletingAssignment, assignmentID)

	if err := v.courseSvc.DeleteAssignment(ctx, v.courseID(), assignmentID); err != nil {
		return err
	}
	v.patch(func(c course.Course) course.Course { return c.RemoveAssignment(assignmentID) })
	return nil
}

// DeletingAssignment reports whether a delete is in flight for the given
// assignment; only that row's controls are disabled.
func (v *CourseView) DeletingAssignment(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deletingAssignment[id]
}

func (v *CourseView) AddMessage(ctx context.Context, nm course.NewMessage) (course.Message, error) {
	if !v.saveGate.Begin() {
		return course.Message{}, ErrSubmitting
	}
	defer v.saveGate.End()

	msg, err := v.courseSvc.AddMessage(ctx, v.courseID(), nm)
	if err != nil {
		return course.Message{}, err
	}
	v.patch(func(c course.Course) course.Course { return c.AddMessage(msg) })
	return msg, nil
}

func (v *CourseView) DeleteMessage(ctx context.Context, messageID string) error {
	if !v.begin(v.deletingMessage, messageID) {
		return ErrSubmitting
	}
	defer v.end(v.deletingMessage, messageID)

	if err := v.courseSvc.DeleteMessage(ctx, v.courseID(), messageID); err != nil {
		return err
	}
	v.patch(func(c course.Course) course.Course { return c.RemoveMessage(messageID) })
	return nil
}

// EnrollStudents enrolls the selected students through the registrar's
// sequential batch. Students enrolled before a failure are still patched in,
// matching what the store now holds.
func (v *CourseView) EnrollStudents(ctx context.Context, studentIDs []string) error {
	if !v.beginAddingStudents() {
		return ErrSubmitting
	}
	defer v.endAddingStudents()

	enrolled, err := v.reg.EnrollAll(ctx, v.courseID(), studentIDs)
	if len(enrolled) > 0 {
		v.patch(func(c course.Course) course.Course {
			for _, sid := range enrolled {
				c = c.EnrollStudent(sid)
			}
			return c
		})
	}
	return err
}

// AddingStudents reports whether a batch enrollment is in flight.
func (v *CourseView) AddingStudents() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.addingStudents
}

func (v *CourseView) RemoveStudent(ctx context.Context, studentID string) error {
	if !v.begin(v.removingStudent, studentID) {
		return ErrSubmitting
	}
	defer v.end(v.removingStudent, studentID)

	if err := v.reg.Unenroll(ctx, v.courseID(), studentID); err != nil {
		// a partial unenroll did remove the course side; reflect that
		if _, ok := err.(*registrar.PartialError); !ok {
			return err
		}
		v.patch(func(c course.Course) course.Course { return c.RemoveStudent(studentID) })
		return err
	}
	v.patch(func(c course.Course) course.Course { return c.RemoveStudent(studentID) })
	return nil
}

// RemovingStudent reports whether an unenroll is in flight for the student.
func (v *CourseView) RemovingStudent(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.removingStudent[id]
}

// Refresh reloads and repairs the course from the store.
func (v *CourseView) Refresh(ctx context.Context) error {
	crs, err := v.reg.SyncCourse(ctx, v.courseID())
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.crs = crs
	notify := v.OnCourseUpdate
	v.mu.Unlock()
	if notify != nil {
		notify(crs)
	}
	return nil
}

func (v *CourseView) courseID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.crs.ID
}

// patch applies fn to the local copy and notifies the parent. Only called
// after the remote write succeeded.
func (v *CourseView) patch(fn func(course.Course) course.Course) {
	v.mu.Lock()
	v.crs = fn(v.crs)
	crs := v.crs
	notify := v.OnCourseUpdate
	v.mu.Unlock()
	if notify != nil {
		notify(crs)
	}
}

func (v *CourseView) begin(busy map[string]bool, id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if busy[id] {
		return false
	}
	busy[id] = true
	return true
}

func (v *CourseView) end(busy map[string]bool, id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(busy, id)
}

func (v *CourseView) beginAddingStudents() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.addingStudents {
		return false
	}
	v.addingStudents = true
	return true
}

func (v *CourseView) endAddingStudents() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.addingStudents = false
}
