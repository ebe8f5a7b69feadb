// Package portal holds the in-memory view state: a parent list view (Portal)
// and per-course detail views (CourseView) that each keep their own copy of
// the entities. Every mutation writes to the store first and patches the
// local copy only on success; sibling copies are brought up to date through
// update callbacks instead of re-fetching the world.
package portal

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/registrar"
	"github.com/trezcool/darasa/core/student"
)

// Portal is the admin list view: the full course and student collections,
// loaded once and patched in place after successful writes.
type Portal struct {
	mu       sync.Mutex
	courses  []course.Course
	students []student.Student
	loaded   bool

	courseSvc  *course.Service
	studentSvc *student.Service
	reg        *registrar.Service

	// per-entity busy flags; deleting one row never blocks another
	deletingCourse  map[string]bool
	deletingStudent map[string]bool
}

func NewPortal(courseSvc *course.Service, studentSvc *student.Service, reg *registrar.Service) *Portal {
	return &Portal{
		courseSvc:       courseSvc,
		studentSvc:      studentSvc,
		reg:             reg,
		deletingCourse:  make(map[string]bool),
		deletingStudent: make(map[string]bool),
	}
}

// Load fetches both collections sequentially. It is an explicit operation,
// triggered once on open; saves never happen implicitly as part of a load.
func (p *Portal) Load(ctx context.Context) error {
	courses, err := p.courseSvc.QueryAll(ctx)
	if err != nil {
		return err
	}
	students, err := p.studentSvc.QueryAll(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.courses = courses
	p.students = students
	p.loaded = true
	return nil
}

func (p *Portal) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Courses returns a copy of the course list.
func (p *Portal) Courses() []course.Course {
	p.mu.Lock()
	defer p.mu.Unlock()
	courses := make([]course.Course, len(p.courses))
	copy(courses, p.courses)
	return courses
}

// Students returns a copy of the student list.
func (p *Portal) Students() []student.Student {
	p.mu.Lock()
	defer p.mu.Unlock()
	students := make([]student.Student, len(p.students))
	copy(students, p.students)
	return students
}

func (p *Portal) CreateCourse(ctx context.Context, nc course.NewCourse) (course.Course, error) {
	crs, err := p.courseSvc.Create(ctx, nc)
	if err != nil {
		return course.Course{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.courses = append(p.courses, crs)
	return crs, nil
}

func (p *Portal) UpdateCourse(ctx context.Context, id string, uc course.UpdateCourse) (course.Course, error) {
	crs, err := p.courseSvc.Update(ctx, id, uc)
	if err != nil {
		return course.Course{}, err
	}
	p.replaceCourse(crs)
	return crs, nil
}

// DeleteCourse cascades reciprocal student references through the registrar,
// then drops the course and patches affected student copies.
func (p *Portal) DeleteCourse(ctx context.Context, id string) error {
	if !p.beginDelete(p.deletingCourse, id) {
		return ErrSubmitting
	}
	defer p.endDelete(p.deletingCourse, id)

	if err := p.reg.DeleteCourse(ctx, id); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	courses := make([]course.Course, 0, len(p.courses))
	for _, crs := range p.courses {
		if crs.ID != id {
			courses = append(courses, crs)
		}
	}
	p.courses = courses
	for i, stu := range p.students {
		p.students[i] = stu.LeaveCourse(id)
	}
	return nil
}

// DeletingCourse reports whether a delete is in flight for the given course.
func (p *Portal) DeletingCourse(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deletingCourse[id]
}

func (p *Portal) CreateStudent(ctx context.Context, ns student.NewStudent) (student.Student, error) {
	stu, err := p.studentSvc.Create(ctx, ns)
	if err != nil {
		return student.Student{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.students = append(p.students, stu)
	return stu, nil
}

func (p *Portal) UpdateStudent(ctx context.Context, id string, us student.UpdateStudent) (student.Student, error) {
	stu, err := p.studentSvc.Update(ctx, id, us)
	if err != nil {
		return student.Student{}, err
	}
	p.replaceStudent(stu)
	return stu, nil
}

// DeleteStudent cascades reciprocal course references through the registrar,
// then drops the student and patches affected course copies.
func (p *Portal) DeleteStudent(ctx context.Context, id string) error {
	if !p.beginDelete(p.deletingStudent, id) {
		return ErrSubmitting
	}
	defer p.endDelete(p.deletingStudent, id)

	if err := p.reg.DeleteStudent(ctx, id); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	students := make([]student.Student, 0, len(p.students))
	for _, stu := range p.students {
		if stu.ID != id {
			students = append(students, stu)
		}
	}
	p.students = students
	for i, crs := range p.courses {
		p.courses[i] = crs.RemoveStudent(id)
	}
	return nil
}

// DeletingStudent reports whether a delete is in flight for the given student.
func (p *Portal) DeletingStudent(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deletingStudent[id]
}

// OpenCourse loads the detail view for a course, repairing one-sided
// enrollments on the way in, and wires it back to this portal so detail
// mutations replace the stale list element.
func (p *Portal) OpenCourse(ctx context.Context, id string) (*CourseView, error) {
	crs, err := p.reg.SyncCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	p.replaceCourse(crs)

	view := NewCourseView(crs, p.courseSvc, p.reg)
	view.OnCourseUpdate = p.replaceCourse
	return view, nil
}

// replaceCourse swaps the matching list element for the fresh copy; it is the
// onCourseUpdate target for detail views.
func (p *Portal) replaceCourse(crs course.Course) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.courses {
		if c.ID == crs.ID {
			p.courses[i] = crs
			return
		}
	}
	p.courses = append(p.courses, crs)
}

func (p *Portal) replaceStudent(stu student.Student) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.students {
		if s.ID == stu.ID {
			p.students[i] = stu
			return
		}
	}
	p.students = append(p.students, stu)
}

func (p *Portal) beginDelete(busy map[string]bool, id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if busy[id] {
		return false
	}
	busy[id] = true
	return true
}

func (p *Portal) endDelete(busy map[string]bool, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(busy, id)
}
