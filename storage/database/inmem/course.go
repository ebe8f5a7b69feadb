package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[crs.ID]; ok {
		return course.Course{}, course.ErrIDExists
	}
	repo.db.courses[crs.ID] = &courseRecord{
		crs:         stripCourse(crs),
		assignments: make(map[string]course.Assignment),
		messages:    make(map[string]course.Message),
		enrollments: make(map[string]struct{}),
	}
	return crs, nil
}

func (repo *courseRepository) QueryAllCourses(_ context.Context) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, rec := range repo.db.courses {
		crs := rec.crs
		crs.StudentIDs = copyIDs(crs.StudentIDs)
		crs.Assignments = []course.Assignment{}
		crs.Messages = []course.Message{}
		courses = append(courses, crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (repo *courseRepository) QueryCourseIDs(_ context.Context) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]string, 0, len(repo.db.courses))
	for id := range repo.db.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rec, ok := repo.db.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}

	crs := rec.crs
	crs.StudentIDs = copyIDs(crs.StudentIDs)

	crs.Assignments = make([]course.Assignment, 0, len(rec.assignments))
	for _, a := range rec.assignments {
		crs.Assignments = append(crs.Assignments, a)
	}
	sort.Slice(crs.Assignments, func(i, j int) bool {
		if crs.Assignments[i].DueDate.Equal(crs.Assignments[j].DueDate) {
			return crs.Assignments[i].ID < crs.Assignments[j].ID
		}
		return crs.Assignments[i].DueDate.Before(crs.Assignments[j].DueDate)
	})

	crs.Messages = make([]course.Message, 0, len(rec.messages))
	for _, msg := range rec.messages {
		crs.Messages = append(crs.Messages, msg)
	}
	sort.Slice(crs.Messages, func(i, j int) bool {
		if crs.Messages[i].Timestamp.Equal(crs.Messages[j].Timestamp) {
			return crs.Messages[i].ID < crs.Messages[j].ID
		}
		return crs.Messages[i].Timestamp.Before(crs.Messages[j].Timestamp)
	})

	return crs, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.courses[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	// top-level fields only; StudentIDs and sub-resources are not touched here
	rec.crs.Name = crs.Name
	rec.crs.Instructor = crs.Instructor
	rec.crs.Day = crs.Day
	rec.crs.Time = crs.Time
	rec.crs.Descr = crs.Descr

	crs.StudentIDs = copyIDs(rec.crs.StudentIDs)
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)
	return nil
}

func (repo *courseRepository) CreateAssignment(_ context.Context, courseID string, a course.Assignment) (course.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.courses[courseID]
	if !ok {
		return course.Assignment{}, course.ErrNotFound
	}
	rec.assignments[a.ID] = a
	return a, nil
}

func (repo *courseRepository) UpdateAssignment(_ context.Context, courseID string, a course.Assignment) (course.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.courses[courseID]
	if !ok {
		return course.Assignment{}, course.ErrNotFound
	}
	if _, ok = rec.assignments[a.ID]; !ok {
		return course.Assignment{}, course.ErrAssignmentNotFound
	}
	rec.assignments[a.ID] = a
	return a, nil
}

func (repo *courseRepository) DeleteAssignment(_ context.Context, courseID, assignmentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.courses[courseID]
	if !ok {
		return course.ErrNotFound
	}
	delete(rec.assignments, assignmentID) // absent ID is a no-op
	return nil
}

func (repo *courseRepository) CreateMessage(_ context.Context, courseID string, msg course.Message) (course.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.courses[courseID]
	if !ok {
		return course.Message{}, course.ErrNotFound
	}
	rec.messages[msg.ID] = msg
	return msg, nil
}

func (repo *courseRepository) DeleteMessage(_ context.Context, courseID, messageID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.courses[courseID]
	if !ok {
		return course.ErrNotFound
	}
	delete(rec.messages, messageID) // absent ID is a no-op
	return nil
}

func (repo *courseRepository) AddEnrollment(_ context.Context, courseID, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.courses[courseID]
	if !ok {
		return course.ErrNotFound
	}
	rec.enrollments[studentID] = struct{}{}
	rec.crs = rec.crs.EnrollStudent(studentID) // append iff absent
	return nil
}

func (repo *courseRepository) RemoveEnrollment(_ context.Context, courseID, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.courses[courseID]
	if !ok {
		return course.ErrNotFound
	}
	delete(rec.enrollments, studentID)
	rec.crs = rec.crs.RemoveStudent(studentID)
	return nil
}

func (repo *courseRepository) QueryEnrollments(_ context.Context, courseID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rec, ok := repo.db.courses[courseID]
	if !ok {
		return nil, course.ErrNotFound
	}
	ids := make([]string, 0, len(rec.enrollments))
	for id := range rec.enrollments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// stripCourse keeps only the fields stored on the top-level record.
func stripCourse(crs course.Course) course.Course {
	crs.StudentIDs = copyIDs(crs.StudentIDs)
	crs.Assignments = nil
	crs.Messages = nil
	return crs
}

func copyIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
