package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/student"
)

type studentRepository struct {
	db *DB
}

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CheckIDUniqueness(_ context.Context, id string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if _, ok := repo.db.students[id]; ok {
		return student.ErrIDExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, stu student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[stu.ID]; ok {
		return student.Student{}, student.ErrIDExists
	}
	repo.db.students[stu.ID] = &studentRecord{
		stu:         stripStudent(stu),
		enrollments: make(map[string]struct{}),
	}
	return stu, nil
}

func (repo *studentRepository) QueryAllStudents(_ context.Context) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, rec := range repo.db.students {
		stu := rec.stu
		stu.EnrolledCourses = copyIDs(stu.EnrolledCourses)
		students = append(students, stu)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rec, ok := repo.db.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}

	// the markers are the source of truth on a detail load
	stu := rec.stu
	stu.EnrolledCourses = make([]string, 0, len(rec.enrollments))
	for cid := range rec.enrollments {
		stu.EnrolledCourses = append(stu.EnrolledCourses, cid)
	}
	sort.Strings(stu.EnrolledCourses)
	return stu, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, stu student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.students[stu.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	// top-level fields only; enrollments are not touched here
	rec.stu.FirstName = stu.FirstName
	rec.stu.LastName = stu.LastName
	rec.stu.Email = stu.Email
	rec.stu.BirthDate = stu.BirthDate

	stu.EnrolledCourses = copyIDs(rec.stu.EnrolledCourses)
	return stu, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.students, id)
	return nil
}

func (repo *studentRepository) AddEnrollment(_ context.Context, studentID, courseID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.students[studentID]
	if !ok {
		return student.ErrNotFound
	}
	rec.enrollments[courseID] = struct{}{}
	rec.stu = rec.stu.EnrollInCourse(courseID) // append iff absent
	return nil
}

func (repo *studentRepository) RemoveEnrollment(_ context.Context, studentID, courseID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.students[studentID]
	if !ok {
		return student.ErrNotFound
	}
	delete(rec.enrollments, courseID)
	rec.stu = rec.stu.LeaveCourse(courseID)
	return nil
}

func (repo *studentRepository) QueryEnrollments(_ context.Context, studentID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rec, ok := repo.db.students[studentID]
	if !ok {
		return nil, student.ErrNotFound
	}
	ids := make([]string, 0, len(rec.enrollments))
	for id := range rec.enrollments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// stripStudent keeps only the fields stored on the top-level record.
func stripStudent(stu student.Student) student.Student {
	stu.EnrolledCourses = copyIDs(stu.EnrolledCourses)
	return stu
}
