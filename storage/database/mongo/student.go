package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core/student"
)

const (
	studentCollection           = "students"
	studentEnrollmentCollection = "student_enrollments"
)

type (
	studentDoc struct {
		ID              string    `bson:"_id"`
		FirstName       string    `bson:"first_name"`
		LastName        string    `bson:"last_name"`
		Email           string    `bson:"email"`
		BirthDate       time.Time `bson:"birth_date"`
		EnrolledCourses []string  `bson:"enrolled_courses"`
	}

	studentEnrollmentDoc struct {
		StudentID string    `bson:"student_id"`
		CourseID  string    `bson:"course_id"`
		CreatedAt time.Time `bson:"created_at"`
	}
)

type studentRepository struct {
	students    *mongo.Collection
	enrollments *mongo.Collection
}

func NewStudentRepository(db *mongo.Database) student.Repository {
	return &studentRepository{
		students:    db.Collection(studentCollection),
		enrollments: db.Collection(studentEnrollmentCollection),
	}
}

func (repo *studentRepository) CheckIDUniqueness(ctx context.Context, id string) error {
	n, err := repo.students.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n > 0 {
		return student.ErrIDExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, stu student.Student) (student.Student, error) {
	doc := studentDoc{
		ID:              stu.ID,
		FirstName:       stu.FirstName,
		LastName:        stu.LastName,
		Email:           stu.Email,
		BirthDate:       stu.BirthDate,
		EnrolledCourses: []string{},
	}
	if _, err := repo.students.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return student.Student{}, student.ErrIDExists
		}
		return student.Student{}, err
	}
	return stu, nil
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	cursor, err := repo.students.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []studentDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	students := make([]student.Student, 0, len(docs))
	for _, doc := range docs {
		students = append(students, doc.toStudent())
	}
	return students, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var doc studentDoc
	if err := repo.students.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, err
	}
	stu := doc.toStudent()

	// the markers are the source of truth on a detail load
	enrolled, err := repo.QueryEnrollments(ctx, id)
	if err != nil {
		return student.Student{}, err
	}
	stu.EnrolledCourses = enrolled
	return stu, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, stu student.Student) (student.Student, error) {
	res, err := repo.students.UpdateOne(ctx, bson.M{"_id": stu.ID}, bson.M{
		"$set": bson.M{
			"first_name": stu.FirstName,
			"last_name":  stu.LastName,
			"email":      stu.Email,
			"birth_date": stu.BirthDate,
		},
	})
	if err != nil {
		return student.Student{}, err
	}
	if res.MatchedCount == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return stu, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	res, err := repo.students.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return student.ErrNotFound
	}
	_, err = repo.enrollments.DeleteMany(ctx, bson.M{"student_id": id})
	return err
}

func (repo *studentRepository) AddEnrollment(ctx context.Context, studentID, courseID string) error {
	if err := repo.checkStudentExists(ctx, studentID); err != nil {
		return err
	}

	// two writes, no transaction: marker first, then the reference array
	filter := bson.M{"student_id": studentID, "course_id": courseID}
	_, err := repo.enrollments.UpdateOne(ctx, filter, bson.M{
		"$setOnInsert": studentEnrollmentDoc{StudentID: studentID, CourseID: courseID, CreatedAt: time.Now().UTC()},
	}, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}

	_, err = repo.students.UpdateOne(ctx, bson.M{"_id": studentID}, bson.M{
		"$addToSet": bson.M{"enrolled_courses": courseID},
	})
	return err
}

func (repo *studentRepository) RemoveEnrollment(ctx context.Context, studentID, courseID string) error {
	if err := repo.checkStudentExists(ctx, studentID); err != nil {
		return err
	}

	if _, err := repo.enrollments.DeleteOne(ctx, bson.M{"student_id": studentID, "course_id": courseID}); err != nil {
		return err
	}
	_, err := repo.students.UpdateOne(ctx, bson.M{"_id": studentID}, bson.M{
		"$pull": bson.M{"enrolled_courses": courseID},
	})
	return err
}

func (repo *studentRepository) QueryEnrollments(ctx context.Context, studentID string) ([]string, error) {
	cursor, err := repo.enrollments.Find(ctx, bson.M{"student_id": studentID},
		options.Find().SetSort(bson.D{{Key: "course_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []studentEnrollmentDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.CourseID)
	}
	return ids, nil
}

func (repo *studentRepository) checkStudentExists(ctx context.Context, id string) error {
	n, err := repo.students.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (doc studentDoc) toStudent() student.Student {
	enrolled := doc.EnrolledCourses
	if enrolled == nil {
		enrolled = []string{}
	}
	return student.Student{
		ID:              doc.ID,
		FirstName:       doc.FirstName,
		LastName:        doc.LastName,
		Email:           doc.Email,
		BirthDate:       doc.BirthDate.UTC(),
		EnrolledCourses: enrolled,
	}
}
