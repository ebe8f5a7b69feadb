// Package mongodb implements the store contract against the document store:
// two top-level collections (courses, students) plus named sub-resource
// collections keyed by the parent's ID. The store offers no transaction
// across collections; relationship writes are two independent operations.
package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core/course"
)

const (
	courseCollection           = "courses"
	courseAssignmentCollection = "course_assignments"
	courseMessageCollection    = "course_messages"
	courseEnrollmentCollection = "course_enrollments"
)

type (
	courseDoc struct {
		ID         string   `bson:"_id"`
		Name       string   `bson:"name"`
		Instructor string   `bson:"instructor"`
		Day        string   `bson:"day"`
		Time       string   `bson:"time"`
		Descr      string   `bson:"descr"`
		StudentIDs []string `bson:"student_ids"`
	}

	assignmentDoc struct {
		ID          string    `bson:"_id"`
		CourseID    string    `bson:"course_id"`
		Title       string    `bson:"title"`
		Description string    `bson:"description"`
		DueDate     time.Time `bson:"due_date"`
	}

	messageDoc struct {
		ID        string    `bson:"_id"`
		CourseID  string    `bson:"course_id"`
		Title     string    `bson:"title"`
		Content   string    `bson:"content"`
		Sender    string    `bson:"sender"`
		Timestamp time.Time `bson:"timestamp"`
	}

	courseEnrollmentDoc struct {
		CourseID  string    `bson:"course_id"`
		StudentID string    `bson:"student_id"`
		CreatedAt time.Time `bson:"created_at"`
	}
)

type courseRepository struct {
	courses     *mongo.Collection
	assignments *mongo.Collection
	messages    *mongo.Collection
	enrollments *mongo.Collection
}

func NewCourseRepository(db *mongo.Database) course.Repository {
	return &courseRepository{
		courses:     db.Collection(courseCollection),
		assignments: db.Collection(courseAssignmentCollection),
		messages:    db.Collection(courseMessageCollection),
		enrollments: db.Collection(courseEnrollmentCollection),
	}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	doc := courseDoc{
		ID:         crs.ID,
		Name:       crs.Name,
		Instructor: crs.Instructor,
		Day:        crs.Day,
		Time:       crs.Time,
		Descr:      crs.Descr,
		StudentIDs: []string{},
	}
	// insert, never upsert: a racing duplicate display ID must fail loudly
	// instead of silently overwriting the first writer's course.
	if _, err := repo.courses.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return course.Course{}, course.ErrIDExists
		}
		return course.Course{}, err
	}
	return crs, nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	cursor, err := repo.courses.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []courseDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	// list view: top-level fields only, sub-resources load on the detail view
	courses := make([]course.Course, 0, len(docs))
	for _, doc := range docs {
		courses = append(courses, doc.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) QueryCourseIDs(ctx context.Context) ([]string, error) {
	vals, err := repo.courses.Distinct(ctx, "_id", bson.M{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(vals))
	for _, val := range vals {
		if id, ok := val.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var doc courseDoc
	if err := repo.courses.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, err
	}
	crs := doc.toCourse()

	cursor, err := repo.assignments.Find(ctx, bson.M{"course_id": id},
		options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return course.Course{}, err
	}
	var aDocs []assignmentDoc
	if err = cursor.All(ctx, &aDocs); err != nil {
		return course.Course{}, err
	}
	for _, a := range aDocs {
		crs.Assignments = append(crs.Assignments, course.Assignment{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			DueDate:     a.DueDate.UTC(),
		})
	}

	cursor, err = repo.messages.Find(ctx, bson.M{"course_id": id},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return course.Course{}, err
	}
	var mDocs []messageDoc
	if err = cursor.All(ctx, &mDocs); err != nil {
		return course.Course{}, err
	}
	for _, msg := range mDocs {
		crs.Messages = append(crs.Messages, course.Message{
			ID:        msg.ID,
			Title:     msg.Title,
			Content:   msg.Content,
			Sender:    msg.Sender,
			Timestamp: msg.Timestamp.UTC(),
		})
	}

	return crs, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	res, err := repo.courses.UpdateOne(ctx, bson.M{"_id": crs.ID}, bson.M{
		"$set": bson.M{
			"name":       crs.Name,
			"instructor": crs.Instructor,
			"day":        crs.Day,
			"time":       crs.Time,
			"descr":      crs.Descr,
		},
	})
	if err != nil {
		return course.Course{}, err
	}
	if res.MatchedCount == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := repo.courses.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return course.ErrNotFound
	}

	// cascade the sub-resources
	filter := bson.M{"course_id": id}
	if _, err = repo.assignments.DeleteMany(ctx, filter); err != nil {
		return err
	}
	if _, err = repo.messages.DeleteMany(ctx, filter); err != nil {
		return err
	}
	_, err = repo.enrollments.DeleteMany(ctx, filter)
	return err
}

func (repo *courseRepository) CreateAssignment(ctx context.Context, courseID string, a course.Assignment) (course.Assignment, error) {
	if err := repo.checkCourseExists(ctx, courseID); err != nil {
		return course.Assignment{}, err
	}
	doc := assignmentDoc{
		ID:          a.ID,
		CourseID:    courseID,
		Title:       a.Title,
		Description: a.Description,
		DueDate:     a.DueDate,
	}
	if _, err := repo.assignments.InsertOne(ctx, doc); err != nil {
		return course.Assignment{}, err
	}
	return a, nil
}

func (repo *courseRepository) UpdateAssignment(ctx context.Context, courseID string, a course.Assignment) (course.Assignment, error) {
	res, err := repo.assignments.UpdateOne(ctx, bson.M{"_id": a.ID, "course_id": courseID}, bson.M{
		"$set": bson.M{
			"title":       a.Title,
			"description": a.Description,
			"due_date":    a.DueDate,
		},
	})
	if err != nil {
		return course.Assignment{}, err
	}
	if res.MatchedCount == 0 {
		return course.Assignment{}, course.ErrAssignmentNotFound
	}
	return a, nil
}

func (repo *courseRepository) DeleteAssignment(ctx context.Context, courseID, assignmentID string) error {
	if err := repo.checkCourseExists(ctx, courseID); err != nil {
		return err
	}
	// an absent assignment ID is a no-op
	_, err := repo.assignments.DeleteOne(ctx, bson.M{"_id": assignmentID, "course_id": courseID})
	return err
}

func (repo *courseRepository) CreateMessage(ctx context.Context, courseID string, msg course.Message) (course.Message, error) {
	if err := repo.checkCourseExists(ctx, courseID); err != nil {
		return course.Message{}, err
	}
	doc := messageDoc{
		ID:        msg.ID,
		CourseID:  courseID,
		Title:     msg.Title,
		Content:   msg.Content,
		Sender:    msg.Sender,
		Timestamp: msg.Timestamp,
	}
	if _, err := repo.messages.InsertOne(ctx, doc); err != nil {
		return course.Message{}, err
	}
	return msg, nil
}

func (repo *courseRepository) DeleteMessage(ctx context.Context, courseID, messageID string) error {
	if err := repo.checkCourseExists(ctx, courseID); err != nil {
		return err
	}
	_, err := repo.messages.DeleteOne(ctx, bson.M{"_id": messageID, "course_id": courseID})
	return err
}

func (repo *courseRepository) AddEnrollment(ctx context.Context, courseID, studentID string) error {
	if err := repo.checkCourseExists(ctx, courseID); err != nil {
		return err
	}

	// two writes, no transaction: marker first, then the reference array.
	// both are idempotent (upsert / $addToSet) so retries are safe.
	filter := bson.M{"course_id": courseID, "student_id": studentID}
	_, err := repo.enrollments.UpdateOne(ctx, filter, bson.M{
		"$setOnInsert": courseEnrollmentDoc{CourseID: courseID, StudentID: studentID, CreatedAt: time.Now().UTC()},
	}, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}

	_, err = repo.courses.UpdateOne(ctx, bson.M{"_id": courseID}, bson.M{
		"$addToSet": bson.M{"student_ids": studentID},
	})
	return err
}

func (repo *courseRepository) RemoveEnrollment(ctx context.Context, courseID, studentID string) error {
	if err := repo.checkCourseExists(ctx, courseID); err != nil {
		return err
	}

	if _, err := repo.enrollments.DeleteOne(ctx, bson.M{"course_id": courseID, "student_id": studentID}); err != nil {
		return err
	}
	_, err := repo.courses.UpdateOne(ctx, bson.M{"_id": courseID}, bson.M{
		"$pull": bson.M{"student_ids": studentID},
	})
	return err
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, courseID string) ([]string, error) {
	if err := repo.checkCourseExists(ctx, courseID); err != nil {
		return nil, err
	}

	cursor, err := repo.enrollments.Find(ctx, bson.M{"course_id": courseID},
		options.Find().SetSort(bson.D{{Key: "student_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []courseEnrollmentDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.StudentID)
	}
	return ids, nil
}

func (repo *courseRepository) checkCourseExists(ctx context.Context, id string) error {
	n, err := repo.courses.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (doc courseDoc) toCourse() course.Course {
	studentIDs := doc.StudentIDs
	if studentIDs == nil {
		studentIDs = []string{}
	}
	return course.Course{
		ID:          doc.ID,
		Name:        doc.Name,
		Instructor:  doc.Instructor,
		Day:         doc.Day,
		Time:        doc.Time,
		Descr:       doc.Descr,
		Assignments: []course.Assignment{},
		Messages:    []course.Message{},
		StudentIDs:  studentIDs,
	}
}
