package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/student"
)

func Test_studentApi_crud(t *testing.T) {
	deps := setupServer(t)
	token := getToken(t, deps)

	t.Run("auth required", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		}
		req, rec := newRequest(http.MethodGet, "/v1/students")
		deps.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("empty list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students", token)
		deps.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte("[]")}, rec)
	})

	t.Run("create requires valid email", func(t *testing.T) {
		body := []byte(`{"first_name":"Alan","last_name":"Turing","email":"not-an-email","birth_date":"1912-06-23T00:00:00Z"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", token, body)
		deps.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "email")
	})

	t.Run("create with explicit id", func(t *testing.T) {
		body := []byte(`{"id":"123456789","first_name":"Alan","last_name":"Turing","email":"Alan@Example.com","birth_date":"1912-06-23T00:00:00Z"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", token, body)
		deps.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var stu student.Student
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stu))
		assert.Equal(t, "123456789", stu.ID)
		assert.Equal(t, "alan@example.com", stu.Email) // lowered
		assert.Empty(t, stu.EnrolledCourses)
	})

	t.Run("duplicate id rejected before write", func(t *testing.T) {
		body := []byte(`{"id":"123456789","first_name":"Imposter","last_name":"Turing","email":"fake@example.com","birth_date":"1912-06-23T00:00:00Z"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", token, body)
		deps.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), student.ErrIDExists.Error())

		// the original record is untouched
		stu, err := deps.studentSvc.GetByID(context.Background(), "123456789")
		require.NoError(t, err)
		assert.Equal(t, "Alan", stu.FirstName)
	})

	t.Run("create generates id when absent", func(t *testing.T) {
		body := []byte(`{"first_name":"Grace","last_name":"Hopper","email":"grace@example.com","birth_date":"1906-12-09T00:00:00Z"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", token, body)
		deps.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var stu student.Student
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stu))
		assert.NotEmpty(t, stu.ID)
	})

	t.Run("retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/123456789", token)
		deps.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var stu student.Student
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stu))
		assert.Equal(t, "Alan Turing", stu.FullName())
	})

	t.Run("retrieve unknown", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: student.ErrNotFound.Error()}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/000000000", token)
		deps.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("update", func(t *testing.T) {
		body := []byte(`{"first_name":"Alan","last_name":"Turing","email":"turing@example.com","birth_date":"1912-06-23T00:00:00Z"}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/students/123456789", token, body)
		deps.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var stu student.Student
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stu))
		assert.Equal(t, "turing@example.com", stu.Email)
	})
}

func Test_studentApi_deleteCascade(t *testing.T) {
	deps := setupServer(t)
	token := getToken(t, deps)
	ctx := context.Background()

	_, err := deps.courseSvc.Create(ctx, course.NewCourse{
		ID: "1234", Name: "Algorithms", Instructor: "Ada Lovelace", Day: "Monday", Time: "10:00",
	})
	require.NoError(t, err)
	stu, err := deps.studentSvc.Create(ctx, student.NewStudent{
		FirstName: "Alan", LastName: "Turing",
		Email: "alan@example.com", BirthDate: time.Date(1912, 6, 23, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, deps.reg.Enroll(ctx, "1234", stu.ID))

	req, rec := newAuthRequest(http.MethodDelete, "/v1/students/"+stu.ID, token)
	deps.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// the course no longer references the deleted student
	crs, err := deps.courseSvc.GetByID(ctx, "1234")
	require.NoError(t, err)
	assert.Empty(t, crs.StudentIDs)

	req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+stu.ID, token)
	deps.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_studentApi_syncRepairsPartialUnenroll(t *testing.T) {
	deps := setupServer(t)
	token := getToken(t, deps)
	ctx := context.Background()

	_, err := deps.courseSvc.Create(ctx, course.NewCourse{
		ID: "1234", Name: "Algorithms", Instructor: "Ada Lovelace", Day: "Monday", Time: "10:00",
	})
	require.NoError(t, err)
	stu, err := deps.studentSvc.Create(ctx, student.NewStudent{
		FirstName: "Alan", LastName: "Turing",
		Email: "alan@example.com", BirthDate: time.Date(1912, 6, 23, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, deps.reg.Enroll(ctx, "1234", stu.ID))

	// simulate an unenroll that only reached the course side
	require.NoError(t, deps.courseSvc.RemoveStudent(ctx, "1234", stu.ID))

	req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+stu.ID, token)
	deps.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got student.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Empty(t, got.EnrolledCourses) // the dangling side was removed on load
}
