package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/registrar"
	"github.com/trezcool/darasa/core/student"
	emailsvc "github.com/trezcool/darasa/services/email"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type testLogger struct{}

func (testLogger) Enable(bool)                        {}
func (testLogger) Debug(string, ...interface{})       {}
func (testLogger) Info(string, ...interface{})        {}
func (testLogger) Warn(string, ...interface{})        {}
func (testLogger) Error(string, ...interface{})       {}
func (testLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

func newTestConfig() *core.Config {
	return &core.Config{
		TestMode:         true,
		Env:              "TEST",
		Build:            "test",
		AppName:          "Darasa",
		SecretKey:        "secret",
		DefaultFromEmail: "noreply@localhost",
		Admin: core.AdminConfig{
			Email:    "admin@darasa.io",
			Password: "S3cretAdm1n!",
		},
		Server: core.ServerConfig{
			Host:               ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: 10 * time.Minute,
		},
	}
}

type testDeps struct {
	server     *Server
	conf       *core.Config
	courseSvc  *course.Service
	studentSvc *student.Service
	reg        *registrar.Service
}

// studentRepoWrapper lets a test swap in a misbehaving student repository.
type studentRepoWrapper func(student.Repository) student.Repository

func setupServer(t *testing.T, wrap ...studentRepoWrapper) testDeps {
	t.Helper()

	conf := newTestConfig()

	db, err := inmemdb.Open()
	require.NoError(t, err)

	var studentRepo student.Repository = inmemdb.NewStudentRepository(db)
	for _, w := range wrap {
		studentRepo = w(studentRepo)
	}

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	studentSvc := student.NewService(studentRepo)
	courseSvc := course.NewService(inmemdb.NewCourseRepository(db), mailSvc, studentSvc)
	courseSvc.Seed(42)
	reg := registrar.NewService(courseSvc, studentSvc, testLogger{})

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     testLogger{},
		CourseSvc:  courseSvc,
		StudentSvc: studentSvc,
		Registrar:  reg,
		Validate:   validate,
		Translator: translator,
	})
	return testDeps{
		server:     server,
		conf:       conf,
		courseSvc:  courseSvc,
		studentSvc: studentSvc,
		reg:        reg,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func getToken(t *testing.T, deps testDeps) string {
	t.Helper()
	claims, err := deps.server.auth.authenticate(deps.conf.Admin.Email, deps.conf.Admin.Password)
	require.NoError(t, err)
	token, err := deps.server.auth.generateToken(claims)
	require.NoError(t, err)
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
