package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/draft"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app        *Server
	conf       *core.Config
	logger     *testutil.Logger
	courseRepo course.Repository
	draftRepo  draft.Repository
}

// setup starts a server over an in-memory DB. draftRepo optionally replaces the in-memory draft repository.
func setup(t *testing.T, draftRepo ...draft.Repository) *env {
	conf := testutil.Config()
	logger := testutil.NewLogger(t)

	// set up DB & repos
	db := inmemdb.Open()
	courseRepo := inmemdb.NewCourseRepository(db)
	drftRepo := inmemdb.NewDraftRepository(db)
	if len(draftRepo) > 0 {
		drftRepo = draftRepo[0]
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	draft.InitValidators(validate, translator)

	// set up server
	app := NewServer(
		ServerDeps{
			Conf:           conf,
			Logger:         logger,
			CourseSvc:      course.NewService(courseRepo),
			DraftSvc:       draft.NewService(drftRepo, conf),
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)
	return &env{
		app:        app,
		conf:       conf,
		logger:     logger,
		courseRepo: courseRepo,
		draftRepo:  drftRepo,
	}
}

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

func (e *env) getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr, e.conf), e.conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func (e *env) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	e.app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
