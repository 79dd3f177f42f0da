package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/marksheet/apps/api/echo"
	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/marksheet"
	"github.com/trezcool/marksheet/core/school"
	emailsvc "github.com/trezcool/marksheet/services/email"
	inmemdb "github.com/trezcool/marksheet/storage/database/inmem"
	testutil "github.com/trezcool/marksheet/tests"
)

type fixture struct {
	app       echoapi.Server
	schoolSvc school.Service
	tplRepo   marksheet.Repository
}

// setup serves a fresh in-memory school through the API.
func setup(t *testing.T) fixture {
	conf := testutil.Config()
	logger := testutil.NewLogger(t)
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ClearSentMessages()

	// set up DB & repos
	db := inmemdb.Open()
	schoolRepo := inmemdb.NewSchoolRepository(db)
	testutil.SeedSchool(t, schoolRepo)
	tplRepo := inmemdb.NewTemplateRepository(db)

	// set up services
	schoolSvc := school.NewService(schoolRepo)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	tplSvc := marksheet.NewService(tplRepo, schoolSvc, mailSvc, logger)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)

	// set up server
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		SchoolSvc:    schoolSvc,
		MarksheetSvc: tplSvc,
		Validate:     validate,
		Translator:   translator,
	})
	t.Cleanup(func() { _ = app.Close() })

	return fixture{app: app, schoolSvc: schoolSvc, tplRepo: tplRepo}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
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
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}
