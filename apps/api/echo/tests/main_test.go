package tests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/learnweb/moodleoverflow/apps/api/echo"
	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/grade"
	"github.com/learnweb/moodleoverflow/core/privacy"
	"github.com/learnweb/moodleoverflow/core/rating"
	"github.com/learnweb/moodleoverflow/core/search"
	"github.com/learnweb/moodleoverflow/core/subscription"
	"github.com/learnweb/moodleoverflow/core/tracking"
	"github.com/learnweb/moodleoverflow/core/user"
	emailsvc "github.com/learnweb/moodleoverflow/services/email"
	dummydb "github.com/learnweb/moodleoverflow/storage/database/dummy"
	testutil "github.com/learnweb/moodleoverflow/tests"
)

const errMissingToken = "missing or malformed jwt"

// testApp assembles the full API over the in-memory store, one per test so
// tests cannot see each other's data.
type testApp struct {
	app  echoapi.Server
	db   *dummydb.DB
	conf *core.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening dummy db: %v", err)
	}
	conf := testutil.NewConfig()
	logger := testutil.Logger{}
	core.ParseEmailTemplates(conf, logger)

	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)
	usrRepo := dummydb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	ratingSvc := rating.NewService(dummydb.NewRatingRepository(db), discRepo)
	subSvc := subscription.NewService(dummydb.NewSubscriptionRepository(db), forumRepo, conf, logger)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,

		UserSvc:    user.NewService(usrRepo),
		ForumSvc:   forum.NewService(forumRepo),
		DiscSvc:    discussion.NewService(discRepo, forumRepo, usrRepo, nil, mailSvc, conf, logger),
		RatingSvc:  ratingSvc,
		SubSvc:     subSvc,
		TrackSvc:   tracking.NewService(dummydb.NewTrackingRepository(db), discRepo),
		GradeSvc:   grade.NewService(dummydb.NewGradeRepository(db), forumRepo, discRepo, ratingSvc),
		SearchSvc:  search.NewService(discRepo, forumRepo),
		PrivacySvc: privacy.NewService(dummydb.NewPrivacyStore(db), logger),
		Tokenizer:  subscription.NewTokenizer([]byte(conf.SecretKey), conf.Forum.UnsubTokenTimeout),
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{app: app, db: db, conf: conf}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (ta *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
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
	ta.app.ServeHTTP(rec, req)
	return rec
}

func (ta *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(ta.conf, echoapi.GetUserClaims(ta.conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

// seed helpers over the raw repos

func (ta *testApp) createUser(t *testing.T, name, uname, email string, roles []string) user.User {
	return testutil.CreateUser(t, dummydb.NewUserRepository(ta.db), name, uname, email, roles, user.DigestNone)
}

func (ta *testApp) createForum(t *testing.T, f forum.Forum) forum.Forum {
	return testutil.CreateForum(t, dummydb.NewForumRepository(ta.db), f)
}

func (ta *testApp) createDiscussion(t *testing.T, f forum.Forum, starter user.User, subject, message string) (discussion.Discussion, discussion.Post) {
	return testutil.CreateDiscussion(t, dummydb.NewDiscussionRepository(ta.db), f, starter, subject, message, false)
}
