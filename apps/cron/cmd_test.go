package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/digest"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/grade"
	"github.com/learnweb/moodleoverflow/core/rating"
	"github.com/learnweb/moodleoverflow/core/subscription"
	"github.com/learnweb/moodleoverflow/core/user"
	emailsvc "github.com/learnweb/moodleoverflow/services/email"
	dummydb "github.com/learnweb/moodleoverflow/storage/database/dummy"
	testutil "github.com/learnweb/moodleoverflow/tests"
)

func setup(t *testing.T) (*commandLine, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening dummy db: %v", err)
	}
	conf := testutil.NewConfig()
	logger := testutil.Logger{}
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ClearSentMessages()

	discRepo := dummydb.NewDiscussionRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	usrRepo := dummydb.NewUserRepository(db)
	subSvc := subscription.NewService(dummydb.NewSubscriptionRepository(db), forumRepo, conf, logger)
	ratingSvc := rating.NewService(dummydb.NewRatingRepository(db), discRepo)

	cli := &commandLine{
		db: &sqlx.DB{},
		engine: digest.NewEngine(
			discRepo,
			forumRepo,
			usrRepo,
			subSvc,
			subscription.NewTokenizer([]byte(conf.SecretKey), conf.Forum.UnsubTokenTimeout),
			dummydb.NewDigestQueue(),
			emailsvc.NewConsoleServiceMock(conf),
			conf,
			logger,
		),
		gradeSvc:  grade.NewService(dummydb.NewGradeRepository(db), forumRepo, discRepo, ratingSvc),
		forumRepo: forumRepo,
		logger:    logger,
	}
	return cli, db
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", args: []string{}, wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate: no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "mail: empty run", args: []string{"mail"}},
		{name: "digest: empty run", args: []string{"digest"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"cron"}, tt.args...))
			if err != tt.wantErr {
				t.Errorf("run() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		if dir != "migrations" {
			return fmt.Errorf("unexpected migrations dir %q", dir)
		}
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a version", command)
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to: no version", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a version"},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"cron"}, tt.args...))
			switch {
			case tt.wantErrStr != "":
				if err == nil || err.Error() != tt.wantErrStr {
					t.Errorf("run() = %v, wantErrStr %q", err, tt.wantErrStr)
				}
			case err != tt.wantErr:
				t.Errorf("run() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_grades(t *testing.T) {
	cli, db := setup(t)
	usrRepo := dummydb.NewUserRepository(db)
	forumRepo := dummydb.NewForumRepository(db)
	discRepo := dummydb.NewDiscussionRepository(db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.cd", user.StudentRoles, user.DigestNone)
	f := testutil.CreateForum(t, forumRepo, forum.Forum{Name: "Graded", CourseID: 9, GradeScale: 10})
	testutil.CreateDiscussion(t, discRepo, f, alice, "Q", "...", false)

	if err := cli.run([]string{"cron", "grades", "-forum", fmt.Sprint(f.ID)}); err != nil {
		t.Fatalf("run(grades -forum) failed: %v", err)
	}
	g, err := cli.gradeSvc.Get(context.Background(), alice.ID, f.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if g.Value != 0 {
		t.Errorf("grade = %v, want 0 for an unrated author", g.Value)
	}

	if err := cli.run([]string{"cron", "grades", "-course", "9"}); err != nil {
		t.Fatalf("run(grades -course) failed: %v", err)
	}
}
