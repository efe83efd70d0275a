package main

import (
	"log"
	"os"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/digest"
	"github.com/learnweb/moodleoverflow/core/grade"
	"github.com/learnweb/moodleoverflow/core/rating"
	"github.com/learnweb/moodleoverflow/core/subscription"
	emailsvc "github.com/learnweb/moodleoverflow/services/email"
	logsvc "github.com/learnweb/moodleoverflow/services/logger"
	"github.com/learnweb/moodleoverflow/storage/cache"
	"github.com/learnweb/moodleoverflow/storage/database"
	sqlxrepos "github.com/learnweb/moodleoverflow/storage/database/sqlx"
)

// The cron binary bundles the periodic jobs: post notifications, digest
// flushes and grade recomputation. The host scheduler decides the cadence.
func main() {
	defer os.Exit(0)

	conf := core.NewConfig()

	logger, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger.Enable(true)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	// set up services
	mailSvc := newMailService(conf, logger)
	core.ParseEmailTemplates(conf, logger)

	usrRepo := sqlxrepos.NewUserRepository(db)
	forumRepo := sqlxrepos.NewForumRepository(db)
	discRepo := sqlxrepos.NewDiscussionRepository(db)

	subSvc := subscription.NewService(sqlxrepos.NewSubscriptionRepository(db), forumRepo, conf, logger)
	ratingSvc := rating.NewService(sqlxrepos.NewRatingRepository(db), discRepo)
	gradeSvc := grade.NewService(sqlxrepos.NewGradeRepository(db), forumRepo, discRepo, ratingSvc)
	tokenizer := subscription.NewTokenizer([]byte(conf.SecretKey), conf.Forum.UnsubTokenTimeout)

	queue := cache.NewDigestQueue(cache.NewClient(conf))
	engine := digest.NewEngine(
		discRepo, forumRepo, usrRepo,
		subSvc, tokenizer, queue, mailSvc, conf, logger,
	)

	// start CLI
	cli := commandLine{
		db:        db,
		engine:    engine,
		gradeSvc:  gradeSvc,
		forumRepo: forumRepo,
		logger:    logger,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

// newMailService prefers the broker when one is configured so the host
// LMS can deliver through its own mailer; Sendgrid is the direct path.
func newMailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	if conf.Broker.URL != "" {
		svc, err := emailsvc.NewAMQPService(conf, logger)
		if err == nil {
			return svc
		}
		logger.Error("connecting to broker, falling back to sendgrid", err)
	}
	return emailsvc.NewSendgridService(conf, logger)
}
