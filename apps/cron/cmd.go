package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/digest"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/grade"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db        *sqlx.DB
	engine    *digest.Engine
	gradeSvc  *grade.Service
	forumRepo forum.Repository
	logger    core.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  mail                     - send pending post notifications and queue digests")
	fmt.Println("  digest                   - flush queued digests, one mail per user")
	fmt.Println("  grades -forum ID         - recompute the grades of one forum")
	fmt.Println("  grades -course ID        - recompute the grades of every forum in a course")
	fmt.Println("  migrate COMMAND [ARGS]   - run a goose migration command (up, down, status, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	gradesCmd := flag.NewFlagSet("grades", flag.ExitOnError)
	gradesForum := gradesCmd.Int64("forum", 0, "The forum to recompute.")
	gradesCourse := gradesCmd.Int64("course", 0, "Recompute every forum of this course.")

	ctx := context.Background()

	switch args[1] {
	case "mail":
		return cli.mail(ctx)
	case "digest":
		return cli.digest(ctx)
	case "grades":
		if err := gradesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *gradesForum == 0 && *gradesCourse == 0 {
			gradesCmd.Usage()
			return errHelp
		}
		return cli.grades(ctx, *gradesForum, *gradesCourse)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) mail(ctx context.Context) error {
	sent, failed, err := cli.engine.RunPending(ctx)
	if err != nil {
		return errors.Wrap(err, "running pending notifications")
	}
	cli.logger.Info(fmt.Sprintf("notifications done: %d sent, %d failed", sent, failed))
	return nil
}

func (cli *commandLine) digest(ctx context.Context) error {
	sent, err := cli.engine.FlushDigests(ctx)
	if err != nil {
		return errors.Wrap(err, "flushing digests")
	}
	cli.logger.Info(fmt.Sprintf("digests done: %d sent", sent))
	return nil
}

func (cli *commandLine) grades(ctx context.Context, forumID, courseID int64) error {
	forumIDs := []int64{forumID}
	if courseID != 0 {
		forums, err := cli.forumRepo.QueryForumsByCourse(ctx, courseID)
		if err != nil {
			return errors.Wrap(err, "querying course forums")
		}
		forumIDs = forumIDs[:0]
		for _, f := range forums {
			forumIDs = append(forumIDs, f.ID)
		}
	}

	var graded int
	for _, id := range forumIDs {
		n, err := cli.gradeSvc.RecomputeForum(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "recomputing forum %d", id)
		}
		graded += n
	}
	cli.logger.Info(fmt.Sprintf("grades done: %d users graded", graded))
	return nil
}
