package digest

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/subscription"
	"github.com/learnweb/moodleoverflow/core/user"
)

// NowFunc returns the current time. It can be mocked in tests.
var NowFunc func() time.Time = time.Now

// anonymousName replaces the author's name when the forum hides it.
const anonymousName = "Anonymous"

// Engine drives the outbound notification pipeline: it collects posts that
// became reviewed since the last run, mails or queues them per recipient,
// and flushes queued digests once a day.
type Engine struct {
	discRepo  discussion.Repository
	forumRepo forum.Repository
	usrRepo   user.Repository
	subSvc    *subscription.Service
	tokenizer *subscription.Tokenizer
	queue     Queue
	mailSvc   core.EmailService
	conf      *core.Config
	logger    core.Logger
}

func NewEngine(
	discRepo discussion.Repository,
	forumRepo forum.Repository,
	usrRepo user.Repository,
	subSvc *subscription.Service,
	tokenizer *subscription.Tokenizer,
	queue Queue,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Engine {
	return &Engine{
		discRepo:  discRepo,
		forumRepo: forumRepo,
		usrRepo:   usrRepo,
		subSvc:    subSvc,
		tokenizer: tokenizer,
		queue:     queue,
		mailSvc:   mailSvc,
		conf:      conf,
		logger:    logger,
	}
}

// notificationData feeds the post_notification and forum_digest templates.
type notificationData struct {
	RecipientName    string
	AuthorName       string
	ForumName        string
	Discussion       string
	Subject          string
	Message          string
	PostURL          string
	UnsubscribeToken string
	UnsubscribeURL   string
}

// digestData feeds the forum_digest template.
type digestData struct {
	RecipientName string
	SubjectsOnly  bool
	Posts         []notificationData
}

// RunPending processes posts whose mail state is still pending: every
// reviewed post created inside the mail window is delivered to each
// subscribed recipient, then the window is marked mailed in one sweep.
// A failure for one post/recipient pair is logged and flips that post to
// the error state but never stops the run.
func (eng *Engine) RunPending(ctx context.Context) (sent, failed int, err error) {
	now := NowFunc().UTC()
	start := now.Add(-eng.conf.Forum.MailWindow)

	posts, err := eng.discRepo.QueryUnmailedPosts(ctx, start, now)
	if err != nil {
		return 0, 0, errors.Wrap(err, "querying unmailed posts")
	}

	for _, p := range posts {
		n, ferr := eng.notifyPost(ctx, p)
		sent += n
		if ferr != nil {
			failed++
			eng.logger.Error(errors.Wrapf(ferr, "notifying post %d", p.ID).Error(), ferr)
			if serr := eng.discRepo.SetMailState(ctx, p.ID, discussion.MailError); serr != nil {
				eng.logger.Error(errors.Wrapf(serr, "flagging post %d", p.ID).Error(), serr)
			}
		}
	}

	if _, err = eng.discRepo.MarkMailedBefore(ctx, now); err != nil {
		return sent, failed, errors.Wrap(err, "marking posts mailed")
	}
	return sent, failed, nil
}

// notifyPost fans one post out to its recipients. Users preferring a daily
// digest are queued instead of mailed.
func (eng *Engine) notifyPost(ctx context.Context, p discussion.Post) (int, error) {
	d, err := eng.discRepo.GetDiscussionByID(ctx, p.DiscussionID)
	if err != nil {
		return 0, errors.Wrap(err, "getting discussion")
	}
	f, err := eng.forumRepo.GetForumByID(ctx, d.ForumID)
	if err != nil {
		return 0, errors.Wrap(err, "getting forum")
	}
	author, err := eng.usrRepo.GetUserByID(ctx, p.UserID)
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return 0, errors.Wrap(err, "getting author")
	}

	ids, err := eng.subSvc.Recipients(ctx, f, d)
	if err != nil {
		return 0, errors.Wrap(err, "resolving recipients")
	}
	recipients, err := eng.usrRepo.QueryUsersByID(ctx, ids...)
	if err != nil {
		return 0, errors.Wrap(err, "querying recipients")
	}

	var sent int
	var msgs []*core.EmailMessage
	for _, rcpt := range recipients {
		if rcpt.ID == p.UserID || rcpt.Email == "" {
			continue
		}
		ok, derr := eng.subSvc.ShouldDeliver(ctx, rcpt.ID, f, d, p)
		if derr != nil {
			return sent, errors.Wrapf(derr, "resolving delivery for user %d", rcpt.ID)
		}
		if !ok {
			continue
		}

		if rcpt.DigestMode != user.DigestNone {
			qp := QueuedPost{UserID: rcpt.ID, PostID: p.ID, ForumID: f.ID, QueuedAt: NowFunc().UTC()}
			if qerr := eng.queue.Enqueue(ctx, qp); qerr != nil {
				return sent, errors.Wrapf(qerr, "queuing digest for user %d", rcpt.ID)
			}
			continue
		}

		msgs = append(msgs, eng.buildNotification(rcpt, author, f, d, p))
		sent++
	}
	if len(msgs) > 0 {
		eng.mailSvc.SendMessages(msgs...)
	}
	return sent, nil
}

func (eng *Engine) buildNotification(rcpt, author user.User, f forum.Forum, d discussion.Discussion, p discussion.Post) *core.EmailMessage {
	token := eng.tokenizer.MakeToken(rcpt.ID, f.ID)
	return &core.EmailMessage{
		To:           []mail.Address{{Name: rcpt.Name, Address: rcpt.Email}},
		Subject:      f.Name + ": " + d.Name,
		TemplateName: "post_notification",
		TemplateData: notificationData{
			RecipientName:    rcpt.Name,
			AuthorName:       eng.authorName(author, f, p),
			ForumName:        f.Name,
			Discussion:       d.Name,
			Subject:          d.Name,
			Message:          p.Message,
			PostURL:          eng.postURL(d, p),
			UnsubscribeToken: token,
			UnsubscribeURL:   fmt.Sprintf("%s/unsubscribe?user=%d&forum=%d&token=%s", eng.conf.FrontendBaseURL, rcpt.ID, f.ID, token),
		},
	}
}

// authorName applies the forum's anonymization to the displayed name.
func (eng *Engine) authorName(author user.User, f forum.Forum, p discussion.Post) string {
	if f.AnonymizesAuthorOf(p.IsQuestion()) {
		return anonymousName
	}
	if author.Name == "" {
		return author.Username
	}
	return author.Name
}

func (eng *Engine) postURL(d discussion.Discussion, p discussion.Post) string {
	return fmt.Sprintf("%s/discussions/%d#post-%d", eng.conf.FrontendBaseURL, d.ID, p.ID)
}

// FlushDigests sends one mail per user holding their queued posts and
// clears each user's queue only after a successful build, so retries never
// drop entries. Running it twice in a row sends nothing the second time.
func (eng *Engine) FlushDigests(ctx context.Context) (sent int, err error) {
	byUser, err := eng.queue.PullByUser(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "pulling digest queue")
	}

	for userID, queued := range byUser {
		if len(queued) == 0 {
			continue
		}
		rcpt, uerr := eng.usrRepo.GetUserByID(ctx, userID)
		if uerr != nil {
			if errors.Cause(uerr) == user.ErrNotFound {
				// user is gone, drop their queue
				if cerr := eng.queue.Clear(ctx, userID); cerr != nil {
					eng.logger.Error(errors.Wrapf(cerr, "clearing queue for user %d", userID).Error(), cerr)
				}
				continue
			}
			eng.logger.Error(errors.Wrapf(uerr, "getting digest user %d", userID).Error(), uerr)
			continue
		}
		if rcpt.Email == "" || rcpt.DigestMode == user.DigestNone {
			if cerr := eng.queue.Clear(ctx, userID); cerr != nil {
				eng.logger.Error(errors.Wrapf(cerr, "clearing queue for user %d", userID).Error(), cerr)
			}
			continue
		}

		msg, berr := eng.buildDigest(ctx, rcpt, queued)
		if berr != nil {
			eng.logger.Error(errors.Wrapf(berr, "building digest for user %d", userID).Error(), berr)
			continue
		}
		eng.mailSvc.SendMessages(msg)
		if cerr := eng.queue.Clear(ctx, userID); cerr != nil {
			eng.logger.Error(errors.Wrapf(cerr, "clearing queue for user %d", userID).Error(), cerr)
			continue
		}
		sent++
	}
	return sent, nil
}

func (eng *Engine) buildDigest(ctx context.Context, rcpt user.User, queued []QueuedPost) (*core.EmailMessage, error) {
	data := digestData{
		RecipientName: rcpt.Name,
		SubjectsOnly:  rcpt.DigestMode == user.DigestSubjects,
	}
	for _, qp := range queued {
		p, err := eng.discRepo.GetPostByID(ctx, qp.PostID)
		if err != nil {
			if errors.Cause(err) == discussion.ErrNotFound {
				continue // deleted since queuing
			}
			return nil, errors.Wrapf(err, "getting post %d", qp.PostID)
		}
		if !p.Reviewed {
			continue
		}
		d, err := eng.discRepo.GetDiscussionByID(ctx, p.DiscussionID)
		if err != nil {
			if errors.Cause(err) == discussion.ErrNotFound {
				continue
			}
			return nil, errors.Wrapf(err, "getting discussion %d", p.DiscussionID)
		}
		f, err := eng.forumRepo.GetForumByID(ctx, d.ForumID)
		if err != nil {
			return nil, errors.Wrapf(err, "getting forum %d", d.ForumID)
		}
		author, err := eng.usrRepo.GetUserByID(ctx, p.UserID)
		if err != nil && errors.Cause(err) != user.ErrNotFound {
			return nil, errors.Wrap(err, "getting author")
		}

		nd := notificationData{
			AuthorName: eng.authorName(author, f, p),
			ForumName:  f.Name,
			Discussion: d.Name,
			Subject:    d.Name,
			PostURL:    eng.postURL(d, p),
		}
		if !data.SubjectsOnly {
			nd.Message = p.Message
		}
		data.Posts = append(data.Posts, nd)
	}
	if len(data.Posts) == 0 {
		return nil, errors.New("empty digest")
	}

	return &core.EmailMessage{
		To:           []mail.Address{{Name: rcpt.Name, Address: rcpt.Email}},
		Subject:      eng.conf.AppName + " daily digest",
		TemplateName: "forum_digest",
		TemplateData: data,
	}, nil
}
