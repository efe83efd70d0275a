package discussion

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("discussion or post not found")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrHasReplies        = errors.New("post has replies")
	ErrAlreadyReviewed   = errors.New("post is locked by moderation")
	ErrEditWindowExpired = errors.New("editing window has expired")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateDiscussion inserts the discussion and its root post
		// atomically; partial state must never commit.
		CreateDiscussion(ctx context.Context, d Discussion, root Post) (Discussion, Post, error)
		GetDiscussionByID(ctx context.Context, id int64) (Discussion, error)
		QueryDiscussionsByForum(ctx context.Context, forumID int64, ordering []core.DBOrdering) ([]Discussion, error)
		// TouchDiscussion bumps a discussion's modification metadata.
		TouchDiscussion(ctx context.Context, id int64, modified time.Time, userID int64) error
		// DeleteDiscussion removes the discussion, all its posts and their
		// ratings, read records and discussion subscriptions, atomically.
		DeleteDiscussion(ctx context.Context, d Discussion) error

		CreatePost(ctx context.Context, p Post) (Post, error)
		GetPostByID(ctx context.Context, id int64) (Post, error)
		// UpdatePost persists message changes; when rename is set the
		// owning discussion is renamed in the same transaction.
		UpdatePost(ctx context.Context, p Post, rename null.String) (Post, error)
		QueryPostsByDiscussion(ctx context.Context, discussionID int64) ([]Post, error)
		QueryPostsByAuthor(ctx context.Context, userID int64) ([]Post, error)
		CountChildren(ctx context.Context, postID int64) (int, error)
		// DeletePostTree removes the post, its descendants (depth-first)
		// and their ratings and read records, atomically. Returns how many
		// posts were deleted.
		DeletePostTree(ctx context.Context, root Post) (int, error)
		// LatestReviewedPost returns the most recently modified reviewed
		// post of a discussion (ties broken by highest id), or ErrNotFound.
		LatestReviewedPost(ctx context.Context, discussionID int64) (Post, error)

		SetReviewed(ctx context.Context, postID int64, at time.Time) error
		// NextUnreviewedPost returns the oldest unreviewed post of the
		// forum other than excludeID, or ErrNotFound.
		NextUnreviewedPost(ctx context.Context, forumID, excludeID int64) (Post, error)

		QueryUnmailedPosts(ctx context.Context, start, end time.Time) ([]Post, error)
		// MarkMailedBefore transitions all reviewed {pending,review_sent}
		// posts with effective creation time before end to sent. Idempotent.
		MarkMailedBefore(ctx context.Context, end time.Time) (int64, error)
		SetMailState(ctx context.Context, postID int64, state MailState) error

		QueryReviewedPostsSince(ctx context.Context, since time.Time) ([]Post, error)
		QueryPostAuthorIDs(ctx context.Context, forumID int64) ([]int64, error)
	}

	// AttachmentStore is the host platform's file area. It owns the
	// physical file lifecycle; we only signal post-level events.
	AttachmentStore interface {
		SaveFromDraft(ctx context.Context, postID, draftAreaID int64) error
		DeleteForPost(ctx context.Context, postID int64) error
	}

	Service struct {
		repo        Repository
		forumRepo   forum.Repository
		usrRepo     user.Repository
		attachments AttachmentStore
		mailSvc     core.EmailService
		conf        *core.Config
		logger      core.Logger
	}
)

func NewService(
	repo Repository,
	forumRepo forum.Repository,
	usrRepo user.Repository,
	attachments AttachmentStore,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	if attachments == nil {
		attachments = NoopAttachmentStore{}
	}
	return &Service{
		repo:        repo,
		forumRepo:   forumRepo,
		usrRepo:     usrRepo,
		attachments: attachments,
		mailSvc:     mailSvc,
		conf:        conf,
		logger:      logger,
	}
}

// AddDiscussion opens a discussion with its root post. Both rows are
// created in one transaction.
func (svc *Service) AddDiscussion(ctx context.Context, actor user.User, nd NewDiscussion) (Discussion, Post, error) {
	f, err := svc.forumRepo.GetForumByID(ctx, nd.ForumID)
	if err != nil {
		return Discussion{}, Post{}, err
	}

	now := NowFunc().UTC()
	reviewed := !svc.RequiresReview(f, true /* question */, actor)

	d := Discussion{
		CourseID:     f.CourseID,
		ForumID:      f.ID,
		Name:         nd.Subject,
		UserID:       actor.ID,
		UserModified: actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	root := Post{
		UserID:        actor.ID,
		Message:       nd.Message,
		MessageFormat: nd.MessageFormat,
		HasAttachment: nd.DraftAreaID != 0,
		Mailed:        MailPending,
		Reviewed:      reviewed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if reviewed {
		root.TimeReviewed = null.TimeFrom(now)
	}

	d, root, err = svc.repo.CreateDiscussion(ctx, d, root)
	if err != nil {
		return Discussion{}, Post{}, errors.Wrap(err, "creating discussion")
	}

	if nd.DraftAreaID != 0 {
		if err = svc.attachments.SaveFromDraft(ctx, root.ID, nd.DraftAreaID); err != nil {
			svc.logger.Error("saving attachments", err)
		}
	}
	return d, root, nil
}

// AddReply answers an existing post. The discussion's modification
// metadata is only bumped once the reply counts as reviewed; for moderated
// forums that update is deferred until approval.
func (svc *Service) AddReply(ctx context.Context, actor user.User, nr NewReply) (Post, error) {
	parent, err := svc.repo.GetPostByID(ctx, nr.ParentID)
	if err != nil {
		return Post{}, err
	}
	if parent.DiscussionID != nr.DiscussionID {
		return Post{}, ErrNotFound
	}
	d, err := svc.repo.GetDiscussionByID(ctx, nr.DiscussionID)
	if err != nil {
		return Post{}, err
	}
	f, err := svc.forumRepo.GetForumByID(ctx, d.ForumID)
	if err != nil {
		return Post{}, err
	}

	now := NowFunc().UTC()
	reviewed := !svc.RequiresReview(f, false /* answer */, actor)

	p := Post{
		DiscussionID:  d.ID,
		ParentID:      parent.ID,
		UserID:        actor.ID,
		Message:       nr.Message,
		MessageFormat: nr.MessageFormat,
		HasAttachment: nr.DraftAreaID != 0,
		Mailed:        MailPending,
		Reviewed:      reviewed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if reviewed {
		p.TimeReviewed = null.TimeFrom(now)
	}

	p, err = svc.repo.CreatePost(ctx, p)
	if err != nil {
		return Post{}, errors.Wrap(err, "creating reply")
	}

	if reviewed {
		if err = svc.repo.TouchDiscussion(ctx, d.ID, now, actor.ID); err != nil {
			return Post{}, errors.Wrap(err, "touching discussion")
		}
	}

	if nr.DraftAreaID != 0 {
		if err = svc.attachments.SaveFromDraft(ctx, p.ID, nr.DraftAreaID); err != nil {
			svc.logger.Error("saving attachments", err)
		}
	}
	return p, nil
}

// EditPost updates a post's content. Editing the root post also renames
// the discussion. Authors without the edit-any capability are bound to the
// editing window and may not touch posts locked by moderation approval.
func (svc *Service) EditPost(ctx context.Context, actor user.User, postID int64, up UpdatePost) (Post, error) {
	p, err := svc.repo.GetPostByID(ctx, postID)
	if err != nil {
		return Post{}, err
	}
	d, err := svc.repo.GetDiscussionByID(ctx, p.DiscussionID)
	if err != nil {
		return Post{}, err
	}
	f, err := svc.forumRepo.GetForumByID(ctx, d.ForumID)
	if err != nil {
		return Post{}, err
	}

	now := NowFunc().UTC()
	if !actor.HasCapability(user.CapEditAnyPost) {
		if p.UserID != actor.ID {
			return Post{}, ErrNotAuthorized
		}
		if now.Sub(p.CreatedAt) > svc.conf.Forum.MaxEditingTime {
			return Post{}, ErrEditWindowExpired
		}
		if f.ReviewLevel != forum.ReviewNone && p.Reviewed && p.TimeReviewed.Valid {
			return Post{}, ErrAlreadyReviewed
		}
	}

	p.Message = up.Message
	p.MessageFormat = up.MessageFormat
	p.UpdatedAt = now

	var rename null.String
	if p.IsQuestion() && up.Subject != "" {
		rename = null.StringFrom(up.Subject)
	}

	p, err = svc.repo.UpdatePost(ctx, p, rename)
	if err != nil {
		return Post{}, errors.Wrap(err, "updating post")
	}
	if p.Reviewed {
		if err = svc.repo.TouchDiscussion(ctx, d.ID, now, actor.ID); err != nil {
			return Post{}, errors.Wrap(err, "touching discussion")
		}
	}
	return p, nil
}

// DeletePost removes a post. Deleting the root post destroys the whole
// discussion. A post with replies can only go with cascade, which requires
// the delete-any capability.
func (svc *Service) DeletePost(ctx context.Context, actor user.User, postID int64, cascade bool) error {
	p, err := svc.repo.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}
	d, err := svc.repo.GetDiscussionByID(ctx, p.DiscussionID)
	if err != nil {
		return err
	}

	deleteAny := actor.HasCapability(user.CapDeleteAnyPost)
	if p.UserID != actor.ID && !deleteAny {
		return ErrNotAuthorized
	}
	if cascade && !deleteAny {
		return ErrNotAuthorized
	}

	if p.IsQuestion() {
		posts, err := svc.repo.QueryPostsByDiscussion(ctx, d.ID)
		if err != nil {
			return errors.Wrap(err, "querying posts")
		}
		if err = svc.repo.DeleteDiscussion(ctx, d); err != nil {
			return errors.Wrap(err, "deleting discussion")
		}
		ids := make([]int64, 0, len(posts))
		for _, post := range posts {
			ids = append(ids, post.ID)
		}
		svc.deleteAttachments(ctx, ids...)
		return nil
	}

	n, err := svc.repo.CountChildren(ctx, p.ID)
	if err != nil {
		return errors.Wrap(err, "counting replies")
	}
	if n > 0 && !cascade {
		return ErrHasReplies
	}

	if _, err = svc.repo.DeletePostTree(ctx, p); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	svc.deleteAttachments(ctx, p.ID)

	return svc.adaptToLastPost(ctx, d)
}

// adaptToLastPost recomputes a discussion's modification metadata from its
// most recently modified reviewed post after a deletion. With no reviewed
// post left the discussion falls back to its creation state.
func (svc *Service) adaptToLastPost(ctx context.Context, d Discussion) error {
	last, err := svc.repo.LatestReviewedPost(ctx, d.ID)
	switch errors.Cause(err) {
	case nil:
		return svc.repo.TouchDiscussion(ctx, d.ID, last.UpdatedAt, last.UserID)
	case ErrNotFound:
		return svc.repo.TouchDiscussion(ctx, d.ID, d.CreatedAt, d.UserID)
	default:
		return errors.Wrap(err, "finding last reviewed post")
	}
}

// deleteAttachments notifies the host file store after a successful delete.
// The rows are already gone; a file-store failure is logged for follow-up,
// not surfaced.
func (svc *Service) deleteAttachments(ctx context.Context, postIDs ...int64) {
	for _, id := range postIDs {
		if err := svc.attachments.DeleteForPost(ctx, id); err != nil {
			svc.logger.Error("deleting attachments", err)
		}
	}
}

// GetPost returns a single post.
func (svc *Service) GetPost(ctx context.Context, id int64) (Post, error) {
	return svc.repo.GetPostByID(ctx, id)
}

// GetDiscussion returns a discussion and its posts in creation order.
func (svc *Service) GetDiscussion(ctx context.Context, id int64) (Discussion, []Post, error) {
	d, err := svc.repo.GetDiscussionByID(ctx, id)
	if err != nil {
		return Discussion{}, nil, err
	}
	posts, err := svc.repo.QueryPostsByDiscussion(ctx, id)
	if err != nil {
		return Discussion{}, nil, errors.Wrap(err, "querying posts")
	}
	return d, posts, nil
}

// orderableFields are the discussion columns clients may sort by.
var orderableFields = map[string]bool{
	"name":       true,
	"created_at": true,
	"updated_at": true,
	"id":         true,
}

// QueryByForum lists a forum's discussions. With no ordering, the most
// recently active discussions come first.
func (svc *Service) QueryByForum(ctx context.Context, forumID int64, ordering []core.DBOrdering) ([]Discussion, error) {
	for _, ord := range ordering {
		if !orderableFields[ord.Field] {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "ordering", Error: fmt.Sprintf("cannot order by %q", ord.Field)})
		}
	}
	return svc.repo.QueryDiscussionsByForum(ctx, forumID, ordering)
}

// NoopAttachmentStore is used when the host file area is not wired in.
type NoopAttachmentStore struct{}

func (NoopAttachmentStore) SaveFromDraft(context.Context, int64, int64) error { return nil }
func (NoopAttachmentStore) DeleteForPost(context.Context, int64) error        { return nil }
