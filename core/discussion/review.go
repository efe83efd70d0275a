package discussion

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/user"
)

// RequiresReview decides whether a new post must wait for approval before
// it becomes visible and mailable. Reviewers' own posts never wait.
func (svc *Service) RequiresReview(f forum.Forum, question bool, actor user.User) bool {
	if actor.HasCapability(user.CapReviewPost) {
		return false
	}
	switch f.ReviewLevel {
	case forum.ReviewEverything:
		return true
	case forum.ReviewQuestions:
		return question
	default:
		return false
	}
}

// Approve marks a post reviewed and bumps the discussion's modification
// metadata, which was deferred at creation time. It returns the next post
// of the forum still waiting for review, if any.
func (svc *Service) Approve(ctx context.Context, actor user.User, postID int64) (*Post, error) {
	if !actor.HasCapability(user.CapReviewPost) {
		return nil, ErrNotAuthorized
	}
	p, err := svc.repo.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.Reviewed {
		return nil, ErrAlreadyReviewed
	}
	d, err := svc.repo.GetDiscussionByID(ctx, p.DiscussionID)
	if err != nil {
		return nil, err
	}

	now := NowFunc().UTC()
	if err = svc.repo.SetReviewed(ctx, p.ID, now); err != nil {
		return nil, errors.Wrap(err, "marking post reviewed")
	}
	if err = svc.repo.TouchDiscussion(ctx, d.ID, now, p.UserID); err != nil {
		return nil, errors.Wrap(err, "touching discussion")
	}

	next, err := svc.repo.NextUnreviewedPost(ctx, d.ForumID, p.ID)
	switch errors.Cause(err) {
	case nil:
		return &next, nil
	case ErrNotFound:
		return nil, nil
	default:
		return nil, errors.Wrap(err, "finding next unreviewed post")
	}
}

// Reject removes a post that did not pass review, with the same
// transactional guarantees as a regular delete. A supplied reason is
// mailed to the author.
func (svc *Service) Reject(ctx context.Context, actor user.User, postID int64, reason string) error {
	if !actor.HasCapability(user.CapReviewPost) {
		return ErrNotAuthorized
	}
	p, err := svc.repo.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}
	author, err := svc.usrRepo.GetUserByID(ctx, p.UserID)
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return errors.Wrap(err, "finding post author")
	}
	if p.Reviewed {
		return ErrAlreadyReviewed
	}
	d, err := svc.repo.GetDiscussionByID(ctx, p.DiscussionID)
	if err != nil {
		return err
	}

	if p.IsQuestion() {
		if err = svc.repo.DeleteDiscussion(ctx, d); err != nil {
			return errors.Wrap(err, "deleting discussion")
		}
	} else {
		if _, err = svc.repo.DeletePostTree(ctx, p); err != nil {
			return errors.Wrap(err, "deleting post")
		}
		if err = svc.adaptToLastPost(ctx, d); err != nil {
			return err
		}
	}
	svc.deleteAttachments(ctx, p.ID)

	if reason != "" && author.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: author.Name, Address: author.Email}},
			Subject:      "Your post was rejected",
			TemplateName: "post_rejected",
			TemplateData: map[string]interface{}{
				"Name":       author.Name,
				"Discussion": d.Name,
				"Reason":     reason,
			},
		})
	}
	return nil
}
