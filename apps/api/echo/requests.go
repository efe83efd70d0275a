package echoapi

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/subscription"
)

type UnsubscribeTokenRequest struct {
	UserID int64  `json:"user_id" validate:"required"`
	Token  string `json:"token" validate:"required"`
}

func (r *UnsubscribeTokenRequest) Validate(validate *validator.Validate, _ ut.Translator) error {
	return validate.Struct(r)
}

type VoteRequest struct {
	Code int `json:"code" validate:"required"`
}

func (r *VoteRequest) Validate(validate *validator.Validate, _ ut.Translator) error {
	return validate.Struct(r)
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectRequest) Validate(validate *validator.Validate, _ ut.Translator) error {
	r.Reason = core.CleanString(r.Reason)
	return validate.Struct(r)
}

type DigestModeRequest struct {
	Mode int8 `json:"mode" validate:"min=0,max=2"`
}

func (r *DigestModeRequest) Validate(validate *validator.Validate, _ ut.Translator) error {
	return validate.Struct(r)
}

type DiscussionSubscriptionRequest struct {
	Preference subscription.Preference `json:"preference" validate:"min=0,max=1"`
}

func (r *DiscussionSubscriptionRequest) Validate(validate *validator.Validate, _ ut.Translator) error {
	return validate.Struct(r)
}
