package user

import (
	"strings"
	"time"
)

// Roles. The host LMS owns enrollment; we only mirror the role strings it
// puts in the identity token.
const (
	// Manager
	RoleManager = "manager:"

	// Teacher
	RoleTeacher        = "teacher:"
	RoleTeacherNonEdit = "teacher:non-editing"

	// Student
	RoleStudent = "student:"
)

// Capability names gate every mutating operation; the role -> capability
// table below mirrors the archetype defaults of the host platform.
type Capability string

const (
	CapRateSolved     Capability = "ratesolved"
	CapReviewPost     Capability = "reviewpost"
	CapDeleteAnyPost  Capability = "deleteanypost"
	CapEditAnyPost    Capability = "editanypost"
	CapViewAnyRating  Capability = "viewanyrating"
	CapManageSubs     Capability = "managesubscriptions"
	CapViewAnonymized Capability = "viewanonymized"
)

var roleCapabilities = map[string][]Capability{
	RoleManager: {
		CapRateSolved, CapReviewPost, CapDeleteAnyPost, CapEditAnyPost,
		CapViewAnyRating, CapManageSubs, CapViewAnonymized,
	},
	RoleTeacher: {
		CapRateSolved, CapReviewPost, CapDeleteAnyPost, CapEditAnyPost,
		CapViewAnyRating, CapManageSubs,
	},
	RoleTeacherNonEdit: {
		CapRateSolved, CapReviewPost, CapViewAnyRating,
	},
	RoleStudent: {},
}

var (
	ManagerRoles = []string{RoleManager}
	TeacherRoles = []string{RoleTeacher, RoleTeacherNonEdit}
	StudentRoles = []string{RoleStudent}
)

// DigestMode is the user's mail preference.
type DigestMode int8

const (
	DigestNone     DigestMode = iota // mail per post
	DigestComplete                   // one daily mail with full posts
	DigestSubjects                   // one daily mail, subjects only
)

type User struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	IsActive   bool       `json:"is_active"`
	Roles      []string   `json:"roles"`
	DigestMode DigestMode `json:"digest_mode"`
	CreatedAt  time.Time  `json:"created_at"` // UTC
	UpdatedAt  time.Time  `json:"updated_at"` // UTC
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsManager() bool { return u.RoleStartsWith(RoleManager) }
func (u *User) IsTeacher() bool { return u.RoleStartsWith(RoleTeacher) }
func (u *User) IsStudent() bool { return u.RoleStartsWith(RoleStudent) }

// HasCapability reports whether any of the user's roles grants cap.
func (u *User) HasCapability(cap Capability) bool {
	for _, role := range u.Roles {
		caps, ok := roleCapabilities[role]
		if !ok {
			// unknown sub-role falls back to its archetype, e.g. "teacher:…"
			for known, kcaps := range roleCapabilities {
				if known != RoleStudent && strings.HasPrefix(role, known) {
					caps = kcaps
					break
				}
			}
		}
		for _, c := range caps {
			if c == cap {
				return true
			}
		}
	}
	return false
}
