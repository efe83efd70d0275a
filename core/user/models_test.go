package user

import "testing"

func TestUser_HasCapability(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		cap   Capability
		want  bool
	}{
		{"manager reviews", ManagerRoles, CapReviewPost, true},
		{"manager sees anonymized", ManagerRoles, CapViewAnonymized, true},
		{"teacher reviews", []string{RoleTeacher}, CapReviewPost, true},
		{"teacher cannot see anonymized", []string{RoleTeacher}, CapViewAnonymized, false},
		{"non-editing teacher rates solved", []string{RoleTeacherNonEdit}, CapRateSolved, true},
		{"non-editing teacher cannot delete", []string{RoleTeacherNonEdit}, CapDeleteAnyPost, false},
		{"student has nothing", StudentRoles, CapReviewPost, false},
		{"unknown teacher sub-role falls back", []string{"teacher:assistant"}, CapRateSolved, true},
		{"no roles", nil, CapReviewPost, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := User{Roles: tt.roles}
			if got := u.HasCapability(tt.cap); got != tt.want {
				t.Errorf("HasCapability(%s) = %v, want %v", tt.cap, got, tt.want)
			}
		})
	}
}

func TestUser_RoleChecks(t *testing.T) {
	teacher := User{Roles: []string{RoleTeacherNonEdit}}
	if !teacher.IsTeacher() || teacher.IsStudent() || teacher.IsManager() {
		t.Errorf("non-editing teacher misclassified: %+v", teacher.Roles)
	}
	student := User{Roles: StudentRoles}
	if !student.IsStudent() || student.IsTeacher() {
		t.Errorf("student misclassified: %+v", student.Roles)
	}
}
