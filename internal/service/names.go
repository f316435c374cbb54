package service

import (
	"fmt"
	"regexp"

	"github.com/umgeo/coursesync/internal/models"
)

var orgSuffixPattern = regexp.MustCompile(`_\S+$`)

// GroupTitle derives the canonical group title for a course/assignment pair.
// Titles are the only identity groups are found by, so the course and
// assignment IDs are embedded to keep them unique.
func GroupTitle(course models.Course, assignment models.Assignment) string {
	return fmt.Sprintf("%s_%d_%s_%d", course.Name, course.ID, assignment.Name, assignment.ID)
}

// AssignmentFolderName derives the per-student assignment folder title.
func AssignmentFolderName(course models.Course, assignment models.Assignment, prefix string) string {
	return fmt.Sprintf("%s%s_%s_%d_%d", prefix, course.Name, assignment.Name, course.ID, assignment.ID)
}

// SubmissionFolderName derives the instructor-side grading folder title for
// one student's submission. Includes the course code and the student login so
// an instructor can tell folders apart at a glance.
func SubmissionFolderName(course models.Course, assignment models.Assignment, student, prefix string) string {
	base := AssignmentFolderName(course, assignment, "")
	return fmt.Sprintf("%s%s_%s_%s", prefix, course.CourseCode, base, student)
}

// QualifyLogin converts a bare login name to the content store's qualified
// identifier form.
func QualifyLogin(login, orgSuffix string) string {
	return login + "_" + orgSuffix
}

// QualifyLogins converts a list of bare login names to the content store's
// qualified form, skipping empty entries. An empty or nil-only input yields an
// empty list.
func QualifyLogins(logins []string, orgSuffix string) []string {
	qualified := make([]string, 0, len(logins))
	for _, login := range logins {
		if login == "" {
			continue
		}
		qualified = append(qualified, QualifyLogin(login, orgSuffix))
	}
	return qualified
}

// TrimOrgSuffix strips the trailing _<organization> qualifier from a content
// store identifier, returning the bare login used by the course roster.
func TrimOrgSuffix(name string) string {
	return orgSuffixPattern.ReplaceAllString(name, "")
}

// RosterLogins extracts the non-empty login names from a course roster.
// Users without a provisioned login are dropped.
func RosterLogins(users []models.CourseUser) []string {
	logins := make([]string, 0, len(users))
	for _, u := range users {
		if u.LoginID == "" {
			continue
		}
		logins = append(logins, u.LoginID)
	}
	return logins
}

// FormatNameAndID renders a group for log lines.
func FormatNameAndID(group *models.Group) string {
	if group == nil {
		return "<no group>"
	}
	return fmt.Sprintf("%q (%s)", group.Title, group.ID)
}

// isASCII reports whether every rune of s fits in the clone transport's
// required encoding.
func isASCII(s string) bool {
	for _, r := range s {
		if r > 0x7F {
			return false
		}
	}
	return true
}
