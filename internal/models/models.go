package models

import "time"

// Enrollment role tags used when filtering course rosters.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// Course is a per-run snapshot of a course record.
type Course struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"course_code"`
}

// CourseUser is an enrolled user. LoginID may be empty when the user has no
// provisioned login; such entries must be dropped before membership sync.
type CourseUser struct {
	LoginID    string `json:"login_id"`
	SISLoginID string `json:"sis_login_id"`
	Role       string `json:"role"`
}

// RubricCriterion links an assignment rubric row to an outcome.
type RubricCriterion struct {
	OutcomeID int `json:"outcome_id"`
}

// Assignment is a per-run snapshot of an assignment record.
type Assignment struct {
	ID        int               `json:"id"`
	CourseID  int               `json:"course_id"`
	Name      string            `json:"name"`
	Published bool              `json:"published"`
	Rubric    []RubricCriterion `json:"rubric"`
	DueAt     *time.Time        `json:"due_at"`
	LockAt    *time.Time        `json:"lock_at"`
}

// Outcome is an assessment rubric category used to tag relevant assignments.
type Outcome struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// OutcomeLink ties a course outcome group entry to an outcome.
type OutcomeLink struct {
	Outcome Outcome `json:"outcome"`
}

// Page is a content page within a course.
type Page struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Group is a named collection of user accounts in the content store.
type Group struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// GroupMembers is the membership of a group split into role buckets.
type GroupMembers struct {
	Owner  string   `json:"owner"`
	Admins []string `json:"admins"`
	Users  []string `json:"users"`
}

// MemberUpdateResult reports the subsets of a bulk membership call that the
// backend could not apply. Nil slices mean everything was applied.
type MemberUpdateResult struct {
	NotAdded   []string `json:"notAdded"`
	NotRemoved []string `json:"notRemoved"`
}

// Folder is a named container of items scoped to an owning user. The title is
// the folder's effective identity within an owner's space.
type Folder struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Owner string `json:"owner"`
}

// Item is a unit of content. Only the title is inspected; the payload is opaque.
type Item struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Owner  string `json:"owner"`
	Folder string `json:"folder"`
}

// FolderStatus tags the outcome of a folder provisioning call.
type FolderStatus int

const (
	FolderCreated FolderStatus = iota
	FolderAlreadyExists
	FolderFailed
)

func (s FolderStatus) String() string {
	switch s {
	case FolderCreated:
		return "created"
	case FolderAlreadyExists:
		return "already_exists"
	case FolderFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FolderOutcome is the tagged result of ensuring a folder exists, replacing
// exception-driven control flow with an explicit branch point for callers.
type FolderOutcome struct {
	Status FolderStatus
	Owner  string
	Title  string
	Reason string
}

// CourseData bundles the per-run course snapshots that the maintain and clone
// passes both need.
type CourseData struct {
	Courses     map[int]Course
	Users       map[int][]CourseUser
	Instructors map[int][]CourseUser
}
