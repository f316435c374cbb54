package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/umgeo/coursesync/internal/models"
	apperrors "github.com/umgeo/coursesync/pkg/errors"
)

// fakeStore is an in-memory stand-in for the content store client. Error knobs
// let individual tests force specific remote failures.
type fakeStore struct {
	username string

	groups  map[string]*models.Group
	members map[string][]string
	folders map[string]bool
	items   map[string][]models.Item

	notAdded   []string
	notRemoved []string

	searchErr       error
	createGroupErr  error
	membersErr      error
	addErr          error
	removeErr       error
	createFolderErr error
	itemsErr        error
	cloneErr        error
	reassignErr     error
	deleteErr       error

	failCloneTitles map[string]bool

	addCalls       [][]string
	removeCalls    [][]string
	createdFolders []string
	deletedFolders []string

	nextGroupID int
	nextItemID  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		username: "coursesync_uorg",
		groups:   make(map[string]*models.Group),
		members:  make(map[string][]string),
		folders:  make(map[string]bool),
		items:    make(map[string][]models.Item),
	}
}

func folderKey(owner, title string) string { return owner + "|" + title }

func (f *fakeStore) addFolder(owner, title string, items ...models.Item) {
	key := folderKey(owner, title)
	f.folders[key] = true
	f.items[key] = append(f.items[key], items...)
}

func (f *fakeStore) addGroup(title string, users ...string) *models.Group {
	f.nextGroupID++
	g := &models.Group{ID: fmt.Sprintf("grp-%d", f.nextGroupID), Title: title}
	f.groups[g.ID] = g
	f.members[g.ID] = users
	return g
}

func (f *fakeStore) Username() string { return f.username }

func (f *fakeStore) SearchGroupByTitle(_ context.Context, title string) (*models.Group, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	for _, g := range f.groups {
		if g.Title == title {
			return g, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateGroup(_ context.Context, title string, tags []string) (*models.Group, error) {
	if f.createGroupErr != nil {
		return nil, f.createGroupErr
	}
	g := f.addGroup(title)
	g.Tags = tags
	return g, nil
}

func (f *fakeStore) GroupMembers(_ context.Context, groupID string) (models.GroupMembers, error) {
	if f.membersErr != nil {
		return models.GroupMembers{}, f.membersErr
	}
	return models.GroupMembers{Owner: f.username, Users: f.members[groupID]}, nil
}

func (f *fakeStore) AddGroupMembers(_ context.Context, groupID string, logins []string) (models.MemberUpdateResult, error) {
	if f.addErr != nil {
		return models.MemberUpdateResult{}, f.addErr
	}
	f.addCalls = append(f.addCalls, logins)
	skipped := toSet(f.notAdded)
	for _, login := range logins {
		if !skipped[login] {
			f.members[groupID] = append(f.members[groupID], login)
		}
	}
	return models.MemberUpdateResult{NotAdded: f.notAdded}, nil
}

func (f *fakeStore) RemoveGroupMembers(_ context.Context, groupID string, logins []string) (models.MemberUpdateResult, error) {
	if f.removeErr != nil {
		return models.MemberUpdateResult{}, f.removeErr
	}
	f.removeCalls = append(f.removeCalls, logins)
	drop := toSet(logins)
	kept := make([]string, 0, len(f.members[groupID]))
	for _, m := range f.members[groupID] {
		if !drop[m] {
			kept = append(kept, m)
		}
	}
	f.members[groupID] = kept
	return models.MemberUpdateResult{NotRemoved: f.notRemoved}, nil
}

func (f *fakeStore) CreateFolder(_ context.Context, owner, title string) (*models.Folder, error) {
	if f.createFolderErr != nil {
		return nil, f.createFolderErr
	}
	key := folderKey(owner, title)
	if f.folders[key] {
		// Mirrors the portal's duplicate-title diagnostic verbatim.
		return nil, apperrors.Clone(apperrors.ErrFolderProvision,
			fmt.Sprintf("Unable to create folder.: Folder title '%s' not available.: user: [%s] folder: [%s]", title, owner, title))
	}
	f.folders[key] = true
	f.createdFolders = append(f.createdFolders, key)
	return &models.Folder{ID: key, Title: title, Owner: owner}, nil
}

func (f *fakeStore) Items(_ context.Context, owner, folderTitle string) ([]models.Item, error) {
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	key := folderKey(owner, folderTitle)
	if !f.folders[key] {
		return nil, apperrors.Clone(apperrors.ErrNotFound,
			fmt.Sprintf("folder %q not found for user %q", folderTitle, owner))
	}
	return append([]models.Item(nil), f.items[key]...), nil
}

func (f *fakeStore) CloneItems(_ context.Context, items []models.Item, folderTitle string) ([]models.Item, error) {
	if f.cloneErr != nil {
		return nil, f.cloneErr
	}
	key := folderKey(f.username, folderTitle)
	cloned := make([]models.Item, 0, len(items))
	for _, item := range items {
		if f.failCloneTitles[item.Title] {
			return nil, apperrors.Clone(apperrors.ErrRemote, "clone failed for "+item.Title)
		}
		f.nextItemID++
		staged := models.Item{
			ID:     fmt.Sprintf("item-%d", f.nextItemID),
			Title:  item.Title,
			Owner:  f.username,
			Folder: folderTitle,
		}
		f.folders[key] = true
		f.items[key] = append(f.items[key], staged)
		cloned = append(cloned, staged)
	}
	return cloned, nil
}

func (f *fakeStore) ReassignItem(_ context.Context, item models.Item, newOwner, folderTitle string) error {
	if f.reassignErr != nil {
		return f.reassignErr
	}
	oldKey := folderKey(item.Owner, item.Folder)
	kept := make([]models.Item, 0, len(f.items[oldKey]))
	for _, existing := range f.items[oldKey] {
		if existing.ID != item.ID {
			kept = append(kept, existing)
		}
	}
	f.items[oldKey] = kept

	item.Owner = newOwner
	item.Folder = folderTitle
	newKey := folderKey(newOwner, folderTitle)
	f.folders[newKey] = true
	f.items[newKey] = append(f.items[newKey], item)
	return nil
}

func (f *fakeStore) DeleteFolder(_ context.Context, owner, title string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	key := folderKey(owner, title)
	delete(f.folders, key)
	delete(f.items, key)
	f.deletedFolders = append(f.deletedFolders, key)
	return nil
}

// fakeActivityLog captures the instructor-facing narrative for assertions.
type fakeActivityLog struct {
	entries []string
}

func (l *fakeActivityLog) Appendf(format string, args ...interface{}) {
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

func (l *fakeActivityLog) contains(substr string) bool {
	for _, entry := range l.entries {
		if strings.Contains(entry, substr) {
			return true
		}
	}
	return false
}

// fakeProvider is an in-memory course platform.
type fakeProvider struct {
	courses     map[int]*models.Course
	users       map[int][]models.CourseUser
	teachers    map[int][]models.CourseUser
	assignments map[int][]models.Assignment
	outcome     *models.Outcome
	links       map[int][]models.OutcomeLink
	pageIDs     []int

	outcomeErr error
	pageErr    error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		courses:     make(map[int]*models.Course),
		users:       make(map[int][]models.CourseUser),
		teachers:    make(map[int][]models.CourseUser),
		assignments: make(map[int][]models.Assignment),
		links:       make(map[int][]models.OutcomeLink),
	}
}

func (p *fakeProvider) Course(_ context.Context, courseID int) (*models.Course, error) {
	course, ok := p.courses[courseID]
	if !ok {
		return nil, apperrors.Clone(apperrors.ErrNotFound, fmt.Sprintf("course %d not found", courseID))
	}
	return course, nil
}

func (p *fakeProvider) CourseUsers(_ context.Context, courseID int, role string) ([]models.CourseUser, error) {
	if role == models.RoleTeacher {
		return p.teachers[courseID], nil
	}
	return p.users[courseID], nil
}

func (p *fakeProvider) Assignments(_ context.Context, courseID int) ([]models.Assignment, error) {
	return p.assignments[courseID], nil
}

func (p *fakeProvider) Outcome(_ context.Context, outcomeID int) (*models.Outcome, error) {
	if p.outcomeErr != nil {
		return nil, p.outcomeErr
	}
	if p.outcome == nil || p.outcome.ID != outcomeID {
		return nil, apperrors.Clone(apperrors.ErrNotFound, fmt.Sprintf("outcome %d not found", outcomeID))
	}
	return p.outcome, nil
}

func (p *fakeProvider) OutcomeLinks(_ context.Context, courseID int) ([]models.OutcomeLink, error) {
	return p.links[courseID], nil
}

func (p *fakeProvider) CourseIDsFromPage(_ context.Context, _ int, _ string) ([]int, error) {
	if p.pageErr != nil {
		return nil, p.pageErr
	}
	return p.pageIDs, nil
}
