package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/umgeo/coursesync/internal/models"
)

type groupStore interface {
	GroupMembers(ctx context.Context, groupID string) (models.GroupMembers, error)
	AddGroupMembers(ctx context.Context, groupID string, logins []string) (models.MemberUpdateResult, error)
	RemoveGroupMembers(ctx context.Context, groupID string, logins []string) (models.MemberUpdateResult, error)
}

// activityLog receives the instructor-facing narrative for a course.
type activityLog interface {
	Appendf(format string, args ...interface{})
}

// MembershipService reconciles a group's membership against a course roster,
// touching only the users that actually changed.
type MembershipService struct {
	store     groupStore
	orgSuffix string
	logger    *zap.Logger
}

// NewMembershipService constructs a MembershipService.
func NewMembershipService(store groupStore, orgSuffix string, logger *zap.Logger) *MembershipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipService{store: store, orgSuffix: orgSuffix, logger: logger}
}

// SyncGroup mutates the group's membership to match the roster. Remote
// failures are logged and treated as "no members changed"; the run moves on to
// the next group. Returns the number of members added and removed.
func (s *MembershipService) SyncGroup(ctx context.Context, group *models.Group, roster []models.CourseUser, log activityLog) (added, removed int) {
	groupName := FormatNameAndID(group)

	members, err := s.store.GroupMembers(ctx, group.ID)
	if err != nil {
		s.logger.Error("failed to fetch group members", zap.String("group", groupName), zap.Error(err))
		return 0, 0
	}

	current := make([]string, 0, len(members.Users))
	for _, name := range members.Users {
		current = append(current, TrimOrgSuffix(name))
	}
	desired := RosterLogins(roster)

	delta := Reconcile(current, desired)
	s.logger.Info("membership delta computed",
		zap.String("group", groupName),
		zap.Strings("to_remove", delta.OnlyCurrent),
		zap.Strings("to_add", delta.OnlyDesired),
		zap.Int("unchanged", len(delta.Both)),
	)

	log.Appendf("Updating GIS group: %q\n", group.Title)

	removed = s.removeMembers(ctx, group, QualifyLogins(delta.OnlyCurrent, s.orgSuffix))
	added = s.addMembers(ctx, group, QualifyLogins(delta.OnlyDesired, s.orgSuffix), log)
	return added, removed
}

func (s *MembershipService) removeMembers(ctx context.Context, group *models.Group, logins []string) int {
	if len(logins) == 0 {
		s.logger.Debug("no obsolete members to remove", zap.String("group", group.Title))
		return 0
	}

	result, err := s.store.RemoveGroupMembers(ctx, group.ID, logins)
	if err != nil {
		s.logger.Error("failed to remove group members", zap.String("group", group.Title), zap.Error(err))
		return 0
	}

	removed := len(logins) - len(result.NotRemoved)
	if len(result.NotRemoved) > 0 {
		s.logger.Warn("some users not removed from group",
			zap.String("group", group.Title), zap.Strings("not_removed", result.NotRemoved))
	}
	return removed
}

func (s *MembershipService) addMembers(ctx context.Context, group *models.Group, logins []string, log activityLog) int {
	if len(logins) == 0 {
		s.logger.Debug("no new members to add", zap.String("group", group.Title))
		return 0
	}

	result, err := s.store.AddGroupMembers(ctx, group.ID, logins)
	if err != nil {
		s.logger.Error("failed to add group members", zap.String("group", group.Title), zap.Error(err))
		return 0
	}

	added := len(logins) - len(result.NotAdded)
	log.Appendf("Number of users added to group: [%d]\n\n", added)

	if len(result.NotAdded) > 0 {
		s.logger.Warn("some users not added to group",
			zap.String("group", group.Title), zap.Strings("not_added", result.NotAdded))

		var sb strings.Builder
		for _, name := range result.NotAdded {
			sb.WriteString("* " + name + "\n")
		}
		log.Appendf("Users not in group (these users need GIS accounts created for them):\n%s\nGIS group ID number:\n%s\n\n",
			sb.String(), group.ID)
	}
	log.Appendf("- - - - - - - - - - - - - - - - - - - - - - - - - - - - - -\n")

	return added
}
