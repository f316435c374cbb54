package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/umgeo/coursesync/internal/models"
	"github.com/umgeo/coursesync/pkg/config"
	apperrors "github.com/umgeo/coursesync/pkg/errors"
	"github.com/umgeo/coursesync/pkg/logger"
	"github.com/umgeo/coursesync/pkg/mailer"
	"github.com/umgeo/coursesync/pkg/metrics"
	"github.com/umgeo/coursesync/pkg/report"
	"github.com/umgeo/coursesync/pkg/storage"
)

type courseProvider interface {
	Course(ctx context.Context, courseID int) (*models.Course, error)
	CourseUsers(ctx context.Context, courseID int, role string) ([]models.CourseUser, error)
	Assignments(ctx context.Context, courseID int) ([]models.Assignment, error)
	Outcome(ctx context.Context, outcomeID int) (*models.Outcome, error)
	OutcomeLinks(ctx context.Context, courseID int) ([]models.OutcomeLink, error)
	CourseIDsFromPage(ctx context.Context, configCourseID int, pageName string) ([]int, error)
}

type contentStore interface {
	groupStore
	folderStore
	cloneStore
	SearchGroupByTitle(ctx context.Context, title string) (*models.Group, error)
	CreateGroup(ctx context.Context, title string, tags []string) (*models.Group, error)
}

// RunOptions carries per-invocation switches from the CLI.
type RunOptions struct {
	SendEmail bool
}

// SyncService drives one full synchronization run: course discovery,
// assignment selection, group and folder upkeep, grading clones, and
// instructor log delivery.
type SyncService struct {
	provider courseProvider
	store    contentStore
	cfg      *config.Config

	membership *MembershipService
	folders    *FolderService
	cloner     *CloneService

	registry *logger.Registry
	mail     mailer.Mailer
	recorder *metrics.Recorder
	logger   *zap.Logger
	runStart time.Time
}

// NewSyncService wires the sync pipeline. runStart anchors assignment expiry
// checks and must match the timestamp the log registry was built with.
func NewSyncService(provider courseProvider, store contentStore, cfg *config.Config,
	registry *logger.Registry, mail mailer.Mailer, recorder *metrics.Recorder,
	runStart time.Time, log *zap.Logger) *SyncService {
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.New()
	}

	folders := NewFolderService(store, log)
	validate := validator.New()

	return &SyncService{
		provider:   provider,
		store:      store,
		cfg:        cfg,
		membership: NewMembershipService(store, cfg.ArcGIS.OrgSuffix, log),
		folders:    folders,
		cloner:     NewCloneService(store, folders, cfg.Clone, validate, log),
		registry:   registry,
		mail:       mail,
		recorder:   recorder,
		runStart:   runStart,
		logger:     log,
	}
}

// Run executes one synchronization pass. Startup failures (outcome lookup,
// zero matching courses) abort the run; anything at course granularity or
// below is contained and logged.
func (s *SyncService) Run(ctx context.Context, opts RunOptions) error {
	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID))
	log.Info("starting synchronization run", zap.Time("run_start", s.runStart))

	outcome, err := s.provider.Outcome(ctx, s.cfg.Canvas.OutcomeID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrNotFound.Code,
			fmt.Sprintf("outcome ID %d was not found", s.cfg.Canvas.OutcomeID))
	}
	log.Info("resolved target outcome", zap.Int("outcome_id", outcome.ID), zap.String("title", outcome.Title))

	courseIDs := s.discoverCourseIDs(ctx, log)
	matching := s.coursesLinkedToOutcome(ctx, courseIDs, outcome, log)
	if len(matching) == 0 {
		return apperrors.Clone(apperrors.ErrNotFound,
			fmt.Sprintf("no courses linked to outcome %d were found", outcome.ID))
	}
	log.Info("courses linked to outcome", zap.Ints("course_ids", matching))

	maintain, clone := s.selectAssignments(ctx, matching, outcome, log)
	log.Info("assignments selected",
		zap.Int("maintain", len(maintain)), zap.Int("clone", len(clone)))

	summary := report.NewSummary()

	if len(maintain) == 0 && len(clone) == 0 {
		log.Info("no relevant assignments found, nothing to do")
		return s.finish(nil, opts, summary, log)
	}

	data := s.loadCourseData(ctx, matching, log)

	for _, assignment := range maintain {
		s.maintainAssignment(ctx, assignment, data, summary, log)
	}
	for _, assignment := range clone {
		s.cloneAssignment(ctx, assignment, data, summary, log)
	}

	return s.finish(data.Instructors, opts, summary, log)
}

// finish is the end-of-run epilogue shared by empty and full passes: close
// and rotate the run logs, deliver instructor mail, write the run summary,
// prune rotated logs, and push metrics. The main log gets its timestamp
// suffix even when there was nothing to synchronize.
func (s *SyncService) finish(instructors map[int][]models.CourseUser, opts RunOptions, summary *report.Summary, log *zap.Logger) error {
	s.registry.CloseAll()

	if opts.SendEmail {
		s.emailCourseLogs(instructors, log)
	}
	s.registry.RenameAll()

	s.writeSummary(summary, log)
	s.pruneOldLogs(log)

	s.recorder.ObserveRunDuration(time.Since(s.runStart))
	if err := s.recorder.Push(s.cfg.Metrics.PushGatewayURL, s.cfg.Metrics.JobName); err != nil {
		log.Warn("failed to push run metrics", zap.Error(err))
	}

	log.Info("synchronization run finished", zap.Duration("duration", time.Since(s.runStart)))
	return nil
}

// discoverCourseIDs reads the operative course-ID set from the hand-edited
// configuration page, falling back to the static configured set.
func (s *SyncService) discoverCourseIDs(ctx context.Context, log *zap.Logger) []int {
	ids, err := s.provider.CourseIDsFromPage(ctx, s.cfg.Canvas.ConfigCourseID, s.cfg.Canvas.ConfigCoursePage)
	if err != nil {
		log.Warn("failed to read config course page", zap.Error(err))
	}
	if len(ids) == 0 {
		log.Warn("course IDs not found on config page, using configured defaults",
			zap.Int("config_course_id", s.cfg.Canvas.ConfigCourseID),
			zap.String("page", s.cfg.Canvas.ConfigCoursePage))
		return s.cfg.Canvas.CourseIDs
	}
	log.Info("course IDs found on config page", zap.Ints("course_ids", ids))
	return ids
}

// coursesLinkedToOutcome keeps only the courses whose outcome group links
// include the target outcome.
func (s *SyncService) coursesLinkedToOutcome(ctx context.Context, courseIDs []int, outcome *models.Outcome, log *zap.Logger) []int {
	matching := make([]int, 0, len(courseIDs))
	for _, id := range courseIDs {
		links, err := s.provider.OutcomeLinks(ctx, id)
		if err != nil {
			log.Error("failed to fetch outcome links", zap.Int("course_id", id), zap.Error(err))
			s.recorder.RemoteFailures.Inc()
			continue
		}
		for _, link := range links {
			if link.Outcome.ID == outcome.ID {
				matching = append(matching, id)
				break
			}
		}
	}
	return matching
}

// selectAssignments partitions every matching course's assignments into the
// maintain and clone lists.
func (s *SyncService) selectAssignments(ctx context.Context, courseIDs []int, outcome *models.Outcome, log *zap.Logger) (maintain, clone []models.Assignment) {
	selector := NewSelector(outcome.ID, s.runStart, log)

	for _, id := range courseIDs {
		assignments, err := s.provider.Assignments(ctx, id)
		if err != nil {
			log.Error("failed to fetch assignments", zap.Int("course_id", id), zap.Error(err))
			s.recorder.RemoteFailures.Inc()
			continue
		}
		m, c := selector.Partition(assignments)
		maintain = append(maintain, m...)
		clone = append(clone, c...)
	}
	return maintain, clone
}

// loadCourseData fetches the course snapshots, rosters, and instructor lists
// that the maintain and clone passes share.
func (s *SyncService) loadCourseData(ctx context.Context, courseIDs []int, log *zap.Logger) models.CourseData {
	data := models.CourseData{
		Courses:     make(map[int]models.Course, len(courseIDs)),
		Users:       make(map[int][]models.CourseUser, len(courseIDs)),
		Instructors: make(map[int][]models.CourseUser, len(courseIDs)),
	}

	for _, id := range courseIDs {
		course, err := s.provider.Course(ctx, id)
		if err != nil {
			log.Error("failed to fetch course", zap.Int("course_id", id), zap.Error(err))
			s.recorder.RemoteFailures.Inc()
			continue
		}
		data.Courses[id] = *course

		users, err := s.provider.CourseUsers(ctx, id, "")
		if err != nil {
			log.Error("failed to fetch course roster", zap.Int("course_id", id), zap.Error(err))
			s.recorder.RemoteFailures.Inc()
		}
		data.Users[id] = users

		teachers, err := s.provider.CourseUsers(ctx, id, models.RoleTeacher)
		if err != nil {
			log.Error("failed to fetch course instructors", zap.Int("course_id", id), zap.Error(err))
			s.recorder.RemoteFailures.Inc()
		}
		data.Instructors[id] = teachers
	}

	return data
}

// maintainAssignment makes sure the group for a course/assignment exists,
// reconciles its membership, and provisions per-student assignment folders.
func (s *SyncService) maintainAssignment(ctx context.Context, assignment models.Assignment, data models.CourseData, summary *report.Summary, log *zap.Logger) {
	course, ok := data.Courses[assignment.CourseID]
	if !ok {
		log.Error("no course snapshot for assignment",
			zap.Int("course_id", assignment.CourseID), zap.String("assignment", assignment.Name))
		return
	}

	row := summary.Course(course.ID)
	clog := s.registry.Course(course.ID)
	title := GroupTitle(course, assignment)

	group, err := s.store.SearchGroupByTitle(ctx, title)
	if err != nil {
		log.Error("group search failed", zap.String("title", title), zap.Error(err))
		s.recorder.RemoteFailures.Inc()
		return
	}
	if group == nil {
		clog.Appendf("Creating GIS group: %q\n", title)
		group, err = s.store.CreateGroup(ctx, title, s.cfg.ArcGIS.GroupTags)
		if err != nil {
			log.Error("group create failed", zap.String("title", title), zap.Error(err))
			s.recorder.RemoteFailures.Inc()
			group = nil
		} else {
			s.recorder.GroupsCreated.Inc()
			row.GroupsCreated++
		}
	}
	if group == nil {
		log.Info("problem creating or updating group, missing group object", zap.String("title", title))
		clog.Appendf("Problem creating or updating GIS group %q\n", title)
		return
	}

	added, removed := s.membership.SyncGroup(ctx, group, data.Users[course.ID], clog)
	s.recorder.MembersAdded.Add(float64(added))
	s.recorder.MembersRemoved.Add(float64(removed))
	row.MembersAdded += added
	row.MembersRemoved += removed

	// Provision the assignment folder for every current group member; members
	// are already in the content store's qualified identifier form.
	members, err := s.store.GroupMembers(ctx, group.ID)
	if err != nil {
		log.Error("failed to fetch members for folder provisioning",
			zap.String("group", title), zap.Error(err))
		s.recorder.RemoteFailures.Inc()
		return
	}
	folderName := AssignmentFolderName(course, assignment, s.cfg.Folders.AssignmentPrefix)
	created := s.folders.EnsureFolderForUsers(ctx, members.Users, folderName)
	s.recorder.FoldersCreated.Add(float64(created))
	row.FoldersCreated += created

	log.Info("assignment maintained",
		zap.String("assignment", assignment.Name),
		zap.Int("members_added", added),
		zap.Int("members_removed", removed),
		zap.Int("folders_created", created))
}

// cloneAssignment copies each student's submission folder to the course
// instructor's grading area.
func (s *SyncService) cloneAssignment(ctx context.Context, assignment models.Assignment, data models.CourseData, summary *report.Summary, log *zap.Logger) {
	course, ok := data.Courses[assignment.CourseID]
	if !ok {
		log.Error("no course snapshot for clone assignment",
			zap.Int("course_id", assignment.CourseID), zap.String("assignment", assignment.Name))
		return
	}
	row := summary.Course(course.ID)

	instructors := data.Instructors[course.ID]
	if len(instructors) == 0 || instructors[0].LoginID == "" {
		log.Warn("no instructor with a login for course, skipping clones", zap.Int("course_id", course.ID))
		return
	}
	instructorLogin := instructors[0].LoginID

	suffix := s.cfg.ArcGIS.OrgSuffix
	sourceFolder := AssignmentFolderName(course, assignment, s.cfg.Folders.AssignmentPrefix)

	for _, student := range data.Users[course.ID] {
		if student.LoginID == "" || student.LoginID == instructorLogin {
			continue
		}

		req := CloneRequest{
			SourceUser:   QualifyLogin(student.LoginID, suffix),
			SourceFolder: sourceFolder,
			SinkUser:     QualifyLogin(instructorLogin, suffix),
			SinkFolder:   SubmissionFolderName(course, assignment, student.LoginID, s.cfg.Folders.SubmissionPrefix),
		}

		result, err := s.cloner.CloneFolder(ctx, req)
		if err != nil {
			log.Error("clone failed", zap.String("student", student.LoginID), zap.Error(err))
			s.recorder.RemoteFailures.Inc()
			continue
		}
		if result.Skipped {
			s.recorder.ClonesSkipped.Inc()
			row.ClonesSkipped++
			continue
		}
		s.recorder.ItemsCloned.Add(float64(result.Cloned))
		s.recorder.ItemsReassigned.Add(float64(result.Reassigned))
		row.ItemsCloned += result.Cloned
		log.Info("submission folder cloned",
			zap.String("student", student.LoginID),
			zap.String("sink_folder", result.SinkFolder),
			zap.Int("items", result.Cloned))
	}
}

// emailCourseLogs mails each course's activity log to its instructors. A
// course without a log file made no changes this run and sends nothing.
func (s *SyncService) emailCourseLogs(instructors map[int][]models.CourseUser, log *zap.Logger) {
	for _, courseID := range s.registry.CourseIDs() {
		content, err := os.ReadFile(s.registry.CoursePath(courseID))
		if err != nil {
			log.Debug("no course log to email", zap.Int("course_id", courseID), zap.Error(err))
			continue
		}

		recipients := make([]string, 0, len(instructors[courseID]))
		for _, instructor := range instructors[courseID] {
			login := instructor.SISLoginID
			if login == "" {
				login = instructor.LoginID
			}
			if login == "" {
				continue
			}
			recipients = append(recipients, login+"@"+s.cfg.Email.RecipientDomain)
		}
		if len(recipients) == 0 {
			log.Warn("no instructor recipients for course log", zap.Int("course_id", courseID))
			continue
		}

		msg := mailer.Message{
			To:      recipients,
			Subject: fmt.Sprintf(s.cfg.Email.Subject, courseID),
			Body:    string(content),
		}
		if err := s.mail.Send(msg); err != nil {
			log.Error("failed to email course log", zap.Int("course_id", courseID), zap.Error(err))
			continue
		}
		log.Info("course log emailed", zap.Int("course_id", courseID), zap.Strings("recipients", recipients))
	}
}

// writeSummary drops the per-course CSV run summary into the report directory.
func (s *SyncService) writeSummary(summary *report.Summary, log *zap.Logger) {
	if s.cfg.Log.ReportDir == "" {
		return
	}

	store, err := storage.NewLocalStorage(s.cfg.Log.ReportDir)
	if err != nil {
		log.Warn("report directory unavailable", zap.Error(err))
		return
	}

	data, err := summary.RenderCSV()
	if err != nil {
		log.Warn("failed to render run summary", zap.Error(err))
		return
	}

	name := report.Filename(s.runStart)
	if _, err := store.Save(name, data); err != nil {
		log.Warn("failed to write run summary", zap.Error(err))
		return
	}
	log.Info("run summary written", zap.String("path", store.Path(name)))
}

// pruneOldLogs enforces the retention window on rotated per-course logs.
func (s *SyncService) pruneOldLogs(log *zap.Logger) {
	if s.cfg.Log.Retention <= 0 {
		return
	}

	store, err := storage.NewLocalStorage(s.cfg.Log.CourseDir)
	if err != nil {
		log.Warn("course log directory unavailable for pruning", zap.Error(err))
		return
	}

	deleted, err := store.CleanupOlderThan(s.cfg.Log.Retention)
	if err != nil {
		log.Warn("failed to prune old course logs", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		log.Info("pruned old course logs", zap.Int("count", len(deleted)))
	}
}
