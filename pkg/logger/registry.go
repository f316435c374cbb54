package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/umgeo/coursesync/pkg/config"
)

const logExtension = ".log"

// Registry owns the per-course activity log files for one run. Course logs are
// opened on first use, closed in bulk at end of run, and renamed with the run
// timestamp so the next run starts fresh.
type Registry struct {
	courseDir    string
	mainDir      string
	mainBasename string
	stamp        string
	logger       *zap.Logger

	courses map[int]*CourseLog
}

// CourseLog accumulates the instructor-facing narrative for a single course.
type CourseLog struct {
	courseID int
	path     string
	file     *os.File
	logger   *zap.Logger
}

// NewRegistry builds a Registry rooted at the configured log directories.
func NewRegistry(cfg config.LogConfig, runStart time.Time, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		courseDir:    cfg.CourseDir,
		mainDir:      cfg.Dir,
		mainBasename: cfg.MainBasename,
		stamp:        runStart.UTC().Format("20060102150405"),
		logger:       log,
		courses:      make(map[int]*CourseLog),
	}
}

// Course returns the activity log for a course, opening it on first use.
func (r *Registry) Course(courseID int) *CourseLog {
	if cl, ok := r.courses[courseID]; ok {
		return cl
	}

	cl := &CourseLog{
		courseID: courseID,
		path:     r.CoursePath(courseID),
		logger:   r.logger,
	}

	if err := os.MkdirAll(r.courseDir, 0o755); err != nil {
		r.logger.Error("failed to create course log directory", zap.String("dir", r.courseDir), zap.Error(err))
	} else {
		f, err := os.OpenFile(cl.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			r.logger.Error("failed to open course log", zap.String("path", cl.path), zap.Error(err))
		} else {
			cl.file = f
			cl.Appendf("Running at: %s\n\n", time.Now().Format("03:04:05 PM on January 02, 2006"))
		}
	}

	r.courses[courseID] = cl
	return cl
}

// CoursePath returns the log file path for a course.
func (r *Registry) CoursePath(courseID int) string {
	return filepath.Join(r.courseDir, strconv.Itoa(courseID)+logExtension)
}

// MainPath returns the main run log path.
func (r *Registry) MainPath() string {
	return filepath.Join(r.mainDir, r.mainBasename+logExtension)
}

// MainLogPath returns the main run log location for a log configuration. New
// wires this path into the zap output sinks so the registry can rotate it at
// end of run.
func MainLogPath(cfg config.LogConfig) string {
	return filepath.Join(cfg.Dir, cfg.MainBasename+logExtension)
}

// CourseIDs lists the courses that have an open log this run.
func (r *Registry) CourseIDs() []int {
	ids := make([]int, 0, len(r.courses))
	for id := range r.courses {
		ids = append(ids, id)
	}
	return ids
}

// CloseAll closes every open course log handle.
func (r *Registry) CloseAll() {
	for _, cl := range r.courses {
		if cl.file == nil {
			continue
		}
		if err := cl.file.Close(); err != nil {
			r.logger.Error("failed to close course log", zap.String("path", cl.path), zap.Error(err))
		}
		cl.file = nil
	}
}

// RenameCourseLog renames one course log with the run timestamp suffix. Missing
// files are not an error: a course without changes never opened a log.
func (r *Registry) RenameCourseLog(courseID int) (string, error) {
	oldPath := r.CoursePath(courseID)
	newPath := filepath.Join(r.courseDir, strconv.Itoa(courseID)+"-"+r.stamp+logExtension)
	return newPath, renameIfExists(oldPath, newPath)
}

// RenameAll renames every opened course log plus the main log.
func (r *Registry) RenameAll() {
	for id := range r.courses {
		if _, err := r.RenameCourseLog(id); err != nil {
			r.logger.Error("failed to rename course log", zap.Int("course_id", id), zap.Error(err))
		}
	}

	newMain := filepath.Join(r.mainDir, r.mainBasename+"-"+r.stamp+logExtension)
	if err := renameIfExists(r.MainPath(), newMain); err != nil {
		r.logger.Error("failed to rename main log", zap.Error(err))
	}
}

func renameIfExists(oldPath, newPath string) error {
	if _, err := os.Stat(oldPath); err != nil {
		return nil
	}
	return os.Rename(oldPath, newPath)
}

// Appendf writes formatted narrative text to the course log.
func (c *CourseLog) Appendf(format string, args ...interface{}) {
	if c.file == nil {
		return
	}
	if _, err := fmt.Fprintf(c.file, format, args...); err != nil {
		c.logger.Error("failed to write course log", zap.Int("course_id", c.courseID), zap.Error(err))
	}
}

// Path returns the course log file location.
func (c *CourseLog) Path() string {
	return c.path
}
