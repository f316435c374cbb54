package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/umgeo/coursesync/internal/models"
	"github.com/umgeo/coursesync/pkg/config"
	apperrors "github.com/umgeo/coursesync/pkg/errors"
)

type cloneStore interface {
	Username() string
	Items(ctx context.Context, owner, folderTitle string) ([]models.Item, error)
	CloneItems(ctx context.Context, items []models.Item, folderTitle string) ([]models.Item, error)
	ReassignItem(ctx context.Context, item models.Item, newOwner, folderTitle string) error
	DeleteFolder(ctx context.Context, owner, title string) error
}

// CloneRequest names the source and sink of one folder clone.
type CloneRequest struct {
	SourceUser   string `validate:"required"`
	SourceFolder string `validate:"required"`
	SinkUser     string `validate:"required"`
	SinkFolder   string `validate:"required"`
}

// CloneResult reports what one clone attempt did.
type CloneResult struct {
	SinkFolder string
	Cloned     int
	Reassigned int
	Skipped    bool
	SkipReason string
}

// CloneService copies the items of one user's folder into another user's
// folder. Items are cloned into a staging folder under the pipeline's own
// service account first and then reassigned, because the clone primitive is
// only reliable under the caller's own identity.
type CloneService struct {
	store     cloneStore
	folders   *FolderService
	cfg       config.CloneConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCloneService constructs a CloneService.
func NewCloneService(store cloneStore, folders *FolderService, cfg config.CloneConfig, validate *validator.Validate, logger *zap.Logger) *CloneService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloneService{store: store, folders: folders, cfg: cfg, validator: validate, logger: logger}
}

// CloneFolder runs the clone pipeline for one source/sink pair. A skipped
// clone (empty source, occupied sink) is a normal outcome, not an error; only
// an invalid request fails.
func (s *CloneService) CloneFolder(ctx context.Context, req CloneRequest) (CloneResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return CloneResult{}, apperrors.Wrap(err, apperrors.ErrValidation.Code, "invalid clone request")
	}

	result := CloneResult{SinkFolder: req.SinkFolder}

	sourceItems := s.listItems(ctx, req.SourceUser, req.SourceFolder)
	eligible := s.eligibleItems(sourceItems)

	if s.cfg.SkipEmpty && len(eligible) == 0 {
		s.logger.Info("skipping clone, nothing to copy",
			zap.String("source_user", req.SourceUser), zap.String("source_folder", req.SourceFolder))
		result.Skipped = true
		result.SkipReason = "source folder has no eligible items"
		result.SinkFolder = ""
		return result, nil
	}

	// An existing sink folder is fine; a failed create is logged and the
	// occupied-sink check below decides whether anything can proceed.
	s.folders.EnsureFolder(ctx, req.SinkUser, req.SinkFolder)

	sinkItems := s.listItems(ctx, req.SinkUser, req.SinkFolder)
	if !s.cfg.AllowMultiple && len(sinkItems) != 0 {
		s.logger.Debug("skipping clone, sink folder already has items",
			zap.String("sink_user", req.SinkUser), zap.String("sink_folder", req.SinkFolder))
		result.Skipped = true
		result.SkipReason = "sink folder already populated"
		result.SinkFolder = ""
		return result, nil
	}

	result.Cloned = s.stageClone(ctx, eligible, req.SinkFolder)
	result.Reassigned = s.reassignStaged(ctx, req)
	s.cleanupStaging(ctx, req.SinkFolder)

	return result, nil
}

// listItems fetches a folder's items, treating any failure as an empty folder
// so sibling users keep processing.
func (s *CloneService) listItems(ctx context.Context, owner, folderTitle string) []models.Item {
	items, err := s.store.Items(ctx, owner, folderTitle)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			s.logger.Debug("folder not found when listing items",
				zap.String("owner", owner), zap.String("folder", folderTitle))
		} else {
			s.logger.Warn("failed to list folder items",
				zap.String("owner", owner), zap.String("folder", folderTitle), zap.Error(err))
		}
		return nil
	}
	return items
}

// eligibleItems applies the clone eligibility policy. The clone transport
// fails outright when request URLs contain certain characters, so when the
// filter flag is set, items with non-ASCII titles are dropped rather than
// aborting the whole batch.
func (s *CloneService) eligibleItems(items []models.Item) []models.Item {
	if !s.cfg.FilterNonASCIITitles {
		return items
	}

	eligible := make([]models.Item, 0, len(items))
	for _, item := range items {
		if !isASCII(item.Title) {
			s.logger.Warn("item skipped, title not representable in transport encoding",
				zap.String("title", item.Title))
			continue
		}
		eligible = append(eligible, item)
	}
	return eligible
}

// stageClone copies items one at a time into the service account's staging
// folder. Per-item failures are logged and skipped so one bad item does not
// block the rest.
func (s *CloneService) stageClone(ctx context.Context, items []models.Item, stagingFolder string) int {
	cloned := 0
	for _, item := range items {
		start := time.Now()
		_, err := s.store.CloneItems(ctx, []models.Item{item}, stagingFolder)
		elapsed := time.Since(start)
		if err != nil {
			s.logger.Warn("item clone failed",
				zap.String("title", item.Title),
				zap.Duration("elapsed", elapsed),
				zap.String("error_type", apperrors.FromError(err).Code),
				zap.Error(err))
			continue
		}
		s.logger.Info("item cloned",
			zap.String("title", item.Title), zap.Duration("elapsed", elapsed))
		cloned++
	}
	return cloned
}

// reassignStaged moves everything now in the staging folder over to the sink
// user and folder.
func (s *CloneService) reassignStaged(ctx context.Context, req CloneRequest) int {
	staged := s.listItems(ctx, s.store.Username(), req.SinkFolder)

	reassigned := 0
	for _, item := range staged {
		if err := s.store.ReassignItem(ctx, item, req.SinkUser, req.SinkFolder); err != nil {
			s.logger.Warn("item reassign failed",
				zap.String("title", item.Title), zap.String("sink_user", req.SinkUser), zap.Error(err))
			continue
		}
		reassigned++
	}
	return reassigned
}

// cleanupStaging deletes the service account's staging folder only when it is
// empty and matches the expected name exactly, so an unrelated populated
// folder is never removed.
func (s *CloneService) cleanupStaging(ctx context.Context, stagingFolder string) {
	me := s.store.Username()

	remaining := s.listItems(ctx, me, stagingFolder)
	if len(remaining) != 0 {
		s.logger.Warn("staging folder not empty after reassign, leaving in place",
			zap.String("folder", stagingFolder), zap.Int("remaining", len(remaining)))
		return
	}

	if err := s.store.DeleteFolder(ctx, me, stagingFolder); err != nil {
		s.logger.Warn("failed to delete staging folder",
			zap.String("folder", stagingFolder), zap.Error(err))
	}
}
