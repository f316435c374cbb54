package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/umgeo/coursesync/internal/models"
	apperrors "github.com/umgeo/coursesync/pkg/errors"
)

type folderStore interface {
	CreateFolder(ctx context.Context, owner, title string) (*models.Folder, error)
}

// FolderService provisions named folders for users, reporting the outcome as
// an explicit tag instead of an error so batch loops over many students can
// branch without aborting.
type FolderService struct {
	store  folderStore
	logger *zap.Logger
}

// NewFolderService constructs a FolderService.
func NewFolderService(store folderStore, logger *zap.Logger) *FolderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FolderService{store: store, logger: logger}
}

// EnsureFolder makes sure the owner has a folder with the given title. An
// existing folder is an acceptable outcome, not an error.
func (s *FolderService) EnsureFolder(ctx context.Context, owner, title string) models.FolderOutcome {
	outcome := models.FolderOutcome{Owner: owner, Title: title}

	_, err := s.store.CreateFolder(ctx, owner, title)
	if err == nil {
		outcome.Status = models.FolderCreated
		return outcome
	}

	outcome.Reason = err.Error()

	if apperrors.Is(err, apperrors.ErrFolderProvision) && looksLikeAlreadyExists(err.Error()) {
		outcome.Status = models.FolderAlreadyExists
		s.logger.Debug("folder already exists",
			zap.String("owner", owner), zap.String("title", title))
		return outcome
	}

	outcome.Status = models.FolderFailed
	s.logger.Error("failed to create folder",
		zap.String("owner", owner), zap.String("title", title), zap.Error(err))
	return outcome
}

// EnsureFolderForUsers provisions the same folder title for every listed user.
// One user's failure never blocks the rest.
func (s *FolderService) EnsureFolderForUsers(ctx context.Context, owners []string, title string) int {
	created := 0
	for _, owner := range owners {
		if outcome := s.EnsureFolder(ctx, owner, title); outcome.Status == models.FolderCreated {
			created++
		}
	}
	return created
}

// looksLikeAlreadyExists matches the diagnostic text the backend emits when a
// folder with the requested title is already present. Current portals report
// "Folder title '<title>' not available."; older ones say the folder exists.
func looksLikeAlreadyExists(diagnostic string) bool {
	d := strings.ToLower(diagnostic)
	return strings.Contains(d, "not available") || strings.Contains(d, "exist")
}
