package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/umgeo/coursesync/internal/models"
	apperrors "github.com/umgeo/coursesync/pkg/errors"
)

func TestEnsureFolderCreated(t *testing.T) {
	store := newFakeStore()
	svc := NewFolderService(store, nil)

	outcome := svc.EnsureFolder(context.Background(), "alice_uorg", "ASGN: map")

	assert.Equal(t, models.FolderCreated, outcome.Status)
	assert.Equal(t, "alice_uorg", outcome.Owner)
	assert.Equal(t, "ASGN: map", outcome.Title)
	assert.Empty(t, outcome.Reason)
}

func TestEnsureFolderAlreadyExists(t *testing.T) {
	store := newFakeStore()
	store.addFolder("alice_uorg", "ASGN: map")
	svc := NewFolderService(store, nil)

	outcome := svc.EnsureFolder(context.Background(), "alice_uorg", "ASGN: map")

	assert.Equal(t, models.FolderAlreadyExists, outcome.Status)
	assert.NotEmpty(t, outcome.Reason)
}

func TestEnsureFolderDuplicateTitleDiagnostic(t *testing.T) {
	store := newFakeStore()
	store.createFolderErr = apperrors.Clone(apperrors.ErrFolderProvision,
		"Unable to create folder.: Folder title 'ASGN: map' not available.: user: [alice_uorg] folder: [ASGN: map]")
	svc := NewFolderService(store, nil)

	outcome := svc.EnsureFolder(context.Background(), "alice_uorg", "ASGN: map")

	assert.Equal(t, models.FolderAlreadyExists, outcome.Status)
	assert.Contains(t, outcome.Reason, "not available")
}

func TestEnsureFolderFailed(t *testing.T) {
	store := newFakeStore()
	store.createFolderErr = apperrors.Clone(apperrors.ErrRemote, "portal unavailable")
	svc := NewFolderService(store, nil)

	outcome := svc.EnsureFolder(context.Background(), "alice_uorg", "ASGN: map")

	assert.Equal(t, models.FolderFailed, outcome.Status)
	assert.Contains(t, outcome.Reason, "portal unavailable")
}

func TestEnsureFolderForUsers(t *testing.T) {
	store := newFakeStore()
	store.addFolder("bob_uorg", "ASGN: map")
	svc := NewFolderService(store, nil)

	created := svc.EnsureFolderForUsers(context.Background(),
		[]string{"alice_uorg", "bob_uorg", "carol_uorg"}, "ASGN: map")

	assert.Equal(t, 2, created)
	assert.ElementsMatch(t,
		[]string{"alice_uorg|ASGN: map", "carol_uorg|ASGN: map"},
		store.createdFolders)
}

func TestFolderStatusString(t *testing.T) {
	assert.Equal(t, "created", models.FolderCreated.String())
	assert.Equal(t, "already_exists", models.FolderAlreadyExists.String())
	assert.Equal(t, "failed", models.FolderFailed.String())
}
