package arcgis

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/umgeo/coursesync/internal/models"
	apperrors "github.com/umgeo/coursesync/pkg/errors"
)

// CreateFolder creates a named folder for an owner. The portal reports
// "already exists" and permission problems as diagnostic text inside a 200
// response; that text is surfaced as a FOLDER_PROVISION error so callers can
// classify it, while transport failures keep their own codes.
func (c *Client) CreateFolder(ctx context.Context, owner, title string) (*models.Folder, error) {
	form := url.Values{}
	form.Set("title", title)

	var out struct {
		Success bool `json:"success"`
		Folder  struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"folder"`
		Error *apiError `json:"error"`
	}
	path := fmt.Sprintf("/sharing/rest/content/users/%s/createFolder", url.PathEscape(owner))
	if err := c.request(ctx, http.MethodPost, path, form, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, apperrors.Clone(apperrors.ErrFolderProvision,
			fmt.Sprintf("%s: user: [%s] folder: [%s]", out.Error.text(), owner, title))
	}
	if !out.Success {
		return nil, apperrors.Clone(apperrors.ErrFolderProvision,
			fmt.Sprintf("folder create unsuccessful: user: [%s] folder: [%s]", owner, title))
	}

	return &models.Folder{ID: out.Folder.ID, Title: out.Folder.Title, Owner: owner}, nil
}

// Folders lists the folders owned by a user.
func (c *Client) Folders(ctx context.Context, owner string) ([]models.Folder, error) {
	var out struct {
		Folders []models.Folder `json:"folders"`
		Error   *apiError       `json:"error"`
	}
	path := fmt.Sprintf("/sharing/rest/content/users/%s", url.PathEscape(owner))
	if err := c.request(ctx, http.MethodGet, path, url.Values{}, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, apperrors.Clone(apperrors.ErrRemote, "folder list failed: "+out.Error.text())
	}

	for i := range out.Folders {
		out.Folders[i].Owner = owner
	}
	return out.Folders, nil
}

// Items lists the items within a user's folder, addressed by title.
func (c *Client) Items(ctx context.Context, owner, folderTitle string) ([]models.Item, error) {
	folder, err := c.folderByTitle(ctx, owner, folderTitle)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, apperrors.Clone(apperrors.ErrNotFound,
			fmt.Sprintf("folder [%s] not found for user [%s]", folderTitle, owner))
	}

	var out struct {
		Items []models.Item `json:"items"`
		Error *apiError     `json:"error"`
	}
	path := fmt.Sprintf("/sharing/rest/content/users/%s/%s", url.PathEscape(owner), url.PathEscape(folder.ID))
	if err := c.request(ctx, http.MethodGet, path, url.Values{}, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, apperrors.Clone(apperrors.ErrRemote, "item list failed: "+out.Error.text())
	}

	for i := range out.Items {
		out.Items[i].Owner = owner
		out.Items[i].Folder = folderTitle
	}
	return out.Items, nil
}

// CloneItems copies items into a folder under the service account's own
// identity, duplicating the underlying data without searching for existing
// matches. The staging folder is created when absent.
func (c *Client) CloneItems(ctx context.Context, items []models.Item, folderTitle string) ([]models.Item, error) {
	me := c.username

	folder, err := c.folderByTitle(ctx, me, folderTitle)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		created, err := c.CreateFolder(ctx, me, folderTitle)
		if err != nil {
			return nil, err
		}
		folder = created
	}

	cloned := make([]models.Item, 0, len(items))
	for _, item := range items {
		form := url.Values{}
		form.Set("folder", folder.ID)
		form.Set("copyData", "true")
		form.Set("searchExistingItems", "false")

		var out struct {
			Success bool      `json:"success"`
			ItemID  string    `json:"itemId"`
			Error   *apiError `json:"error"`
		}
		path := fmt.Sprintf("/sharing/rest/content/users/%s/items/%s/copy",
			url.PathEscape(item.Owner), url.PathEscape(item.ID))
		if err := c.request(ctx, http.MethodPost, path, form, &out); err != nil {
			return cloned, err
		}
		if out.Error != nil {
			return cloned, apperrors.Clone(apperrors.ErrRemote,
				fmt.Sprintf("item copy failed for [%s]: %s", item.Title, out.Error.text()))
		}

		cloned = append(cloned, models.Item{ID: out.ItemID, Title: item.Title, Owner: me, Folder: folderTitle})
	}

	return cloned, nil
}

// ReassignItem transfers an item's ownership and folder placement to a
// different user.
func (c *Client) ReassignItem(ctx context.Context, item models.Item, newOwner, folderTitle string) error {
	form := url.Values{}
	form.Set("targetUsername", newOwner)
	form.Set("targetFoldername", folderTitle)

	var out struct {
		Success bool      `json:"success"`
		Error   *apiError `json:"error"`
	}
	path := fmt.Sprintf("/sharing/rest/content/users/%s/items/%s/reassign",
		url.PathEscape(item.Owner), url.PathEscape(item.ID))
	if err := c.request(ctx, http.MethodPost, path, form, &out); err != nil {
		return err
	}
	if out.Error != nil {
		return apperrors.Clone(apperrors.ErrRemote,
			fmt.Sprintf("item reassign failed for [%s]: %s", item.Title, out.Error.text()))
	}
	return nil
}

// DeleteFolder deletes a user's folder addressed by exact title. Deleting a
// folder that does not exist is not an error.
func (c *Client) DeleteFolder(ctx context.Context, owner, title string) error {
	folder, err := c.folderByTitle(ctx, owner, title)
	if err != nil {
		return err
	}
	if folder == nil {
		c.logger.Debug("folder already absent", zap.String("owner", owner), zap.String("title", title))
		return nil
	}

	var out struct {
		Success bool      `json:"success"`
		Error   *apiError `json:"error"`
	}
	path := fmt.Sprintf("/sharing/rest/content/users/%s/%s/delete", url.PathEscape(owner), url.PathEscape(folder.ID))
	if err := c.request(ctx, http.MethodPost, path, url.Values{}, &out); err != nil {
		return err
	}
	if out.Error != nil {
		return apperrors.Clone(apperrors.ErrRemote, "folder delete failed: "+out.Error.text())
	}
	return nil
}

// folderByTitle resolves a folder by exact title match, nil when absent.
func (c *Client) folderByTitle(ctx context.Context, owner, title string) (*models.Folder, error) {
	folders, err := c.Folders(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, f := range folders {
		if f.Title == title {
			return &f, nil
		}
	}
	return nil, nil
}
