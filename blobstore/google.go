package blobstore

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// googleFiles adapts the Drive v3 client to FileAPI.
type googleFiles struct {
	srv      *drive.Service
	folderID string
}

// NewGoogle wraps a Drive service. folderID may be empty to upload into
// the service account's root.
func NewGoogle(srv *drive.Service, folderID string) FileAPI {
	return &googleFiles{srv: srv, folderID: folderID}
}

func (g *googleFiles) Upload(ctx context.Context, name, contentType string, r io.Reader) (*File, error) {
	meta := &drive.File{Name: name}
	if g.folderID != "" {
		meta.Parents = []string{g.folderID}
	}
	f, err := g.srv.Files.Create(meta).
		Media(r, googleapi.ContentType(contentType)).
		Fields("id", "webViewLink", "webContentLink").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("drive create %q: %w", name, err)
	}
	return &File{ID: f.Id, WebViewLink: f.WebViewLink, WebContentLink: f.WebContentLink}, nil
}

func (g *googleFiles) Share(ctx context.Context, fileID string) error {
	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err := g.srv.Permissions.Create(fileID, perm).Context(ctx).Do(); err != nil {
		return fmt.Errorf("drive share %s: %w", fileID, err)
	}
	return nil
}
