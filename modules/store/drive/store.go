package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	docs "google.golang.org/api/docs/v1"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/flemzord/mategen/internal/store"
)

// MIME types of the Drive objects the store manages.
const (
	FolderMimeType   = "application/vnd.google-apps.folder"
	DocumentMimeType = "application/vnd.google-apps.document"
)

// Options configures a Store.
type Options struct {
	// TokenSource authenticates requests. Ignored when HTTPClient is set.
	TokenSource oauth2.TokenSource

	// HTTPClient, when set, is used as is.
	HTTPClient *http.Client

	DriveEndpoint string
	DocsEndpoint  string
	RootFolderID  string
	Logger        *slog.Logger
}

// Store is a store.Store over Google Drive folders and Google Docs.
// Container IDs are folder IDs and document IDs are Docs document IDs.
type Store struct {
	files  *drive.FilesService
	docs   *docs.DocumentsService
	root   string
	logger *slog.Logger
}

// New builds the Drive and Docs clients.
func New(ctx context.Context, opts Options) (*Store, error) {
	var common []option.ClientOption
	switch {
	case opts.HTTPClient != nil:
		common = append(common, option.WithHTTPClient(opts.HTTPClient))
	case opts.TokenSource != nil:
		common = append(common, option.WithTokenSource(opts.TokenSource))
	default:
		return nil, errors.New("store.drive: a token source or HTTP client is required")
	}

	driveOpts := common
	if opts.DriveEndpoint != "" {
		driveOpts = append(driveOpts[:len(driveOpts):len(driveOpts)], option.WithEndpoint(opts.DriveEndpoint))
	}
	driveSvc, err := drive.NewService(ctx, driveOpts...)
	if err != nil {
		return nil, fmt.Errorf("store.drive: drive client: %w", err)
	}

	docsOpts := common
	if opts.DocsEndpoint != "" {
		docsOpts = append(docsOpts[:len(docsOpts):len(docsOpts)], option.WithEndpoint(opts.DocsEndpoint))
	}
	docsSvc, err := docs.NewService(ctx, docsOpts...)
	if err != nil {
		return nil, fmt.Errorf("store.drive: docs client: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		files:  driveSvc.Files,
		docs:   docsSvc.Documents,
		root:   opts.RootFolderID,
		logger: logger,
	}, nil
}

// CreateOrGetContainer implements store.Store.
func (s *Store) CreateOrGetContainer(ctx context.Context, name string) (store.Container, error) {
	if err := store.ValidateName(name); err != nil {
		return store.Container{}, err
	}
	q := fmt.Sprintf("mimeType='%s' and name='%s' and trashed=false", FolderMimeType, quote(name))
	if s.root != "" {
		q += fmt.Sprintf(" and '%s' in parents", quote(s.root))
	}
	found, err := s.find(ctx, q)
	if err != nil {
		return store.Container{}, err
	}
	if found != nil {
		return store.Container{ID: found.Id, Name: found.Name}, nil
	}

	folder := &drive.File{Name: name, MimeType: FolderMimeType}
	if s.root != "" {
		folder.Parents = []string{s.root}
	}
	created, err := s.files.Create(folder).Fields("id, name").Context(ctx).Do()
	if err != nil {
		return store.Container{}, fmt.Errorf("store.drive: create folder %s: %w", name, err)
	}
	s.logger.Debug("drive folder created", "name", name, "id", created.Id)
	return store.Container{ID: created.Id, Name: created.Name}, nil
}

// CreateOrGetDocument implements store.Store.
func (s *Store) CreateOrGetDocument(ctx context.Context, c store.Container, name string) (store.Document, error) {
	if err := store.ValidateName(name); err != nil {
		return store.Document{}, err
	}
	q := fmt.Sprintf("mimeType='%s' and name='%s' and '%s' in parents and trashed=false",
		DocumentMimeType, quote(name), quote(c.ID))
	found, err := s.find(ctx, q)
	if err != nil {
		return store.Document{}, err
	}
	if found != nil {
		return store.Document{ID: found.Id, Name: found.Name, ContainerID: c.ID}, nil
	}

	doc := &drive.File{Name: name, MimeType: DocumentMimeType, Parents: []string{c.ID}}
	created, err := s.files.Create(doc).Fields("id, name").Context(ctx).Do()
	if err != nil {
		return store.Document{}, wrap(err, "create document "+name)
	}
	return store.Document{ID: created.Id, Name: created.Name, ContainerID: c.ID}, nil
}

// Read implements store.Store. Documents are exported as plain text.
func (s *Store) Read(ctx context.Context, d store.Document) (string, error) {
	resp, err := s.files.Export(d.ID, "text/plain").Context(ctx).Download()
	if err != nil {
		return "", wrap(err, "export "+d.Name)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("store.drive: read %s: %w", d.Name, err)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

// Append implements store.Store by inserting the entry at the end of the
// document body.
func (s *Store) Append(ctx context.Context, d store.Document, content any) error {
	data, err := store.Encode(content)
	if err != nil {
		return err
	}
	end, err := s.endIndex(ctx, d)
	if err != nil {
		return err
	}
	req := &docs.BatchUpdateDocumentRequest{Requests: []*docs.Request{{
		InsertText: &docs.InsertTextRequest{
			Location: &docs.Location{Index: end},
			Text:     string(data),
		},
	}}}
	if _, err := s.docs.BatchUpdate(d.ID, req).Context(ctx).Do(); err != nil {
		return wrap(err, "append to "+d.Name)
	}
	return nil
}

// Clear implements store.Store.
func (s *Store) Clear(ctx context.Context, d store.Document) error {
	end, err := s.endIndex(ctx, d)
	if err != nil {
		return err
	}
	// The body starts at index 1 and always keeps its final newline.
	if end <= 1 {
		return nil
	}
	req := &docs.BatchUpdateDocumentRequest{Requests: []*docs.Request{{
		DeleteContentRange: &docs.DeleteContentRangeRequest{
			Range: &docs.Range{StartIndex: 1, EndIndex: end},
		},
	}}}
	if _, err := s.docs.BatchUpdate(d.ID, req).Context(ctx).Do(); err != nil {
		return wrap(err, "clear "+d.Name)
	}
	return nil
}

// List implements store.Store.
func (s *Store) List(ctx context.Context, c store.Container) ([]store.Document, error) {
	files, err := s.children(ctx, c, fmt.Sprintf(" and mimeType='%s'", DocumentMimeType))
	if err != nil {
		return nil, err
	}
	out := make([]store.Document, 0, len(files))
	for _, f := range files {
		out = append(out, store.Document{ID: f.Id, Name: f.Name, ContainerID: c.ID})
	}
	return out, nil
}

// Rename implements store.Store.
func (s *Store) Rename(ctx context.Context, d store.Document, newName string) (store.Document, error) {
	if err := store.ValidateName(newName); err != nil {
		return store.Document{}, err
	}
	updated, err := s.files.Update(d.ID, &drive.File{Name: newName}).Fields("id, name").Context(ctx).Do()
	if err != nil {
		return store.Document{}, wrap(err, "rename "+d.Name)
	}
	d.Name = updated.Name
	return d, nil
}

// DeleteAll implements store.Store. Every child of the folder is deleted,
// documents or not.
func (s *Store) DeleteAll(ctx context.Context, c store.Container) error {
	files, err := s.children(ctx, c, "")
	if err != nil {
		return err
	}
	var errs []error
	for _, f := range files {
		if err := s.files.Delete(f.Id).Context(ctx).Do(); err != nil {
			errs = append(errs, wrap(err, "delete "+f.Name))
			continue
		}
		s.logger.Debug("drive file deleted", "name", f.Name, "id", f.Id)
	}
	return errors.Join(errs...)
}

func (s *Store) find(ctx context.Context, q string) (*drive.File, error) {
	list, err := s.files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return nil, wrap(err, "search")
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return list.Files[0], nil
}

func (s *Store) children(ctx context.Context, c store.Container, extra string) ([]*drive.File, error) {
	if _, err := s.files.Get(c.ID).Fields("id").Context(ctx).Do(); err != nil {
		return nil, wrap(err, "folder "+c.Name)
	}
	q := fmt.Sprintf("'%s' in parents and trashed=false", quote(c.ID)) + extra
	var out []*drive.File
	err := s.files.List().Q(q).OrderBy("name").Fields("nextPageToken, files(id, name)").
		Pages(ctx, func(page *drive.FileList) error {
			out = append(out, page.Files...)
			return nil
		})
	if err != nil {
		return nil, wrap(err, "list "+c.Name)
	}
	return out, nil
}

// endIndex returns the index just before the body's final newline.
func (s *Store) endIndex(ctx context.Context, d store.Document) (int64, error) {
	doc, err := s.docs.Get(d.ID).Context(ctx).Do()
	if err != nil {
		return 0, wrap(err, "get "+d.Name)
	}
	if doc.Body == nil || len(doc.Body.Content) == 0 {
		return 1, nil
	}
	return max(doc.Body.Content[len(doc.Body.Content)-1].EndIndex-1, 1), nil
}

// quote escapes a value for a Drive query string literal.
func quote(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}

func wrap(err error, op string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %s", store.ErrNotFound, op)
	}
	return fmt.Errorf("store.drive: %s: %w", op, err)
}
