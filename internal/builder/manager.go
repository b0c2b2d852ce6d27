// Package builder holds the ad design lifecycle: the list, create, edit and
// detail views over a user's designs and the form that feeds a save.
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/adbuilder/internal/adcontent"
	"github.com/vbonduro/adbuilder/internal/blobstore"
	"github.com/vbonduro/adbuilder/internal/domain"
	"github.com/vbonduro/adbuilder/internal/export"
	"github.com/vbonduro/adbuilder/internal/qrcode"
	"github.com/vbonduro/adbuilder/internal/service"
)

type View string

const (
	ViewList   View = "list"
	ViewCreate View = "create"
	ViewEdit   View = "edit"
	ViewDetail View = "detail"
)

var (
	ErrBusy              = errors.New("a save is already in progress")
	ErrNoSelection       = errors.New("design not found in list")
	ErrInvalidTransition = errors.New("operation not available in the current view")
)

const (
	msgLoadFailed   = "Failed to load designs"
	msgUploadFailed = "Failed to upload media"
	msgSaveFailed   = "Failed to save design"
	msgDeleteFailed = "Failed to delete design"
	msgCreated      = "Ad design created!"
	msgUpdated      = "Ad design updated!"
	msgDeleted      = "Design deleted"
	msgNoSpace      = "Ad space information not available"
)

// adService is the subset of service.AdService that Manager requires.
type adService interface {
	ListDesigns(ctx context.Context, ownerID *string) ([]*domain.DesignWithSpace, error)
	CreateDesign(ctx context.Context, ownerID *string, in service.SaveInput) (*domain.DesignWithSpace, error)
	UpdateDesign(ctx context.Context, existing *domain.DesignWithSpace, in service.SaveInput) (*domain.DesignWithSpace, error)
	DeleteDesign(ctx context.Context, ownerID *string, id string) error
	UploadMedia(ctx context.Context, ownerID *string, filename, mimeType string, r io.Reader) (blobstore.Ref, error)
	DiscardMedia(ctx context.Context, ref blobstore.Ref)
}

type Options struct {
	// Origin is prepended to the viewer path encoded in every code.
	Origin  string
	Code    qrcode.Options
	Decoder export.Decoder
	Logger  *slog.Logger

	SessionTTL  time.Duration
	MaxSessions int
}

type stagedMedia struct {
	filename string
	mimeType string
	data     []byte
}

// Manager is one user's builder session. All methods are safe for concurrent
// use; the lock is not held across service calls.
type Manager struct {
	svc      adService
	notify   Notifier
	logger   *slog.Logger
	owner    *string
	origin   string
	codeOpts qrcode.Options
	exporter *export.Exporter

	mu        sync.Mutex
	view      View
	loaded    bool
	saving    bool
	designs   []*domain.DesignWithSpace
	selected  *domain.DesignWithSpace
	form      FormState
	staged    *stagedMedia
	code      *qrcode.Graphic
	detailErr string
}

func NewManager(svc adService, notify Notifier, ownerID *string, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	codeOpts := opts.Code
	if codeOpts.Size <= 0 {
		codeOpts = qrcode.DefaultOptions()
	}
	return &Manager{
		svc:      svc,
		notify:   notify,
		logger:   logger,
		owner:    ownerID,
		origin:   opts.Origin,
		codeOpts: codeOpts,
		exporter: export.NewExporter(opts.Decoder, logger),
		view:     ViewList,
		designs:  []*domain.DesignWithSpace{},
		form:     DefaultForm(),
	}
}

// Load fetches the user's designs newest first. On failure the list is left
// empty and the user is notified; nothing is retried.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	if m.saving {
		m.mu.Unlock()
		return ErrBusy
	}
	m.mu.Unlock()

	designs, err := m.svc.ListDesigns(ctx, m.owner)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = true
	if err != nil {
		m.designs = []*domain.DesignWithSpace{}
		m.logger.Error("failed to load designs", "error", err)
		m.notify.Error(msgLoadFailed)
		return err
	}
	m.designs = designs
	m.logger.Debug("designs loaded", "count", len(designs))
	return nil
}

func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *Manager) StartCreate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ViewList); err != nil {
		return err
	}
	m.reset()
	m.view = ViewCreate
	return nil
}

// OpenDetail selects a listed design and renders its code. A design whose ad
// space cannot be resolved still opens, in an error state with no code.
func (m *Manager) OpenDetail(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ViewList); err != nil {
		return err
	}
	d := m.find(id)
	if d == nil {
		return ErrNoSelection
	}

	m.reset()
	m.selected = d
	m.view = ViewDetail
	if d.Space == nil || d.Space.ID == "" {
		m.detailErr = msgNoSpace
		m.logger.Warn("design has no linked ad space", "design_id", d.ID)
		return nil
	}

	g, err := qrcode.Render(qrcode.ViewURL(m.origin, d.Space.ID), m.codeOpts)
	if err != nil {
		m.detailErr = "Failed to render code"
		return fmt.Errorf("failed to render code for design %s: %w", d.ID, err)
	}
	m.code = g
	return nil
}

// StartEdit hydrates the form from a listed design. It is reachable from the
// list and from that design's detail view.
func (m *Manager) StartEdit(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ViewList, ViewDetail); err != nil {
		return err
	}
	d := m.find(id)
	if d == nil {
		return ErrNoSelection
	}

	m.reset()
	m.selected = d
	m.form = HydrateForm(d)
	m.view = ViewEdit
	return nil
}

// UpdateForm applies fn to the form of the create or edit view.
func (m *Manager) UpdateForm(fn func(*FormState)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ViewCreate, ViewEdit); err != nil {
		return err
	}
	fn(&m.form)
	return nil
}

func (m *Manager) SetMode(mode domain.Mode) error {
	if mode != domain.ModeRedirect && mode != domain.ModeCustom {
		return fmt.Errorf("unknown ad mode %q", mode)
	}
	return m.UpdateForm(func(f *FormState) { f.Mode = mode })
}

// StageMedia holds an upload in memory until the next save. The bytes are
// dropped on save, back or a new create.
func (m *Manager) StageMedia(filename, mimeType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ViewCreate, ViewEdit); err != nil {
		return err
	}
	m.staged = &stagedMedia{filename: filename, mimeType: mimeType, data: data}
	m.form.MediaType = mediaTypeOf(mimeType)
	return nil
}

// Save validates the form and then creates or updates the design. A staged
// upload is stored before any record is written. On success the design is
// placed at the head of the list (create) or replaced in place (edit), the
// form is reset and the view returns to the list. On failure the view and
// form are left as they were.
func (m *Manager) Save(ctx context.Context) (*domain.DesignWithSpace, error) {
	m.mu.Lock()
	if err := m.check(ViewCreate, ViewEdit); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if verr := m.form.Validate(m.staged != nil); verr != nil {
		m.mu.Unlock()
		m.logger.Debug("design form rejected", "field", verr.Field)
		return nil, verr
	}
	m.saving = true
	form, staged, existing := m.form, m.staged, m.selected
	editing := m.view == ViewEdit
	m.mu.Unlock()

	design, err := m.persist(ctx, form, staged, editing, existing)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saving = false
	if err != nil {
		return nil, err
	}

	if editing {
		for i, d := range m.designs {
			if d.ID == design.ID {
				m.designs[i] = design
				break
			}
		}
		m.notify.Success(msgUpdated)
	} else {
		m.designs = append([]*domain.DesignWithSpace{design}, m.designs...)
		m.notify.Success(msgCreated)
	}
	m.reset()
	m.view = ViewList
	return design, nil
}

func (m *Manager) persist(ctx context.Context, form FormState, staged *stagedMedia, editing bool, existing *domain.DesignWithSpace) (*domain.DesignWithSpace, error) {
	var (
		ref       blobstore.Ref
		uploaded  bool
		mediaType domain.MediaType
	)
	if staged != nil && form.Mode == domain.ModeCustom {
		var err error
		ref, err = m.svc.UploadMedia(ctx, m.owner, staged.filename, staged.mimeType, bytes.NewReader(staged.data))
		if err != nil {
			m.logger.Error("media upload failed", "error", err)
			m.notify.Error(msgUploadFailed)
			return nil, err
		}
		uploaded = true
		mediaType = mediaTypeOf(staged.mimeType)
	}

	in := form.saveInput(ref.URL, mediaType)

	var (
		design *domain.DesignWithSpace
		err    error
	)
	if editing {
		design, err = m.svc.UpdateDesign(ctx, existing, in)
	} else {
		design, err = m.svc.CreateDesign(ctx, m.owner, in)
	}
	if err != nil {
		// Nothing references the upload unless the space write went through.
		if uploaded && !errors.Is(err, service.ErrPartialSave) {
			m.svc.DiscardMedia(ctx, ref)
		}
		m.logger.Error("failed to save design", "editing", editing, "error", err)
		m.notify.Error(msgSaveFailed)
		return nil, err
	}
	return design, nil
}

// Back returns to the list from any view, discarding the form.
func (m *Manager) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saving {
		return ErrBusy
	}
	m.reset()
	m.view = ViewList
	return nil
}

// Release drops the form and any staged media and returns to the list. A save
// already in flight keeps its own copy and finishes.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	m.view = ViewList
}

// Delete removes a listed design from the store and then from the list.
// Deleting the design that is currently selected returns to the list.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.saving {
		m.mu.Unlock()
		return ErrBusy
	}
	if m.find(id) == nil {
		m.mu.Unlock()
		return ErrNoSelection
	}
	m.mu.Unlock()

	if err := m.svc.DeleteDesign(ctx, m.owner, id); err != nil {
		m.logger.Error("failed to delete design", "design_id", id, "error", err)
		m.notify.Error(msgDeleteFailed)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.designs {
		if d.ID == id {
			m.designs = append(m.designs[:i:i], m.designs[i+1:]...)
			break
		}
	}
	if m.selected != nil && m.selected.ID == id {
		m.reset()
		m.view = ViewList
	}
	m.notify.Success(msgDeleted)
	return nil
}

// Code returns a copy of the code shown in the detail view, or nil.
func (m *Manager) Code() *qrcode.Graphic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.code.Clone()
}

// ExportCode exports the detail view's code in the background. It returns
// false without calling onDone when no code is shown or an export is
// already running.
func (m *Manager) ExportCode(ctx context.Context, format export.Format, size int, onDone func(*export.Artifact, error)) bool {
	g := m.Code()
	return m.exporter.Start(ctx, g, size, format, onDone)
}

// check must be called with mu held.
func (m *Manager) check(allowed ...View) error {
	if m.saving {
		return ErrBusy
	}
	for _, v := range allowed {
		if m.view == v {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, m.view)
}

func (m *Manager) find(id string) *domain.DesignWithSpace {
	for _, d := range m.designs {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// reset must be called with mu held.
func (m *Manager) reset() {
	m.form = DefaultForm()
	m.staged = nil
	m.selected = nil
	m.code = nil
	m.detailErr = ""
}

// DesignCard is a listed design as the client sees it.
type DesignCard struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Background string              `json:"background"`
	AdSpaceID  string              `json:"adSpaceId"`
	CreatedAt  time.Time           `json:"createdAt"`
	Content    adcontent.Effective `json:"content"`
	Redirect   bool                `json:"redirect"`
	ViewURL    string              `json:"viewUrl,omitempty"`
}

type Snapshot struct {
	View        View         `json:"view"`
	Designs     []DesignCard `json:"designs"`
	Selected    *DesignCard  `json:"selected,omitempty"`
	Form        *FormState   `json:"form,omitempty"`
	StagedMedia string       `json:"stagedMedia,omitempty"`
	Saving      bool         `json:"saving"`
	Exporting   bool         `json:"exporting"`
	DetailError string       `json:"detailError,omitempty"`
	CodeValue   string       `json:"codeValue,omitempty"`
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		View:        m.view,
		Designs:     make([]DesignCard, 0, len(m.designs)),
		Saving:      m.saving,
		Exporting:   m.exporter.InProgress(),
		DetailError: m.detailErr,
	}
	for _, d := range m.designs {
		s.Designs = append(s.Designs, NewDesignCard(d, m.origin))
	}
	if m.selected != nil {
		c := NewDesignCard(m.selected, m.origin)
		s.Selected = &c
	}
	if m.view == ViewCreate || m.view == ViewEdit {
		f := m.form
		s.Form = &f
		if m.staged != nil {
			s.StagedMedia = m.staged.filename
		}
	}
	if m.code != nil {
		s.CodeValue = m.code.Value
	}
	return s
}

// NewDesignCard resolves a design's effective content and, when its ad space
// is known, the viewer URL its code encodes.
func NewDesignCard(d *domain.DesignWithSpace, origin string) DesignCard {
	eff := adcontent.ForDesign(d)
	c := DesignCard{
		ID:         d.ID,
		Name:       d.Name,
		Background: d.Background,
		AdSpaceID:  d.AdSpaceID,
		CreatedAt:  d.CreatedAt,
		Content:    eff,
		Redirect:   eff.IsRedirect(),
	}
	if d.Space != nil && d.Space.ID != "" {
		c.ViewURL = qrcode.ViewURL(origin, d.Space.ID)
	}
	return c
}
