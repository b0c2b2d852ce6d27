package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/adbuilder/internal/blobstore"
	"github.com/vbonduro/adbuilder/internal/db"
	"github.com/vbonduro/adbuilder/internal/domain"
	"github.com/vbonduro/adbuilder/internal/store"
)

// stubBlobStore is a minimal in-memory blobstore.Store for tests.
type stubBlobStore struct {
	saved     map[string][]byte
	uploadErr error
	deleted   []string
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{saved: make(map[string][]byte)}
}

func (s *stubBlobStore) Upload(_ context.Context, objectPath, _ string, r io.Reader) (blobstore.Ref, error) {
	if s.uploadErr != nil {
		return blobstore.Ref{}, s.uploadErr
	}
	data, _ := io.ReadAll(r)
	key := "ad_images/" + objectPath
	s.saved[key] = data
	return blobstore.Ref{Key: key}, nil
}

func (s *stubBlobStore) PublicURL(ref blobstore.Ref) string {
	return "https://cdn.test/" + ref.Key
}

func (s *stubBlobStore) Delete(_ context.Context, key string) error {
	delete(s.saved, key)
	s.deleted = append(s.deleted, key)
	return nil
}

// failingDesignStore fails design writes while passing reads through.
type failingDesignStore struct {
	*store.AdDesignStore
	err error
}

func (f *failingDesignStore) Create(context.Context, *string, string, domain.DesignFields) (*domain.DesignWithSpace, error) {
	return nil, f.err
}

func (f *failingDesignStore) Update(context.Context, string, domain.DesignFields) (*domain.DesignWithSpace, error) {
	return nil, f.err
}

type testEnv struct {
	svc     *AdService
	spaces  *store.AdSpaceStore
	designs *store.AdDesignStore
	blobs   *stubBlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	env := &testEnv{
		spaces:  store.NewAdSpaceStore(d),
		designs: store.NewAdDesignStore(d),
		blobs:   newStubBlobStore(),
	}
	env.svc = NewAdService(env.spaces, env.designs, env.blobs, slog.Default())
	return env
}

func strPtr(s string) *string { return &s }

func redirectInput(name, url string) SaveInput {
	return SaveInput{
		Name:       name,
		Background: "#FFFFFF",
		Content:    domain.AdContent{Mode: domain.ModeRedirect, RedirectURL: url},
	}
}

func TestAdServiceCreateDesign_Redirect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	design, err := env.svc.CreateDesign(ctx, strPtr("user-1"), redirectInput("Sale", "https://shop.example/sale"))
	require.NoError(t, err)

	assert.Equal(t, domain.StoredContent{RedirectURL: "https://shop.example/sale"}, design.Content)
	require.NotNil(t, design.Space)
	assert.Equal(t, design.AdSpaceID, design.Space.ID)

	space, err := env.spaces.GetByID(ctx, design.AdSpaceID)
	require.NoError(t, err)
	require.NotNil(t, space)
	assert.Equal(t, domain.StoredContent{URL: "https://shop.example/sale"}, space.Content)
	assert.Equal(t, "Sale", space.Title)
	assert.Equal(t, "Ad space for Sale", space.Description)
	assert.Equal(t, domain.Theme{BackgroundColor: "#FFFFFF", TextColor: "#FFFFFF"}, space.Theme)
	assert.Equal(t, "user-1", *space.OwnerID)
}

func TestAdServiceCreateDesign_CustomWritesSameShapeToBoth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	design, err := env.svc.CreateDesign(ctx, nil, SaveInput{
		Name:       "Launch",
		Background: "#112233",
		Content: domain.AdContent{
			Mode:         domain.ModeCustom,
			MediaType:    domain.MediaVideo,
			MediaURL:     "https://cdn.test/clip.mp4",
			Headline:     "New",
			ShowHeadline: true,
		},
	})
	require.NoError(t, err)

	space, err := env.spaces.GetByID(ctx, design.AdSpaceID)
	require.NoError(t, err)
	assert.Equal(t, design.Content, space.Content)
	assert.Equal(t, "Custom media ad", space.Description)
	assert.Equal(t, "#112233", space.Theme.BackgroundColor)
	assert.Nil(t, space.OwnerID)
	assert.Nil(t, design.OwnerID)
}

func TestAdServiceCreateDesign_PartialSave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cause := errors.New("disk full")
	svc := NewAdService(env.spaces, &failingDesignStore{AdDesignStore: env.designs, err: cause}, env.blobs, slog.Default())

	_, err := svc.CreateDesign(ctx, strPtr("user-1"), redirectInput("Sale", "https://shop.example/sale"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialSave)
	assert.ErrorIs(t, err, cause)

	// No rollback: the design list is empty but the space row survives.
	designs, err := env.designs.ListByOwner(ctx, strPtr("user-1"))
	require.NoError(t, err)
	assert.Empty(t, designs)
}

func TestAdServiceUpdateDesign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateDesign(ctx, nil, redirectInput("Sale", "https://shop.example/sale"))
	require.NoError(t, err)

	updated, err := env.svc.UpdateDesign(ctx, created, redirectInput("Big Sale", "https://shop.example/big"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.AdSpaceID, updated.AdSpaceID)
	assert.Equal(t, "Big Sale", updated.Name)
	assert.Equal(t, "https://shop.example/big", updated.Content.RedirectURL)
	assert.Equal(t, "https://shop.example/big", updated.Space.Content.URL)
	assert.Equal(t, "Big Sale", updated.Space.Title)
}

func TestAdServiceUpdateDesign_PartialSave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateDesign(ctx, nil, redirectInput("Sale", "https://shop.example/sale"))
	require.NoError(t, err)

	svc := NewAdService(env.spaces, &failingDesignStore{AdDesignStore: env.designs, err: errors.New("boom")}, env.blobs, slog.Default())
	_, err = svc.UpdateDesign(ctx, created, redirectInput("Sale", "https://shop.example/other"))
	assert.ErrorIs(t, err, ErrPartialSave)

	space, err := env.spaces.GetByID(ctx, created.AdSpaceID)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/other", space.Content.URL)
}

func TestAdServiceUpdateDesign_Nil(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.UpdateDesign(context.Background(), nil, redirectInput("x", "https://x.test"))
	assert.Error(t, err)
}

func TestAdServiceListDesigns_ScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateDesign(ctx, strPtr("a"), redirectInput("First", "https://x.test/1"))
	require.NoError(t, err)
	_, err = env.svc.CreateDesign(ctx, strPtr("a"), redirectInput("Second", "https://x.test/2"))
	require.NoError(t, err)
	_, err = env.svc.CreateDesign(ctx, strPtr("b"), redirectInput("Other", "https://x.test/3"))
	require.NoError(t, err)

	designs, err := env.svc.ListDesigns(ctx, strPtr("a"))
	require.NoError(t, err)
	require.Len(t, designs, 2)
	assert.Equal(t, "Second", designs[0].Name)
	assert.Equal(t, "First", designs[1].Name)
}

func TestAdServiceDeleteDesign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateDesign(ctx, nil, redirectInput("Sale", "https://shop.example/sale"))
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteDesign(ctx, nil, created.ID))

	got, err := env.svc.GetDesign(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = env.svc.DeleteDesign(ctx, nil, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdServiceDeleteDesign_OtherOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateDesign(ctx, strPtr("alice"), redirectInput("Sale", "https://shop.example/sale"))
	require.NoError(t, err)

	err = env.svc.DeleteDesign(ctx, strPtr("bob"), created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := env.svc.GetDesign(ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestAdServiceUploadMedia(t *testing.T) {
	env := newTestEnv(t)
	env.svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	ref, err := env.svc.UploadMedia(context.Background(), strPtr("user-1"), "promo.PNG", "image/png", bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	assert.Equal(t, "ad_images/user-1/1700000000000.png", ref.Key)
	assert.Equal(t, "https://cdn.test/ad_images/user-1/1700000000000.png", ref.URL)
	assert.Equal(t, []byte("png"), env.blobs.saved[ref.Key])
}

func TestAdServiceUploadMedia_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	env.svc.now = func() time.Time { return time.UnixMilli(42) }

	ref, err := env.svc.UploadMedia(context.Background(), nil, "", "video/mp4", bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, "ad_images/anonymous/42.mp4", ref.Key)
}

func TestAdServiceUploadMedia_Error(t *testing.T) {
	env := newTestEnv(t)
	env.blobs.uploadErr = errors.New("bucket missing")

	_, err := env.svc.UploadMedia(context.Background(), nil, "a.png", "image/png", bytes.NewReader(nil))
	assert.ErrorContains(t, err, "bucket missing")
}

func TestAdServiceDiscardMedia(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ref, err := env.svc.UploadMedia(ctx, nil, "a.png", "image/png", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	env.svc.DiscardMedia(ctx, ref)
	assert.Equal(t, []string{ref.Key}, env.blobs.deleted)
	assert.NotContains(t, env.blobs.saved, ref.Key)
}

func TestAdServiceResolveView_Redirect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateDesign(ctx, nil, redirectInput("Sale", "https://shop.example/sale"))
	require.NoError(t, err)

	view, err := env.svc.ResolveView(ctx, created.AdSpaceID)
	require.NoError(t, err)
	assert.True(t, view.Content.IsRedirect())
	assert.Equal(t, "https://shop.example/sale", view.Content.RedirectURL)
	assert.Equal(t, created.ID, view.Design.ID)
}

func TestAdServiceResolveView_SpaceWithoutDesign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateDesign(ctx, nil, SaveInput{
		Name:       "Promo",
		Background: "#000000",
		Content:    domain.AdContent{Mode: domain.ModeCustom, MediaURL: "https://cdn.test/a.png", ShowBackground: true},
	})
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteDesign(ctx, nil, created.ID))

	view, err := env.svc.ResolveView(ctx, created.AdSpaceID)
	require.NoError(t, err)
	assert.Nil(t, view.Design)
	assert.False(t, view.Content.IsRedirect())
	assert.Equal(t, "https://cdn.test/a.png", view.Content.MediaURL)
	assert.Equal(t, domain.MediaImage, view.Content.MediaType)
	assert.Equal(t, "#000000", view.Background)
}

func TestAdServiceResolveView_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.ResolveView(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
