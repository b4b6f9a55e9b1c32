package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drummonds/pdfcanvas/engine/codec"
	"github.com/drummonds/pdfcanvas/engine/host"
	"github.com/drummonds/pdfcanvas/engine/layout"
	"github.com/uptrace/bun"
)

// SurfaceStore is a host surface kept in the database. Drawables are listed
// in the order they were created; image resources are stored once per content hash.
type SurfaceStore struct {
	db      *bun.DB
	hardMax float64
}

func newSurfaceStore(db *bun.DB, hardMax float64) *SurfaceStore {
	return &SurfaceStore{db: db, hardMax: hardMax}
}

// CreateDrawable returns a detached drawable, rejecting sizes beyond the hard limit
func (s *SurfaceStore) CreateDrawable(kind host.DrawableKind, width, height float64) (*host.Drawable, error) {
	return host.NewDrawable(kind, width, height, s.hardMax)
}

// CreateImage validates and stores PNG bytes
func (s *SurfaceStore) CreateImage(ctx context.Context, data []byte) (host.ImageHandle, error) {
	img, err := codec.DecodeImage(data)
	if err != nil {
		return "", err
	}
	handle := host.ImageHash(data)
	row := &BunImage{
		Hash:      string(handle),
		Data:      data,
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
		CreatedAt: time.Now(),
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (hash) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return handle, nil
}

// Image returns the bytes of a stored image
func (s *SurfaceStore) Image(ctx context.Context, handle host.ImageHandle) ([]byte, error) {
	row := new(BunImage)
	err := s.db.NewSelect().
		Model(row).
		Where("hash = ?", string(handle)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", host.ErrUnknownImage, handle)
	}
	if err != nil {
		return nil, err
	}
	return row.Data, nil
}

// Append stores a drawable with its single image fill
func (s *SurfaceStore) Append(ctx context.Context, d *host.Drawable) error {
	if len(d.Fills) != 1 {
		return fmt.Errorf("drawable %s needs exactly one image fill, has %d", d.ID, len(d.Fills))
	}
	fill := d.Fills[0]

	count, err := s.db.NewSelect().
		Model((*BunImage)(nil)).
		Where("hash = ?", string(fill.Image)).
		Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", host.ErrUnknownImage, fill.Image)
	}

	_, err = s.db.NewInsert().
		Model(&BunDrawable{
			ID:        d.ID,
			Kind:      string(d.Kind),
			Name:      d.Name,
			PageIndex: d.Index,
			X:         d.X,
			Y:         d.Y,
			Width:     d.Width,
			Height:    d.Height,
			ImageHash: string(fill.Image),
			ScaleMode: string(fill.ScaleMode),
			CreatedAt: time.Now(),
		}).
		Exec(ctx)
	return err
}

// Drawables lists every appended drawable, oldest first
func (s *SurfaceStore) Drawables(ctx context.Context) ([]host.Drawable, error) {
	var rows []BunDrawable
	err := s.db.NewSelect().
		Model(&rows).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	drawables := make([]host.Drawable, 0, len(rows))
	for _, row := range rows {
		drawables = append(drawables, row.ToDrawable())
	}
	return drawables, nil
}

func (s *SurfaceStore) state(ctx context.Context) (*BunSurfaceState, error) {
	st := &BunSurfaceState{ID: 1}
	if err := s.db.NewSelect().Model(st).WherePK().Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to read surface state: %w", err)
	}
	return st, nil
}

func (s *SurfaceStore) updateState(ctx context.Context, column string, value any) error {
	_, err := s.db.NewUpdate().
		Model((*BunSurfaceState)(nil)).
		Set("? = ?", bun.Ident(column), value).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", 1).
		Exec(ctx)
	return err
}

// ViewportCenter returns the centre of the host viewport
func (s *SurfaceStore) ViewportCenter(ctx context.Context) (layout.Point, error) {
	st, err := s.state(ctx)
	if err != nil {
		return layout.Point{}, err
	}
	return layout.Point{X: st.CenterX, Y: st.CenterY}, nil
}

// SetViewportCenter moves the host viewport
func (s *SurfaceStore) SetViewportCenter(ctx context.Context, p layout.Point) error {
	_, err := s.db.NewUpdate().
		Model((*BunSurfaceState)(nil)).
		Set("center_x = ?", p.X).
		Set("center_y = ?", p.Y).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", 1).
		Exec(ctx)
	return err
}

// SetSelection replaces the selected drawables
func (s *SurfaceStore) SetSelection(ctx context.Context, ids []string) error {
	return s.updateState(ctx, "selection", strings.Join(ids, ","))
}

// ScrollIntoView records the drawables the viewport was asked to show
func (s *SurfaceStore) ScrollIntoView(ctx context.Context, ids []string) error {
	return s.updateState(ctx, "scrolled_to", strings.Join(ids, ","))
}

// Selection returns the selected drawable ids
func (s *SurfaceStore) Selection(ctx context.Context) ([]string, error) {
	st, err := s.state(ctx)
	if err != nil {
		return nil, err
	}
	if st.Selection == "" {
		return nil, nil
	}
	return strings.Split(st.Selection, ","), nil
}
