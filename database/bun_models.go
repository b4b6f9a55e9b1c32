package database

import (
	"time"

	"github.com/drummonds/pdfcanvas/engine/host"
	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunJob represents the jobs table for Bun ORM
type BunJob struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID          string     `bun:"id,pk"` // ULID as string
	Type        string     `bun:"type,notnull"`
	Status      string     `bun:"status,default:'pending'"`
	Progress    int        `bun:"progress,default:0"`
	CurrentStep string     `bun:"current_step,default:''"`
	TotalSteps  int        `bun:"total_steps,default:0"`
	Message     string     `bun:"message,default:''"`
	Error       string     `bun:"error,nullzero"`
	Result      string     `bun:"result,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	StartedAt   *time.Time `bun:"started_at,nullzero"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
}

// ToJob converts BunJob to Job
func (bj *BunJob) ToJob() (*Job, error) {
	parsedULID, err := ulid.Parse(bj.ID)
	if err != nil {
		return nil, err
	}

	return &Job{
		ID:          parsedULID,
		Type:        JobType(bj.Type),
		Status:      JobStatus(bj.Status),
		Progress:    bj.Progress,
		CurrentStep: bj.CurrentStep,
		TotalSteps:  bj.TotalSteps,
		Message:     bj.Message,
		Error:       bj.Error,
		Result:      bj.Result,
		CreatedAt:   bj.CreatedAt,
		UpdatedAt:   bj.UpdatedAt,
		StartedAt:   bj.StartedAt,
		CompletedAt: bj.CompletedAt,
	}, nil
}

// FromJob converts Job to BunJob
func FromJob(job *Job) *BunJob {
	return &BunJob{
		ID:          job.ID.String(),
		Type:        string(job.Type),
		Status:      string(job.Status),
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		TotalSteps:  job.TotalSteps,
		Message:     job.Message,
		Error:       job.Error,
		Result:      job.Result,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}

// BunImage represents the images table, image resources keyed by content hash
type BunImage struct {
	bun.BaseModel `bun:"table:images,alias:i"`

	Hash      string    `bun:"hash,pk"` // hex SHA-256 of Data
	Data      []byte    `bun:"data,notnull"`
	Width     int       `bun:"width,notnull"`
	Height    int       `bun:"height,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// BunDrawable represents the drawables table, one row per placed page
type BunDrawable struct {
	bun.BaseModel `bun:"table:drawables,alias:dr"`

	ID        string    `bun:"id,pk"` // ULID as string
	Kind      string    `bun:"kind,notnull"`
	Name      string    `bun:"name,default:''"`
	PageIndex int       `bun:"page_index,notnull"`
	X         float64   `bun:"x,notnull"`
	Y         float64   `bun:"y,notnull"`
	Width     float64   `bun:"width,notnull"`
	Height    float64   `bun:"height,notnull"`
	ImageHash string    `bun:"image_hash,notnull"`
	ScaleMode string    `bun:"scale_mode,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ToDrawable converts BunDrawable to host.Drawable
func (bd *BunDrawable) ToDrawable() host.Drawable {
	return host.Drawable{
		ID:     bd.ID,
		Kind:   host.DrawableKind(bd.Kind),
		Name:   bd.Name,
		Index:  bd.PageIndex,
		X:      bd.X,
		Y:      bd.Y,
		Width:  bd.Width,
		Height: bd.Height,
		Fills:  []host.Paint{{Image: host.ImageHandle(bd.ImageHash), ScaleMode: host.ScaleMode(bd.ScaleMode)}},
	}
}

// BunSurfaceState represents the single row surface_state table
type BunSurfaceState struct {
	bun.BaseModel `bun:"table:surface_state,alias:ss"`

	ID         int       `bun:"id,pk"`
	CenterX    float64   `bun:"center_x,notnull,default:0"`
	CenterY    float64   `bun:"center_y,notnull,default:0"`
	Selection  string    `bun:"selection,default:''"` // comma separated drawable ids
	ScrolledTo string    `bun:"scrolled_to,default:''"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
