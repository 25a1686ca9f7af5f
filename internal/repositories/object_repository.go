package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"turntable/internal/httpkit"
	"turntable/internal/models"
	"turntable/internal/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.CodeNotFound, "scene object not found")
	ErrObjectExists   = errors.New(errors.CodeConflict, "scene object name already exists")
)

type ObjectRepository struct {
	db *pgxpool.Pool
}

func NewObjectRepository(db *pgxpool.Pool) *ObjectRepository {
	return &ObjectRepository{db: db}
}

const objectColumns = `id, name, loc_x, loc_y, loc_z, COALESCE(mesh_asset_id, ''), frame_start, frame_end, created_at, deleted_at`

func scanObject(row pgx.Row) (*models.SceneObject, error) {
	var o models.SceneObject
	err := row.Scan(
		&o.ID,
		&o.Name,
		&o.Location[0],
		&o.Location[1],
		&o.Location[2],
		&o.MeshAssetID,
		&o.FrameStart,
		&o.FrameEnd,
		&o.CreatedAt,
		&o.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *ObjectRepository) Create(ctx context.Context, o *models.SceneObject) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO scene_objects (id, name, loc_x, loc_y, loc_z, mesh_asset_id, frame_start, frame_end)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8)
		RETURNING created_at
	`, o.ID, o.Name, o.Location.X(), o.Location.Y(), o.Location.Z(), o.MeshAssetID, o.FrameStart, o.FrameEnd).
		Scan(&o.CreatedAt)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ErrObjectExists
		}
		return err
	}
	return nil
}

func (r *ObjectRepository) List(ctx context.Context) ([]models.SceneObject, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+objectColumns+`
		FROM scene_objects
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.SceneObject{}
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// GetByName returns the live object with the given name.
func (r *ObjectRepository) GetByName(ctx context.Context, name string) (*models.SceneObject, error) {
	o, err := scanObject(r.db.QueryRow(ctx, `
		SELECT `+objectColumns+`
		FROM scene_objects
		WHERE name=$1 AND deleted_at IS NULL
	`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return o, nil
}

// Delete soft-deletes the object so past jobs keep their reference.
func (r *ObjectRepository) Delete(ctx context.Context, name string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE scene_objects
		SET deleted_at=now()
		WHERE name=$1 AND deleted_at IS NULL
	`, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrObjectNotFound
	}
	return nil
}
