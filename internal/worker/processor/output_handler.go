package processor

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"turntable/internal/ports"
	"turntable/internal/worker/util"
)

type OutputHandler struct {
	pool         *pgxpool.Pool
	sp           ports.StorageProvider
	storageRoot  string
	cleanupLocal bool
}

func NewOutputHandler(pool *pgxpool.Pool, sp ports.StorageProvider, storageRoot string, cleanupLocal bool) *OutputHandler {
	return &OutputHandler{
		pool:         pool,
		sp:           sp,
		storageRoot:  storageRoot,
		cleanupLocal: cleanupLocal,
	}
}

// RegisterFrame uploads one rendered frame and records it as an asset and a
// job_frames row in a single transaction.
func (oh *OutputHandler) RegisterFrame(ctx context.Context, req RegisterFrameRequest) (*FrameResult, error) {
	objectKey, err := ObjectKey(oh.storageRoot, req.Frame.File)
	if err != nil {
		return nil, err
	}

	result, err := oh.upload(ctx, objectKey, req.Frame.File, MimeForFormat(req.Frame.Format))
	if err != nil {
		return nil, err
	}

	pose := req.Frame.Pose
	err = pgx.BeginFunc(ctx, oh.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO assets (id, kind, provider, object_key, mime, size_bytes)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			result.AssetID, AssetKindFrame, oh.sp.Provider(), result.ObjectKey, MimeForFormat(req.Frame.Format), result.Size,
		); err != nil {
			return fmt.Errorf("failed to register asset in DB: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO job_frames (job_id, frame_index, animation_frame, asset_id, pos_x, pos_y, pos_z, yaw)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			req.JobID, req.Index, req.Frame.Frame, result.AssetID,
			pose.Position.X(), pose.Position.Y(), pose.Position.Z(), pose.Rotation.Yaw,
		); err != nil {
			return fmt.Errorf("failed to register frame in DB: %w", err)
		}

		_, err := tx.Exec(ctx,
			`UPDATE jobs SET frames_done=$2 WHERE id=$1`,
			req.JobID, req.Index+1,
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	oh.maybeCleanupFile(req.Frame.File)
	return result, nil
}

func (oh *OutputHandler) upload(ctx context.Context, objectKey, localPath, mime string) (*FrameResult, error) {
	st, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("frame file not found: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	out, err := oh.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: mime,
		Reader:      f,
		Size:        st.Size(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload frame: %w", err)
	}

	return &FrameResult{
		AssetID:   util.NewID("ast"),
		ObjectKey: out.ObjectKey,
		Size:      out.Size,
	}, nil
}

func (oh *OutputHandler) maybeCleanupFile(localPath string) {
	if !oh.cleanupLocal || oh.sp.Provider() != "gdrive" {
		return
	}
	_ = os.Remove(localPath)
}
