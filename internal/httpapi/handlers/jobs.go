package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"turntable/internal/httpkit"
	"turntable/internal/models"
	"turntable/internal/orbit"
	"turntable/internal/pkg/errors"
	"turntable/internal/scene"
	"turntable/internal/worker/util"
)

const maxJobBody = 1 << 20

// Job statuses as stored in jobs.status.
const (
	statusQueued   = "QUEUED"
	statusRunning  = "RUNNING"
	statusDone     = "DONE"
	statusFailed   = "FAILED"
	statusCanceled = "CANCELED"
)

const assetKindMesh = "mesh"

// readJobConfig decodes the request body as an orbit job config over the
// defaults and resolves its object.
func (h *Handler) readJobConfig(w http.ResponseWriter, r *http.Request) (orbit.Config, *models.SceneObject, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJobBody))
	if err != nil {
		return orbit.Config{}, nil, errors.Validation("request body too large or unreadable")
	}

	cfg, err := orbit.DecodeConfig(body)
	if err != nil {
		return orbit.Config{}, nil, err
	}

	obj, err := h.objects.GetByName(r.Context(), cfg.ObjectName)
	if err != nil {
		if errors.IsNotFound(err) {
			return orbit.Config{}, nil, errors.Configuration("object_name", "unknown object %q", cfg.ObjectName)
		}
		return orbit.Config{}, nil, errors.Wrap(err, "jobs.object", "db query failed")
	}
	return cfg, obj, nil
}

func (h *Handler) PostJob(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	cfg, obj, err := h.readJobConfig(w, r)
	if err != nil {
		return err
	}

	// An orbit that cannot aim at the object fails here instead of in the worker.
	if _, err := orbit.InitialPose(obj.Location, cfg.Radius); err != nil {
		return err
	}

	jobID := util.NewID("job")
	paramsBytes, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "jobs.encode", "failed to encode job params")
	}

	createdAt := time.Now().UTC()
	_, err = h.pool.Exec(ctx,
		`INSERT INTO jobs (id, object_name, status, params_json, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		jobID, cfg.ObjectName, statusQueued, string(paramsBytes), createdAt,
	)
	if err != nil {
		return errors.Wrap(err, "jobs.insert", "db insert failed")
	}

	if err := h.queue.Push(ctx, jobID); err != nil {
		_, _ = h.pool.Exec(context.WithoutCancel(ctx),
			`UPDATE jobs SET status=$2, finished_at=NOW(), error_text=$3, error_code=$4 WHERE id=$1`,
			jobID, statusFailed, "queue push failed", string(errors.CodeUnavailable),
		)
		return errors.WrapWithCode(err, errors.CodeUnavailable, "jobs.enqueue", "queue push failed")
	}

	h.log.FromContext(ctx).WithJobID(jobID).WithObject(cfg.ObjectName).Info("job queued",
		"frames", cfg.NumFrames,
		"radius", cfg.Radius,
	)

	httpkit.WriteJSON(w, http.StatusCreated, map[string]any{
		"job": map[string]any{
			"id":          jobID,
			"object_name": cfg.ObjectName,
			"status":      statusQueued,
			"params":      cfg,
			"created_at":  createdAt,
		},
	})
	return nil
}

// PostPlan answers with the frames a job would render, without queueing it.
func (h *Handler) PostPlan(w http.ResponseWriter, r *http.Request) error {
	cfg, obj, err := h.readJobConfig(w, r)
	if err != nil {
		return err
	}

	plan, err := previewPlan(obj, cfg)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"plan": plan})
	return nil
}

// previewPlan plans cfg against obj. The worker chooses the job's frame
// directory, so frame paths are relative to it.
func previewPlan(obj *models.SceneObject, cfg orbit.Config) (*orbit.Result, error) {
	start, end := obj.FrameStart, obj.FrameEnd
	if start == 0 && end == 0 {
		start, end = scene.DefaultFrameStart, scene.DefaultFrameEnd
	}
	cfg.OutputPath = "."
	return orbit.Plan(obj.Location, cfg, "", orbit.Cursor{Start: start, End: end})
}

type jobItem struct {
	ID         string     `json:"id"`
	ObjectName string     `json:"object_name"`
	Status     string     `json:"status"`
	FramesDone int        `json:"frames_done"`
	ErrorCode  string     `json:"error_code,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func parseLimit(raw string) int {
	limit := 50
	if raw = strings.TrimSpace(raw); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	return limit
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	object := strings.TrimSpace(r.URL.Query().Get("object"))
	limit := parseLimit(r.URL.Query().Get("limit"))

	rows, err := h.pool.Query(ctx,
		`SELECT id, object_name, status, frames_done, COALESCE(error_code,''), created_at, finished_at
		 FROM jobs
		 WHERE ($1 = '' OR status = $1) AND ($2 = '' OR object_name = $2)
		 ORDER BY created_at DESC
		 LIMIT $3`,
		status, object, limit,
	)
	if err != nil {
		return errors.Wrap(err, "jobs.list", "db query failed")
	}
	defer rows.Close()

	out := make([]jobItem, 0, limit)
	for rows.Next() {
		var it jobItem
		if err := rows.Scan(&it.ID, &it.ObjectName, &it.Status, &it.FramesDone, &it.ErrorCode, &it.CreatedAt, &it.FinishedAt); err != nil {
			return errors.Wrap(err, "jobs.list", "row scan failed")
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "jobs.list", "row iteration failed")
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"jobs": out})
	return nil
}

type frameItem struct {
	Index          int        `json:"index"`
	AnimationFrame int        `json:"animation_frame"`
	AssetID        string     `json:"asset_id"`
	ObjectKey      string     `json:"object_key"`
	Position       [3]float64 `json:"position"`
	Yaw            float64    `json:"yaw"`
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	var (
		it                    jobItem
		paramsJSON, errorText string
		startedAt             *time.Time
	)
	err := h.pool.QueryRow(ctx,
		`SELECT id, object_name, status, frames_done, COALESCE(error_code,''), COALESCE(error_text,''),
		        params_json::text, created_at, started_at, finished_at
		 FROM jobs WHERE id=$1`,
		jobID,
	).Scan(&it.ID, &it.ObjectName, &it.Status, &it.FramesDone, &it.ErrorCode, &errorText,
		&paramsJSON, &it.CreatedAt, &startedAt, &it.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.NotFound("job", jobID)
		}
		return errors.Wrap(err, "jobs.get", "db query failed")
	}

	var params map[string]any
	_ = json.Unmarshal([]byte(paramsJSON), &params)

	rows, err := h.pool.Query(ctx,
		`SELECT f.frame_index, f.animation_frame, f.asset_id, a.object_key, f.pos_x, f.pos_y, f.pos_z, f.yaw
		 FROM job_frames f JOIN assets a ON a.id = f.asset_id
		 WHERE f.job_id=$1 ORDER BY f.frame_index ASC`,
		jobID,
	)
	if err != nil {
		return errors.Wrap(err, "jobs.frames", "db frames query failed")
	}
	defer rows.Close()

	frames := []frameItem{}
	for rows.Next() {
		var f frameItem
		if err := rows.Scan(&f.Index, &f.AnimationFrame, &f.AssetID, &f.ObjectKey,
			&f.Position[0], &f.Position[1], &f.Position[2], &f.Yaw); err != nil {
			return errors.Wrap(err, "jobs.frames", "frames scan failed")
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "jobs.frames", "frames iteration failed")
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"job": map[string]any{
			"id":          it.ID,
			"object_name": it.ObjectName,
			"status":      it.Status,
			"params":      params,
			"frames_done": it.FramesDone,
			"error_code":  it.ErrorCode,
			"error_text":  errorText,
			"created_at":  it.CreatedAt,
			"started_at":  startedAt,
			"finished_at": it.FinishedAt,
			"frames":      frames,
		},
	})
	return nil
}

func isTerminal(status string) bool {
	switch status {
	case statusDone, statusFailed, statusCanceled:
		return true
	}
	return false
}

// CancelJob flags a queued or running job for cancellation. The worker
// records the CANCELED status once it observes the flag.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	var status string
	err := h.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id=$1`, jobID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.NotFound("job", jobID)
		}
		return errors.Wrap(err, "jobs.cancel", "db query failed")
	}
	if isTerminal(status) {
		return errors.Conflict("job already finished").WithField("status", status)
	}

	if err := h.queue.RequestCancel(ctx, jobID); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "jobs.cancel", "cancel request failed")
	}

	h.log.FromContext(ctx).WithJobID(jobID).Info("job cancel requested", "status", status)
	httpkit.WriteJSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": status,
		"cancel": "requested",
	})
	return nil
}
