package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ontomap/ontomap-backend/internal/domain"
	"github.com/ontomap/ontomap-backend/internal/repos"
	"github.com/ontomap/ontomap-backend/internal/services"
)

/*
Context is the capability-scoped execution handle for a single claimed job.
It wraps the DB handle, the mutable job_run row, the notification side
channel, and the only sanctioned ways to report progress or terminate the
run. Pipelines never write job_run rows directly; every transition goes
through the running-status guard so a watchdog timeout that lands first
always wins.
*/
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Job     *domain.JobRun
	Repo    repos.JobRunRepo
	Notify  services.JobNotifier
	payload map[string]any
}

// NewContext builds the handle for a claimed job and eagerly decodes the
// payload JSON. Decode failures are non-fatal here; handlers validate the
// fields they need.
func NewContext(ctx context.Context, db *gorm.DB, job *domain.JobRun, repo repos.JobRunRepo, notify services.JobNotifier) *Context {
	c := &Context{
		Ctx:    ctx,
		DB:     db,
		Job:    job,
		Repo:   repo,
		Notify: notify,
	}
	_ = c.decodePayload()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// PayloadUUID reads a payload field and parses it as a UUID, returning
// (uuid.Nil, false) on any miss so pipelines don't repeat parse boilerplate.
func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(fmt.Sprint(v))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// PayloadString reads a payload field as a trimmed string; missing keys
// yield "".
func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

/*
Progress publishes a non-terminal update: fractional progress in [0,1] plus
a human message, with a heartbeat so the watchdog sees the run as live. The
write is guarded on status=running; once the row is terminal the update is
dropped silently and no event is emitted.
*/
func (c *Context) Progress(pct float64, msg string) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	now := time.Now()

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateIfRunning(ctx, nil, c.Job.ID, map[string]interface{}{
			"progress":     pct,
			"message":      msg,
			"heartbeat_at": now,
		})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Progress = pct
		c.Job.Message = msg
		c.Job.HeartbeatAt = &now
	}

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobProgress(ctx, c.Job, pct, msg)
	}
}

// Heartbeat refreshes heartbeat_at without touching progress. Pipelines call
// it inside long loops that have no progress granularity.
func (c *Context) Heartbeat() {
	if c == nil || c.Repo == nil || c.Job == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_ = c.Repo.Heartbeat(ctx, nil, c.Job.ID)
}

/*
Complete marks the run succeeded: status=completed, progress=1, and the
serialized result payload. Guarded on status=running, so a concurrent
timeout transition is never overwritten.
*/
func (c *Context) Complete(result any) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateIfRunning(ctx, nil, c.Job.ID, map[string]interface{}{
			"status":       domain.JobStatusCompleted,
			"progress":     1.0,
			"message":      "",
			"error":        "",
			"error_code":   "",
			"result":       res,
			"heartbeat_at": now,
			"completed_at": now,
		})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Status = domain.JobStatusCompleted
		c.Job.Progress = 1
		c.Job.Message = ""
		c.Job.Error = ""
		c.Job.ErrorCode = ""
		c.Job.Result = res
		c.Job.HeartbeatAt = &now
		c.Job.CompletedAt = &now
	}

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobCompleted(ctx, c.Job)
	}
}

// Fail marks the run failed with a machine-readable code and message.
func (c *Context) Fail(code string, err error) {
	c.failWith(code, err, nil)
}

// FailWithResult also persists a partial result (e.g. records committed
// before a mid-stream materialization failure).
func (c *Context) FailWithResult(code string, err error, partial any) {
	c.failWith(code, err, partial)
}

func (c *Context) failWith(code string, err error, partial any) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if code == "" {
		code = domain.ErrCodeInternal
	}
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	updates := map[string]interface{}{
		"status":       domain.JobStatusFailed,
		"message":      "",
		"error":        msg,
		"error_code":   code,
		"completed_at": now,
	}
	var res datatypes.JSON
	if partial != nil {
		b, mErr := json.Marshal(partial)
		if mErr == nil {
			res = datatypes.JSON(b)
			updates["result"] = res
		}
	}

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateIfRunning(ctx, nil, c.Job.ID, updates)
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Status = domain.JobStatusFailed
		c.Job.Message = ""
		c.Job.Error = msg
		c.Job.ErrorCode = code
		c.Job.CompletedAt = &now
		if res != nil {
			c.Job.Result = res
		}
	}

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobFailed(ctx, c.Job, code, msg)
	}
}
