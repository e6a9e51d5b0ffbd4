package export

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/threatgraph/pkg/debug"
)

// Job is one file to write.
type Job struct {
	Path   string
	Format Format
	Frame  Frame
}

// JobsFor expands a frame into one job per format, named
// <dir>/<mode token>.<ext>.
func JobsFor(dir string, f Frame, formats ...Format) []Job {
	jobs := make([]Job, 0, len(formats))
	for _, format := range formats {
		ext := string(format)
		if format == FormatSQLite {
			ext = "sqlite3"
		}
		jobs = append(jobs, Job{
			Path:   filepath.Join(dir, fmt.Sprintf("%s.%s", f.Mode.Token(), ext)),
			Format: format,
			Frame:  f,
		})
	}
	return jobs
}

// RenderBatch writes all jobs concurrently, at most limit at a time (0 means
// no limit). The first failure cancels the jobs that have not started.
func RenderBatch(ctx context.Context, jobs []Job, limit int) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := Save(ctx, job.Path, job.Format, job.Frame); err != nil {
				return fmt.Errorf("export %s: %w", job.Path, err)
			}
			debug.Log("export: wrote %s", job.Path)
			return nil
		})
	}
	return g.Wait()
}
