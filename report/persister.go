package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teilomillet/prompttech/utils"
)

// TimestampLayout is the second-granularity stamp used in file names and in
// the document's timestamp field.
const TimestampLayout = "20060102_150405"

// maxSuffix bounds the search for a free file name within one second.
const maxSuffix = 1000

// PersistenceError reports a report that could not be written.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("persisting report: %v", e.Err)
	}
	return fmt.Sprintf("persisting report to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persister writes run reports into Dir.
type Persister struct {
	Dir    string
	Now    func() time.Time
	logger utils.Logger
}

func NewPersister(dir string, logger utils.Logger) *Persister {
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Persister{Dir: dir, Now: time.Now, logger: logger}
}

// FileName returns <slug>_results_<timestamp>.json.
func FileName(slug, timestamp string) string {
	return fmt.Sprintf("%s_results_%s.json", slug, timestamp)
}

// Persist stamps the report with the current time and writes it. A file that
// already exists is never overwritten; a numeric suffix is added instead.
func (p *Persister) Persist(r *RunReport) (string, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	r.Timestamp = now().Format(TimestampLayout)

	if strings.ContainsAny(r.Slug, `/\`) {
		return "", &PersistenceError{Err: fmt.Errorf("slug %q contains a path separator", r.Slug)}
	}

	data, err := r.Encode()
	if err != nil {
		return "", &PersistenceError{Err: err}
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return "", &PersistenceError{Path: p.Dir, Err: err}
	}

	path, f, err := p.create(r.Slug, r.Timestamp)
	if err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", &PersistenceError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}

	if p.logger != nil {
		p.logger.Info("Report saved", "path", path, "technique", r.Technique, "records", r.Count())
	}
	return path, nil
}

func (p *Persister) create(slug, timestamp string) (string, *os.File, error) {
	base := FileName(slug, timestamp)
	path := filepath.Join(p.Dir, base)
	for i := 1; ; i++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return path, f, nil
		}
		if !errors.Is(err, fs.ErrExist) || i > maxSuffix {
			return path, nil, err
		}
		path = filepath.Join(p.Dir, fmt.Sprintf("%s_results_%s_%d.json", slug, timestamp, i))
	}
}
