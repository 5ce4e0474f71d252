package render

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/shaunagostinho/cellscope/internal/plot"
)

// FileSink renders artifacts as PNG files named after their handle. Updates
// overwrite the file in place.
type FileSink struct {
	dir string
	log *zap.SugaredLogger
}

var _ plot.Sink = (*FileSink)(nil)

func NewFileSink(dir string, log *zap.Logger) *FileSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileSink{dir: dir, log: log.Named("render").Sugar()}
}

func (s *FileSink) Create(fig *plot.Figure) (plot.Handle, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", errors.Wrapf(err, "mkdir %s", s.dir)
	}
	h := plot.Handle(uuid.NewString())
	if err := s.write(h, fig); err != nil {
		return "", err
	}
	s.log.Infof("created %s", s.Path(h))
	return h, nil
}

func (s *FileSink) Update(h plot.Handle, fig *plot.Figure) error {
	if err := s.write(h, fig); err != nil {
		return err
	}
	s.log.Debugf("updated %s", s.Path(h))
	return nil
}

// Path is the file an artifact is written to.
func (s *FileSink) Path(h plot.Handle) string {
	return filepath.Join(s.dir, string(h)+".png")
}

func (s *FileSink) write(h plot.Handle, fig *plot.Figure) error {
	data, err := PNG(fig)
	if err != nil {
		return err
	}
	tmp := s.Path(h) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, s.Path(h)), "rename %s", tmp)
}
