package IO

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TrainLog appends one CSV row per optimizer step.
type TrainLog struct {
	RunID string

	f     *os.File
	w     *csv.Writer
	start time.Time
}

var trainLogHeader = []string{"run_id", "task", "epoch", "step", "loss", "lr", "elapsed_ms"}

// CreateTrainLog creates or truncates path and writes the header.
func CreateTrainLog(path string) (*TrainLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create training log")
	}
	l := &TrainLog{RunID: uuid.NewString(), f: f, w: csv.NewWriter(f), start: time.Now()}
	if err := l.w.Write(trainLogHeader); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "write log header")
	}
	return l, nil
}

func (l *TrainLog) Record(task string, epoch, step int, loss, lr float64) error {
	row := []string{
		l.RunID,
		task,
		strconv.Itoa(epoch),
		strconv.Itoa(step),
		strconv.FormatFloat(loss, 'g', 8, 64),
		strconv.FormatFloat(lr, 'g', 8, 64),
		strconv.FormatInt(time.Since(l.start).Milliseconds(), 10),
	}
	return errors.Wrap(l.w.Write(row), "write log row")
}

func (l *TrainLog) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return errors.Wrap(err, "flush training log")
	}
	return l.f.Close()
}
