package stats

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/bartoszstec/tic-tac-toe/internal/model"
)

const evaluationLogFile = "evaluations.jsonl"

// AppendEvaluationLog mirrors an evaluation record into the artifacts
// directory as one JSON line. Earlier lines are never rewritten.
func AppendEvaluationLog(baseDir string, record model.EvaluationRecord) error {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "encode evaluation")
	}

	f, err := os.OpenFile(filepath.Join(baseDir, evaluationLogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(f.Close())
}

// ReadEvaluationLog returns records in file order.
func ReadEvaluationLog(baseDir string) ([]model.EvaluationRecord, error) {
	f, err := os.Open(filepath.Join(baseDir, evaluationLogFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []model.EvaluationRecord{}, nil
		}
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	records := []model.EvaluationRecord{}
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec model.EvaluationRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, errors.Wrapf(err, "evaluation log line %d", line)
		}
		records = append(records, rec)
	}
	return records, errors.WithStack(scanner.Err())
}
