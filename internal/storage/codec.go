package storage

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/bartoszstec/tic-tac-toe/internal/board"
	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/internal/qtable"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func currentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

// TableRecord is the on-disk form of a value table. Vectors follow
// board.Actions order.
type TableRecord struct {
	model.VersionedRecord
	Entries map[string]qtable.Values `json:"entries"`
}

func EncodeTable(t *qtable.Table) ([]byte, error) {
	rec := TableRecord{VersionedRecord: currentVersion(), Entries: make(map[string]qtable.Values, t.Len())}
	for k, v := range t.Entries() {
		rec.Entries[string(k)] = v
	}
	return json.Marshal(rec)
}

func DecodeTable(data []byte) (*qtable.Table, error) {
	var rec TableRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if err := checkVersion(rec.VersionedRecord); err != nil {
		return nil, err
	}
	entries := make(map[board.Key]qtable.Values, len(rec.Entries))
	for raw, v := range rec.Entries {
		k, err := board.ParseKey(raw)
		if err != nil {
			return nil, err
		}
		entries[k] = v
	}
	return qtable.FromEntries(entries), nil
}

type checkpointsRecord struct {
	model.VersionedRecord
	RunID       string             `json:"run_id"`
	Checkpoints []model.Checkpoint `json:"checkpoints"`
}

func EncodeCheckpoints(runID string, checkpoints []model.Checkpoint) ([]byte, error) {
	return json.Marshal(checkpointsRecord{VersionedRecord: currentVersion(), RunID: runID, Checkpoints: checkpoints})
}

func DecodeCheckpoints(data []byte) ([]model.Checkpoint, error) {
	var rec checkpointsRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if err := checkVersion(rec.VersionedRecord); err != nil {
		return nil, err
	}
	return rec.Checkpoints, nil
}

func EncodeEvaluation(r model.EvaluationRecord) ([]byte, error) {
	r.VersionedRecord = currentVersion()
	return json.Marshal(r)
}

func DecodeEvaluation(data []byte) (model.EvaluationRecord, error) {
	var rec model.EvaluationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.EvaluationRecord{}, err
	}
	if err := checkVersion(rec.VersionedRecord); err != nil {
		return model.EvaluationRecord{}, err
	}
	return rec, nil
}

func EncodeGame(g model.GameRecord) ([]byte, error) {
	g.VersionedRecord = currentVersion()
	return json.Marshal(g)
}

func DecodeGame(data []byte) (model.GameRecord, error) {
	var rec model.GameRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.GameRecord{}, err
	}
	if err := checkVersion(rec.VersionedRecord); err != nil {
		return model.GameRecord{}, err
	}
	return rec, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return errors.Wrapf(ErrVersionMismatch, "got schema=%d codec=%d", v.SchemaVersion, v.CodecVersion)
	}
	return nil
}
