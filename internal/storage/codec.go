package storage

import (
	"encoding/json"
	"errors"

	"techrace/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

// Stamp fills in the current versions on records that carry none.
func Stamp(v *model.VersionedRecord) {
	if v.SchemaVersion == 0 && v.CodecVersion == 0 {
		*v = CurrentVersion()
	}
}

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeStepMetrics(metrics []model.StepMetrics) ([]byte, error) {
	return json.Marshal(metrics)
}

func DecodeStepMetrics(data []byte) ([]model.StepMetrics, error) {
	var metrics []model.StepMetrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, err
	}
	for _, m := range metrics {
		if err := checkVersion(m.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return metrics, nil
}

func EncodeFirms(firms []model.Firm) ([]byte, error) {
	return json.Marshal(firms)
}

func DecodeFirms(data []byte) ([]model.Firm, error) {
	var firms []model.Firm
	if err := json.Unmarshal(data, &firms); err != nil {
		return nil, err
	}
	return firms, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func stampedMetrics(metrics []model.StepMetrics) []model.StepMetrics {
	copied := make([]model.StepMetrics, len(metrics))
	for i, m := range metrics {
		Stamp(&m.VersionedRecord)
		m.Firms = append([]model.FirmSnapshot(nil), m.Firms...)
		copied[i] = m
	}
	return copied
}
