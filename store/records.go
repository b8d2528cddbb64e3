// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/curioloop/svfit/analysis"
	"github.com/curioloop/svfit/jet"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

// Key layout. Item indices are zero padded so that key order is insertion order.
const (
	datasetInfoPrefix = "dataset/info/"
	datasetJetPrefix  = "dataset/jet/"
	runInfoPrefix     = "run/info/"
	runRecordPrefix   = "run/record/"
)

func itemKey(prefix string, id uuid.UUID, i int) string {
	return fmt.Sprintf("%s%s/%09d", prefix, id, i)
}

// ErrNotFound is returned for an unknown dataset or run.
var ErrNotFound = errors.New("not found")

// DatasetInfo describes an imported dataset.
type DatasetInfo struct {
	ID       uuid.UUID
	Name     string
	Jets     int
	Imported time.Time
}

// RunInfo describes a batch fit of a dataset.
type RunInfo struct {
	ID      uuid.UUID
	Dataset uuid.UUID
	Records int
	Started time.Time
	// Settings is a free-form description of the fitter setup.
	Settings string
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(v)
	return buf.Bytes(), err
}

func decode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// putItems stores the info value and all items under a fresh id.
func putItems[T any](s *Store, infoPrefix, itemPrefix string, id uuid.UUID, info any, items []T) error {
	keys := make([]string, 0, len(items)+1)
	values := make([][]byte, 0, len(items)+1)
	for i := range items {
		val, err := encode(&items[i])
		if err != nil {
			return err
		}
		keys = append(keys, itemKey(itemPrefix, id, i))
		values = append(values, val)
	}

	// the info key is written last so a listed entry is always complete
	if err := s.AddBatch(keys, values); err != nil {
		return err
	}
	val, err := encode(info)
	if err != nil {
		return err
	}
	return s.Add(map[string][]byte{infoPrefix + id.String(): val})
}

func getItems[T any](s *Store, infoPrefix, itemPrefix string, id uuid.UUID) ([]T, error) {
	if ok, err := s.KeyExists(infoPrefix + id.String()); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	values, err := s.GetWithPrefix(itemPrefix + id.String() + "/")
	if err != nil {
		return nil, err
	}
	items := make([]T, len(values))
	for i, val := range values {
		if err = decode(val, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func getInfo[T any](s *Store, prefix string, id uuid.UUID) (info T, err error) {
	val, err := s.Get(prefix + id.String())
	if errors.Is(err, badger.ErrKeyNotFound) {
		return info, fmt.Errorf("%s: %w", id, ErrNotFound)
	} else if err != nil {
		return info, err
	}
	err = decode(val, &info)
	return
}

func listInfo[T any](s *Store, prefix string, when func(*T) time.Time) ([]T, error) {
	values, err := s.GetWithPrefix(prefix)
	if err != nil {
		return nil, err
	}
	infos := make([]T, len(values))
	for i, val := range values {
		if err = decode(val, &infos[i]); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(infos, func(i, j int) bool {
		return when(&infos[i]).Before(when(&infos[j]))
	})
	return infos, nil
}

// PutDataset stores jets as a new dataset and returns its description.
func (s *Store) PutDataset(name string, jets []jet.Jet) (DatasetInfo, error) {
	info := DatasetInfo{ID: uuid.New(), Name: name, Jets: len(jets), Imported: time.Now().UTC()}
	if err := putItems(s, datasetInfoPrefix, datasetJetPrefix, info.ID, &info, jets); err != nil {
		return DatasetInfo{}, err
	}
	s.logger.Info().Str("dataset", info.ID.String()).Str("name", name).Int("jets", len(jets)).Msg("dataset stored")
	return info, nil
}

// Dataset returns the description of a dataset.
func (s *Store) Dataset(id uuid.UUID) (DatasetInfo, error) {
	return getInfo[DatasetInfo](s, datasetInfoPrefix, id)
}

// Datasets lists the stored datasets, oldest first.
func (s *Store) Datasets() ([]DatasetInfo, error) {
	return listInfo(s, datasetInfoPrefix, func(d *DatasetInfo) time.Time { return d.Imported })
}

// Jets returns the jets of a dataset in import order.
func (s *Store) Jets(id uuid.UUID) ([]jet.Jet, error) {
	return getItems[jet.Jet](s, datasetInfoPrefix, datasetJetPrefix, id)
}

// DeleteDataset removes a dataset and every run made on it.
func (s *Store) DeleteDataset(id uuid.UUID) error {
	runs, err := s.Runs()
	if err != nil {
		return err
	}
	for _, run := range runs {
		if run.Dataset == id {
			if err = s.DeleteRun(run.ID); err != nil {
				return err
			}
		}
	}
	if _, err = s.DelWithPrefix(datasetInfoPrefix + id.String()); err != nil {
		return err
	}
	_, err = s.DelWithPrefix(datasetJetPrefix + id.String() + "/")
	return err
}

// PutRun stores the records of a batch fit of dataset.
func (s *Store) PutRun(dataset uuid.UUID, settings string, records []analysis.Record) (RunInfo, error) {
	if ok, err := s.KeyExists(datasetInfoPrefix + dataset.String()); err != nil {
		return RunInfo{}, err
	} else if !ok {
		return RunInfo{}, fmt.Errorf("dataset %s: %w", dataset, ErrNotFound)
	}

	info := RunInfo{ID: uuid.New(), Dataset: dataset, Records: len(records), Started: time.Now().UTC(), Settings: settings}
	if err := putItems(s, runInfoPrefix, runRecordPrefix, info.ID, &info, records); err != nil {
		return RunInfo{}, err
	}
	s.logger.Info().Str("run", info.ID.String()).Str("dataset", dataset.String()).Int("records", len(records)).Msg("run stored")
	return info, nil
}

// Run returns the description of a run.
func (s *Store) Run(id uuid.UUID) (RunInfo, error) {
	return getInfo[RunInfo](s, runInfoPrefix, id)
}

// Runs lists the stored runs, oldest first.
func (s *Store) Runs() ([]RunInfo, error) {
	return listInfo(s, runInfoPrefix, func(r *RunInfo) time.Time { return r.Started })
}

// Records returns the records of a run in dataset order.
func (s *Store) Records(id uuid.UUID) ([]analysis.Record, error) {
	return getItems[analysis.Record](s, runInfoPrefix, runRecordPrefix, id)
}

// DeleteRun removes a run.
func (s *Store) DeleteRun(id uuid.UUID) error {
	if _, err := s.DelWithPrefix(runInfoPrefix + id.String()); err != nil {
		return err
	}
	_, err := s.DelWithPrefix(runRecordPrefix + id.String() + "/")
	return err
}
