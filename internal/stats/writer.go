// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stats

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrIO marks stats file failures. Writes are dropped until the next
// attempt; the run continues.
var ErrIO = errors.New("stats: file write failure")

// flushInterval is the async writer cadence.
const flushInterval = 5 * time.Second

// CSV headers for the two artifact files.
var (
	iterationHeader = []string{"SectorId", "NumWaypoints", "Iteration", "BestFitness", "IterationTimeSec"}
	duplicateHeader = []string{"SectorId", "NumWaypoints", "Iteration", "NumberDuplicates"}
)

// Flush synchronously writes pending rows to <path>.iteration.csv and
// <path>.duplicates.csv. With append the files are extended without
// headers; otherwise they are recreated with headers first.
func (a *Aggregator) Flush(path string, append bool) error {
	iterations, duplicates := a.drainPending()
	if err := writeCSV(path+".iteration.csv", append, iterationHeader, iterationRecords(iterations)); err != nil {
		return err
	}
	return writeCSV(path+".duplicates.csv", append, duplicateHeader, duplicateRecords(duplicates))
}

// StartWriter launches the async flusher: it first recreates the two stats
// files with headers, then every flushInterval drains pending rows and
// appends them.
func (a *Aggregator) StartWriter(path string) {
	if a.writerStop != nil {
		return
	}
	a.writerStop = make(chan struct{})
	a.writerDone = make(chan struct{})

	go func() {
		defer close(a.writerDone)
		a.ensureHeaders(path)

		ticker := time.NewTicker(flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.flushAppend(path)
			case <-a.writerStop:
				a.flushAppend(path)
				return
			}
		}
	}()
	zap.L().Debug("started stats writer", zap.String("path", path))
}

// StopWriter signals the flusher, waits for the final drain, and clears the
// writer state.
func (a *Aggregator) StopWriter() {
	if a.writerStop == nil {
		return
	}
	close(a.writerStop)
	<-a.writerDone
	a.writerStop = nil
	a.writerDone = nil
}

// ensureHeaders recreates both files with headers.
func (a *Aggregator) ensureHeaders(path string) {
	if err := writeCSV(path+".iteration.csv", false, iterationHeader, nil); err != nil {
		zap.L().Warn("stats header write failed", zap.Error(err))
	}
	if err := writeCSV(path+".duplicates.csv", false, duplicateHeader, nil); err != nil {
		zap.L().Warn("stats header write failed", zap.Error(err))
	}
}

// flushAppend appends pending rows, logging and dropping on failure.
func (a *Aggregator) flushAppend(path string) {
	iterations, duplicates := a.drainPending()
	if len(iterations) == 0 && len(duplicates) == 0 {
		return
	}
	if err := writeCSV(path+".iteration.csv", true, iterationHeader, iterationRecords(iterations)); err != nil {
		zap.L().Warn("iteration stats flush failed", zap.Error(err))
	}
	if err := writeCSV(path+".duplicates.csv", true, duplicateHeader, duplicateRecords(duplicates)); err != nil {
		zap.L().Warn("duplicate stats flush failed", zap.Error(err))
	}
}

func iterationRecords(rows []IterationRow) [][]string {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{
			r.SectorID,
			strconv.Itoa(r.NumWaypoints),
			strconv.Itoa(r.Iteration),
			strconv.FormatFloat(r.BestFitness, 'f', 6, 64),
			strconv.FormatFloat(r.ElapsedSec, 'f', 6, 64),
		}
	}
	return records
}

func duplicateRecords(rows []DuplicateRow) [][]string {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{
			r.SectorID,
			strconv.Itoa(r.NumWaypoints),
			strconv.Itoa(r.Iteration),
			strconv.Itoa(r.Duplicates),
		}
	}
	return records
}

// writeCSV writes records to path. Unless appending, it truncates the file
// and writes the header first.
func writeCSV(path string, appendFile bool, header []string, records [][]string) error {
	flags := os.O_CREATE | os.O_WRONLY
	if appendFile {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return errors.Wrapf(ErrIO, "open %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if !appendFile {
		if err := w.Write(header); err != nil {
			return errors.Wrapf(ErrIO, "header %s: %v", path, err)
		}
	}
	if err := w.WriteAll(records); err != nil {
		return errors.Wrapf(ErrIO, "rows %s: %v", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(ErrIO, "flush %s: %v", path, err)
	}
	return nil
}
