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

package sector

import (
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/trailscout/routefinder/internal/db"
	"github.com/trailscout/routefinder/internal/geometry"
)

// preprocessChunkSize is how many points one conversion task handles.
const preprocessChunkSize = 4096

// normalizedPoints converts the loaded samples into their normalized
// planar coordinates, fanning the conversion out over a transient worker
// pool for large sectors.
func normalizedPoints(points []db.DatabasePoint) ([]geometry.Point, error) {
	out := make([]geometry.Point, len(points))
	if len(points) <= preprocessChunkSize {
		for i, p := range points {
			out[i] = p.Normalized()
		}
		return out, nil
	}

	workers, err := ants.NewPool(runtime.NumCPU(), ants.WithPreAlloc(true))
	if err != nil {
		return nil, err
	}
	defer workers.Release()

	var wg sync.WaitGroup
	chunks := lo.Chunk(lo.Range(len(points)), preprocessChunkSize)
	for _, chunk := range chunks {
		chunk := chunk
		wg.Add(1)
		if err := workers.Submit(func() {
			defer wg.Done()
			for _, i := range chunk {
				out[i] = points[i].Normalized()
			}
		}); err != nil {
			wg.Done()
			return nil, err
		}
	}
	wg.Wait()

	zap.L().Debug("normalized point cloud",
		zap.Int("points", len(points)),
		zap.Int("chunks", len(chunks)))
	return out, nil
}
