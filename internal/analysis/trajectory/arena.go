package trajectory

import (
	"sort"

	"github.com/jengzang/regps-supervision-go/internal/models"
)

// Stream is one device's samples in ascending timestamp order
type Stream struct {
	DeviceID int64
	Samples  []models.LocationSample
}

// GroupByDevice splits samples into per-device streams ordered by device id.
// The input slice is not modified.
func GroupByDevice(samples []models.LocationSample) []Stream {
	index := make(map[int64]int)
	var streams []Stream

	for _, s := range samples {
		i, ok := index[s.DeviceID]
		if !ok {
			i = len(streams)
			index[s.DeviceID] = i
			streams = append(streams, Stream{DeviceID: s.DeviceID})
		}
		streams[i].Samples = append(streams[i].Samples, s)
	}

	sort.Slice(streams, func(i, j int) bool {
		return streams[i].DeviceID < streams[j].DeviceID
	})
	for i := range streams {
		SortByTime(streams[i].Samples)
	}

	return streams
}

// SortByTime sorts samples by timestamp ascending, keeping arrival order for ties
func SortByTime(samples []models.LocationSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
}
