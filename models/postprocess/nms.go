package postprocess

import (
	"sort"
	"sync"

	"github.com/nvr-ai/cam-detector/images"
)

// DefaultIoUThreshold is the overlap above which a lower-scored box is suppressed.
const DefaultIoUThreshold float32 = 0.3

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// Overlap threshold for suppression. A candidate is dropped when IoU > threshold.
	IoUThreshold float32 `json:"iouThreshold" yaml:"iouThreshold" validate:"gt=0,lte=1"`
	// If true, suppress only within the same class.
	ClassAware bool `json:"classAware" yaml:"classAware"`
	// Number of classes; class IDs outside [0, NumClasses) are dropped in class-aware mode.
	NumClasses int `json:"numClasses" yaml:"numClasses" validate:"gte=1"`
	// If true, classes are suppressed concurrently.
	Parallel bool `json:"parallel" yaml:"parallel"`
}

// DefaultNMSConfig returns the class-aware configuration used by the detector.
func DefaultNMSConfig(numClasses int) NMSConfig {
	return NMSConfig{
		IoUThreshold: DefaultIoUThreshold,
		ClassAware:   true,
		NumClasses:   numClasses,
	}
}

// ApplyNMS filters overlapping detections using Non-Maximum Suppression.
//
// In class-aware mode the detections are partitioned by class and each partition is
// suppressed independently. The result lists the kept detections of class 0 in descending
// score order, then those of class 1, and so on. Equal scores keep their input order.
//
// Arguments:
//   - detections: Detections in any order. The slice is not modified.
//   - config: NMS configuration.
//
// Returns:
//   - []Detection: The kept detections. Empty input yields an empty, non-nil slice.
func ApplyNMS(detections []Detection, config NMSConfig) []Detection {
	if !config.ClassAware {
		return ApplyGreedyNMS(sortedByScore(detections), config.IoUThreshold)
	}

	buckets := make([][]Detection, config.NumClasses)
	for _, d := range detections {
		if d.ClassID < 0 || d.ClassID >= config.NumClasses {
			continue
		}
		buckets[d.ClassID] = append(buckets[d.ClassID], d)
	}

	kept := make([][]Detection, config.NumClasses)
	suppress := func(class int) {
		kept[class] = ApplyGreedyNMS(sortedByScore(buckets[class]), config.IoUThreshold)
	}

	if config.Parallel {
		var wg sync.WaitGroup
		for class := range buckets {
			wg.Add(1)
			go func(class int) {
				defer wg.Done()
				suppress(class)
			}(class)
		}
		wg.Wait()
	} else {
		for class := range buckets {
			suppress(class)
		}
	}

	out := make([]Detection, 0, len(detections))
	for _, k := range kept {
		out = append(out, k...)
	}
	return out
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// Arguments:
//   - detections: Slice of detections sorted by descending score.
//   - iouThreshold: IoU above which overlapping boxes are suppressed.
//
// Returns:
//   - Filtered slice of detections in input order.
func ApplyGreedyNMS(detections []Detection, iouThreshold float32) []Detection {
	n := len(detections)
	filtered := make([]Detection, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := detections[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if images.IoU(anchor.Box, detections[j].Box) > iouThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}

// sortedByScore returns a copy sorted by descending score, stable on ties.
func sortedByScore(detections []Detection) []Detection {
	sorted := make([]Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}
