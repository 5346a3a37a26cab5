package nifti

import (
	"math"

	"github.com/pkg/errors"
)

// MaskStats describes a binary ROI mask.
type MaskStats struct {
	Dims      [3]int
	VoxelSize [3]float64
	Voxels    int
	NonZero   int
	// VolumeMM3 is the volume covered by non-zero voxels.
	VolumeMM3 float64
}

// Empty reports whether no voxel is set. tckedit -include with an empty mask
// drops every streamline.
func (s MaskStats) Empty() bool {
	return s.NonZero == 0
}

// ComputeMaskStats counts the non-zero voxels of the first volume of img.
// NaN voxels count as zero.
func ComputeMaskStats(img *Image) MaskStats {
	stats := MaskStats{VoxelSize: img.Header.VoxelSize()}

	volume := 1
	for i, d := range img.Header.Dims() {
		if i < 3 {
			stats.Dims[i] = d
			volume *= max(d, 1)
		}
	}

	volume = min(volume, img.NumVoxels())
	stats.Voxels = volume

	for i := range volume {
		v := img.Value(i)
		if v != 0 && !math.IsNaN(v) {
			stats.NonZero++
		}
	}

	stats.VolumeMM3 = float64(stats.NonZero) * stats.VoxelSize[0] * stats.VoxelSize[1] * stats.VoxelSize[2]

	return stats
}

// MaskStatsFile reads path and computes its mask statistics.
func MaskStatsFile(path string) (MaskStats, error) {
	img, err := ReadFile(path)
	if err != nil {
		return MaskStats{}, err
	}

	if img.Header.Dim[0] < 3 {
		return MaskStats{}, errors.Wrapf(ErrBadHeader, "%s has %d dimensions", path, img.Header.Dim[0])
	}

	return ComputeMaskStats(img), nil
}
