package tractfilter

import (
	"path/filepath"
	"strings"
)

const (
	tckExt      = ".tck"
	inverseTag  = "_inv"
	endpointTag = "_ep"
)

func stem(name string) string {
	return strings.TrimSuffix(name, tckExt)
}

// FilteredName is the tckedit output of a tractogram: X.tck becomes X_<label>.tck.
func FilteredName(tract, label string) string {
	return stem(tract) + "_" + label + tckExt
}

// InverseName is the inverse tckedit output: X.tck becomes X_<label>_inv.tck.
func InverseName(tract, label string) string {
	return stem(tract) + "_" + label + inverseTag + tckExt
}

// EndpointName is the tckresample -endpoints output: X_<label>.tck becomes
// X_<label>_ep.tck.
func EndpointName(path string) string {
	return stem(path) + endpointTag + tckExt
}

// niftiStem strips .nii and .nii.gz.
func niftiStem(name string) string {
	name = strings.TrimSuffix(name, ".gz")

	return strings.TrimSuffix(name, ".nii")
}

// RegisteredName is a mask resampled into the space of a tractogram:
// LPIC_binary.nii.gz filtered with CST_L.tck becomes LPIC_binary_CST_L.nii.gz.
func RegisteredName(roi, tract string) string {
	return niftiStem(filepath.Base(roi)) + "_" + stem(filepath.Base(tract)) + ".nii.gz"
}

// RegistrationPrefix is the output prefix of the registration of a tract.
func RegistrationPrefix(tract string) string {
	return stem(filepath.Base(tract)) + "_roi2tract_"
}

func resolve(dir, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(dir, name)
}
