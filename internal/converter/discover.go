package converter

import (
	"os"

	"pic/pkg/imgutil"
)

// Discover lists dir (one level) and returns the entries whose names end
// in a recognised image suffix, in listing order. File contents are not
// inspected. An unreadable directory and an empty result both fail with
// *NoImagesFoundError.
func Discover(dir string) ([]ImageRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &NoImagesFoundError{Dir: dir, Err: err}
	}

	var refs []ImageRef
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !imgutil.HasSourceSuffix(entry.Name()) {
			continue
		}
		refs = append(refs, ImageRef{Directory: dir, Filename: entry.Name()})
	}

	if len(refs) == 0 {
		return nil, &NoImagesFoundError{Dir: dir}
	}
	return refs, nil
}
