package ingestpipe

import "fmt"

// FileBlob is the raw bytes of one uploaded file plus its declared name
// and content type.
type FileBlob struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadRequest is a batch of files submitted together. ReplaceFilenames
// names files (by their uploaded, pre-rename name) whose prior stored data
// must be purged before re-ingesting; RenameMap maps an uploaded filename
// to the effective name it is stored under.
type UploadRequest struct {
	Tenant           string
	Files            []FileBlob
	ReplaceFilenames map[string]bool
	RenameMap        map[string]string
}

// Limits bounds a batch: at most MaxFiles files, each at most MaxFileMB
// megabytes.
type Limits struct {
	MaxFiles  int
	MaxFileMB int
}

const maxFilenameLen = 255

// EffectiveFilename resolves the name a file is stored under: the rename
// map's target when one is configured for it, otherwise the uploaded name
// unchanged.
func (r UploadRequest) EffectiveFilename(uploaded string) string {
	if renamed, ok := r.RenameMap[uploaded]; ok && renamed != "" {
		return renamed
	}
	return uploaded
}

// Validate checks the structural invariants a batch must satisfy before it
// is queued: non-empty tenant, at least one file, file count and per-file
// size within limits, well-formed filenames, and rename targets that are
// unique within the batch.
func (r UploadRequest) Validate(limits Limits) error {
	if r.Tenant == "" {
		return fmt.Errorf("%w: tenant is required", ErrValidation)
	}
	if len(r.Files) == 0 {
		return fmt.Errorf("%w: at least one file is required", ErrValidation)
	}
	if limits.MaxFiles > 0 && len(r.Files) > limits.MaxFiles {
		return fmt.Errorf("%w: %d files exceeds the %d file limit", ErrValidation, len(r.Files), limits.MaxFiles)
	}
	maxBytes := int64(limits.MaxFileMB) * 1024 * 1024

	seenTargets := make(map[string]bool, len(r.Files))
	for _, f := range r.Files {
		if f.Filename == "" {
			return fmt.Errorf("%w: filename is required", ErrValidation)
		}
		if len(f.Filename) > maxFilenameLen {
			return fmt.Errorf("%w: filename exceeds %d characters", ErrValidation, maxFilenameLen)
		}
		if len(f.Data) == 0 {
			return fmt.Errorf("%w: %s is empty", ErrValidation, f.Filename)
		}
		if maxBytes > 0 && int64(len(f.Data)) > maxBytes {
			return fmt.Errorf("%w: %s exceeds %d MB limit", ErrValidation, f.Filename, limits.MaxFileMB)
		}
		target := r.EffectiveFilename(f.Filename)
		if seenTargets[target] {
			return fmt.Errorf("%w: effective filename %s is not unique within this upload", ErrValidation, target)
		}
		seenTargets[target] = true
	}
	return nil
}
