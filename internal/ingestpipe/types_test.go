package ingestpipe

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func validReq() UploadRequest {
	return UploadRequest{
		Tenant: "acme",
		Files: []FileBlob{
			{Filename: "report.pdf", ContentType: "application/pdf", Data: []byte("hello")},
		},
	}
}

func TestValidateAcceptsWellFormedBatch(t *testing.T) {
	req := validReq()
	require.NoError(t, req.Validate(Limits{MaxFiles: 15, MaxFileMB: 50}))
}

func TestValidateRejectsMissingTenant(t *testing.T) {
	req := validReq()
	req.Tenant = ""
	err := req.Validate(Limits{})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrValidation))
}

func TestValidateRejectsEmptyBatch(t *testing.T) {
	req := UploadRequest{Tenant: "acme"}
	err := req.Validate(Limits{})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrValidation))
}

func TestValidateEnforcesMaxFilesPerUpload(t *testing.T) {
	req := UploadRequest{Tenant: "acme"}
	for i := 0; i < 3; i++ {
		req.Files = append(req.Files, FileBlob{Filename: "f.pdf", Data: []byte("x")})
	}
	err := req.Validate(Limits{MaxFiles: 2})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrValidation))
}

func TestValidateEnforcesMaxFileMB(t *testing.T) {
	req := UploadRequest{
		Tenant: "acme",
		Files: []FileBlob{
			{Filename: "big.pdf", Data: make([]byte, 2*1024*1024)},
		},
	}
	err := req.Validate(Limits{MaxFileMB: 1})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrValidation))
	require.True(t, strings.Contains(err.Error(), "exceeds 1 MB limit"))
}

func TestValidateRejectsDuplicateEffectiveFilenames(t *testing.T) {
	req := UploadRequest{
		Tenant: "acme",
		Files: []FileBlob{
			{Filename: "a.pdf", Data: []byte("x")},
			{Filename: "b.pdf", Data: []byte("y")},
		},
		RenameMap: map[string]string{"b.pdf": "a.pdf"},
	}
	err := req.Validate(Limits{})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrValidation))
}

func TestEffectiveFilenameFallsBackToUploadedName(t *testing.T) {
	req := UploadRequest{RenameMap: map[string]string{"a.pdf": "renamed.pdf"}}
	require.Equal(t, "renamed.pdf", req.EffectiveFilename("a.pdf"))
	require.Equal(t, "b.pdf", req.EffectiveFilename("b.pdf"))
}
