package ops

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

// ProtectOptions configures password protection. An empty OwnerPassword reuses Password.
type ProtectOptions struct {
	Password      string `json:"password"`
	OwnerPassword string `json:"ownerPassword,omitempty"`
	// all, print or none
	Permissions string `json:"permissions,omitempty"`
}

var permissionSets = map[string]model.PermissionFlags{
	"":      model.PermissionsAll,
	"all":   model.PermissionsAll,
	"print": model.PermissionsPrint,
	"none":  model.PermissionsNone,
}

// Protect encrypts the document with AES-256
func Protect(data []byte, opts ProtectOptions, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	if opts.Password == "" {
		return nil, fmt.Errorf("%w: password is required", pdf.ErrInvalidOptions)
	}
	perms, ok := permissionSets[opts.Permissions]
	if !ok {
		return nil, fmt.Errorf("%w: unknown permissions %q", pdf.ErrInvalidOptions, opts.Permissions)
	}
	owner := opts.OwnerPassword
	if owner == "" {
		owner = opts.Password
	}
	progress.Report(30)

	conf := model.NewAESConfiguration(opts.Password, owner, 256)
	conf.ValidationMode = model.ValidationRelaxed
	conf.Permissions = perms

	out, err := transform(data, "failed to encrypt document", func(rs io.ReadSeeker, w io.Writer) error {
		return api.Encrypt(rs, w, conf)
	})
	if err != nil {
		return nil, err
	}
	progress.Report(100)

	return pdf.NewPDFBlob(out), nil
}

// Unlock removes encryption. A document that is not encrypted comes back unchanged.
func Unlock(data []byte, password string, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	progress.Report(20)

	if ctx, err := api.ReadContext(bytes.NewReader(data), newConfig()); err == nil && ctx.E == nil {
		progress.Report(100)
		return pdf.NewPDFBlob(data), nil
	}
	progress.Report(50)

	conf := newConfig()
	conf.UserPW = password
	conf.OwnerPW = password

	out, err := transform(data, "failed to decrypt document", func(rs io.ReadSeeker, w io.Writer) error {
		return api.Decrypt(rs, w, conf)
	})
	if err != nil {
		return nil, err
	}
	progress.Report(100)

	return pdf.NewPDFBlob(out), nil
}

// IsEncrypted reports whether the document is encrypted
func IsEncrypted(data []byte) bool {
	ctx, err := api.ReadContext(bytes.NewReader(data), newConfig())
	if err != nil {
		return errors.Is(classify(err), pdf.ErrWrongPassword)
	}
	return ctx.E != nil
}
