package loader

import (
	"context"
	"errors"
	"io/fs"
	"os"

	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
	"github.com/matzehuels/assetgraph/pkg/urltools"
)

// FileLoader reads file: URLs from the local filesystem.
type FileLoader struct{}

// Load reads the file addressed by url.
func (FileLoader) Load(ctx context.Context, url string) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := urltools.ToPath(url)
	if err != nil {
		return nil, &agerrors.LoadError{URL: url, Message: "invalid file url", Cause: err}
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &agerrors.LoadError{URL: url, Message: "file not found", Cause: err}
	}
	if err != nil {
		return nil, &agerrors.LoadError{URL: url, Message: "stat failed", Cause: err}
	}
	if info.IsDir() {
		return nil, &agerrors.LoadError{URL: url, Message: "is a directory"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &agerrors.LoadError{URL: url, Message: "read failed", Cause: err}
	}
	return &Resource{Data: data}, nil
}
