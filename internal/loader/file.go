package loader

import (
	"context"
	"os"

	"github.com/mitchellh/go-homedir"
)

type fileLoader string

// FileLoader reads patterns from a local file. A leading '~' is the home directory.
func FileLoader(filename string) Loader {
	if v, err := homedir.Expand(filename); err == nil {
		filename = v
	}
	return fileLoader(filename)
}

func (l fileLoader) Patterns(ctx context.Context) ([]string, error) {
	f, err := os.Open(string(l))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return scanPatterns(f)
}

func (l fileLoader) Close() error {
	return nil
}
