package backend

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PageCount reads a document's page count without a full extraction run.
// Uses the pure-Go reader so it works even when other backends can't.
func PageCount(path string) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed document structure: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return r.NumPage(), nil
}
