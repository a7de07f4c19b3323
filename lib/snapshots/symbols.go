package snapshots

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/everitoken/evtops/lib/logger"
)

// symbolBinaries are the per-binary subtrees expected under a symbol folder,
// each holding <build-hash>/<symbol-file> entries.
var symbolBinaries = []string{"evtd", "evtc", "evtwd"}

// SymbolKey derives the store key for a symbol file:
// <ref>/<binary>/<hash>/<file>, taken from the last three path elements.
func SymbolKey(ref, file string) string {
	parts := strings.Split(filepath.ToSlash(file), "/")
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	return ref + "/" + strings.Join(parts, "/")
}

// UploadSymbols walks the per-binary symbol trees under folder and uploads
// every file under its derived key. Returns the uploaded keys in walk order.
func (s *Store) UploadSymbols(ctx context.Context, folder, ref string) ([]string, error) {
	log := logger.FromContext(ctx)

	var keys []string
	for _, binary := range symbolBinaries {
		root := filepath.Join(folder, binary)
		if _, err := os.Stat(root); err != nil {
			return keys, fmt.Errorf("symbol folder %s: %w", root, err)
		}

		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			key := SymbolKey(ref, path)
			log.DebugContext(ctx, "uploading symbol", "key", key, "bucket", s.bucket)
			if err := s.UploadRaw(ctx, path, key); err != nil {
				return err
			}
			keys = append(keys, key)
			return nil
		})
		if err != nil {
			return keys, err
		}
	}
	return keys, nil
}
