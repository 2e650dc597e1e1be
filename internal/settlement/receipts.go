package settlement

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirStore writes receipts as comprobante_venta_<id>.png under Dir.
type DirStore struct {
	Dir string
}

// Path returns where the receipt of saleID is written.
func (s DirStore) Path(saleID int64) string {
	return filepath.Join(s.Dir, fmt.Sprintf("comprobante_venta_%d.png", saleID))
}

// Save writes data, creating Dir when needed.
func (s DirStore) Save(saleID int64, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty receipt for sale %d", saleID)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.Path(saleID), data, 0o644)
}
