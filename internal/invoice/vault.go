package invoice

import "sync"

// Vault parks decoded invoices between sale confirmation and the operator's
// download. Retrieval is one-shot; nothing here survives a restart, which
// matches the throwaway nature of the artifact.
type Vault struct {
	mu    sync.Mutex
	files map[int64]*File
}

func NewVault() *Vault {
	return &Vault{files: make(map[int64]*File)}
}

// Put stores the invoice for a confirmed sale, replacing any previous one.
func (v *Vault) Put(saleID int64, f *File) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.files[saleID] = f
}

// Take removes and returns the invoice for a sale, if it is still parked.
func (v *Vault) Take(saleID int64) (*File, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.files[saleID]
	if ok {
		delete(v.files, saleID)
	}
	return f, ok
}
