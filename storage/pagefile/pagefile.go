// Package pagefile implements C1: a growable, memory-mapped paged file.
// It grows the backing file by a fallocate-style truncate-extend, then
// either extends or replaces the memory mapping, and hands out raw page
// slices for the buffer manager (storage/buffer) to latch and cache.
//
// Adapted from the teacher's btree.Pager file-growth and stats bookkeeping,
// generalized to a real mmap backing (github.com/edsrzf/mmap-go) instead of
// ReadAt/WriteAt, and to the 16 KiB page size and directory-page-0 layout
// spec §6 fixes for this database format.
package pagefile

import (
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/storage/page"
)

// GrowPages is the number of pages the file is extended by each time it
// runs out of room; growing in batches amortizes the truncate+remap cost.
const GrowPages = 256

// File is a growable, memory-mapped collection of fixed-size pages.
// Page 0 is reserved for the directory (spec §6); callers allocate from
// page 1 onward.
type File struct {
	mu       sync.RWMutex
	f        *os.File
	mapping  mmap.MMap
	numPages uint32

	stats struct {
		grows        int64
		bytesGrown   int64
		bytesWritten int64
	}
}

// Open opens or creates path, memory-mapping it in read/write mode. A
// freshly created file is grown to hold exactly one page (the directory).
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "pagefile: open")
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "pagefile: stat")
	}

	pf := &File{f: f}
	if fi.Size() == 0 {
		if err := pf.growLocked(1); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		if fi.Size()%page.Size != 0 {
			f.Close()
			return nil, errors.Errorf("pagefile: size %d is not a multiple of page size %d", fi.Size(), page.Size)
		}
		pf.numPages = uint32(fi.Size() / page.Size)
		if err := pf.mapLocked(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return pf, nil
}

// mapLocked (re)establishes the memory mapping over the whole file.
// Callers must hold mu.
func (pf *File) mapLocked() error {
	if pf.mapping != nil {
		if err := pf.mapping.Unmap(); err != nil {
			return errors.Wrap(err, "pagefile: unmap")
		}
	}
	m, err := mmap.Map(pf.f, mmap.RDWR, 0)
	if err != nil {
		return errors.Wrap(err, "pagefile: mmap")
	}
	pf.mapping = m
	return nil
}

// growLocked extends the file by n pages (fallocate-style: truncate then
// remap) and updates numPages. Callers must hold mu.
func (pf *File) growLocked(n uint32) error {
	newSize := int64(pf.numPages+n) * page.Size
	if err := pf.f.Truncate(newSize); err != nil {
		return errors.Wrap(err, "pagefile: truncate")
	}
	pf.numPages += n
	if err := pf.mapLocked(); err != nil {
		return err
	}
	pf.stats.grows++
	pf.stats.bytesGrown += int64(n) * page.Size
	return nil
}

// NumPages returns the number of addressable pages: page 0 through the
// last page Alloc handed out (right after Open of an existing file, every
// page the file holds). The file itself may be longer, grown ahead in
// GrowPages batches.
func (pf *File) NumPages() uint32 {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return pf.numPages
}

// Alloc grows the file if needed and returns the page number of a freshly
// zeroed page at the end of the file.
func (pf *File) Alloc() (uint32, error) {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	// numPages tracks the *next* free page only once allocated; page
	// allocation here is simply "append a page and grow in batches".
	pageNo := pf.numPages
	if pageNo+1 > uint32(len(pf.mapping))/page.Size {
		if err := pf.growLocked(GrowPages); err != nil {
			return 0, err
		}
		pf.numPages = pageNo + 1
	} else {
		pf.numPages++
	}
	off := int64(pageNo) * page.Size
	for i := int64(0); i < page.Size; i++ {
		pf.mapping[off+i] = 0
	}
	return pageNo, nil
}

// ReadAt copies pageNo's bytes into dst, which must be page.Size long.
func (pf *File) ReadAt(pageNo uint32, dst []byte) error {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	if pageNo >= pf.numPages {
		return errors.Errorf("pagefile: page %d out of bounds (numPages=%d)", pageNo, pf.numPages)
	}
	off := int64(pageNo) * page.Size
	copy(dst, pf.mapping[off:off+page.Size])
	return nil
}

// WriteAt copies src (page.Size bytes) into pageNo's slot.
func (pf *File) WriteAt(pageNo uint32, src []byte) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pageNo >= pf.numPages {
		return errors.Errorf("pagefile: page %d out of bounds (numPages=%d)", pageNo, pf.numPages)
	}
	off := int64(pageNo) * page.Size
	copy(pf.mapping[off:off+page.Size], src)
	pf.stats.bytesWritten += page.Size
	return nil
}

// Flush syncs the mapping and the underlying file to disk.
func (pf *File) Flush() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.mapping != nil {
		if err := pf.mapping.Flush(); err != nil {
			return errors.Wrap(err, "pagefile: flush mapping")
		}
	}
	return pf.f.Sync()
}

// Close unmaps and closes the backing file.
func (pf *File) Close() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.mapping != nil {
		if err := pf.mapping.Unmap(); err != nil {
			return errors.Wrap(err, "pagefile: unmap")
		}
	}
	return pf.f.Close()
}

// Stats reports paging activity for this file.
func (pf *File) Stats() common.Stats {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return common.Stats{
		NumPages:     int64(pf.numPages),
		BytesWritten: pf.stats.bytesWritten,
	}
}
