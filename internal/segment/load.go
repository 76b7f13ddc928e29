// Package segment reads build inputs into bootpack segments.
package segment

import (
	"context"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/kdrag0n/bootpack"
)

// Source names one input file. An empty Path yields an empty segment.
type Source struct {
	Origin string
	Path   string
}

// Set holds loaded segments. The data may be memory mapped, so it is only
// valid until Close.
type Set struct {
	mu       sync.Mutex
	segments map[string]bootpack.Segment
	maps     []mmap.MMap
	files    []*os.File
}

// Load reads every source concurrently. On error nothing stays mapped.
func Load(ctx context.Context, sources ...Source) (*Set, error) {
	set := &Set{segments: make(map[string]bootpack.Segment, len(sources))}

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return set.load(src)
		})
	}

	if err := g.Wait(); err != nil {
		set.Close()
		return nil, err
	}

	return set, nil
}

func (s *Set) load(src Source) error {
	if src.Path == "" {
		s.put(src.Origin, nil, nil, nil)
		return nil
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return bootpack.WrapMsg(err, "opening "+src.Origin)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return bootpack.WrapMsg(err, "verifying "+src.Origin)
	}
	if fi.IsDir() {
		f.Close()
		return bootpack.WrapMsg(&os.PathError{Op: "read", Path: src.Path, Err: os.ErrInvalid}, src.Origin+" is a directory")
	}

	// Empty files cannot be mapped; let the assembler decide if empty is allowed.
	if fi.Size() == 0 {
		f.Close()
		s.put(src.Origin, []byte{}, nil, nil)
		return nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return bootpack.WrapMsg(err, "mapping "+src.Origin)
	}

	klog.V(2).InfoS("Loaded segment", "origin", src.Origin, "path", src.Path, "size", len(m))
	s.put(src.Origin, m, m, f)
	return nil
}

func (s *Set) put(origin string, data []byte, m mmap.MMap, f *os.File) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.segments[origin] = bootpack.NewSegment(origin, data)
	if m != nil {
		s.maps = append(s.maps, m)
		s.files = append(s.files, f)
	}
}

// Get returns the segment loaded for origin, or an empty one.
func (s *Set) Get(origin string) bootpack.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seg, ok := s.segments[origin]; ok {
		return seg
	}
	return bootpack.NewSegment(origin, nil)
}

// Close unmaps and closes every input.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, m := range s.maps {
		if err := m.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.maps = nil
	s.files = nil
	s.segments = map[string]bootpack.Segment{}
	return firstErr
}
