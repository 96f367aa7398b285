package descriptor

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io/fs"
	"os"
	"sort"

	"model-declarator/internal/walkwalk"
)

// Fingerprint digests the modification times of the build descriptor and of
// every candidate, in milliseconds: the build descriptor first, then the
// candidates ordered by name. A missing build descriptor contributes 0. A
// candidate that cannot be stat'ed is an error.
//
// The digest tracks change times only; rewriting a file with identical bytes
// still changes it.
func Fingerprint(buildDescriptor string, candidates []walkwalk.Candidate) (string, error) {
	times := make([]int64, 0, len(candidates)+1)

	var ms int64
	if buildDescriptor != "" {
		fi, err := os.Stat(buildDescriptor)
		switch {
		case err == nil:
			ms = fi.ModTime().UnixMilli()
		case errors.Is(err, fs.ErrNotExist):
		default:
			return "", fmt.Errorf("fingerprint %s: %w", buildDescriptor, err)
		}
	}
	times = append(times, ms)

	sorted := append([]walkwalk.Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, c := range sorted {
		fi, err := os.Stat(c.Path)
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", c.Path, err)
		}
		times = append(times, fi.ModTime().UnixMilli())
	}
	return digestTimes(times), nil
}

// digestTimes hashes times as the Java object stream serialization of
// successive writeLong calls, so hashes agree with descriptors produced by
// the Gradle plugin: the stream header, then block-data records of at most
// maxBlock bytes holding the big-endian longs.
func digestTimes(times []int64) string {
	h := md5.New()
	h.Write([]byte{0xac, 0xed, 0x00, 0x05})

	bw := blockWriter{h: h}
	for _, t := range times {
		bw.writeLong(t)
	}
	bw.drain()
	return hex.EncodeToString(h.Sum(nil))
}

const (
	maxBlock      = 1024
	tcBlockData   = 0x77
	tcBlockDataLg = 0x7a
)

type blockWriter struct {
	h   hash.Hash
	buf [maxBlock]byte
	n   int
}

func (w *blockWriter) writeLong(v int64) {
	if w.n+8 > maxBlock {
		w.drain()
	}
	binary.BigEndian.PutUint64(w.buf[w.n:], uint64(v))
	w.n += 8
}

func (w *blockWriter) drain() {
	if w.n == 0 {
		return
	}
	if w.n <= 0xff {
		w.h.Write([]byte{tcBlockData, byte(w.n)})
	} else {
		var hdr [5]byte
		hdr[0] = tcBlockDataLg
		binary.BigEndian.PutUint32(hdr[1:], uint32(w.n))
		w.h.Write(hdr[:])
	}
	w.h.Write(w.buf[:w.n])
	w.n = 0
}
