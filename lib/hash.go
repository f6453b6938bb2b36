package lib

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is the lowercase hex digest of a file's full content.
type Fingerprint string

const (
	AlgorithmMD5    = "md5"
	AlgorithmSHA256 = "sha256"
	AlgorithmXXHash = "xxhash"
)

// DefaultAlgorithm is 128-bit MD5, matching fingerprints produced by earlier
// releases of the tool.
const DefaultAlgorithm = AlgorithmMD5

// DefaultChunkSize is the read size used when the caller passes <= 0.
const DefaultChunkSize = 4096

// Algorithms lists the accepted --hash values.
var Algorithms = []string{AlgorithmMD5, AlgorithmSHA256, AlgorithmXXHash}

// ValidAlgorithm reports whether name is one of Algorithms.
func ValidAlgorithm(name string) bool {
	for _, algorithm := range Algorithms {
		if name == algorithm {
			return true
		}
	}
	return false
}

func newHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case AlgorithmXXHash:
		return xxhash.New(), nil
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmMD5, "":
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm: %s", algorithm)
	}
}

// Pool of DefaultChunkSize buffers; larger chunk sizes allocate per call.
var bufPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, DefaultChunkSize)
		return &buffer
	},
}

// HashReader streams reader through the algorithm in chunkSize reads and
// returns the digest plus the number of bytes consumed. ctx is checked between
// chunks so a deadline aborts long reads.
func HashReader(ctx context.Context, reader io.Reader, algorithm string, chunkSize int) (Fingerprint, int64, error) {
	hasher, err := newHasher(algorithm)
	if err != nil {
		return "", 0, err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := bufPool.Get().(*[]byte)
	defer bufPool.Put(buf)
	if cap(*buf) < chunkSize {
		*buf = make([]byte, chunkSize)
	}
	readBuffer := (*buf)[:chunkSize]
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return "", total, err
		}
		bytesRead, err := reader.Read(readBuffer)
		if bytesRead > 0 {
			hasher.Write(readBuffer[:bytesRead])
			total += int64(bytesRead)
		}
		if err == io.EOF {
			return Fingerprint(hex.EncodeToString(hasher.Sum(nil))), total, nil
		}
		if err != nil {
			return "", total, err
		}
	}
}

// HashBytes fingerprints an in-memory slice. Used by tests and the generator.
func HashBytes(data []byte, algorithm string) (Fingerprint, error) {
	switch algorithm {
	case AlgorithmXXHash:
		return Fingerprint(fmt.Sprintf("%016x", xxhash.Sum64(data))), nil
	case AlgorithmSHA256:
		shaDigest := sha256.Sum256(data)
		return Fingerprint(hex.EncodeToString(shaDigest[:])), nil
	case AlgorithmMD5, "":
		md5Digest := md5.Sum(data)
		return Fingerprint(hex.EncodeToString(md5Digest[:])), nil
	default:
		return "", fmt.Errorf("unknown hash algorithm: %s", algorithm)
	}
}

// HashFile fingerprints the local file at path. Open and read failures come
// back as *IOError carrying path.
func HashFile(ctx context.Context, path, algorithm string, chunkSize int) (Fingerprint, error) {
	if _, err := newHasher(algorithm); err != nil {
		return "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", ioError(path, err)
	}
	defer file.Close()
	fingerprint, _, err := HashReader(ctx, file, algorithm, chunkSize)
	if err != nil {
		return "", ioError(path, err)
	}
	return fingerprint, nil
}
