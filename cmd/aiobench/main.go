// Command aiobench exercises the engine end to end: open a backend,
// issue a batch of concurrent reads and writes through it, and report
// throughput and the accumulated iostats snapshot.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/manpen/foxxll"
	"github.com/manpen/foxxll/internal/logging"
	"github.com/manpen/foxxll/internal/stats"
)

func main() {
	var (
		sizeStr  = flag.String("size", "64M", "size of the backing store (e.g., 64M, 1G)")
		ioImpl   = flag.String("io-impl", "memory", "backend: memory, syscall, mmap, fileperblock_syscall, linuxaio, ...")
		path     = flag.String("path", "", "backing file path (ignored for io-impl=memory)")
		blockStr = flag.String("block-size", "4K", "per-request transfer size")
		requests = flag.Int("requests", 4096, "number of requests to issue")
		verbose  = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	size, err := parseSize(*sizeStr)
	if err != nil {
		log.Fatalf("invalid size %q: %v", *sizeStr, err)
	}
	blockSize, err := parseSize(*blockStr)
	if err != nil {
		log.Fatalf("invalid block-size %q: %v", *blockStr, err)
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if *path == "" && *ioImpl != "memory" {
		f, err := os.CreateTemp("", "aiobench-*.img")
		if err != nil {
			log.Fatalf("creating scratch file: %v", err)
		}
		*path = f.Name()
		f.Close()
		defer os.Remove(*path)
	}

	logger.Info("opening backend", "io_impl", *ioImpl, "size", formatSize(size), "path", *path)

	f, err := aio.CreateFile(aio.DiskConfig{
		Path:   *path,
		IOImpl: *ioImpl,
		Size:   size,
		Flags:  aio.Creat | aio.RDWR,
	})
	if err != nil {
		logger.Error("failed to open backend", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, closing backend")
			f.CloseRemove()
			os.Exit(1)
		case <-done:
		}
	}()

	logger.Info("issuing requests", "count", *requests, "block_size", formatSize(blockSize))
	start := time.Now()

	var wg sync.WaitGroup
	var failures int64
	var mu sync.Mutex
	for i := 0; i < *requests; i++ {
		wg.Add(1)
		buf := make([]byte, blockSize)
		offset := (int64(i) * blockSize) % (size - blockSize + 1)
		dir := aio.Write
		if i%2 == 1 {
			dir = aio.Read
		}
		cb := func(r *aio.Request, success bool) {
			defer wg.Done()
			if !success {
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}
		if dir == aio.Write {
			f.AWrite(buf, offset, blockSize, cb)
		} else {
			f.ARead(buf, offset, blockSize, cb)
		}
	}
	wg.Wait()
	close(done)

	elapsed := time.Since(start)
	bytesMoved := int64(*requests) * blockSize
	logger.Info("workload complete",
		"elapsed", elapsed,
		"bytes", formatSize(bytesMoved),
		"throughput", formatSize(int64(float64(bytesMoved)/elapsed.Seconds()))+"/s",
		"failures", failures)

	snap := stats.GetInstance().Snapshot()
	fmt.Printf("reads=%d writes=%d bytes_read=%s bytes_written=%s\n",
		snap.Reads, snap.Writes, formatSize(int64(snap.BytesRead)), formatSize(int64(snap.BytesWritten)))

	if err := f.CloseRemove(); err != nil {
		logger.Error("error closing backend", "error", err)
		os.Exit(1)
	}
}

// parseSize parses a size string like "64M", "1G", "512K".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(s)

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "G")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}

// formatSize formats a byte count as a human-readable string.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"K", "M", "G", "T"}
	return fmt.Sprintf("%.1f %sB", float64(bytes)/float64(div), units[exp])
}
