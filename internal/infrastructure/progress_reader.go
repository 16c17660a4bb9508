package infrastructure

import "io"

// progressReader wraps an io.Reader and reports cumulative progress.
// Reports are emitted every interval bytes and once more at EOF.
type progressReader struct {
	reader     io.Reader
	offset     int64 // bytes already on disk before this read started
	total      int64 // -1 when unknown
	onProgress func(received, total int64)
	read       int64
	sinceLast  int64
	interval   int64
}

func newProgressReader(r io.Reader, offset, total, interval int64, cb func(received, total int64)) *progressReader {
	if interval <= 0 {
		interval = 32 * 1024
	}
	return &progressReader{
		reader:     r,
		offset:     offset,
		total:      total,
		onProgress: cb,
		interval:   interval,
	}
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pr.sinceLast += int64(n)
		if pr.sinceLast >= pr.interval {
			pr.report()
		}
	}
	if err == io.EOF && pr.sinceLast > 0 {
		pr.report()
	}
	return n, err
}

func (pr *progressReader) report() {
	pr.sinceLast = 0
	if pr.onProgress != nil {
		pr.onProgress(pr.offset+pr.read, pr.total)
	}
}

// Received returns the bytes on disk including the resume offset
func (pr *progressReader) Received() int64 {
	return pr.offset + pr.read
}
