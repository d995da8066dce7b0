package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"reelsmith/internal/logging"
)

// Record is one decoded log line.
type Record struct {
	Time      string
	Level     string
	Message   string
	ChapterID string
	Stage     string
	JobID     string
	EventType string
	Raw       string
}

// Filter narrows which records are returned.
type Filter struct {
	ChapterID string
	Limit     int
}

func (f Filter) match(r Record) bool {
	return f.ChapterID == "" || r.ChapterID == f.ChapterID
}

// Read returns the last matching records in file order and the end offset.
// A missing file yields no records and offset zero.
func Read(path string, filter Filter) ([]Record, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}

	var kept []Record
	offset, err := scan(file, 0, func(r Record) {
		if !filter.match(r) {
			return
		}
		kept = append(kept, r)
		if filter.Limit > 0 && len(kept) > filter.Limit {
			kept = kept[1:]
		}
	})
	if err != nil {
		return nil, 0, err
	}
	return kept, offset, nil
}

// Follow polls the file from offset and calls fn for each new matching record.
// It returns the last offset read when ctx is done. A truncated file restarts
// from the beginning.
func Follow(ctx context.Context, path string, offset int64, filter Filter, interval time.Duration, fn func(Record)) (int64, error) {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, filter, fn)
		if err != nil {
			return offset, err
		}
		offset = next

		select {
		case <-ctx.Done():
			return offset, nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter Filter, fn func(Record)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if offset == info.Size() {
		return offset, nil
	}
	return scan(file, offset, func(r Record) {
		if filter.match(r) {
			fn(r)
		}
	})
}

// scan only consumes complete lines so a record being written is picked up
// whole on the next pass.
func scan(file *os.File, offset int64, fn func(Record)) (int64, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return offset, nil
			}
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		text := line[:len(line)-1]
		if text == "" {
			continue
		}
		fn(decode(text))
	}
}

func decode(line string) Record {
	record := Record{Raw: line}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return record
	}
	str := func(key string) string {
		if v, ok := fields[key].(string); ok {
			return v
		}
		return ""
	}
	record.Time = str("ts")
	record.Level = str("level")
	record.Message = str("msg")
	record.ChapterID = str(logging.FieldChapterID)
	record.Stage = str(logging.FieldStage)
	record.JobID = str(logging.FieldJobID)
	record.EventType = str(logging.FieldEventType)
	return record
}
